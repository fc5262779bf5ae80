package assembler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/tlmdecode/internal/catalog"
	"github.com/danmuck/tlmdecode/internal/datacache"
)

type Pipeline string

const (
	PipelineBeacon    Pipeline = "beacon"
	PipelineTelemetry Pipeline = "telemetry"
)

type SignalKind string

const (
	SignalChecksumInvalid    SignalKind = "checksum_invalid"
	SignalDroppedFrames      SignalKind = "dropped_frames"
	SignalUnknownType        SignalKind = "unknown_type"
	SignalUndecodableRecord  SignalKind = "undecodable_record"
	SignalFileHeaderInvalid  SignalKind = "file_header_invalid"
	SignalPartialDiscarded   SignalKind = "partial_discarded"
	SignalTruncatedContainer SignalKind = "truncated_container"
)

// Signal is an out-of-band diagnostic raised next to the decoded messages.
// Expected and Got carry the kind-specific pair: checksums, rolling
// counters or byte counts.
type Signal struct {
	Kind     SignalKind
	Pipeline Pipeline
	Index    int
	Code     catalog.Code
	Expected int
	Got      int
	Err      error
}

func (s Signal) String() string {
	out := fmt.Sprintf("%s/%s index=%d", s.Pipeline, s.Kind, s.Index)
	switch s.Kind {
	case SignalUnknownType:
		out += fmt.Sprintf(" code=0x%02X", uint16(s.Code))
	case SignalChecksumInvalid:
		out += fmt.Sprintf(" code=0x%02X expected=0x%04X got=0x%04X", uint16(s.Code), s.Expected, s.Got)
	case SignalDroppedFrames, SignalTruncatedContainer, SignalPartialDiscarded:
		out += fmt.Sprintf(" expected=%d got=%d", s.Expected, s.Got)
	}
	if s.Err != nil {
		out += " err=" + s.Err.Error()
	}
	return out
}

// Delivery is one labeled message in stream order.
type Delivery struct {
	Pipeline Pipeline
	// Index is the container or frame index the message closed in.
	Index     int
	Message   datacache.LabeledMessage
	Timestamp time.Time
	// Seq is the container sequence number or the record rolling counter.
	Seq           uint8
	OBCMode       uint8
	DataStatus    uint8
	ChecksumValid bool
	// Stitched marks a beacon message completed from a continuation.
	Stitched bool
}

// Sink consumes assembler output. A returned error stops the assembler.
type Sink interface {
	Message(Delivery) error
	Signal(Signal) error
}

// ChannelSink hands output to another goroutine.
type ChannelSink struct {
	ctx      context.Context
	Messages chan Delivery
	Signals  chan Signal
}

func NewChannelSink(ctx context.Context, buffer int) *ChannelSink {
	return &ChannelSink{
		ctx:      ctx,
		Messages: make(chan Delivery, buffer),
		Signals:  make(chan Signal, buffer),
	}
}

func (s *ChannelSink) Message(d Delivery) error {
	select {
	case s.Messages <- d:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

func (s *ChannelSink) Signal(sig Signal) error {
	select {
	case s.Signals <- sig:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

// Close ends both channels. Call it once the producer has returned.
func (s *ChannelSink) Close() {
	close(s.Messages)
	close(s.Signals)
}

// Collector keeps everything in memory.
type Collector struct {
	Messages []Delivery
	Signals  []Signal
}

func (c *Collector) Message(d Delivery) error {
	c.Messages = append(c.Messages, d)
	return nil
}

func (c *Collector) Signal(s Signal) error {
	c.Signals = append(c.Signals, s)
	return nil
}

// Count returns how many signals of kind were collected.
func (c *Collector) Count(kind SignalKind) int {
	n := 0
	for _, s := range c.Signals {
		if s.Kind == kind {
			n++
		}
	}
	return n
}

type multiSink []Sink

// Tee fans output to every sink in order. All sinks see each item; their
// errors are joined.
func Tee(sinks ...Sink) Sink {
	return multiSink(sinks)
}

func (m multiSink) Message(d Delivery) error {
	var errs []error
	for _, s := range m {
		if err := s.Message(d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multiSink) Signal(sig Signal) error {
	var errs []error
	for _, s := range m {
		if err := s.Signal(sig); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
