package assembler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/danmuck/tlmdecode/internal/beacon"
	"github.com/danmuck/tlmdecode/internal/datacache"
	"github.com/rs/zerolog/log"
)

type State uint8

const (
	StateIdle State = iota
	StateAwaitingContinuation
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingContinuation:
		return "awaiting_continuation"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// BeaconAssembler feeds containers through the codec one at a time and
// stitches a trailing partial sub-message onto the start of the next
// container. At most one message is pending. Not safe for concurrent use.
type BeaconAssembler struct {
	codec    *beacon.Codec
	expander *datacache.Expander
	sink     Sink
	now      func() time.Time

	state   State
	pending beacon.SubMessage
	index   int
}

func NewBeaconAssembler(codec *beacon.Codec, expander *datacache.Expander, sink Sink) *BeaconAssembler {
	return &BeaconAssembler{
		codec:    codec,
		expander: expander,
		sink:     sink,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (a *BeaconAssembler) State() State {
	return a.state
}

// Pending returns the partial message waiting for continuation bytes.
func (a *BeaconAssembler) Pending() (beacon.SubMessage, bool) {
	if a.state != StateAwaitingContinuation {
		return beacon.SubMessage{}, false
	}
	return a.pending, true
}

// Reset drops any pending partial and reports whether one was lost.
func (a *BeaconAssembler) Reset() bool {
	lost := a.state == StateAwaitingContinuation
	a.state = StateIdle
	a.pending = beacon.SubMessage{}
	return lost
}

// Feed processes one container.
func (a *BeaconAssembler) Feed(container []byte) error {
	idx := a.index
	a.index++

	want := 0
	if a.state == StateAwaitingContinuation {
		want = a.pending.Missing()
	}

	c := a.codec.ParseAfter(container, want)
	if c.Truncated {
		if err := a.signal(Signal{
			Kind:     SignalTruncatedContainer,
			Index:    idx,
			Expected: a.codec.Size(),
			Got:      len(container),
		}); err != nil {
			return err
		}
	}

	if want > 0 {
		a.pending.Payload = append(a.pending.Payload, c.Continuation...)
		switch {
		case a.pending.Missing() == 0:
			done := a.pending
			a.Reset()
			if err := a.deliver(idx, c.Header, done, true); err != nil {
				return err
			}
		case c.Truncated:
			// The link lost the rest of the continuation.
			lost := a.pending
			a.Reset()
			if err := a.signal(Signal{
				Kind:     SignalPartialDiscarded,
				Index:    idx,
				Code:     lost.Code(),
				Expected: int(lost.Length),
				Got:      len(lost.Payload),
			}); err != nil {
				return err
			}
		}
	}
	if !c.HeaderOK {
		return nil
	}

	for _, msg := range c.Messages {
		if !msg.Partial {
			if err := a.deliver(idx, c.Header, msg, false); err != nil {
				return err
			}
			continue
		}
		if c.Truncated {
			if err := a.signal(Signal{
				Kind:     SignalPartialDiscarded,
				Index:    idx,
				Code:     msg.Code(),
				Expected: int(msg.Length),
				Got:      len(msg.Payload),
			}); err != nil {
				return err
			}
			continue
		}
		msg.Payload = append([]byte(nil), msg.Payload...)
		a.pending = msg
		a.state = StateAwaitingContinuation
	}

	if c.Stop == beacon.StopUnknownType {
		if err := a.signal(Signal{Kind: SignalUnknownType, Index: idx, Code: c.StopCode}); err != nil {
			return err
		}
	}
	log.Debug().
		Int("index", idx).
		Uint8("seq", c.Header.Seq).
		Int("messages", len(c.Messages)).
		Str("stop", c.Stop.String()).
		Str("state", a.state.String()).
		Msg("assembler.Beacon container")
	return nil
}

// Run reads whole containers from r until EOF or ctx ends. A short final
// container is still fed.
func (a *BeaconAssembler) Run(ctx context.Context, r io.Reader) error {
	buf := make([]byte, a.codec.Size())
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := io.ReadFull(r, buf)
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, io.ErrUnexpectedEOF):
			return a.Feed(buf[:n])
		case err != nil:
			return err
		}
		if err := a.Feed(buf); err != nil {
			return err
		}
	}
}

// Consume feeds one container per received frame until frames closes or
// ctx ends.
func (a *BeaconAssembler) Consume(ctx context.Context, frames <-chan []byte) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			if err := a.Feed(frame); err != nil {
				return err
			}
		}
	}
}

func (a *BeaconAssembler) deliver(idx int, h beacon.Header, msg beacon.SubMessage, stitched bool) error {
	labeled := a.expander.Expand(msg.Code(), msg.Payload)
	return a.sink.Message(Delivery{
		Pipeline:      PipelineBeacon,
		Index:         idx,
		Message:       labeled,
		Timestamp:     a.now(),
		Seq:           h.Seq,
		ChecksumValid: true,
		Stitched:      stitched,
	})
}

func (a *BeaconAssembler) signal(s Signal) error {
	s.Pipeline = PipelineBeacon
	logSignal(s)
	return a.sink.Signal(s)
}

func logSignal(s Signal) {
	log.Warn().
		Str("pipeline", string(s.Pipeline)).
		Str("kind", string(s.Kind)).
		Int("index", s.Index).
		Uint16("code", uint16(s.Code)).
		Int("expected", s.Expected).
		Int("got", s.Got).
		AnErr("cause", s.Err).
		Msg("assembler.signal")
}
