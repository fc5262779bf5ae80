package assembler

import (
	"context"
	"errors"
	"io"

	"github.com/danmuck/tlmdecode/internal/datacache"
	"github.com/danmuck/tlmdecode/internal/tlmlog"
	"github.com/rs/zerolog/log"
)

// Summary describes one scanned telemetry log.
type Summary struct {
	Header    tlmlog.FileHeader
	HeaderErr error
	Stats     tlmlog.Stats
}

// TelemetryAssembler decodes log files record by record. Records never
// continue across frames, so it holds no state between runs.
type TelemetryAssembler struct {
	expander *datacache.Expander
	sink     Sink
}

func NewTelemetryAssembler(expander *datacache.Expander, sink Sink) *TelemetryAssembler {
	return &TelemetryAssembler{expander: expander, sink: sink}
}

// Run scans r to the end. Corrupt records, sequence gaps and a bad file
// header are raised as signals; only reader and sink errors end the run
// early.
func (a *TelemetryAssembler) Run(ctx context.Context, r io.Reader) (Summary, error) {
	sc := tlmlog.NewScanner(r)
	var sum Summary
	sum.Header, sum.HeaderErr = sc.Header()
	switch {
	case sum.HeaderErr != nil:
		if err := a.signal(Signal{Kind: SignalFileHeaderInvalid, Err: sum.HeaderErr}); err != nil {
			return sum, err
		}
	case !sum.Header.ChecksumValid:
		if err := a.signal(Signal{
			Kind:     SignalFileHeaderInvalid,
			Expected: int(sum.Header.Computed),
			Got:      int(sum.Header.Checksum),
		}); err != nil {
			return sum, err
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			sum.Stats = sc.Stats()
			return sum, err
		}
		e, err := sc.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			sum.Stats = sc.Stats()
			return sum, err
		}
		if err := a.handle(e); err != nil {
			sum.Stats = sc.Stats()
			return sum, err
		}
	}
	sum.Stats = sc.Stats()
	log.Debug().
		Int("records", sum.Stats.Records).
		Int("undecodable", sum.Stats.Undecodable).
		Int("checksum_invalid", sum.Stats.ChecksumInvalid).
		Int("gaps", sum.Stats.Gaps).
		Msg("assembler.Telemetry done")
	return sum, nil
}

func (a *TelemetryAssembler) handle(e tlmlog.Entry) error {
	if !e.OK() {
		return a.signal(Signal{Kind: SignalUndecodableRecord, Index: e.Index, Err: e.Err})
	}
	rec := e.Record
	if !rec.ChecksumValid {
		if err := a.signal(Signal{
			Kind:     SignalChecksumInvalid,
			Index:    e.Index,
			Code:     rec.Code(),
			Expected: int(rec.Computed),
			Got:      int(rec.Checksum),
		}); err != nil {
			return err
		}
	}
	if e.Gap {
		if err := a.signal(Signal{
			Kind:     SignalDroppedFrames,
			Index:    e.Index,
			Code:     rec.Code(),
			Expected: int(e.Expected),
			Got:      int(rec.Header.RollingCounter),
		}); err != nil {
			return err
		}
	}
	msg := a.expander.Expand(rec.Code(), rec.Payload)
	if !msg.Known {
		if err := a.signal(Signal{Kind: SignalUnknownType, Index: e.Index, Code: rec.Code()}); err != nil {
			return err
		}
	}
	return a.sink.Message(Delivery{
		Pipeline:      PipelineTelemetry,
		Index:         e.Index,
		Message:       msg,
		Timestamp:     rec.Time(),
		Seq:           rec.Header.RollingCounter,
		OBCMode:       rec.Header.OBCMode,
		DataStatus:    rec.Header.DataStatus,
		ChecksumValid: rec.ChecksumValid,
	})
}

func (a *TelemetryAssembler) signal(s Signal) error {
	s.Pipeline = PipelineTelemetry
	logSignal(s)
	return a.sink.Signal(s)
}
