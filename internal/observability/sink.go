package observability

import "github.com/danmuck/tlmdecode/internal/assembler"

type instrumentedSink struct {
	next assembler.Sink
}

// InstrumentSink counts every message and signal before passing it on.
func InstrumentSink(next assembler.Sink) assembler.Sink {
	return instrumentedSink{next: next}
}

func (s instrumentedSink) Message(d assembler.Delivery) error {
	RecordMessage(string(d.Pipeline), d.Message.TypeName)
	return s.next.Message(d)
}

func (s instrumentedSink) Signal(sig assembler.Signal) error {
	RecordSignal(string(sig.Pipeline), string(sig.Kind))
	return s.next.Signal(sig)
}
