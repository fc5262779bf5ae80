package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/danmuck/tlmdecode/internal/assembler"
	"github.com/danmuck/tlmdecode/internal/catalog"
	"github.com/danmuck/tlmdecode/internal/config"
	"github.com/danmuck/tlmdecode/internal/export"
	"github.com/danmuck/tlmdecode/internal/observability"
)

// outputs fans decoded data out to the configured export formats. Each
// pipeline writes below its own subdirectory of the output dir.
type outputs struct {
	sink    assembler.Sink
	tally   *tally
	closers []io.Closer
}

func openOutputs(cfg config.OutputConfig, pipeline assembler.Pipeline, cat *catalog.Catalog) (*outputs, error) {
	dir := filepath.Join(cfg.Dir, string(pipeline))
	out := &outputs{tally: newTally()}
	sinks := []assembler.Sink{out.tally}

	if cfg.Wants(config.FormatCSV) {
		csvSink, err := export.NewCSVSink(dir, cat)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, csvSink)
		out.closers = append(out.closers, csvSink)
	}
	if cfg.Wants(config.FormatJSONL) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			_ = out.Close()
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
		f, err := os.Create(filepath.Join(dir, string(pipeline)+".jsonl"))
		if err != nil {
			_ = out.Close()
			return nil, err
		}
		sinks = append(sinks, export.NewJSONLinesSink(f))
		out.closers = append(out.closers, f)
	}

	out.sink = observability.InstrumentSink(assembler.Tee(sinks...))
	return out, nil
}

func (o *outputs) Close() error {
	var errs []error
	for _, c := range o.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// tally counts deliveries for the end-of-run summary.
type tally struct {
	mu       sync.Mutex
	messages map[string]int
	signals  map[assembler.SignalKind]int
	total    int
}

func newTally() *tally {
	return &tally{messages: make(map[string]int), signals: make(map[assembler.SignalKind]int)}
}

func (t *tally) Message(d assembler.Delivery) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages[d.Message.TypeName]++
	t.total++
	return nil
}

func (t *tally) Signal(sig assembler.Signal) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.signals[sig.Kind]++
	return nil
}

func (t *tally) print(w io.Writer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(w, "messages: %d\n", t.total)
	names := make([]string, 0, len(t.messages))
	for name := range t.messages {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-28s %d\n", name, t.messages[name])
	}
	kinds := make([]assembler.SignalKind, 0, len(t.signals))
	for kind := range t.signals {
		kinds = append(kinds, kind)
	}
	slices.Sort(kinds)
	if len(kinds) > 0 {
		fmt.Fprintln(w, "signals:")
	}
	for _, kind := range kinds {
		fmt.Fprintf(w, "  %-28s %d\n", kind, t.signals[kind])
	}
}
