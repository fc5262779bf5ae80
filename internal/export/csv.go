package export

import (
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/danmuck/tlmdecode/internal/assembler"
	"github.com/danmuck/tlmdecode/internal/catalog"
	"github.com/danmuck/tlmdecode/internal/datacache"
	"github.com/rs/zerolog/log"
)

const SignalsFile = "signals.csv"

var ErrNoCatalog = errors.New("export: csv sink needs a catalog")

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

type csvFile struct {
	f      *os.File
	w      *csv.Writer
	header []string
}

// CSVSink writes one CSV file per message type under dir, plus a signals
// file. Known types get every field of their catalog layout as columns;
// fields a short payload did not reach are left empty. Payloads of unlisted
// codes go to one file per code with the raw bytes hex encoded.
type CSVSink struct {
	dir     string
	catalog *catalog.Catalog

	mu      sync.Mutex
	files   map[string]*csvFile
	signals *csvFile
}

func NewCSVSink(dir string, cat *catalog.Catalog) (*CSVSink, error) {
	if cat == nil {
		return nil, ErrNoCatalog
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("export: create %s: %w", dir, err)
	}
	return &CSVSink{dir: dir, catalog: cat, files: make(map[string]*csvFile)}, nil
}

func (s *CSVSink) Dir() string {
	return s.dir
}

func (s *CSVSink) Message(d assembler.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !d.Message.Known {
		return s.unknown(d)
	}
	name := d.Message.TypeName
	f, ok := s.files[name]
	if !ok {
		entry := s.catalog.Resolve(d.Message.Code)
		header := append([]string{"timestamp"}, entry.Names()...)
		var err error
		f, err = s.open(FileName(name), header)
		if err != nil {
			return err
		}
		s.files[name] = f
	}
	row := make([]string, len(f.header))
	row[0] = d.Timestamp.Format(time.RFC3339)
	for i, col := range f.header[1:] {
		if v, ok := d.Message.Get(col); ok {
			row[i+1] = strconv.FormatInt(v, 10)
		}
	}
	return f.w.Write(row)
}

func (s *CSVSink) unknown(d assembler.Delivery) error {
	name := UnknownFileName(d.Message.Code)
	f, ok := s.files[name]
	if !ok {
		var err error
		f, err = s.open(name, []string{"timestamp", "code", "length", "payload"})
		if err != nil {
			return err
		}
		s.files[name] = f
	}
	raw := unknownBytes(d.Message)
	return f.w.Write([]string{
		d.Timestamp.Format(time.RFC3339),
		fmt.Sprintf("0x%02X", uint16(d.Message.Code)),
		strconv.Itoa(len(raw)),
		hex.EncodeToString(raw),
	})
}

// unknownBytes recovers the payload of an unlisted code, which the
// expander enumerates one byte per field.
func unknownBytes(m datacache.LabeledMessage) []byte {
	out := make([]byte, 0, m.Len())
	if m.Fields == nil {
		return out
	}
	for el := m.Fields.Front(); el != nil; el = el.Next() {
		out = append(out, byte(el.Value))
	}
	return out
}

func (s *CSVSink) Signal(sig assembler.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signals == nil {
		f, err := s.open(SignalsFile, []string{"pipeline", "kind", "index", "code", "expected", "got", "error"})
		if err != nil {
			return err
		}
		s.signals = f
	}
	errText := ""
	if sig.Err != nil {
		errText = sig.Err.Error()
	}
	return s.signals.w.Write([]string{
		string(sig.Pipeline),
		string(sig.Kind),
		strconv.Itoa(sig.Index),
		fmt.Sprintf("0x%02X", uint16(sig.Code)),
		strconv.Itoa(sig.Expected),
		strconv.Itoa(sig.Got),
		errText,
	})
}

func (s *CSVSink) open(name string, header []string) (*csvFile, error) {
	path := filepath.Join(s.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("export: create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return nil, err
	}
	log.Debug().Str("path", path).Msg("export.CSV open")
	return &csvFile{f: f, w: w, header: header}, nil
}

// Close flushes and closes every file.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	closeOne := func(f *csvFile) {
		f.w.Flush()
		errs = append(errs, f.w.Error(), f.f.Close())
	}
	for _, f := range s.files {
		closeOne(f)
	}
	if s.signals != nil {
		closeOne(s.signals)
	}
	s.files = make(map[string]*csvFile)
	s.signals = nil
	return errors.Join(errs...)
}

// FileName maps a type name to its CSV file name.
func FileName(typeName string) string {
	return unsafeName.ReplaceAllString(typeName, "_") + ".csv"
}

// UnknownFileName is the CSV file for payloads of an unlisted code.
func UnknownFileName(code catalog.Code) string {
	return fmt.Sprintf("%s_0x%02X.csv", catalog.UnknownName, uint16(code))
}
