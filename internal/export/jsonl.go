package export

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/danmuck/tlmdecode/internal/assembler"
	"github.com/danmuck/tlmdecode/internal/datacache"
	"github.com/google/uuid"
)

// Record is one JSON line. Fields keep schema order.
type Record struct {
	Run           string         `json:"run"`
	Kind          string         `json:"kind"`
	Pipeline      string         `json:"pipeline"`
	Index         int            `json:"index"`
	Type          string         `json:"type,omitempty"`
	Code          uint16         `json:"code"`
	Timestamp     string         `json:"timestamp,omitempty"`
	Seq           *uint8         `json:"seq,omitempty"`
	ChecksumValid *bool          `json:"checksumValid,omitempty"`
	Stitched      bool           `json:"stitched,omitempty"`
	Excess        int            `json:"excess,omitempty"`
	Short         bool           `json:"short,omitempty"`
	Fields        *OrderedFields `json:"fields,omitempty"`
	Signal        string         `json:"signal,omitempty"`
	Expected      int            `json:"expected,omitempty"`
	Got           int            `json:"got,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// OrderedFields marshals a decoded message as a JSON object in field order.
type OrderedFields struct {
	Values *datacache.Values
}

func (o OrderedFields) MarshalJSON() ([]byte, error) {
	if o.Values == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for el := o.Values.Front(); el != nil; el = el.Next() {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, err := json.Marshal(el.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(strconv.AppendInt(buf.AvailableBuffer(), el.Value, 10))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// JSONLinesSink writes one JSON object per message or signal, tagged with a
// run id so several runs can share a file.
type JSONLinesSink struct {
	run string

	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONLinesSink(w io.Writer) *JSONLinesSink {
	return NewJSONLinesSinkWithRun(w, uuid.NewString())
}

func NewJSONLinesSinkWithRun(w io.Writer, run string) *JSONLinesSink {
	return &JSONLinesSink{run: run, enc: json.NewEncoder(w)}
}

func (s *JSONLinesSink) Run() string {
	return s.run
}

func (s *JSONLinesSink) Message(d assembler.Delivery) error {
	return s.write(MessageRecord(s.run, d))
}

func (s *JSONLinesSink) Signal(sig assembler.Signal) error {
	return s.write(SignalRecord(s.run, sig))
}

// MessageRecord converts a delivery into its JSON form.
func MessageRecord(run string, d assembler.Delivery) Record {
	seq, valid := d.Seq, d.ChecksumValid
	rec := Record{
		Run:           run,
		Kind:          "message",
		Pipeline:      string(d.Pipeline),
		Index:         d.Index,
		Type:          d.Message.TypeName,
		Code:          uint16(d.Message.Code),
		Seq:           &seq,
		ChecksumValid: &valid,
		Stitched:      d.Stitched,
		Excess:        d.Message.Excess,
		Short:         d.Message.Short,
		Fields:        &OrderedFields{Values: d.Message.Fields},
	}
	if !d.Timestamp.IsZero() {
		rec.Timestamp = d.Timestamp.Format(time.RFC3339)
	}
	return rec
}

func SignalRecord(run string, sig assembler.Signal) Record {
	rec := Record{
		Run:      run,
		Kind:     "signal",
		Pipeline: string(sig.Pipeline),
		Index:    sig.Index,
		Code:     uint16(sig.Code),
		Signal:   string(sig.Kind),
		Expected: sig.Expected,
		Got:      sig.Got,
	}
	if sig.Err != nil {
		rec.Error = sig.Err.Error()
	}
	return rec
}

func (s *JSONLinesSink) write(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(rec)
}
