package tlmlog

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/danmuck/tlmdecode/internal/testutil/testlog"
)

func buildLog(t *testing.T, header FileHeader, frames ...[]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(EncodeFileHeader(header))
	for _, f := range frames {
		buf.Write(f)
	}
	return buf.Bytes()
}

func stuffedRecord(t *testing.T, counter uint8, payload []byte) []byte {
	t.Helper()
	raw, err := EncodeRecord(sampleHeader(counter), payload)
	if err != nil {
		t.Fatalf("encode record: %v", err)
	}
	return EncodeCOBS(raw)
}

func scanAll(t *testing.T, s *Scanner) []Entry {
	t.Helper()
	var out []Entry
	for {
		e, err := s.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		out = append(out, e)
	}
}

func TestScannerDecodesRecordsAndFlagsGap(t *testing.T) {
	testlog.Start(t)
	data := buildLog(t, FileHeader{Version: 1},
		stuffedRecord(t, 5, []byte{1, 0, 0, 2}),
		stuffedRecord(t, 6, []byte{0, 0}),
		[]byte{Delimiter},
		stuffedRecord(t, 8, nil),
	)
	s := NewScanner(bytes.NewReader(data))
	h, err := s.Header()
	if err != nil || !h.ChecksumValid {
		t.Fatalf("header=%+v err=%v", h, err)
	}
	entries := scanAll(t, s)
	if len(entries) != 3 {
		t.Fatalf("entries=%d", len(entries))
	}
	for i, e := range entries {
		if !e.OK() || !e.Record.ChecksumValid {
			t.Fatalf("entry %d: %+v", i, e)
		}
	}
	if entries[0].Gap || entries[1].Gap || !entries[2].Gap || entries[2].Expected != 7 {
		t.Fatalf("gap flags: %v %v %v", entries[0].Gap, entries[1].Gap, entries[2].Gap)
	}
	if entries[0].Offset != FileHeaderLen {
		t.Fatalf("first offset=%d", entries[0].Offset)
	}
	st := s.Stats()
	if st.Records != 3 || st.Empty != 1 || st.Gaps != 1 || st.Undecodable != 0 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestScannerSkipsUndecodableFrames(t *testing.T) {
	testlog.Start(t)
	data := buildLog(t, FileHeader{},
		stuffedRecord(t, 1, []byte{9}),
		[]byte{0x09, 0x11, 0x00},
		EncodeCOBS([]byte{1, 2, 3}),
		stuffedRecord(t, 2, []byte{9}),
	)
	entries := scanAll(t, NewScanner(bytes.NewReader(data)))
	if len(entries) != 4 {
		t.Fatalf("entries=%d", len(entries))
	}
	if !errors.Is(entries[1].Err, ErrMalformedCOBS) {
		t.Fatalf("entry 1 err=%v", entries[1].Err)
	}
	if !errors.Is(entries[2].Err, ErrShortRecord) {
		t.Fatalf("entry 2 err=%v", entries[2].Err)
	}
	if !entries[3].OK() || entries[3].Gap {
		t.Fatalf("scan did not recover: %+v", entries[3])
	}
}

func TestScannerContinuesAfterBadFileHeader(t *testing.T) {
	testlog.Start(t)
	data := buildLog(t, FileHeader{Version: 2}, stuffedRecord(t, 3, []byte{4, 5}))
	data[8] ^= 0xFF
	s := NewScanner(bytes.NewReader(data))
	h, err := s.Header()
	if err != nil {
		t.Fatalf("header err: %v", err)
	}
	if h.ChecksumValid {
		t.Fatalf("expected header checksum mismatch")
	}
	if entries := scanAll(t, s); len(entries) != 1 || !entries[0].OK() {
		t.Fatalf("entries=%+v", entries)
	}
}

func TestScannerShortFile(t *testing.T) {
	testlog.Start(t)
	s := NewScanner(bytes.NewReader([]byte{1, 2, 3}))
	if _, err := s.Header(); !errors.Is(err, ErrShortFileHeader) {
		t.Fatalf("expected ErrShortFileHeader, got %v", err)
	}
	if _, err := s.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestScannerDecodesUnterminatedTail(t *testing.T) {
	testlog.Start(t)
	frame := stuffedRecord(t, 1, []byte{1})
	data := buildLog(t, FileHeader{}, frame[:len(frame)-1])
	entries := scanAll(t, NewScanner(bytes.NewReader(data)))
	if len(entries) != 1 || !entries[0].OK() {
		t.Fatalf("entries=%+v", entries)
	}
}
