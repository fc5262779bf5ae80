package tlmlog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/tlmdecode/internal/catalog"
)

const (
	RecordHeaderLen = 11
	ChecksumLen     = 2
	// MaxPayloadLen is the largest payload the u16 length field can declare.
	MaxPayloadLen = 0xFFFF
)

var (
	ErrShortRecord   = errors.New("tlmlog: record shorter than header")
	ErrPayloadLength = errors.New("tlmlog: declared payload exceeds record")
)

// RecordHeader is the fixed little-endian prefix of every log record.
type RecordHeader struct {
	Timestamp      uint32
	RollingCounter uint8
	OBCMode        uint8
	TypeCode       uint16
	DataStatus     uint8
	PayloadLen     uint16
}

// Record is one unstuffed log entry. Records with a bad checksum are kept
// and flagged so callers can count corruption.
type Record struct {
	Header   RecordHeader
	Payload  []byte
	Checksum uint16
	Computed uint16
	// ChecksumValid is false when Checksum disagrees with Computed.
	ChecksumValid bool
	// Excess counts bytes found after the checksum.
	Excess int
}

func (r Record) Code() catalog.Code {
	return catalog.Code(r.Header.TypeCode)
}

// Time converts the record timestamp from unix seconds.
func (r Record) Time() time.Time {
	return time.Unix(int64(r.Header.Timestamp), 0).UTC()
}

// RecordError describes an unstuffed frame that could not be parsed as a
// record.
type RecordError struct {
	Len      int
	Declared int
	Err      error
}

func (e RecordError) Error() string {
	if e.Declared > 0 {
		return fmt.Sprintf("tlmlog: record len=%d declared_payload=%d: %v", e.Len, e.Declared, e.Err)
	}
	return fmt.Sprintf("tlmlog: record len=%d: %v", e.Len, e.Err)
}

func (e RecordError) Unwrap() error {
	return e.Err
}

func DecodeRecordHeader(b []byte) (RecordHeader, error) {
	if len(b) < RecordHeaderLen {
		return RecordHeader{}, ErrShortRecord
	}
	return RecordHeader{
		Timestamp:      binary.LittleEndian.Uint32(b[0:4]),
		RollingCounter: b[4],
		OBCMode:        b[5],
		TypeCode:       binary.LittleEndian.Uint16(b[6:8]),
		DataStatus:     b[8],
		PayloadLen:     binary.LittleEndian.Uint16(b[9:11]),
	}, nil
}

func EncodeRecordHeader(h RecordHeader) []byte {
	buf := make([]byte, RecordHeaderLen)
	binary.LittleEndian.PutUint32(buf[0:4], h.Timestamp)
	buf[4] = h.RollingCounter
	buf[5] = h.OBCMode
	binary.LittleEndian.PutUint16(buf[6:8], h.TypeCode)
	buf[8] = h.DataStatus
	binary.LittleEndian.PutUint16(buf[9:11], h.PayloadLen)
	return buf
}

// ParseRecord decodes an unstuffed frame. The checksum covers the header
// and payload.
func ParseRecord(b []byte) (Record, error) {
	h, err := DecodeRecordHeader(b)
	if err != nil {
		return Record{}, RecordError{Len: len(b), Err: err}
	}
	end := RecordHeaderLen + int(h.PayloadLen)
	if end+ChecksumLen > len(b) {
		return Record{}, RecordError{Len: len(b), Declared: int(h.PayloadLen), Err: ErrPayloadLength}
	}
	rec := Record{
		Header:   h,
		Payload:  append([]byte(nil), b[RecordHeaderLen:end]...),
		Checksum: binary.LittleEndian.Uint16(b[end : end+ChecksumLen]),
		Computed: CRC16(b[:end]),
		Excess:   len(b) - end - ChecksumLen,
	}
	rec.ChecksumValid = rec.Checksum == rec.Computed
	return rec, nil
}

// EncodeRecord builds the unstuffed bytes for h and payload with a fresh
// checksum. PayloadLen is taken from the payload.
func EncodeRecord(h RecordHeader, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadLen {
		return nil, fmt.Errorf("tlmlog: payload too large: %d", len(payload))
	}
	h.PayloadLen = uint16(len(payload))
	buf := EncodeRecordHeader(h)
	buf = append(buf, payload...)
	return binary.LittleEndian.AppendUint16(buf, CRC16(buf)), nil
}
