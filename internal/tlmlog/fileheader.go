package tlmlog

import (
	"encoding/binary"
	"errors"
	"time"
)

const (
	FileHeaderLen = 21
	SignatureLen  = 6
)

var ErrShortFileHeader = errors.New("tlmlog: short file header")

// FileHeader opens every telemetry log file.
type FileHeader struct {
	Signature       [SignatureLen]byte
	Version         uint32
	NextWriteOffset uint32
	LastTimestamp   uint32
	FileComplete    bool
	Checksum        uint16
	Computed        uint16
	ChecksumValid   bool
}

func (h FileHeader) SignatureString() string {
	n := len(h.Signature)
	for n > 0 && h.Signature[n-1] == 0 {
		n--
	}
	return string(h.Signature[:n])
}

func (h FileHeader) LastTime() time.Time {
	return time.Unix(int64(h.LastTimestamp), 0).UTC()
}

// ParseFileHeader decodes the first FileHeaderLen bytes of b. A checksum
// mismatch is reported through ChecksumValid, not as an error.
func ParseFileHeader(b []byte) (FileHeader, error) {
	if len(b) < FileHeaderLen {
		return FileHeader{}, ErrShortFileHeader
	}
	var h FileHeader
	copy(h.Signature[:], b[0:6])
	h.Version = binary.LittleEndian.Uint32(b[6:10])
	h.NextWriteOffset = binary.LittleEndian.Uint32(b[10:14])
	h.LastTimestamp = binary.LittleEndian.Uint32(b[14:18])
	h.FileComplete = b[18] != 0
	h.Checksum = binary.LittleEndian.Uint16(b[19:21])
	h.Computed = CRC16(b[:19])
	h.ChecksumValid = h.Checksum == h.Computed
	return h, nil
}

// EncodeFileHeader writes h with a fresh checksum.
func EncodeFileHeader(h FileHeader) []byte {
	buf := make([]byte, 0, FileHeaderLen)
	buf = append(buf, h.Signature[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, h.Version)
	buf = binary.LittleEndian.AppendUint32(buf, h.NextWriteOffset)
	buf = binary.LittleEndian.AppendUint32(buf, h.LastTimestamp)
	if h.FileComplete {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	return binary.LittleEndian.AppendUint16(buf, CRC16(buf))
}
