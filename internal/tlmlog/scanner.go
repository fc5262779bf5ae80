package tlmlog

import (
	"bufio"
	"errors"
	"io"

	"github.com/rs/zerolog/log"
)

// Entry is one delimited frame of the log stream. Err is set when the frame
// could not be unstuffed or parsed; the scan continues past it.
type Entry struct {
	Index  int
	Offset int64
	Record Record
	Err    error

	// Gap is set when the rolling counter skipped; Missing counts the
	// records lost, modulo 256.
	Gap      bool
	Expected uint8
	Missing  int
}

func (e Entry) OK() bool {
	return e.Err == nil
}

type Stats struct {
	Frames          int
	Records         int
	Empty           int
	Undecodable     int
	ChecksumInvalid int
	Gaps            int
}

// Scanner walks a telemetry log file: the fixed file header, then COBS
// frames separated by zero bytes. An unterminated final frame is still
// decoded.
type Scanner struct {
	br        *bufio.Reader
	header    FileHeader
	headerErr error
	readErr   error
	offset    int64
	index     int
	seq       SequenceTracker
	stats     Stats
	done      bool
}

func NewScanner(r io.Reader) *Scanner {
	s := &Scanner{br: bufio.NewReader(r)}
	var raw [FileHeaderLen]byte
	n, err := io.ReadFull(s.br, raw[:])
	s.offset = int64(n)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		s.headerErr = ErrShortFileHeader
		s.done = true
	case err != nil:
		s.headerErr = err
		s.readErr = err
		s.done = true
	default:
		s.header, _ = ParseFileHeader(raw[:])
	}
	if s.headerErr != nil {
		log.Warn().Err(s.headerErr).Int("len", n).Msg("tlmlog.NewScanner file header unreadable")
	} else if !s.header.ChecksumValid {
		log.Warn().
			Uint16("stored", s.header.Checksum).
			Uint16("computed", s.header.Computed).
			Msg("tlmlog.NewScanner file header checksum mismatch")
	}
	return s
}

// Header returns the parsed file header. The error is non-nil only when
// the stream was too short or unreadable.
func (s *Scanner) Header() (FileHeader, error) {
	return s.header, s.headerErr
}

func (s *Scanner) Stats() Stats {
	return s.stats
}

// Next returns the next non-empty frame, or io.EOF at the end of the
// stream. Other errors come from the underlying reader.
func (s *Scanner) Next() (Entry, error) {
	for {
		if s.done {
			if s.readErr != nil {
				return Entry{}, s.readErr
			}
			return Entry{}, io.EOF
		}
		start := s.offset
		frame, err := s.br.ReadBytes(Delimiter)
		s.offset += int64(len(frame))
		if err != nil {
			s.done = true
			if !errors.Is(err, io.EOF) {
				s.readErr = err
				return Entry{}, err
			}
			if len(frame) == 0 {
				return Entry{}, io.EOF
			}
		}
		if len(frame) == 1 && frame[0] == Delimiter {
			s.stats.Empty++
			continue
		}
		return s.decode(start, frame), nil
	}
}

func (s *Scanner) decode(offset int64, frame []byte) Entry {
	e := Entry{Index: s.index, Offset: offset}
	s.index++
	s.stats.Frames++

	raw, err := DecodeCOBS(frame)
	if err == nil {
		e.Record, err = ParseRecord(raw)
	}
	if err != nil {
		e.Err = err
		s.stats.Undecodable++
		log.Debug().Err(err).Int("index", e.Index).Int64("offset", offset).Msg("tlmlog.Scanner undecodable frame")
		return e
	}
	s.stats.Records++
	if !e.Record.ChecksumValid {
		s.stats.ChecksumInvalid++
	}
	e.Gap, e.Expected, e.Missing = s.seq.Observe(e.Record.Header.RollingCounter)
	if e.Gap {
		s.stats.Gaps++
	}
	return e
}
