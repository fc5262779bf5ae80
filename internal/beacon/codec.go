package beacon

import (
	"errors"
	"fmt"

	"github.com/danmuck/tlmdecode/internal/catalog"
	"github.com/rs/zerolog/log"
)

const (
	HeaderSize    = 7
	SubHeaderSize = 4
	// DefaultContainerSize is the beacon size used by the current downlink.
	DefaultContainerSize = 77
	// Padding fills the unused tail of a container.
	Padding byte = 0xFF
)

var (
	ErrContainerSize = errors.New("beacon: container size too small")
	ErrNoCatalog     = errors.New("beacon: catalog required")
)

// Header is the container header. Fields other than the sequence number
// and addresses have no known meaning and are carried verbatim.
type Header struct {
	Seq     uint8
	UHFAddr uint8
	FlagA   uint8
	OBCAddr uint8
	DataID  uint8
	FlagB   uint8
	FlagC   uint8
}

type SubHeader struct {
	TypeCode uint8
	FlagD    uint8
	FlagE    uint8
	Length   uint8
}

// SubMessage is one type-tagged chunk of a container. Partial messages hold
// only the bytes present in this container.
type SubMessage struct {
	SubHeader
	Offset  int
	Payload []byte
	Partial bool
}

func (m SubMessage) Code() catalog.Code {
	return catalog.Code(m.TypeCode)
}

// Missing is the number of payload bytes still owed by the next container.
func (m SubMessage) Missing() int {
	return int(m.Length) - len(m.Payload)
}

type StopReason uint8

const (
	StopExhausted StopReason = iota
	StopEndMarker
	StopUnknownType
	StopShortSubHeader
	StopPartial
	StopTruncated
)

func (r StopReason) String() string {
	switch r {
	case StopExhausted:
		return "exhausted"
	case StopEndMarker:
		return "end_marker"
	case StopUnknownType:
		return "unknown_type"
	case StopShortSubHeader:
		return "short_sub_header"
	case StopPartial:
		return "partial"
	case StopTruncated:
		return "truncated"
	default:
		return fmt.Sprintf("stop(%d)", uint8(r))
	}
}

// Container is the result of parsing one beacon.
type Container struct {
	Header   Header
	HeaderOK bool
	// Continuation holds the leading body bytes claimed by a partial
	// message from the previous container.
	Continuation []byte
	Messages     []SubMessage
	Stop         StopReason
	// StopCode is the type code that ended parsing for StopUnknownType.
	StopCode catalog.Code
	// Truncated is set when fewer than the container size bytes arrived.
	Truncated bool
	// Consumed counts header, continuation and sub-message bytes.
	Consumed int
}

// Trailing returns the last sub-message when it is partial.
func (c Container) Trailing() (SubMessage, bool) {
	if n := len(c.Messages); n > 0 && c.Messages[n-1].Partial {
		return c.Messages[n-1], true
	}
	return SubMessage{}, false
}

// Codec parses fixed-size beacon containers against one catalog.
type Codec struct {
	size    int
	catalog *catalog.Catalog
}

func NewCodec(size int, c *catalog.Catalog) (*Codec, error) {
	if size < HeaderSize+SubHeaderSize {
		return nil, fmt.Errorf("%w: %d", ErrContainerSize, size)
	}
	if c == nil {
		return nil, ErrNoCatalog
	}
	return &Codec{size: size, catalog: c}, nil
}

func (c *Codec) Size() int {
	return c.size
}

func (c *Codec) Catalog() *catalog.Catalog {
	return c.catalog
}

// Parse decodes one container with no continuation pending.
func (c *Codec) Parse(b []byte) Container {
	return c.ParseAfter(b, 0)
}

// ParseAfter decodes one container whose first continuation body bytes
// belong to a partial message from the previous container. Input longer
// than the container size is cut; shorter input is parsed as far as it goes.
func (c *Codec) ParseAfter(b []byte, continuation int) Container {
	var out Container
	if len(b) > c.size {
		b = b[:c.size]
	}
	limit := len(b)
	out.Truncated = limit < c.size
	if limit < HeaderSize {
		out.Stop = StopTruncated
		log.Debug().Int("len", limit).Msg("beacon.Parse container shorter than header")
		return out
	}
	out.Header = DecodeHeader(b)
	out.HeaderOK = true
	cursor := HeaderSize

	if continuation > 0 {
		n := min(continuation, limit-cursor)
		out.Continuation = b[cursor : cursor+n]
		cursor += n
	}

	out.Stop = StopExhausted
	for {
		if cursor == limit {
			if out.Truncated {
				out.Stop = StopTruncated
			}
			break
		}
		if cursor+SubHeaderSize > limit {
			out.Stop = StopShortSubHeader
			if out.Truncated {
				out.Stop = StopTruncated
			}
			break
		}
		sh := DecodeSubHeader(b[cursor:])
		code := catalog.Code(sh.TypeCode)
		if code == catalog.CodeBeaconUnknown {
			out.Stop = StopEndMarker
			break
		}
		if !c.catalog.Resolve(code).Known() {
			out.Stop, out.StopCode = StopUnknownType, code
			log.Debug().
				Uint8("seq", out.Header.Seq).
				Uint8("code", sh.TypeCode).
				Int("offset", cursor).
				Msg("beacon.Parse unknown type, dropping rest of container")
			break
		}
		msg := SubMessage{SubHeader: sh, Offset: cursor}
		start := cursor + SubHeaderSize
		end := start + int(sh.Length)
		if end > limit {
			msg.Payload = b[start:limit]
			msg.Partial = true
			out.Messages = append(out.Messages, msg)
			cursor = limit
			out.Stop = StopPartial
			if out.Truncated {
				out.Stop = StopTruncated
			}
			break
		}
		msg.Payload = b[start:end]
		out.Messages = append(out.Messages, msg)
		cursor = end
	}
	out.Consumed = cursor
	return out
}

func DecodeHeader(b []byte) Header {
	return Header{
		Seq:     b[0],
		UHFAddr: b[1],
		FlagA:   b[2],
		OBCAddr: b[3],
		DataID:  b[4],
		FlagB:   b[5],
		FlagC:   b[6],
	}
}

func EncodeHeader(h Header) []byte {
	return []byte{h.Seq, h.UHFAddr, h.FlagA, h.OBCAddr, h.DataID, h.FlagB, h.FlagC}
}

func DecodeSubHeader(b []byte) SubHeader {
	return SubHeader{TypeCode: b[0], FlagD: b[1], FlagE: b[2], Length: b[3]}
}

func EncodeSubHeader(sh SubHeader) []byte {
	return []byte{sh.TypeCode, sh.FlagD, sh.FlagE, sh.Length}
}

// Builder assembles containers for replay captures and tests.
type Builder struct {
	size int
	buf  []byte
}

func NewBuilder(size int, h Header) *Builder {
	buf := make([]byte, 0, size)
	return &Builder{size: size, buf: append(buf, EncodeHeader(h)...)}
}

// Raw appends bytes verbatim, e.g. continuation data.
func (b *Builder) Raw(p []byte) *Builder {
	b.buf = append(b.buf, p...)
	return b
}

// Message appends a sub-header declaring len(payload) and the payload.
func (b *Builder) Message(code catalog.Code, payload []byte) *Builder {
	return b.Declared(code, len(payload), payload)
}

// Declared appends a sub-header with an explicit length and the given
// payload bytes, which may be fewer than declared.
func (b *Builder) Declared(code catalog.Code, length int, payload []byte) *Builder {
	b.buf = append(b.buf, EncodeSubHeader(SubHeader{TypeCode: uint8(code), Length: uint8(length)})...)
	b.buf = append(b.buf, payload...)
	return b
}

// Bytes pads with Padding and cuts to the container size.
func (b *Builder) Bytes() []byte {
	out := append([]byte(nil), b.buf...)
	for len(out) < b.size {
		out = append(out, Padding)
	}
	return out[:b.size]
}
