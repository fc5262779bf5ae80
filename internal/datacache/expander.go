package datacache

import (
	"encoding/binary"
	"strconv"

	"github.com/danmuck/tlmdecode/internal/catalog"
	"github.com/rs/zerolog/log"
)

// Expander turns raw payloads into named fields using one catalog.
type Expander struct {
	catalog *catalog.Catalog
}

func NewExpander(c *catalog.Catalog) *Expander {
	return &Expander{catalog: c}
}

func (x *Expander) Catalog() *catalog.Catalog {
	return x.catalog
}

// Expand decodes payload with the schema registered for code. It never
// fails: unknown codes enumerate bytes as "0", "1", ..., a short payload
// yields the fields it fully covers, and trailing bytes are counted in
// Excess.
func (x *Expander) Expand(code catalog.Code, payload []byte) LabeledMessage {
	entry := x.catalog.Resolve(code)
	msg := newMessage(entry)
	if !entry.Known() {
		for i, b := range payload {
			msg.Fields.Set(strconv.Itoa(i), int64(b))
		}
		log.Debug().
			Str("catalog", x.catalog.Name()).
			Uint16("code", uint16(code)).
			Int("len", len(payload)).
			Msg("datacache.Expand unknown type")
		return msg
	}

	off, bit := 0, 0
	for _, f := range entry.Fields {
		if f.Kind == catalog.KindBits {
			start := off*8 + bit
			if start+f.Width > len(payload)*8 {
				msg.Short = true
				break
			}
			msg.set(f.Name, int64(extractBits(payload, start, f.Width)), f.Scale)
			bit += f.Width
			continue
		}
		off += bit / 8
		bit = 0
		for i := 0; i < f.Count(); i++ {
			if off+f.Width > len(payload) {
				msg.Short = true
				break
			}
			msg.set(f.ElementName(i), readInt(payload[off:off+f.Width], f.Kind == catalog.KindSigned), f.Scale)
			off += f.Width
		}
		if msg.Short {
			break
		}
	}
	off += bit / 8
	if !msg.Short && len(payload) > off {
		msg.Excess = len(payload) - off
	}
	if msg.Short || msg.Excess > 0 {
		log.Debug().
			Str("catalog", x.catalog.Name()).
			Str("type", entry.Name).
			Int("len", len(payload)).
			Int("layout", entry.Size()).
			Msg("datacache.Expand length mismatch")
	}
	return msg
}

// extractBits reads width bits starting at bit offset start, LSB-first
// within each byte.
func extractBits(b []byte, start, width int) uint64 {
	var v uint64
	for k := 0; k < width; k++ {
		pos := start + k
		v |= uint64((b[pos/8]>>(pos%8))&1) << k
	}
	return v
}

func readInt(b []byte, signed bool) int64 {
	switch len(b) {
	case 1:
		if signed {
			return int64(int8(b[0]))
		}
		return int64(b[0])
	case 2:
		v := binary.LittleEndian.Uint16(b)
		if signed {
			return int64(int16(v))
		}
		return int64(v)
	case 4:
		v := binary.LittleEndian.Uint32(b)
		if signed {
			return int64(int32(v))
		}
		return int64(v)
	default:
		return int64(binary.LittleEndian.Uint64(b))
	}
}
