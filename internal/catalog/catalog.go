package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// UnknownName labels every code a catalog does not list.
const UnknownName = "Unknown"

var ErrEmptyCatalog = errors.New("catalog: no entries")

// Code is a data cache type code. Beacon sub-headers carry one byte,
// telemetry log records carry two.
type Code uint16

// Kind selects how a field's bytes are interpreted.
type Kind uint8

const (
	KindUnsigned Kind = iota
	KindSigned
	KindBits
)

func (k Kind) String() string {
	switch k {
	case KindUnsigned:
		return "unsigned"
	case KindSigned:
		return "signed"
	case KindBits:
		return "bits"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Field describes one named slot of a payload layout.
//
// Scalar and array fields are little-endian integers Width bytes wide.
// Bit fields are Width bits wide, packed LSB-first; consecutive bit fields
// form a group that must end on a byte boundary.
type Field struct {
	Name   string
	Kind   Kind
	Width  int
	Labels []string
	// Scale converts raw counts to engineering units. Zero means the raw
	// value is already in engineering units; the flight tables set none.
	Scale float64
}

// IsArray reports whether the field expands to one value per label.
func (f Field) IsArray() bool {
	return len(f.Labels) > 0
}

// Count is the number of decoded values the field produces.
func (f Field) Count() int {
	if f.IsArray() {
		return len(f.Labels)
	}
	return 1
}

// ElementName returns the output name of array element i.
func (f Field) ElementName(i int) string {
	if !f.IsArray() {
		return f.Name
	}
	if f.Name == "" {
		return f.Labels[i]
	}
	return f.Name + "_" + f.Labels[i]
}

// Names lists every output name the field produces, in order.
func (f Field) Names() []string {
	out := make([]string, 0, f.Count())
	for i := 0; i < f.Count(); i++ {
		out = append(out, f.ElementName(i))
	}
	return out
}

// Scaled returns a copy of f with an engineering scale factor.
func (f Field) Scaled(scale float64) Field {
	f.Scale = scale
	return f
}

// Entry is one payload schema.
type Entry struct {
	Code   Code
	Name   string
	Fields []Field
	known  bool
}

// Known is false for the fallback entry returned for unlisted codes.
func (e Entry) Known() bool {
	return e.known
}

// Size is the payload length in bytes the layout describes.
func (e Entry) Size() int {
	bytes, bits := 0, 0
	for _, f := range e.Fields {
		if f.Kind == KindBits {
			bits += f.Width
			continue
		}
		bytes += f.Width * f.Count()
	}
	return bytes + bits/8
}

// Names lists every output field name of the entry, in decode order.
func (e Entry) Names() []string {
	out := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		out = append(out, f.Names()...)
	}
	return out
}

// LayoutError reports an entry that cannot be used for decoding.
type LayoutError struct {
	Catalog string
	Code    Code
	Field   string
	Reason  string
}

func (e LayoutError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("catalog %s: code=0x%02X: %s", e.Catalog, uint16(e.Code), e.Reason)
	}
	return fmt.Sprintf("catalog %s: code=0x%02X field=%q: %s", e.Catalog, uint16(e.Code), e.Field, e.Reason)
}

// Catalog is an immutable code to schema table. Build one with New and
// hand it to the codecs and the expander that need it.
type Catalog struct {
	name    string
	entries map[Code]Entry
	codes   []Code
}

// New validates entries and returns a catalog named name.
func New(name string, entries []Entry) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyCatalog
	}
	c := &Catalog{
		name:    name,
		entries: make(map[Code]Entry, len(entries)),
		codes:   make([]Code, 0, len(entries)),
	}
	for _, e := range entries {
		if err := validateEntry(name, e); err != nil {
			return nil, err
		}
		if _, dup := c.entries[e.Code]; dup {
			return nil, LayoutError{Catalog: name, Code: e.Code, Reason: "duplicate code"}
		}
		e.known = true
		e.Fields = slices.Clone(e.Fields)
		c.entries[e.Code] = e
		c.codes = append(c.codes, e.Code)
	}
	slices.Sort(c.codes)
	return c, nil
}

// MustNew is New for static tables known to be valid.
func MustNew(name string, entries []Entry) *Catalog {
	c, err := New(name, entries)
	if err != nil {
		panic(err)
	}
	return c
}

func validateEntry(catalogName string, e Entry) error {
	if strings.TrimSpace(e.Name) == "" {
		return LayoutError{Catalog: catalogName, Code: e.Code, Reason: "missing name"}
	}
	if e.Name == UnknownName {
		return LayoutError{Catalog: catalogName, Code: e.Code, Reason: "reserved name"}
	}
	if len(e.Fields) == 0 {
		return LayoutError{Catalog: catalogName, Code: e.Code, Reason: "no fields"}
	}
	seen := make(map[string]struct{})
	groupBits := 0
	for _, f := range e.Fields {
		switch f.Kind {
		case KindBits:
			if f.Width < 1 || f.Width > 4 {
				return LayoutError{Catalog: catalogName, Code: e.Code, Field: f.Name, Reason: "bit width must be 1-4"}
			}
			if f.IsArray() {
				return LayoutError{Catalog: catalogName, Code: e.Code, Field: f.Name, Reason: "bit fields cannot be arrays"}
			}
			groupBits += f.Width
		case KindUnsigned, KindSigned:
			if groupBits%8 != 0 {
				return LayoutError{Catalog: catalogName, Code: e.Code, Field: f.Name, Reason: "bit group does not end on a byte boundary"}
			}
			groupBits = 0
			switch f.Width {
			case 1, 2, 4:
			case 8:
				if f.Kind == KindUnsigned {
					return LayoutError{Catalog: catalogName, Code: e.Code, Field: f.Name, Reason: "unsigned 64-bit values exceed the int64 value range"}
				}
			default:
				return LayoutError{Catalog: catalogName, Code: e.Code, Field: f.Name, Reason: fmt.Sprintf("unsupported byte width %d", f.Width)}
			}
		default:
			return LayoutError{Catalog: catalogName, Code: e.Code, Field: f.Name, Reason: "unknown kind"}
		}
		for _, n := range f.Names() {
			if n == "" {
				return LayoutError{Catalog: catalogName, Code: e.Code, Reason: "unnamed field"}
			}
			if _, dup := seen[n]; dup {
				return LayoutError{Catalog: catalogName, Code: e.Code, Field: n, Reason: "duplicate field name"}
			}
			seen[n] = struct{}{}
		}
	}
	if groupBits%8 != 0 {
		return LayoutError{Catalog: catalogName, Code: e.Code, Reason: "bit group does not end on a byte boundary"}
	}
	return nil
}

// Name identifies the catalog in logs and errors.
func (c *Catalog) Name() string {
	return c.name
}

// Resolve never fails: unlisted codes map to the Unknown entry, whose
// payloads are enumerated byte by byte.
func (c *Catalog) Resolve(code Code) Entry {
	if e, ok := c.entries[code]; ok {
		return e
	}
	return Entry{Code: code, Name: UnknownName}
}

// Describe returns the symbolic name for code.
func (c *Catalog) Describe(code Code) string {
	return c.Resolve(code).Name
}

// Lookup finds the entry for a symbolic type name.
func (c *Catalog) Lookup(name string) (Entry, bool) {
	for _, code := range c.codes {
		if e := c.entries[code]; e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Codes lists the known codes in ascending order.
func (c *Catalog) Codes() []Code {
	return slices.Clone(c.codes)
}
