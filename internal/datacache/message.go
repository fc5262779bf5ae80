package datacache

import (
	"github.com/danmuck/tlmdecode/internal/catalog"
	"github.com/elliotchance/orderedmap/v2"
)

// Values preserves field order as declared by the schema.
type Values = orderedmap.OrderedMap[string, int64]

// LabeledMessage is one decoded data cache payload.
type LabeledMessage struct {
	Code     catalog.Code
	TypeName string
	Known    bool
	Fields   *Values
	// Excess counts payload bytes past the end of the layout.
	Excess int
	// Short is set when the payload ended before the layout did.
	Short bool

	scales map[string]float64
}

func newMessage(entry catalog.Entry) LabeledMessage {
	return LabeledMessage{
		Code:     entry.Code,
		TypeName: entry.Name,
		Known:    entry.Known(),
		Fields:   orderedmap.NewOrderedMap[string, int64](),
	}
}

func (m LabeledMessage) Get(name string) (int64, bool) {
	if m.Fields == nil {
		return 0, false
	}
	return m.Fields.Get(name)
}

func (m LabeledMessage) Len() int {
	if m.Fields == nil {
		return 0
	}
	return m.Fields.Len()
}

// Names lists the decoded field names in order.
func (m LabeledMessage) Names() []string {
	out := make([]string, 0, m.Len())
	if m.Fields == nil {
		return out
	}
	for el := m.Fields.Front(); el != nil; el = el.Next() {
		out = append(out, el.Key)
	}
	return out
}

// Engineering applies the field's scale factor. Fields without one are
// returned unscaled.
func (m LabeledMessage) Engineering(name string) (float64, bool) {
	raw, ok := m.Get(name)
	if !ok {
		return 0, false
	}
	if scale, ok := m.scales[name]; ok {
		return float64(raw) * scale, true
	}
	return float64(raw), true
}

// Map copies the fields into a plain map for encoders that do not need order.
func (m LabeledMessage) Map() map[string]int64 {
	out := make(map[string]int64, m.Len())
	if m.Fields == nil {
		return out
	}
	for el := m.Fields.Front(); el != nil; el = el.Next() {
		out[el.Key] = el.Value
	}
	return out
}

func (m *LabeledMessage) set(name string, v int64, scale float64) {
	m.Fields.Set(name, v)
	if scale != 0 {
		if m.scales == nil {
			m.scales = make(map[string]float64)
		}
		m.scales[name] = scale
	}
}
