package catalog

import "strconv"

// Label templates for array fields.
var (
	AxisXYZ       = []string{"X", "Y", "Z"}
	EulerAngles   = []string{"Roll", "Pitch", "Yaw"}
	QuaternionQ13 = []string{"Q1", "Q2", "Q3"}
)

// Indexed returns the labels "1".."n".
func Indexed(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strconv.Itoa(i + 1)
	}
	return out
}

func U8(name string) Field  { return Field{Name: name, Kind: KindUnsigned, Width: 1} }
func U16(name string) Field { return Field{Name: name, Kind: KindUnsigned, Width: 2} }
func U32(name string) Field { return Field{Name: name, Kind: KindUnsigned, Width: 4} }
func I8(name string) Field  { return Field{Name: name, Kind: KindSigned, Width: 1} }
func I16(name string) Field { return Field{Name: name, Kind: KindSigned, Width: 2} }
func I32(name string) Field { return Field{Name: name, Kind: KindSigned, Width: 4} }
func I64(name string) Field { return Field{Name: name, Kind: KindSigned, Width: 8} }

// Bits declares a bit field of width 1-4 bits.
func Bits(name string, width int) Field {
	return Field{Name: name, Kind: KindBits, Width: width}
}

// Flag is a one-bit field.
func Flag(name string) Field {
	return Bits(name, 1)
}

// Array turns a scalar field into one element per label. Elements are named
// "<name>_<label>", or just "<label>" when the field name is empty.
func Array(f Field, labels ...string) Field {
	f.Labels = append([]string(nil), labels...)
	return f
}
