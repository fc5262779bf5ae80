package tlmlog

import "testing"

func TestCRC16CheckValue(t *testing.T) {
	if got := CRC16([]byte("123456789")); got != 0x29B1 {
		t.Fatalf("crc=0x%04X want 0x29B1", got)
	}
	if got := CRC16(nil); got != 0xFFFF {
		t.Fatalf("empty crc=0x%04X want 0xFFFF", got)
	}
}

func TestUpdateCRC16Streams(t *testing.T) {
	data := []byte("telemetry log record")
	whole := CRC16(data)
	part := UpdateCRC16(CRC16(data[:7]), data[7:])
	if whole != part {
		t.Fatalf("streamed crc=0x%04X whole=0x%04X", part, whole)
	}
}
