package tlmlog

// CRC-16/CCITT-FALSE: poly 0x1021, init 0xFFFF, no reflection, no final xor.
const (
	crcPoly uint16 = 0x1021
	crcInit uint16 = 0xFFFF
)

var crcTable = makeCRCTable()

func makeCRCTable() [256]uint16 {
	var t [256]uint16
	for i := range t {
		crc := uint16(i) << 8
		for j := 0; j < 8; j++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ crcPoly
			} else {
				crc <<= 1
			}
		}
		t[i] = crc
	}
	return t
}

// CRC16 returns the checksum used by log records and the file header.
func CRC16(b []byte) uint16 {
	return UpdateCRC16(crcInit, b)
}

// UpdateCRC16 continues a running checksum.
func UpdateCRC16(crc uint16, b []byte) uint16 {
	for _, c := range b {
		crc = crc<<8 ^ crcTable[byte(crc>>8)^c]
	}
	return crc
}
