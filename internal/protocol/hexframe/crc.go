// internal/protocol/hexframe/crc.go
package hexframe

import (
	"github.com/sigurn/crc16"
)

var modbusTable = crc16.MakeTable(crc16.CRC16_MODBUS)

// CRC16 returns the Modbus RTU checksum of data
func CRC16(data []byte) uint16 {
	return crc16.Checksum(data, modbusTable)
}

// AppendCRC16 returns a copy of frame with its Modbus CRC appended, low byte first
func AppendCRC16(frame []byte) []byte {
	crc := CRC16(frame)
	out := make([]byte, len(frame), len(frame)+2)
	copy(out, frame)
	return append(out, byte(crc), byte(crc>>8))
}

// CheckCRC16 reports whether the trailing two bytes of frame are a valid Modbus CRC
func CheckCRC16(frame []byte) bool {
	if len(frame) < 3 {
		return false
	}
	n := len(frame) - 2
	crc := CRC16(frame[:n])
	return frame[n] == byte(crc) && frame[n+1] == byte(crc>>8)
}
