package hexframe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppendCRC16(t *testing.T) {
	frame := []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01}

	withCRC := AppendCRC16(frame)

	assert.Equal(t, []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01, 0x84, 0x0A}, withCRC)
	assert.Len(t, frame, 6, "input must not be modified")
}

func TestCheckCRC16(t *testing.T) {
	assert.True(t, CheckCRC16([]byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01, 0x84, 0x0A}))
	assert.True(t, CheckCRC16(AppendCRC16([]byte{0xDE, 0xAD, 0xBE, 0xEF})))

	assert.False(t, CheckCRC16([]byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01, 0x0A, 0x84}))
	assert.False(t, CheckCRC16([]byte{0x84, 0x0A}))
	assert.False(t, CheckCRC16(nil))
}
