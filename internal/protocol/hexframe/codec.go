// internal/protocol/hexframe/codec.go
package hexframe

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidToken is wrapped by every FormatError
var ErrInvalidToken = errors.New("invalid hex token")

// FormatError reports a command token that is not a base-16 byte value
type FormatError struct {
	Token    string
	Position int
	Err      error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid hex token %q at position %d: must be a byte value 00-FF", e.Token, e.Position)
}

func (e *FormatError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidToken}
	}
	return []error{ErrInvalidToken, e.Err}
}

// Encode parses whitespace separated hex byte tokens ("01 03 00 0A") into raw bytes.
// Blank input yields an empty, non-nil slice.
func Encode(text string) ([]byte, error) {
	tokens := strings.Fields(text)
	frame := make([]byte, 0, len(tokens))

	for i, token := range tokens {
		digits := token
		if len(digits) > 2 && (digits[:2] == "0x" || digits[:2] == "0X") {
			digits = digits[2:]
		}

		value, err := strconv.ParseUint(digits, 16, 8)
		if err != nil {
			return nil, &FormatError{Token: token, Position: i, Err: err}
		}
		frame = append(frame, byte(value))
	}

	return frame, nil
}

// Decode renders bytes as uppercase hex pairs joined by '-' ("01-03-0A")
func Decode(frame []byte) string {
	return join(frame, '-')
}

// Format renders bytes in command form, pairs joined by a single space
func Format(frame []byte) string {
	return join(frame, ' ')
}

const hexDigits = "0123456789ABCDEF"

func join(frame []byte, sep byte) string {
	if len(frame) == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(len(frame)*3 - 1)
	for i, v := range frame {
		if i > 0 {
			b.WriteByte(sep)
		}
		b.WriteByte(hexDigits[v>>4])
		b.WriteByte(hexDigits[v&0x0F])
	}
	return b.String()
}
