// internal/protocol/connection.go
package protocol

import (
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
)

// Parity represents the serial parity mode
type Parity string

const (
	ParityNone  Parity = "none"
	ParityOdd   Parity = "odd"
	ParityEven  Parity = "even"
	ParityMark  Parity = "mark"
	ParitySpace Parity = "space"
)

// StopBits represents the number of stop bits
type StopBits string

const (
	StopBitsOne          StopBits = "1"
	StopBitsOnePointFive StopBits = "1.5"
	StopBitsTwo          StopBits = "2"
)

// Default link parameters of the RFID reader behind the UART bridge
const (
	DefaultBaudRate     = 9600
	DefaultDataBits     = 8
	DefaultReadTimeout  = 1000 * time.Millisecond
	DefaultWriteTimeout = 1000 * time.Millisecond
)

// LinkConfig represents serial line configuration applied when the link is opened
type LinkConfig struct {
	BaudRate     int           `json:"baud_rate"`
	Parity       Parity        `json:"parity"`
	StopBits     StopBits      `json:"stop_bits"`
	DataBits     int           `json:"data_bits"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// DefaultLinkConfig returns 9600 8N1 with one second read and write timeouts
func DefaultLinkConfig() LinkConfig {
	return LinkConfig{
		BaudRate:     DefaultBaudRate,
		Parity:       ParityNone,
		StopBits:     StopBitsOne,
		DataBits:     DefaultDataBits,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}
}

// NewLinkConfig builds a validated LinkConfig from textual parity and stop bit values
func NewLinkConfig(baudRate, dataBits int, parity, stopBits string, readTimeout, writeTimeout time.Duration) (LinkConfig, error) {
	p, err := ParseParity(parity)
	if err != nil {
		return LinkConfig{}, err
	}
	s, err := ParseStopBits(stopBits)
	if err != nil {
		return LinkConfig{}, err
	}

	cfg := LinkConfig{
		BaudRate:     baudRate,
		Parity:       p,
		StopBits:     s,
		DataBits:     dataBits,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	if err := cfg.Validate(); err != nil {
		return LinkConfig{}, err
	}
	return cfg, nil
}

// ParseParity parses a parity name, case-insensitively
func ParseParity(value string) (Parity, error) {
	switch p := Parity(strings.ToLower(strings.TrimSpace(value))); p {
	case ParityNone, ParityOdd, ParityEven, ParityMark, ParitySpace:
		return p, nil
	case "":
		return ParityNone, nil
	default:
		return "", fmt.Errorf("unsupported parity: %q", value)
	}
}

// ParseStopBits parses "1", "1.5" or "2"
func ParseStopBits(value string) (StopBits, error) {
	switch s := StopBits(strings.TrimSpace(value)); s {
	case StopBitsOne, StopBitsOnePointFive, StopBitsTwo:
		return s, nil
	case "":
		return StopBitsOne, nil
	default:
		return "", fmt.Errorf("unsupported stop bits: %q", value)
	}
}

// Validate checks the configuration before it is applied to a port
func (c LinkConfig) Validate() error {
	if c.BaudRate <= 0 {
		return fmt.Errorf("baud rate must be positive, got %d", c.BaudRate)
	}
	if c.DataBits < 5 || c.DataBits > 8 {
		return fmt.Errorf("data bits must be between 5 and 8, got %d", c.DataBits)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive, got %s", c.ReadTimeout)
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive, got %s", c.WriteTimeout)
	}
	if _, err := ParseParity(string(c.Parity)); err != nil {
		return err
	}
	if _, err := ParseStopBits(string(c.StopBits)); err != nil {
		return err
	}
	return nil
}

// Mode converts the configuration to a go.bug.st/serial mode
func (c LinkConfig) Mode() *serial.Mode {
	mode := &serial.Mode{
		BaudRate: c.BaudRate,
		DataBits: c.DataBits,
	}

	switch c.Parity {
	case ParityOdd:
		mode.Parity = serial.OddParity
	case ParityEven:
		mode.Parity = serial.EvenParity
	case ParityMark:
		mode.Parity = serial.MarkParity
	case ParitySpace:
		mode.Parity = serial.SpaceParity
	default:
		mode.Parity = serial.NoParity
	}

	switch c.StopBits {
	case StopBitsOnePointFive:
		mode.StopBits = serial.OnePointFiveStopBits
	case StopBitsTwo:
		mode.StopBits = serial.TwoStopBits
	default:
		mode.StopBits = serial.OneStopBit
	}

	return mode
}
