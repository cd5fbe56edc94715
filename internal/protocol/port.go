// internal/protocol/port.go
package protocol

import (
	"fmt"
	"io"
	"strings"

	tarm "github.com/tarm/serial"
	"go.bug.st/serial"
)

// Port is the byte stream of an open serial device
type Port interface {
	io.ReadWriteCloser
}

// Opener opens the named device with cfg applied
type Opener func(name string, cfg LinkConfig) (Port, error)

// Port backends selectable through configuration
const (
	DriverBugst = "bugst"
	DriverTarm  = "tarm"
)

// allow tests to override the go.bug.st entry point
var openBugstPort = func(name string, mode *serial.Mode) (serial.Port, error) { return serial.Open(name, mode) }

// OpenerFor returns the port backend registered under driver
func OpenerFor(driver string) (Opener, error) {
	switch strings.ToLower(driver) {
	case "", DriverBugst:
		return OpenBugst, nil
	case DriverTarm:
		return OpenTarm, nil
	default:
		return nil, fmt.Errorf("unsupported serial driver: %s", driver)
	}
}

// OpenBugst opens the port with go.bug.st/serial
func OpenBugst(name string, cfg LinkConfig) (Port, error) {
	port, err := openBugstPort(name, cfg.Mode())
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}

	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	return port, nil
}

// OpenTarm opens the port with github.com/tarm/serial
func OpenTarm(name string, cfg LinkConfig) (Port, error) {
	port, err := tarm.OpenPort(tarmConfig(name, cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return port, nil
}

func tarmConfig(name string, cfg LinkConfig) *tarm.Config {
	c := &tarm.Config{
		Name:        name,
		Baud:        cfg.BaudRate,
		ReadTimeout: cfg.ReadTimeout,
		Size:        byte(cfg.DataBits),
	}

	switch cfg.Parity {
	case ParityOdd:
		c.Parity = tarm.ParityOdd
	case ParityEven:
		c.Parity = tarm.ParityEven
	case ParityMark:
		c.Parity = tarm.ParityMark
	case ParitySpace:
		c.Parity = tarm.ParitySpace
	default:
		c.Parity = tarm.ParityNone
	}

	switch cfg.StopBits {
	case StopBitsOnePointFive:
		c.StopBits = tarm.Stop1Half
	case StopBitsTwo:
		c.StopBits = tarm.Stop2
	default:
		c.StopBits = tarm.Stop1
	}

	return c
}
