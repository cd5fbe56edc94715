// internal/discovery/scanner.go - serial port enumeration
package discovery

import (
	"context"
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"

	"rfid-bridge/internal/discovery/usb"
	"rfid-bridge/internal/model"
)

// Enumerator lists the serial-capable devices present on the host
type Enumerator interface {
	ListDevices(ctx context.Context) ([]model.DeviceDescriptor, error)
}

// EnumeratorFunc adapts a plain function to Enumerator
type EnumeratorFunc func(ctx context.Context) ([]model.DeviceDescriptor, error)

// ListDevices calls f
func (f EnumeratorFunc) ListDevices(ctx context.Context) ([]model.DeviceDescriptor, error) {
	return f(ctx)
}

// allow tests to override the OS enumerator
var getDetailedPortsList = enumerator.GetDetailedPortsList

// PortEnumerator enumerates serial ports through the OS
type PortEnumerator struct {
	bridges *usb.BridgeDatabase
	logger  *zap.Logger
}

// NewPortEnumerator creates a port enumerator; bridges may be nil
func NewPortEnumerator(bridges *usb.BridgeDatabase, logger *zap.Logger) *PortEnumerator {
	if bridges == nil {
		bridges = usb.NewBridgeDatabase()
	}
	return &PortEnumerator{
		bridges: bridges,
		logger:  logger.With(zap.String("scanner", "serial")),
	}
}

// ListDevices returns one descriptor per serial port
func (e *PortEnumerator) ListDevices(ctx context.Context) ([]model.DeviceDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ports, err := getDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	devices := make([]model.DeviceDescriptor, 0, len(ports))
	for _, port := range ports {
		if port == nil {
			continue
		}
		devices = append(devices, e.describe(port))
	}

	e.logger.Debug("Serial ports enumerated", zap.Int("ports_found", len(devices)))
	return devices, nil
}

func (e *PortEnumerator) describe(port *enumerator.PortDetails) model.DeviceDescriptor {
	device := model.DeviceDescriptor{
		ID:           port.Name,
		DisplayName:  strings.TrimSpace(port.Product),
		IsUSB:        port.IsUSB,
		VendorID:     strings.ToUpper(port.VID),
		ProductID:    strings.ToUpper(port.PID),
		SerialNumber: port.SerialNumber,
	}

	if device.DisplayName == "" && port.IsUSB {
		if _, product, ok := e.bridges.Lookup(port.VID, port.PID); ok {
			device.DisplayName = product.Name
		}
	}
	if device.DisplayName == "" {
		device.DisplayName = port.Name
	}

	return device
}
