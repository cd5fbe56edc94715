// internal/discovery/usb/scanner.go - USB bridge scanner
package usb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/gousb"
	"go.uber.org/zap"

	"rfid-bridge/internal/model"
)

// Scanner lists USB-to-UART bridges attached to the host
type Scanner struct {
	logger  *zap.Logger
	bridges *BridgeDatabase
	timeout time.Duration
}

// NewScanner creates a new USB bridge scanner
func NewScanner(bridges *BridgeDatabase, logger *zap.Logger) *Scanner {
	if bridges == nil {
		bridges = NewBridgeDatabase()
	}
	return &Scanner{
		logger:  logger.With(zap.String("scanner", "usb")),
		bridges: bridges,
		timeout: 10 * time.Second,
	}
}

// Scan opens every known bridge briefly to read its string descriptors
func (s *Scanner) Scan(ctx context.Context) ([]model.UARTBridge, error) {
	startTime := time.Now()

	scanCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	usbCtx := gousb.NewContext()
	defer func() {
		if err := usbCtx.Close(); err != nil {
			s.logger.Warn("Failed to close USB context", zap.Error(err))
		}
	}()

	devices, err := usbCtx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return s.bridges.IsKnownVendor(desc.Vendor)
	})
	defer s.closeAllDevices(devices)
	if err != nil && len(devices) == 0 {
		return nil, fmt.Errorf("failed to enumerate USB devices: %w", err)
	}
	if err != nil {
		// OpenDevices reports per-device failures (permissions) alongside the devices it did open
		s.logger.Warn("Some USB devices could not be opened", zap.Error(err))
	}

	bridges := make([]model.UARTBridge, 0, len(devices))
	for _, device := range devices {
		select {
		case <-scanCtx.Done():
			return bridges, scanCtx.Err()
		default:
		}

		if bridge, ok := s.describe(device); ok {
			bridges = append(bridges, bridge)
		}
	}

	s.logger.Info("USB bridge scan completed",
		zap.Int("bridges_found", len(bridges)),
		zap.Duration("scan_duration", time.Since(startTime)),
	)
	return bridges, nil
}

// describe builds a bridge entry; string descriptors fall back to the database
func (s *Scanner) describe(device *gousb.Device) (model.UARTBridge, bool) {
	desc := device.Desc
	if desc == nil {
		return model.UARTBridge{}, false
	}

	bridge := model.UARTBridge{
		VendorID:  fmt.Sprintf("%04X", uint16(desc.Vendor)),
		ProductID: fmt.Sprintf("%04X", uint16(desc.Product)),
		Location:  fmt.Sprintf("USB-Bus%d-Port%d", desc.Bus, desc.Address),
	}

	if vendor := s.bridges.GetVendorInfo(desc.Vendor); vendor != nil {
		bridge.Vendor = vendor.Name
		if product := vendor.GetProductInfo(desc.Product); product != nil {
			bridge.Product = product.Name
		}
	}

	if product, err := device.Product(); err == nil && strings.TrimSpace(product) != "" {
		bridge.Product = strings.TrimSpace(product)
	} else if err != nil {
		s.logger.Debug("Failed to read product string", zap.String("location", bridge.Location), zap.Error(err))
	}

	if serial, err := device.SerialNumber(); err == nil {
		bridge.SerialNumber = strings.TrimSpace(serial)
	}

	return bridge, true
}

// closeAllDevices safely closes all opened USB devices
func (s *Scanner) closeAllDevices(devices []*gousb.Device) {
	for i, device := range devices {
		if device != nil {
			if err := device.Close(); err != nil {
				s.logger.Warn("Failed to close USB device",
					zap.Int("device_index", i),
					zap.Error(err),
				)
			}
		}
	}
}
