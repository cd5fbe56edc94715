// internal/service/discovery_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"rfid-bridge/internal/model"
	"rfid-bridge/internal/utils"
)

// DeviceLister enumerates serial devices without opening them
type DeviceLister interface {
	Devices(ctx context.Context) ([]model.DeviceDescriptor, error)
}

// BridgeScanner lists attached USB-to-UART bridges
type BridgeScanner interface {
	Scan(ctx context.Context) ([]model.UARTBridge, error)
}

// DiscoveryService answers diagnostic enumeration queries
type DiscoveryService struct {
	devices    DeviceLister
	bridges    BridgeScanner
	nameFilter string
	logger     *utils.ServiceLogger
}

// PortEntry is an enumerated port annotated with whether it matches the name filter
type PortEntry struct {
	model.DeviceDescriptor
	Matches bool `json:"matches"`
}

// PortsResponse is the result of a port listing
type PortsResponse struct {
	NameFilter string        `json:"name_filter"`
	Ports      []PortEntry   `json:"ports"`
	Count      int           `json:"count"`
	Matches    int           `json:"matches"`
	Duration   time.Duration `json:"duration"`
}

// NewDiscoveryService creates a new discovery service; bridges may be nil
func NewDiscoveryService(devices DeviceLister, bridges BridgeScanner, nameFilter string, logger *zap.Logger) *DiscoveryService {
	return &DiscoveryService{
		devices:    devices,
		bridges:    bridges,
		nameFilter: nameFilter,
		logger:     utils.NewServiceLogger(logger, "discovery-service"),
	}
}

// ListPorts enumerates serial ports and flags those the resolver would select
func (ds *DiscoveryService) ListPorts(ctx context.Context) (*PortsResponse, error) {
	startTime := time.Now()

	devices, err := ds.devices.Devices(ctx)
	if err != nil {
		ds.logger.Error("Port enumeration failed", zap.Error(err))
		return nil, fmt.Errorf("failed to list ports: %w", err)
	}

	response := &PortsResponse{
		NameFilter: ds.nameFilter,
		Ports:      make([]PortEntry, 0, len(devices)),
	}
	for _, device := range devices {
		entry := PortEntry{DeviceDescriptor: device, Matches: device.DisplayName == ds.nameFilter}
		if entry.Matches {
			response.Matches++
		}
		response.Ports = append(response.Ports, entry)
	}
	response.Count = len(response.Ports)
	response.Duration = time.Since(startTime)

	ds.logger.Info("Ports listed",
		zap.Int("ports_found", response.Count),
		zap.Int("matches", response.Matches),
	)
	return response, nil
}

// ListBridges scans the USB bus for known UART bridges
func (ds *DiscoveryService) ListBridges(ctx context.Context) ([]model.UARTBridge, error) {
	if ds.bridges == nil {
		return nil, fmt.Errorf("USB scanning is not available")
	}

	bridges, err := ds.bridges.Scan(ctx)
	if err != nil {
		ds.logger.Error("USB bridge scan failed", zap.Error(err))
		return nil, fmt.Errorf("failed to scan USB bridges: %w", err)
	}
	return bridges, nil
}
