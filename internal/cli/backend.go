package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"rfid-bridge/internal/config"
	"rfid-bridge/internal/discovery"
	"rfid-bridge/internal/discovery/usb"
	"rfid-bridge/internal/model"
	"rfid-bridge/internal/protocol"
	"rfid-bridge/internal/service"
)

// Backend is what the commands need from the machine the reader is attached to.
type Backend interface {
	Ports(ctx context.Context) ([]model.DeviceDescriptor, error)
	Bridges(ctx context.Context) ([]model.UARTBridge, error)
	// Transact opens the reader, runs one transaction and closes it again.
	// The error is non-nil only when the reader could not be opened.
	Transact(ctx context.Context, command string, options service.TransactionOptions, sink service.StatusSink) (model.TransactionResult, error)
}

// BackendFactory builds a Backend once configuration is loaded.
type BackendFactory func(cfg *config.Config, logger *zap.Logger) (Backend, error)

// deviceBackend talks to real serial and USB devices.
type deviceBackend struct {
	logger   *zap.Logger
	bridges  *usb.BridgeDatabase
	resolver *discovery.Resolver
}

// NewDeviceBackend wires the resolver and USB scanner from cfg.
func NewDeviceBackend(cfg *config.Config, logger *zap.Logger) (Backend, error) {
	linkConfig, err := cfg.Device.LinkConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid serial configuration: %w", err)
	}
	opener, err := protocol.OpenerFor(cfg.Device.Driver)
	if err != nil {
		return nil, err
	}

	bridges := usb.NewBridgeDatabase()
	resolver := discovery.NewResolver(
		discovery.NewPortEnumerator(bridges, logger),
		opener,
		discovery.ResolverOptions{Config: linkConfig, RequireUnique: cfg.Device.RequireUnique},
		logger,
	)

	return &deviceBackend{logger: logger, bridges: bridges, resolver: resolver}, nil
}

func (b *deviceBackend) Ports(ctx context.Context) ([]model.DeviceDescriptor, error) {
	return b.resolver.Devices(ctx)
}

func (b *deviceBackend) Bridges(ctx context.Context) ([]model.UARTBridge, error) {
	return usb.NewScanner(b.bridges, b.logger).Scan(ctx)
}

func (b *deviceBackend) Transact(ctx context.Context, command string, options service.TransactionOptions, sink service.StatusSink) (model.TransactionResult, error) {
	svc := service.NewTransactionService(b.resolver, sink, options, b.logger)
	defer svc.Close()

	if err := svc.Reconnect(ctx); err != nil {
		return model.TransactionResult{}, err
	}
	return svc.Transact(ctx, command), nil
}
