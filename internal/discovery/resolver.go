// internal/discovery/resolver.go
package discovery

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"rfid-bridge/internal/model"
	"rfid-bridge/internal/protocol"
)

// Resolver finds the bridge device by display name and opens it
type Resolver struct {
	enumerator    Enumerator
	open          protocol.Opener
	config        protocol.LinkConfig
	requireUnique bool
	logger        *zap.Logger
	linkLogger    *zap.Logger
}

// ResolverOptions configures a Resolver
type ResolverOptions struct {
	Config protocol.LinkConfig
	// RequireUnique rejects a filter that matches several devices instead of taking the first
	RequireUnique bool
}

// NewResolver creates a resolver over enumerator that opens devices with open
func NewResolver(enumerator Enumerator, open protocol.Opener, opts ResolverOptions, logger *zap.Logger) *Resolver {
	if open == nil {
		open = protocol.OpenBugst
	}
	return &Resolver{
		enumerator:    enumerator,
		open:          open,
		config:        opts.Config,
		requireUnique: opts.RequireUnique,
		logger:        logger.With(zap.String("component", "resolver")),
		linkLogger:    logger,
	}
}

// Resolve opens the first device whose display name equals nameFilter.
// The returned link belongs to the caller; the resolver keeps no reference to it.
func (r *Resolver) Resolve(ctx context.Context, nameFilter string) (*protocol.SerialLink, error) {
	startTime := time.Now()

	devices, err := r.enumerator.ListDevices(ctx)
	if err != nil {
		return nil, &ResolveError{Filter: nameFilter, Kind: ErrDeviceNotFound, Err: err}
	}

	matches := make([]model.DeviceDescriptor, 0, 1)
	for _, device := range devices {
		if device.DisplayName == nameFilter {
			matches = append(matches, device)
		}
	}

	switch {
	case len(matches) == 0:
		r.logger.Warn("No device matches filter",
			zap.String("filter", nameFilter),
			zap.Int("devices_enumerated", len(devices)),
		)
		return nil, &ResolveError{Filter: nameFilter, Kind: ErrDeviceNotFound}

	case len(matches) > 1 && r.requireUnique:
		return nil, &ResolveError{
			Filter: nameFilter,
			Kind:   ErrAmbiguousDevice,
			Err:    fmt.Errorf("%d devices share the name", len(matches)),
		}

	case len(matches) > 1:
		r.logger.Warn("Several devices match filter, using the first",
			zap.String("filter", nameFilter),
			zap.Int("matches", len(matches)),
			zap.String("selected", matches[0].ID),
		)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	device := matches[0]
	port, err := r.open(device.ID, r.config)
	if err != nil {
		r.logger.Error("Failed to open device",
			zap.String("port", device.ID),
			zap.Error(err),
		)
		return nil, &ResolveError{Filter: nameFilter, Kind: ErrOpenFailed, Err: err}
	}

	r.logger.Info("Device resolved",
		zap.String("port", device.ID),
		zap.String("name", device.DisplayName),
		zap.Int("baud_rate", r.config.BaudRate),
		zap.Duration("duration", time.Since(startTime)),
	)

	return protocol.NewSerialLink(device, port, r.config, r.linkLogger), nil
}

// Devices lists enumerated devices without opening any of them
func (r *Resolver) Devices(ctx context.Context) ([]model.DeviceDescriptor, error) {
	return r.enumerator.ListDevices(ctx)
}
