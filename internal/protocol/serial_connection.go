// internal/protocol/serial_connection.go
package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"rfid-bridge/internal/model"
	"rfid-bridge/internal/protocol/hexframe"
)

const (
	opWrite = "write"
	opRead  = "read"
)

// readGuardSlack bounds how long a read may overrun the port's own read timeout
const readGuardSlack = 250 * time.Millisecond

// SerialLink owns one open serial port and exposes bounded raw I/O on it
type SerialLink struct {
	device model.DeviceDescriptor
	config LinkConfig
	port   Port
	logger *zap.Logger
	mutex  sync.RWMutex
	isOpen bool

	// one lease per direction, held until the port call itself returns
	writer atomic.Bool
	reader atomic.Bool

	// reader side state, only touched while the reader lease is held
	pending *pendingRead
	carry   []byte

	stats linkCounters
}

// pendingRead is a port read still running after its ReadRaw gave up on it
type pendingRead struct {
	buffer []byte
	done   chan ioResult
}

type linkCounters struct {
	bytesWritten    atomic.Int64
	bytesRead       atomic.Int64
	writes          atomic.Int64
	reads           atomic.Int64
	timeouts        atomic.Int64
	errors          atomic.Int64
	streamsAcquired atomic.Int64
	streamsReleased atomic.Int64
	lastActivity    atomic.Time
}

// LinkStats is a snapshot of link level counters
type LinkStats struct {
	BytesWritten    int64     `json:"bytes_written"`
	BytesRead       int64     `json:"bytes_read"`
	Writes          int64     `json:"writes"`
	Reads           int64     `json:"reads"`
	Timeouts        int64     `json:"timeouts"`
	Errors          int64     `json:"errors"`
	StreamsAcquired int64     `json:"streams_acquired"`
	StreamsReleased int64     `json:"streams_released"`
	LastActivity    time.Time `json:"last_activity"`
	IsOpen          bool      `json:"is_open"`
}

type ioResult struct {
	n   int
	err error
}

// NewSerialLink wraps an already opened and configured port
func NewSerialLink(device model.DeviceDescriptor, port Port, config LinkConfig, logger *zap.Logger) *SerialLink {
	return &SerialLink{
		device: device,
		config: config,
		port:   port,
		isOpen: port != nil,
		logger: logger.With(
			zap.String("protocol", "serial"),
			zap.String("port", device.ID),
		),
	}
}

// WriteRaw transmits all of data, bounded by the write timeout. A write that times out
// keeps the writer lease until the port returns, so later writes fail with ErrStreamBusy.
func (l *SerialLink) WriteRaw(ctx context.Context, data []byte) error {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	if !l.isOpen || l.port == nil {
		return &IOError{Op: opWrite, Kind: ErrTransport, Err: ErrLinkClosed}
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	release, err := l.acquire(&l.writer, opWrite)
	if err != nil {
		return err
	}

	done := make(chan ioResult, 1)
	go func() {
		n, err := l.port.Write(data)
		release()
		done <- ioResult{n: n, err: err}
	}()

	timer := time.NewTimer(l.config.WriteTimeout)
	defer timer.Stop()

	select {
	case res := <-done:
		if res.err != nil {
			l.stats.errors.Inc()
			l.logger.Error("Serial write failed", zap.Error(res.err))
			return &IOError{Op: opWrite, Kind: ErrTransport, Err: res.err}
		}
		if res.n != len(data) {
			l.stats.errors.Inc()
			return &IOError{
				Op:   opWrite,
				Kind: ErrTransport,
				Err:  fmt.Errorf("incomplete write: wrote %d of %d bytes", res.n, len(data)),
			}
		}

	case <-timer.C:
		l.stats.timeouts.Inc()
		l.logger.Warn("Serial write timed out, writer held until the port returns",
			zap.Duration("timeout", l.config.WriteTimeout),
			zap.Int("bytes", len(data)),
		)
		return &IOError{Op: opWrite, Kind: ErrTimeout, Limit: l.config.WriteTimeout}
	}

	l.stats.bytesWritten.Add(int64(len(data)))
	l.stats.writes.Inc()
	l.stats.lastActivity.Store(time.Now())

	l.logger.Debug("Serial write completed",
		zap.Int("bytes", len(data)),
		zap.String("frame", hexframe.Decode(data)),
	)
	return nil
}

// ReadRaw waits for at least one byte or the read timeout and returns what arrived,
// up to maxBytes. A timeout with nothing received returns an empty slice and no error.
// A port read abandoned by the guard is collected by the next call instead of issuing another.
func (l *SerialLink) ReadRaw(ctx context.Context, maxBytes int) ([]byte, error) {
	if maxBytes <= 0 {
		return nil, fmt.Errorf("max bytes must be positive, got %d", maxBytes)
	}

	l.mutex.RLock()
	defer l.mutex.RUnlock()

	if !l.isOpen || l.port == nil {
		return nil, &IOError{Op: opRead, Kind: ErrTransport, Err: ErrLinkClosed}
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	release, err := l.acquire(&l.reader, opRead)
	if err != nil {
		return nil, err
	}
	defer release()

	if len(l.carry) > 0 {
		return l.received(l.takeCarry(maxBytes)), nil
	}

	read := l.pending
	l.pending = nil
	if read == nil {
		read = &pendingRead{buffer: make([]byte, maxBytes), done: make(chan ioResult, 1)}
		go func() {
			n, err := l.port.Read(read.buffer)
			read.done <- ioResult{n: n, err: err}
		}()
	} else {
		l.logger.Debug("Collecting port read left over from an earlier timeout")
	}

	// The port enforces the read timeout itself; the guard only covers drivers that overrun it.
	guard := time.NewTimer(l.config.ReadTimeout + readGuardSlack)
	defer guard.Stop()

	select {
	case res := <-read.done:
		if res.err != nil && !errors.Is(res.err, io.EOF) {
			l.stats.errors.Inc()
			l.logger.Error("Serial read failed", zap.Error(res.err))
			return nil, &IOError{Op: opRead, Kind: ErrTransport, Err: res.err}
		}

		data := make([]byte, res.n)
		copy(data, read.buffer[:res.n])
		if len(data) > maxBytes {
			l.carry = data[maxBytes:]
			data = data[:maxBytes]
		}
		return l.received(data), nil

	case <-guard.C:
		l.pending = read
		l.stats.reads.Inc()
		l.stats.timeouts.Inc()
		l.logger.Warn("Serial read overran its timeout", zap.Duration("timeout", l.config.ReadTimeout))
		return []byte{}, nil
	}
}

// received records a completed read
func (l *SerialLink) received(data []byte) []byte {
	l.stats.reads.Inc()
	if len(data) == 0 {
		l.stats.timeouts.Inc()
		return data
	}

	l.stats.bytesRead.Add(int64(len(data)))
	l.stats.lastActivity.Store(time.Now())

	l.logger.Debug("Serial read completed",
		zap.Int("bytes", len(data)),
		zap.String("frame", hexframe.Decode(data)),
	)
	return data
}

func (l *SerialLink) takeCarry(maxBytes int) []byte {
	n := min(maxBytes, len(l.carry))
	data := l.carry[:n:n]
	l.carry = l.carry[n:]
	if len(l.carry) == 0 {
		l.carry = nil
	}
	return data
}

// acquire leases one direction of the stream; the returned release runs at most once
func (l *SerialLink) acquire(lease *atomic.Bool, op string) (func(), error) {
	if !lease.CompareAndSwap(false, true) {
		return nil, &IOError{Op: op, Kind: ErrTransport, Err: ErrStreamBusy}
	}
	l.stats.streamsAcquired.Inc()

	var once sync.Once
	return func() {
		once.Do(func() {
			lease.Store(false)
			l.stats.streamsReleased.Inc()
		})
	}, nil
}

// Close closes the serial port; closing twice is a no-op
func (l *SerialLink) Close() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if !l.isOpen || l.port == nil {
		return nil
	}

	l.isOpen = false
	if err := l.port.Close(); err != nil {
		l.logger.Error("Failed to close serial port", zap.Error(err))
		return fmt.Errorf("failed to close serial port: %w", err)
	}

	l.logger.Info("Serial port closed")
	return nil
}

// IsOpen returns whether the link still holds an open port
func (l *SerialLink) IsOpen() bool {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return l.isOpen && l.port != nil
}

// Device returns the descriptor the link was opened from
func (l *SerialLink) Device() model.DeviceDescriptor {
	return l.device
}

// Config returns the line configuration applied at open time
func (l *SerialLink) Config() LinkConfig {
	return l.config
}

// Stats returns a snapshot of the link counters
func (l *SerialLink) Stats() LinkStats {
	return LinkStats{
		BytesWritten:    l.stats.bytesWritten.Load(),
		BytesRead:       l.stats.bytesRead.Load(),
		Writes:          l.stats.writes.Load(),
		Reads:           l.stats.reads.Load(),
		Timeouts:        l.stats.timeouts.Load(),
		Errors:          l.stats.errors.Load(),
		StreamsAcquired: l.stats.streamsAcquired.Load(),
		StreamsReleased: l.stats.streamsReleased.Load(),
		LastActivity:    l.stats.lastActivity.Load(),
		IsOpen:          l.IsOpen(),
	}
}
