// internal/service/transaction_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rfid-bridge/internal/model"
	"rfid-bridge/internal/protocol"
	"rfid-bridge/internal/protocol/hexframe"
	"rfid-bridge/internal/utils"
)

// Status texts pushed to the StatusSink
const (
	StatusRetrieving = "Retrieving RFID Reader through UART Bridge ..."
	StatusReady      = "Reader ready and configured"
	StatusWriting    = "Writing command to RFID Reader"
	StatusWritten    = "Writing of command has been successful"
	StatusAwaiting   = "Awaiting Data from RFID Reader"
	StatusRead       = "Data successfully read from RFID Reader"
	StatusOffline    = "Reader offline"
)

// DefaultReadBufferSize caps a single response read
const DefaultReadBufferSize = 1024

var ErrNoResolver = errors.New("no device resolver configured")

// Link is the raw byte channel a transaction runs over
type Link interface {
	WriteRaw(ctx context.Context, data []byte) error
	ReadRaw(ctx context.Context, maxBytes int) ([]byte, error)
	Device() model.DeviceDescriptor
	Config() protocol.LinkConfig
	Stats() protocol.LinkStats
	Close() error
}

// LinkResolver produces a fresh link to the configured device
type LinkResolver interface {
	Resolve(ctx context.Context, nameFilter string) (*protocol.SerialLink, error)
}

// StatusSink receives human readable progress and finished transactions
type StatusSink interface {
	SetStatus(status string)
	TransactionCompleted(result model.TransactionResult)
}

type nopSink struct{}

func (nopSink) SetStatus(string)                             {}
func (nopSink) TransactionCompleted(model.TransactionResult) {}

// TransactionOptions configures a TransactionService
type TransactionOptions struct {
	NameFilter     string
	ReadBufferSize int
	AppendCRC      bool
}

// LinkInfo describes the attached link
type LinkInfo struct {
	Status    model.LinkStatus        `json:"status"`
	Device    *model.DeviceDescriptor `json:"device,omitempty"`
	Config    *protocol.LinkConfig    `json:"config,omitempty"`
	Stats     *protocol.LinkStats     `json:"stats,omitempty"`
	LastError string                  `json:"last_error,omitempty"`
}

// TransactionService runs strictly serialized write-then-read transactions
type TransactionService struct {
	// txMutex serializes transactions and link swaps
	txMutex sync.Mutex

	// stateMutex guards the fields below for readers that must not wait on a transaction
	stateMutex sync.RWMutex
	link       Link
	status     model.LinkStatus
	lastError  string

	resolver LinkResolver
	sink     StatusSink
	options  TransactionOptions
	logger   *utils.ServiceLogger
}

// NewTransactionService creates a service without a link; call Reconnect or AttachLink
func NewTransactionService(resolver LinkResolver, sink StatusSink, options TransactionOptions, logger *zap.Logger) *TransactionService {
	if sink == nil {
		sink = nopSink{}
	}
	if options.ReadBufferSize <= 0 {
		options.ReadBufferSize = DefaultReadBufferSize
	}

	return &TransactionService{
		status:   model.LinkStatusOffline,
		resolver: resolver,
		sink:     sink,
		options:  options,
		logger:   utils.NewServiceLogger(logger, "transaction-service"),
	}
}

// Transact encodes commandText, writes it and reads the reply. It never returns an error:
// every failure is reported in the result.
func (s *TransactionService) Transact(ctx context.Context, commandText string) model.TransactionResult {
	s.txMutex.Lock()
	defer s.txMutex.Unlock()

	id := uuid.New()
	startedAt := time.Now()
	txLogger := utils.NewTransactionLogger(s.logger.Logger, id.String())
	txLogger.Start(zap.String("command", commandText))

	result, err := s.transact(ctx, commandText)
	result.ID = id
	result.Command = commandText
	result.StartedAt = startedAt
	result.Duration = txLogger.Elapsed()

	if result.Success {
		txLogger.Success(
			zap.Int("bytes_read", len(result.Payload)),
			zap.String("response", result.Message),
		)
	} else {
		ioFault := result.ErrorKind == model.ErrorKindTimeout || result.ErrorKind == model.ErrorKindTransport
		txLogger.Failure(err, ioFault,
			zap.String("stage", string(result.Stage)),
			zap.String("error_kind", string(result.ErrorKind)),
		)
		s.sink.SetStatus(result.Message)
	}

	s.sink.TransactionCompleted(result)
	return result
}

func (s *TransactionService) transact(ctx context.Context, commandText string) (model.TransactionResult, error) {
	frame, err := hexframe.Encode(commandText)
	if err != nil {
		return model.Failed(model.TransactionStateEncoding, model.ErrorKindFormat, err.Error()), err
	}
	if len(frame) == 0 {
		err := errors.New("no command")
		return model.Failed(model.TransactionStateEncoding, model.ErrorKindNoCommand, err.Error()), err
	}

	link := s.currentLink()
	if link == nil {
		err := errors.New("reader not ready: no serial link attached")
		return model.Failed(model.TransactionStateWriting, model.ErrorKindNotReady, err.Error()), err
	}

	if s.options.AppendCRC {
		frame = hexframe.AppendCRC16(frame)
	}

	s.sink.SetStatus(StatusWriting)
	if err := link.WriteRaw(ctx, frame); err != nil {
		s.noteLinkError(err)
		return model.Failed(model.TransactionStateWriting, classify(err), err.Error()), err
	}
	s.sink.SetStatus(StatusWritten)

	s.sink.SetStatus(StatusAwaiting)
	data, err := link.ReadRaw(ctx, s.options.ReadBufferSize)
	if err != nil {
		s.noteLinkError(err)
		return model.Failed(model.TransactionStateReading, classify(err), err.Error()), err
	}
	if len(data) == 0 {
		err := fmt.Errorf("read timeout: no response from reader within %s", link.Config().ReadTimeout)
		return model.Failed(model.TransactionStateReading, model.ErrorKindTimeout, err.Error()), err
	}

	result := model.Succeeded(data, hexframe.Decode(data))
	if s.options.AppendCRC {
		valid := hexframe.CheckCRC16(data)
		result.CRCValid = &valid
	}
	s.sink.SetStatus(StatusRead)

	return result, nil
}

// classify maps a link error onto the transaction error taxonomy
func classify(err error) model.ErrorKind {
	if errors.Is(err, protocol.ErrStreamBusy) {
		return model.ErrorKindNotReady
	}
	if protocol.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return model.ErrorKindTimeout
	}
	return model.ErrorKindTransport
}

// noteLinkError records the fault; a closed link is dropped so readiness reflects it
func (s *TransactionService) noteLinkError(err error) {
	s.stateMutex.Lock()
	defer s.stateMutex.Unlock()

	s.lastError = err.Error()
	if errors.Is(err, protocol.ErrLinkClosed) {
		s.link = nil
		s.status = model.LinkStatusOffline
	}
}

// Reconnect closes the current link and resolves the device again
func (s *TransactionService) Reconnect(ctx context.Context) error {
	if s.resolver == nil {
		return ErrNoResolver
	}

	s.txMutex.Lock()
	defer s.txMutex.Unlock()

	// the OS handle is exclusive, so the old link has to go before the device is reopened
	s.closeLink()
	s.setStatus(model.LinkStatusConnecting, "")
	s.sink.SetStatus(StatusRetrieving)

	link, err := s.resolver.Resolve(ctx, s.options.NameFilter)
	if err != nil {
		s.setStatus(model.LinkStatusOffline, err.Error())
		s.sink.SetStatus(err.Error())
		s.logger.Error("Failed to resolve reader",
			zap.String("name_filter", s.options.NameFilter),
			zap.Error(err),
		)
		return fmt.Errorf("failed to resolve reader: %w", err)
	}

	s.attach(link)
	return nil
}

// AttachLink hands ownership of link to the service, closing any previous link
func (s *TransactionService) AttachLink(link Link) {
	s.txMutex.Lock()
	defer s.txMutex.Unlock()

	s.closeLink()
	s.attach(link)
}

func (s *TransactionService) attach(link Link) {
	s.stateMutex.Lock()
	s.link = link
	s.status = model.LinkStatusReady
	s.lastError = ""
	s.stateMutex.Unlock()

	device := link.Device()
	utils.NewLinkLogger(s.logger.Logger, device.ID, device.DisplayName).LogConnection("attach", true, nil)
	s.sink.SetStatus(StatusReady)
}

// DetachLink closes and forgets the current link
func (s *TransactionService) DetachLink() error {
	s.txMutex.Lock()
	defer s.txMutex.Unlock()

	err := s.closeLink()
	s.sink.SetStatus(StatusOffline)
	return err
}

// closeLink must be called with txMutex held
func (s *TransactionService) closeLink() error {
	s.stateMutex.Lock()
	link := s.link
	s.link = nil
	s.status = model.LinkStatusOffline
	s.stateMutex.Unlock()

	if link == nil {
		return nil
	}

	device := link.Device()
	linkLogger := utils.NewLinkLogger(s.logger.Logger, device.ID, device.DisplayName)
	if err := link.Close(); err != nil {
		linkLogger.LogConnection("close", false, err)
		return err
	}
	linkLogger.LogConnection("close", true, nil)
	return nil
}

func (s *TransactionService) setStatus(status model.LinkStatus, lastError string) {
	s.stateMutex.Lock()
	defer s.stateMutex.Unlock()
	s.status = status
	s.lastError = lastError
}

func (s *TransactionService) currentLink() Link {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	return s.link
}

// Ready reports whether a link is attached
func (s *TransactionService) Ready() bool {
	return s.currentLink() != nil
}

// LinkInfo returns the link status with device, line configuration and counters when attached
func (s *TransactionService) LinkInfo() LinkInfo {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()

	info := LinkInfo{Status: s.status, LastError: s.lastError}
	if s.link == nil {
		return info
	}

	device := s.link.Device()
	config := s.link.Config()
	stats := s.link.Stats()
	info.Device = &device
	info.Config = &config
	info.Stats = &stats
	return info
}

// Close releases the link on shutdown
func (s *TransactionService) Close() error {
	s.logger.LogServiceStop("shutdown")
	return s.DetachLink()
}
