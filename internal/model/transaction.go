// internal/model/transaction.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// TransactionState represents a step of the write-then-read cycle
type TransactionState string

const (
	TransactionStateIdle      TransactionState = "IDLE"
	TransactionStateEncoding  TransactionState = "ENCODING"
	TransactionStateWriting   TransactionState = "WRITING"
	TransactionStateReading   TransactionState = "READING"
	TransactionStateSucceeded TransactionState = "SUCCEEDED"
	TransactionStateFailed    TransactionState = "FAILED"
)

// IsTerminal reports whether no further transition follows the state
func (s TransactionState) IsTerminal() bool {
	return s == TransactionStateSucceeded || s == TransactionStateFailed
}

// ErrorKind classifies why a transaction failed
type ErrorKind string

const (
	ErrorKindNone      ErrorKind = ""
	ErrorKindFormat    ErrorKind = "format"
	ErrorKindNoCommand ErrorKind = "no_command"
	ErrorKindNotReady  ErrorKind = "not_ready"
	ErrorKindTimeout   ErrorKind = "timeout"
	ErrorKindTransport ErrorKind = "transport"
)

// TransactionResult is the outcome of one write-then-read exchange
type TransactionResult struct {
	ID        uuid.UUID        `json:"id"`
	Success   bool             `json:"success"`
	Payload   []byte           `json:"payload,omitempty"`
	Message   string           `json:"message"`
	State     TransactionState `json:"state"`
	Stage     TransactionState `json:"stage"`
	ErrorKind ErrorKind        `json:"error_kind,omitempty"`
	CRCValid  *bool            `json:"crc_valid,omitempty"`
	Command   string           `json:"command"`
	StartedAt time.Time        `json:"started_at"`
	Duration  time.Duration    `json:"duration"`
}

// Failed builds a failed result that terminated in stage
func Failed(stage TransactionState, kind ErrorKind, message string) TransactionResult {
	return TransactionResult{
		Success:   false,
		Message:   message,
		State:     TransactionStateFailed,
		Stage:     stage,
		ErrorKind: kind,
	}
}

// Succeeded builds a successful result carrying the response payload
func Succeeded(payload []byte, message string) TransactionResult {
	return TransactionResult{
		Success: true,
		Payload: payload,
		Message: message,
		State:   TransactionStateSucceeded,
		Stage:   TransactionStateReading,
	}
}
