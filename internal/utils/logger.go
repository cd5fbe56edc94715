// internal/utils/logger.go
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"rfid-bridge/internal/config"
)

const defaultLogFile = "./logs/rfid-bridge.log"

// NewLogger creates a new logger instance based on configuration
func NewLogger(cfg *config.LoggingConfig) (*zap.Logger, error) {
	encoder := newEncoder(cfg.Format)

	writeSyncer, err := newWriteSyncer(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create write syncer: %w", err)
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	core := zapcore.NewCore(encoder, writeSyncer, level)

	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	), nil
}

func newEncoder(format string) zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	encoderConfig.MessageKey = "message"
	encoderConfig.StacktraceKey = "stacktrace"

	if format == "console" {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
		return zapcore.NewConsoleEncoder(encoderConfig)
	}

	return zapcore.NewJSONEncoder(encoderConfig)
}

// newWriteSyncer returns stdout, stderr or a rotating file
func newWriteSyncer(cfg *config.LoggingConfig) (zapcore.WriteSyncer, error) {
	switch cfg.Output {
	case "stdout":
		return zapcore.AddSync(os.Stdout), nil
	case "stderr":
		return zapcore.AddSync(os.Stderr), nil
	}

	filename := cfg.Output
	if filename == "" {
		filename = defaultLogFile
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   filename,
		MaxSize:    cfg.MaxSize, // MB
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge, // days
		Compress:   cfg.Compress,
	}), nil
}

// LinkLogger wraps zap.Logger with serial link context
type LinkLogger struct {
	*zap.Logger
	port string
}

// NewLinkLogger creates a link-scoped logger
func NewLinkLogger(baseLogger *zap.Logger, port, displayName string) *LinkLogger {
	return &LinkLogger{
		Logger: baseLogger.With(
			zap.String("port", port),
			zap.String("device_name", displayName),
			zap.String("component", "link"),
		),
		port: port,
	}
}

// LogConnection logs connection events
func (ll *LinkLogger) LogConnection(action string, success bool, err error) {
	fields := []zap.Field{
		zap.String("action", action),
		zap.Bool("success", success),
	}

	if err != nil {
		fields = append(fields, zap.Error(err))
		ll.Error("Link connection event", fields...)
	} else {
		ll.Info("Link connection event", fields...)
	}
}

// TransactionLogger provides structured logging for one transaction
type TransactionLogger struct {
	logger    *zap.Logger
	startTime time.Time
}

// NewTransactionLogger creates a transaction-specific logger
func NewTransactionLogger(baseLogger *zap.Logger, transactionID string) *TransactionLogger {
	return &TransactionLogger{
		logger: baseLogger.With(
			zap.String("transaction_id", transactionID),
			zap.String("component", "transaction"),
		),
		startTime: time.Now(),
	}
}

// Start logs transaction start
func (tl *TransactionLogger) Start(fields ...zap.Field) {
	tl.logger.Info("Transaction started", fields...)
}

// Success logs successful completion
func (tl *TransactionLogger) Success(fields ...zap.Field) {
	allFields := append([]zap.Field{
		zap.Duration("duration", time.Since(tl.startTime)),
		zap.Bool("success", true),
	}, fields...)

	tl.logger.Info("Transaction completed", allFields...)
}

// Failure logs a failed transaction. Rejected input is logged at warn, I/O faults at error.
func (tl *TransactionLogger) Failure(err error, ioFault bool, fields ...zap.Field) {
	allFields := append([]zap.Field{
		zap.Duration("duration", time.Since(tl.startTime)),
		zap.Bool("success", false),
		zap.Error(err),
	}, fields...)

	if ioFault {
		tl.logger.Error("Transaction failed", allFields...)
		return
	}
	tl.logger.Warn("Transaction rejected", allFields...)
}

// Elapsed returns the time since the transaction started
func (tl *TransactionLogger) Elapsed() time.Duration {
	return time.Since(tl.startTime)
}

// ServiceLogger provides service-level logging functionality
type ServiceLogger struct {
	*zap.Logger
	serviceName string
}

// NewServiceLogger creates a service-specific logger
func NewServiceLogger(baseLogger *zap.Logger, serviceName string) *ServiceLogger {
	logger := baseLogger.With(
		zap.String("service", serviceName),
		zap.String("component", "service"),
	)

	return &ServiceLogger{
		Logger:      logger,
		serviceName: serviceName,
	}
}

// LogServiceStart logs service startup
func (sl *ServiceLogger) LogServiceStart(version string, config interface{}) {
	sl.Info("Service starting",
		zap.String("version", version),
		zap.Any("config", config),
	)
}

// LogServiceStop logs service shutdown
func (sl *ServiceLogger) LogServiceStop(reason string) {
	sl.Info("Service stopping",
		zap.String("reason", reason),
	)
}

// LogAPIRequest logs HTTP API requests
func (sl *ServiceLogger) LogAPIRequest(method, path, requestID, clientIP string, statusCode int, duration time.Duration) {
	level := zapcore.InfoLevel
	if statusCode >= 400 {
		level = zapcore.WarnLevel
	}
	if statusCode >= 500 {
		level = zapcore.ErrorLevel
	}

	if ce := sl.Check(level, "API request"); ce != nil {
		ce.Write(
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.String("client_ip", clientIP),
			zap.Int("status_code", statusCode),
			zap.Duration("duration", duration),
		)
	}
}

// LoggerWithRequestID adds request ID to logger
func LoggerWithRequestID(logger *zap.Logger, requestID string) *zap.Logger {
	return logger.With(zap.String("request_id", requestID))
}

// CloseLogger flushes buffered log entries
func CloseLogger(logger *zap.Logger) error {
	return logger.Sync()
}
