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

	"print-bridge/internal/config"
)

const defaultLogFile = "./logs/print-bridge.log"

// NewLogger builds the process logger from the logging section of the config
func NewLogger(cfg *config.LoggingConfig) (*zap.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	sink, err := openSink(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open log output: %w", err)
	}

	core := zapcore.NewCore(newEncoder(cfg.Format), sink, level)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

func newEncoder(format string) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "timestamp"
	ec.MessageKey = "message"
	ec.EncodeCaller = zapcore.ShortCallerEncoder

	if format == "console" {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
		return zapcore.NewConsoleEncoder(ec)
	}

	ec.EncodeLevel = zapcore.LowercaseLevelEncoder
	ec.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
	return zapcore.NewJSONEncoder(ec)
}

// openSink resolves "stdout", "stderr" or a file path rotated by lumberjack
func openSink(cfg *config.LoggingConfig) (zapcore.WriteSyncer, error) {
	switch cfg.Output {
	case "stdout":
		return zapcore.AddSync(os.Stdout), nil
	case "stderr":
		return zapcore.AddSync(os.Stderr), nil
	}

	path := cfg.Output
	if path == "" {
		path = defaultLogFile
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSize, // MB
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge, // days
		Compress:   cfg.Compress,
	}), nil
}

// ParseLevel maps a configured level name onto a zap level
func ParseLevel(level string) (zapcore.Level, error) {
	switch level {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	case "fatal":
		return zapcore.FatalLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("invalid log level: %s", level)
	}
}

// PrinterLogger tags entries with the printer they concern
type PrinterLogger struct {
	*zap.Logger
}

// NewPrinterLogger scopes a logger to one printer and the transport reaching it
func NewPrinterLogger(base *zap.Logger, deviceID, name, transport string) *PrinterLogger {
	fields := []zap.Field{
		zap.String("device_id", deviceID),
		zap.String("transport", transport),
		zap.String("component", "printer"),
	}
	if name != "" {
		fields = append(fields, zap.String("device_name", name))
	}
	return &PrinterLogger{Logger: base.With(fields...)}
}

// LogConnection records a connect, open or disconnect attempt
func (pl *PrinterLogger) LogConnection(action string, success bool, err error) {
	if err != nil {
		pl.Error("Printer connection event",
			zap.String("action", action), zap.Bool("success", success), zap.Error(err))
		return
	}
	pl.Info("Printer connection event", zap.String("action", action), zap.Bool("success", success))
}

// LogWrite records a payload handed to the printer
func (pl *PrinterLogger) LogWrite(bytes int, duration time.Duration, err error) {
	if err != nil {
		pl.Error("Printer write failed",
			zap.Int("bytes", bytes), zap.Duration("duration", duration), zap.Error(err))
		return
	}
	pl.Debug("Printer write completed", zap.Int("bytes", bytes), zap.Duration("duration", duration))
}

// JobLogger follows one print job from render to delivery
type JobLogger struct {
	logger  *zap.Logger
	started time.Time
}

// NewJobLogger starts the clock for a print job
func NewJobLogger(base *zap.Logger, jobID, deviceID string) *JobLogger {
	return &JobLogger{
		logger: base.With(
			zap.String("job_id", jobID),
			zap.String("device_id", deviceID),
			zap.String("component", "print_job"),
		),
		started: time.Now(),
	}
}

func (jl *JobLogger) Started(fields ...zap.Field) {
	jl.logger.Info("Print job started", fields...)
}

func (jl *JobLogger) Succeeded(fields ...zap.Field) {
	jl.logger.Info("Print job completed",
		append([]zap.Field{zap.Duration("duration", time.Since(jl.started))}, fields...)...)
}

func (jl *JobLogger) Failed(err error, fields ...zap.Field) {
	jl.logger.Error("Print job failed",
		append([]zap.Field{zap.Duration("duration", time.Since(jl.started)), zap.Error(err)}, fields...)...)
}

// ServiceLogger carries the service name on every entry
type ServiceLogger struct {
	*zap.Logger
}

// NewServiceLogger creates a service-specific logger
func NewServiceLogger(base *zap.Logger, serviceName string) *ServiceLogger {
	return &ServiceLogger{Logger: base.With(zap.String("service", serviceName))}
}

// LogServiceStart logs startup with the non-secret part of the configuration
func (sl *ServiceLogger) LogServiceStart(version string, settings interface{}) {
	sl.Info("Service starting", zap.String("version", version), zap.Any("settings", settings))
}

func (sl *ServiceLogger) LogServiceStop(reason string) {
	sl.Info("Service stopping", zap.String("reason", reason))
}

// LogAPIRequest logs at warn for 4xx and error for 5xx responses
func (sl *ServiceLogger) LogAPIRequest(method, path, clientIP, requestID string, statusCode int, duration time.Duration) {
	level := zapcore.InfoLevel
	switch {
	case statusCode >= 500:
		level = zapcore.ErrorLevel
	case statusCode >= 400:
		level = zapcore.WarnLevel
	}

	if ce := sl.Check(level, "API request"); ce != nil {
		ce.Write(
			zap.String("method", method),
			zap.String("path", path),
			zap.String("client_ip", clientIP),
			zap.String("request_id", requestID),
			zap.Int("status_code", statusCode),
			zap.Duration("duration", duration),
		)
	}
}

func (sl *ServiceLogger) LogRateLimitViolation(clientIP, endpoint string) {
	sl.Warn("Rate limit exceeded", zap.String("client_ip", clientIP), zap.String("endpoint", endpoint))
}
