package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger implements the Logger port with zap
type ZapLogger struct {
	logger *zap.SugaredLogger
}

// NewZapLogger creates a production JSON logger
func NewZapLogger() *ZapLogger {
	return newLogger(zap.NewProductionConfig())
}

// NewDebugLogger creates a development console logger
func NewDebugLogger() *ZapLogger {
	return newLogger(zap.NewDevelopmentConfig())
}

func newLogger(config zap.Config) *ZapLogger {
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, _ := config.Build(zap.AddCallerSkip(1))

	return &ZapLogger{
		logger: logger.Sugar(),
	}
}

// Info logs an info message
func (l *ZapLogger) Info(msg string, args ...interface{}) {
	l.logger.Infow(msg, args...)
}

// Error logs an error message
func (l *ZapLogger) Error(msg string, args ...interface{}) {
	l.logger.Errorw(msg, args...)
}

// Debug logs a debug message
func (l *ZapLogger) Debug(msg string, args ...interface{}) {
	l.logger.Debugw(msg, args...)
}

// Warn logs a warning message
func (l *ZapLogger) Warn(msg string, args ...interface{}) {
	l.logger.Warnw(msg, args...)
}

// Sync flushes buffered entries before process exit
func (l *ZapLogger) Sync() {
	_ = l.logger.Sync()
}
