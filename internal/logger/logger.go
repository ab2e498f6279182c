// Package logger provides the process-wide leveled logger.
//
// Logging always defaults to stderr: stdout is the protocol channel and must
// carry nothing but response records.
package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	sugar *zap.SugaredLogger
)

func init() {
	if err := Configure("text", "stderr"); err != nil {
		panic(err)
	}
}

// Configure rebuilds the underlying logger with the given format ("text" or
// "json") and output ("stderr", "stdout", or a file path). The current level
// is preserved.
func Configure(format, output string) error {
	encoding := "console"
	if format == "json" {
		encoding = "json"
	}

	cfg := zap.Config{
		Level:            level,
		Encoding:         encoding,
		EncoderConfig:    encoderConfig(encoding),
		OutputPaths:      []string{output},
		ErrorOutputPaths: []string{"stderr"},
	}

	base, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}

	if sugar != nil {
		_ = sugar.Sync()
	}
	sugar = base.Sugar()
	return nil
}

func encoderConfig(encoding string) zapcore.EncoderConfig {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	if encoding == "console" {
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	return ec
}

// SetLevel adjusts the minimum level. Unknown values are ignored.
func SetLevel(l string) {
	switch strings.ToUpper(l) {
	case "DEBUG":
		level.SetLevel(zapcore.DebugLevel)
	case "INFO":
		level.SetLevel(zapcore.InfoLevel)
	case "WARN":
		level.SetLevel(zapcore.WarnLevel)
	case "ERROR":
		level.SetLevel(zapcore.ErrorLevel)
	}
}

// Sync flushes buffered log entries. Called on shutdown.
func Sync() {
	_ = sugar.Sync()
}

func Debug(format string, v ...any) {
	sugar.Debugf(format, v...)
}

func Info(format string, v ...any) {
	sugar.Infof(format, v...)
}

func Warn(format string, v ...any) {
	sugar.Warnf(format, v...)
}

func Error(format string, v ...any) {
	sugar.Errorf(format, v...)
}
