// Package logger provides process-wide logging for foldertalk.
//
// Messages go through a zap logger whose level can be changed at runtime.
// Debug output is only written in verbose mode. The printf-style helpers
// keep call sites short; Zap exposes the structured logger for request
// logging.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

var (
	mu        sync.RWMutex
	verbose   bool
	format    = FormatConsole
	output    io.Writer = os.Stderr
	baseLevel           = zapcore.InfoLevel
	level               = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	base      *zap.Logger
	sugar     *zap.SugaredLogger
)

func init() {
	rebuild()
}

// rebuild must be called with mu held for writing (or during init).
func rebuild() {
	core := zapcore.NewCore(newEncoder(format), zapcore.AddSync(output), level)
	base = zap.New(core)
	sugar = base.Sugar()
}

func newEncoder(f string) zapcore.Encoder {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if f == FormatJSON {
		return zapcore.NewJSONEncoder(encoderCfg)
	}
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(encoderCfg)
}

// Configure sets the output format ("console" or "json") and the base
// level ("debug", "info", "warn", "error").
func Configure(outputFormat, levelName string) error {
	if outputFormat != "" && outputFormat != FormatConsole && outputFormat != FormatJSON {
		return fmt.Errorf("unknown log format %q", outputFormat)
	}

	lvl := zapcore.InfoLevel
	if levelName != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToLower(levelName))); err != nil {
			return fmt.Errorf("unknown log level %q", levelName)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if outputFormat != "" {
		format = outputFormat
	}
	baseLevel = lvl
	if !verbose {
		level.SetLevel(lvl)
	}
	rebuild()
	return nil
}

// SetVerbose enables or disables debug logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	if v {
		level.SetLevel(zapcore.DebugLevel)
	} else {
		level.SetLevel(baseLevel)
	}
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the destination for log lines.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	rebuild()
}

// Zap returns the structured logger.
func Zap() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Sync flushes buffered log entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = base.Sync()
}

// Debug logs a message in verbose mode.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	sugar.Debugf(format, args...)
}

// Section logs a section header in verbose mode.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	sugar.Debugf("=== %s ===", name)
}

// Info logs an informational message.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	sugar.Infof(format, args...)
}

// Warn logs a warning.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	sugar.Warnf(format, args...)
}

// Error logs an error.
func Error(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	sugar.Errorf(format, args...)
}
