/*
Package requestkit – logging interface.
*/
package requestkit

import (
	"os"

	"github.com/rs/zerolog"
)

// Logger is the interface callers may supply to composers and builders.
// Each method receives a structured context map (may be nil).
type Logger interface {
	Trace(message string, ctx map[string]any)
	Info(message string, ctx map[string]any)
	Error(message string, ctx map[string]any)
	Data(message string, ctx map[string]any)
}

// defaultLogger writes info/error as structured zerolog events and
// silently drops trace/data.
type defaultLogger struct {
	zl zerolog.Logger
}

func newDefaultLogger() defaultLogger {
	return defaultLogger{zl: zerolog.New(os.Stderr).With().Timestamp().Logger()}
}

func (l defaultLogger) Trace(string, map[string]any) {}
func (l defaultLogger) Data(string, map[string]any)  {}

func (l defaultLogger) Info(msg string, ctx map[string]any) {
	l.zl.Info().Fields(ctx).Msg(msg)
}

func (l defaultLogger) Error(msg string, ctx map[string]any) {
	l.zl.Error().Fields(ctx).Msg(msg)
}

// verboseLogger additionally emits trace / data lines at debug level.
type verboseLogger struct {
	zl zerolog.Logger
}

// NewVerboseLogger returns a Logger that emits every level, including
// trace and data, as structured zerolog events.
func NewVerboseLogger() Logger {
	return verboseLogger{zl: zerolog.New(os.Stderr).With().Timestamp().Logger()}
}

func (l verboseLogger) Trace(msg string, ctx map[string]any) { l.zl.Debug().Fields(ctx).Msg(msg) }
func (l verboseLogger) Data(msg string, ctx map[string]any)  { l.zl.Debug().Fields(ctx).Msg(msg) }
func (l verboseLogger) Info(msg string, ctx map[string]any)  { l.zl.Info().Fields(ctx).Msg(msg) }
func (l verboseLogger) Error(msg string, ctx map[string]any) { l.zl.Error().Fields(ctx).Msg(msg) }

// FuncLogger wraps a plain function: func(level, message string, ctx map[string]any).
type FuncLogger struct {
	Fn func(level, message string, ctx map[string]any)
}

func (f FuncLogger) Trace(msg string, ctx map[string]any) { f.Fn("trace", msg, ctx) }
func (f FuncLogger) Data(msg string, ctx map[string]any)  { f.Fn("data", msg, ctx) }
func (f FuncLogger) Info(msg string, ctx map[string]any)  { f.Fn("info", msg, ctx) }
func (f FuncLogger) Error(msg string, ctx map[string]any) { f.Fn("error", msg, ctx) }

// NewNopLogger returns a Logger that discards everything.
func NewNopLogger() Logger { return nopLogger{} }

// nopLogger silently discards everything.
type nopLogger struct{}

func (nopLogger) Trace(string, map[string]any) {}
func (nopLogger) Data(string, map[string]any)  {}
func (nopLogger) Info(string, map[string]any)  {}
func (nopLogger) Error(string, map[string]any) {}

func logTrace(l Logger, msg string, ctx map[string]any) { l.Trace(msg, ctx) }
func logInfo(l Logger, msg string, ctx map[string]any)  { l.Info(msg, ctx) }
func logError(l Logger, msg string, ctx map[string]any) { l.Error(msg, ctx) }
