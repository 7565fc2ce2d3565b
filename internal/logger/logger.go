// internal/logger/logger.go
//
// Structured logger (Zap + Lumberjack) with multi-sink routing.
//
// Context
// -------
// Records fan out to a console stream and three files under the log
// directory:
//
//	access.log   every level, rotated at 100 MB, archives kept 7 days
//	warning.log  WARNING and above, rotated at 100 MB
//	error.log    ERROR and above, rotated at 100 MB
//
// The console shows INFO and above with an explicit DEBUG-exclusion filter
// unless debug mode is on, in which case it follows the configured level
// and carries no filter.  The filter is deliberately not applied to files.
//
// Usage
// -----
//
//	log, err := logger.New(true, logger.DebugLevel, "logs")
//	if err != nil { … }
//	defer log.Close()
//	log.With("tenant", host).Info("tenant online", "ms", 12)
package logger

import (
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Rotation and retention for the default file sinks.
const (
	DefaultRotation  = "100 MB"
	DefaultRetention = "7 days"
)

// Logger is the façade handed to application code.  Key/value pairs after
// the message become bound fields, exactly as with zap's sugared `…w` calls.
type Logger struct {
	s *zap.SugaredLogger
	r *Router
}

// NewLogger wraps r in a Logger that records caller locations.
func NewLogger(r *Router) *Logger {
	z := zap.New(&routerCore{r: r}, zap.AddCaller(), zap.AddCallerSkip(1))
	return &Logger{s: z.Sugar(), r: r}
}

// New builds the default topology in dir and returns a Logger over it.
// Console output goes to stderr.
func New(debug bool, level Level, dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	r, err := NewRouter(DefaultTopology(debug, level, dir, os.Stderr)...)
	if err != nil {
		return nil, err
	}
	return NewLogger(r), nil
}

// DefaultTopology returns the console, access, warning, and error sinks.
func DefaultTopology(debug bool, level Level, dir string, console io.Writer) []SinkSpec {
	consoleLevel, consoleFilter := InfoLevel, Filter(ExcludeDebug)
	if debug {
		consoleLevel, consoleFilter = level, nil
	}
	return []SinkSpec{
		{
			Name:     "console",
			Writer:   console,
			Format:   FormatNormal,
			Level:    consoleLevel,
			Filter:   consoleFilter,
			Colorize: isTerminal(console),
		},
		{
			Name:      "access",
			Path:      filepath.Join(dir, "access.log"),
			Format:    FormatNormal,
			Level:     DebugLevel,
			Rotation:  DefaultRotation,
			Retention: DefaultRetention,
		},
		{
			Name:     "warning",
			Path:     filepath.Join(dir, "warning.log"),
			Format:   FormatWarning,
			Level:    WarningLevel,
			Rotation: DefaultRotation,
		},
		{
			Name:     "error",
			Path:     filepath.Join(dir, "error.log"),
			Format:   FormatError,
			Level:    ErrorLevel,
			Rotation: DefaultRotation,
		},
	}
}

// isTerminal returns true when w is a character device.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// Debug, Info, Warning, Error, and Critical emit msg with kv as structured
// fields.  Critical never panics; it is logged as CRITICAL.
func (l *Logger) Debug(msg string, kv ...any)    { l.s.Debugw(msg, kv...) }
func (l *Logger) Info(msg string, kv ...any)     { l.s.Infow(msg, kv...) }
func (l *Logger) Warning(msg string, kv ...any)  { l.s.Warnw(msg, kv...) }
func (l *Logger) Error(msg string, kv ...any)    { l.s.Errorw(msg, kv...) }
func (l *Logger) Critical(msg string, kv ...any) { l.s.DPanicw(msg, kv...) }

// With returns a child logger with kv bound to every record.
func (l *Logger) With(kv ...any) *Logger {
	return &Logger{s: l.s.With(kv...), r: l.r}
}

// Sugar exposes the underlying sugared logger for code written against zap.
func (l *Logger) Sugar() *zap.SugaredLogger {
	return l.s.WithOptions(zap.AddCallerSkip(-1))
}

// Router returns the router behind l.
func (l *Logger) Router() *Router { return l.r }

// Sync flushes every sink.
func (l *Logger) Sync() error { return l.r.Sync() }

// Close flushes and closes every sink.
func (l *Logger) Close() error { return l.r.Close() }
