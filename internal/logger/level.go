// internal/logger/level.go
//
// Severity levels and their mapping onto zap.
//
// The order is fixed:  DEBUG < INFO < WARNING < ERROR < CRITICAL.  A sink's
// minimum level admits that level and everything above it.  CRITICAL rides
// on zap's DPanic level; the logger is never built in development mode, so
// DPanic only logs.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Level is a record severity.
type Level int8

const (
	DebugLevel Level = iota
	InfoLevel
	WarningLevel
	ErrorLevel
	CriticalLevel
)

var levelNames = [...]string{"DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL"}

func (l Level) String() string {
	if l >= DebugLevel && l <= CriticalLevel {
		return levelNames[l]
	}
	return fmt.Sprintf("LEVEL(%d)", int8(l))
}

// ParseLevel accepts level names case-insensitively.  WARN and FATAL are
// accepted as aliases.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DebugLevel, nil
	case "INFO":
		return InfoLevel, nil
	case "WARNING", "WARN":
		return WarningLevel, nil
	case "ERROR":
		return ErrorLevel, nil
	case "CRITICAL", "FATAL":
		return CriticalLevel, nil
	}
	return InfoLevel, fmt.Errorf("logger: unknown level %q", s)
}

// Zap returns the zap level carrying l.
func (l Level) Zap() zapcore.Level {
	switch l {
	case DebugLevel:
		return zapcore.DebugLevel
	case InfoLevel:
		return zapcore.InfoLevel
	case WarningLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	}
	return zapcore.DPanicLevel
}

// fromZap folds zap's levels back onto ours.
func fromZap(z zapcore.Level) Level {
	switch {
	case z <= zapcore.DebugLevel:
		return DebugLevel
	case z == zapcore.InfoLevel:
		return InfoLevel
	case z == zapcore.WarnLevel:
		return WarningLevel
	case z == zapcore.ErrorLevel:
		return ErrorLevel
	}
	return CriticalLevel
}
