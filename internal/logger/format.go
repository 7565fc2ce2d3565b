// internal/logger/format.go
//
// Named output formats.
//
// Context
// -------
// Sinks pick a format by name at construction time.  The three text formats
// render the same line,
//
//	2026-10-16 09:30:00 WARNING  [main.go:42] disk almost full {"free":"2%"}
//
// and differ only in the colour of the timestamp when colourised (green,
// yellow, red).  Files are never colourised.  `json` is the structured
// variant used by log shippers.
package logger

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap/zapcore"
)

// Format names an encoder strategy.
type Format string

const (
	FormatNormal  Format = "normal"
	FormatWarning Format = "warning"
	FormatError   Format = "error"
	FormatJSON    Format = "json"
)

const timeLayout = "2006-01-02 15:04:05"

// ANSI colour codes.
const (
	ansiReset   = "\x1b[0m"
	ansiRed     = "\x1b[31m"
	ansiGreen   = "\x1b[32m"
	ansiYellow  = "\x1b[33m"
	ansiBlue    = "\x1b[34m"
	ansiMagenta = "\x1b[35m"
	ansiBold    = "\x1b[1m"
)

var levelColour = map[Level]string{
	DebugLevel:    ansiBlue,
	InfoLevel:     ansiBold,
	WarningLevel:  ansiYellow + ansiBold,
	ErrorLevel:    ansiRed + ansiBold,
	CriticalLevel: ansiMagenta + ansiBold,
}

func (f Format) timeColour() string {
	switch f {
	case FormatWarning:
		return ansiYellow
	case FormatError:
		return ansiRed
	}
	return ansiGreen
}

// encoder builds a fresh zap encoder for the format.
func (f Format) encoder(colorize bool) (zapcore.Encoder, error) {
	switch f {
	case "", FormatNormal, FormatWarning, FormatError:
	case FormatJSON:
		return zapcore.NewJSONEncoder(zapcore.EncoderConfig{
			TimeKey:      "ts",
			LevelKey:     "level",
			MessageKey:   "msg",
			CallerKey:    "caller",
			EncodeTime:   zapcore.ISO8601TimeEncoder,
			EncodeLevel:  func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) { enc.AppendString(fromZap(l).String()) },
			EncodeCaller: zapcore.ShortCallerEncoder,
		}), nil
	default:
		return nil, fmt.Errorf("logger: unknown format %q", f)
	}

	encTime := func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format(timeLayout))
	}
	encLevel := func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(fmt.Sprintf("%-8s", fromZap(l)))
	}
	if colorize {
		tc := f.timeColour()
		encTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(tc + t.Format(timeLayout) + ansiReset)
		}
		encLevel = func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			lv := fromZap(l)
			enc.AppendString(levelColour[lv] + fmt.Sprintf("%-8s", lv) + ansiReset)
		}
	}

	return zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:          "ts",
		LevelKey:         "level",
		MessageKey:       "msg",
		CallerKey:        "caller",
		EncodeTime:       encTime,
		EncodeLevel:      encLevel,
		EncodeCaller:     bracketCaller,
		ConsoleSeparator: " ",
	}), nil
}

// bracketCaller renders `[file.go:42]`.
func bracketCaller(c zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
	if !c.Defined {
		enc.AppendString("[?]")
		return
	}
	enc.AppendString("[" + filepath.Base(c.File) + ":" + strconv.Itoa(c.Line) + "]")
}
