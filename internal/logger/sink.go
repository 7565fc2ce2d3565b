// internal/logger/sink.go
//
// One log destination.
//
// Context
// -------
// A sink is either a stream (stderr, stdout, any io.Writer) or a file.  File
// sinks with a Rotation size are backed by Lumberjack, which serialises
// writes and performs close, rename, and reopen under one lock, so a line is
// never split across the active file and its archive.  Archives are named
// `access-2006-01-02T15-04-05.000.log`.  Retention prunes archives older
// than the configured age on every rotation.  File sinks without a Rotation
// append to a plain file.
//
// Lumberjack counts in whole MiB, so Rotation is rounded down and may not be
// below 1 MiB.  A single record larger than the limit is rejected by
// Lumberjack; it is lost from that sink and reported to the others.
//
// Sinks are never mutated after construction.  Reconfiguring the router
// replaces the whole set.
package logger

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	str2duration "github.com/xhit/go-str2duration/v2"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SinkSpec describes a sink.  Exactly one of Writer or Path must be set.
type SinkSpec struct {
	Name      string
	Writer    io.Writer
	Path      string
	Format    Format
	Level     Level
	Filter    Filter
	Rotation  string // max size before rotating, e.g. "100 MB"
	Retention string // max archive age, e.g. "7 days"
	Compress  bool
	Colorize  bool
}

type sink struct {
	name   string
	level  Level
	filter Filter
	core   zapcore.Core
	closer io.Closer
}

func (s *sink) admits(l Level) bool { return l >= s.level }

func (s *sink) close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func openSink(spec SinkSpec) (*sink, error) {
	if spec.Name == "" {
		return nil, errors.New("sink name is required")
	}
	if (spec.Writer == nil) == (spec.Path == "") {
		return nil, errors.New("exactly one of writer or path is required")
	}

	enc, err := spec.Format.encoder(spec.Colorize && spec.Writer != nil)
	if err != nil {
		return nil, err
	}

	var (
		ws     zapcore.WriteSyncer
		closer io.Closer
	)
	if spec.Writer != nil {
		ws = zapcore.Lock(zapcore.AddSync(spec.Writer))
	} else {
		ws, closer, err = openFile(spec)
		if err != nil {
			return nil, err
		}
	}

	return &sink{
		name:   spec.Name,
		level:  spec.Level,
		filter: spec.Filter,
		core:   zapcore.NewCore(enc, ws, spec.Level.Zap()),
		closer: closer,
	}, nil
}

func openFile(spec SinkSpec) (zapcore.WriteSyncer, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(spec.Path), 0o755); err != nil {
		return nil, nil, err
	}

	if spec.Rotation == "" {
		f, err := os.OpenFile(spec.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, err
		}
		return zapcore.Lock(f), f, nil
	}

	maxMB, err := ParseSize(spec.Rotation)
	if err != nil {
		return nil, nil, err
	}
	maxDays := 0
	if spec.Retention != "" {
		if maxDays, err = ParseRetention(spec.Retention); err != nil {
			return nil, nil, err
		}
	}

	// Lumberjack opens lazily; probe now so a bad path fails Configure.
	probe, err := os.OpenFile(spec.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	_ = probe.Close()

	lj := &lumberjack.Logger{
		Filename:  spec.Path,
		MaxSize:   maxMB,
		MaxAge:    maxDays,
		LocalTime: true,
		Compress:  spec.Compress,
	}
	return zapcore.AddSync(lj), lj, nil
}

// ParseSize converts "100 MB" or "1MiB" into whole megabytes for
// Lumberjack, rounded down so a file never grows past the configured size.
func ParseSize(s string) (int, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("logger: rotation %q: %w", s, err)
	}
	if n < 1<<20 {
		return 0, fmt.Errorf("logger: rotation %q is below 1 MiB", s)
	}
	return int(n >> 20), nil
}

var retentionUnits = strings.NewReplacer(
	"weeks", "w", "week", "w",
	"days", "d", "day", "d",
	"hours", "h", "hour", "h",
	"minutes", "m", "minute", "m",
	"seconds", "s", "second", "s",
	" ", "",
)

// ParseRetention converts "7 days", "2 weeks", or "36h" into whole days,
// rounded up, for Lumberjack.
func ParseRetention(s string) (int, error) {
	d, err := str2duration.ParseDuration(retentionUnits.Replace(strings.ToLower(strings.TrimSpace(s))))
	if err != nil {
		return 0, fmt.Errorf("logger: retention %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("logger: retention %q must be positive", s)
	}
	return int(math.Ceil(d.Hours() / 24)), nil
}
