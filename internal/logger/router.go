// internal/logger/router.go
//
// Fan-out of records to the active sink set.
//
// Context
// -------
// Router owns every sink for the process lifetime.  Configure builds the
// complete new set before touching the old one; if any sink fails to open,
// the new ones are closed and the previous set stays live.  The swap itself
// happens under the write lock, and emission holds the read lock for the
// whole fan-out, so no writer can touch a sink after it has been closed.
//
// Failure isolation
// -----------------
// A sink that fails to write is counted and reported, at ERROR, to the
// sinks that are still healthy.  The error never reaches the caller.
package logger

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/AdeptTravel/adept-bootstrap/internal/metrics"
)

// Router dispatches records to sinks.  Safe for concurrent use.
type Router struct {
	mu    sync.RWMutex
	sinks []*sink
}

// NewRouter returns a router configured with specs.
func NewRouter(specs ...SinkSpec) (*Router, error) {
	r := &Router{}
	if err := r.Configure(specs); err != nil {
		return nil, err
	}
	return r, nil
}

// Configure atomically replaces the active sink set.
func (r *Router) Configure(specs []SinkSpec) error {
	built := make([]*sink, 0, len(specs))
	seen := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		if _, dup := seen[spec.Name]; dup {
			closeSinks(built)
			return fmt.Errorf("logger: duplicate sink %q", spec.Name)
		}
		seen[spec.Name] = struct{}{}

		s, err := openSink(spec)
		if err != nil {
			closeSinks(built)
			return fmt.Errorf("logger: sink %q: %w", spec.Name, err)
		}
		built = append(built, s)
	}

	r.mu.Lock()
	old := r.sinks
	r.sinks = built
	r.mu.Unlock()

	metrics.ActiveSinks.Set(float64(len(built)))
	return closeSinks(old)
}

// Sinks lists the active sink names in configuration order.
func (r *Router) Sinks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.sinks))
	for i, s := range r.sinks {
		names[i] = s.name
	}
	return names
}

// Enabled reports whether any sink admits l.
func (r *Router) Enabled(l Level) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sinks {
		if s.admits(l) {
			return true
		}
	}
	return false
}

// Sync flushes every sink.
func (r *Router) Sync() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var errs []error
	for _, s := range r.sinks {
		if err := s.core.Sync(); err != nil {
			errs = append(errs, fmt.Errorf("sink %q: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

// Close flushes and closes every sink.  Records emitted afterwards are
// dropped.
func (r *Router) Close() error {
	_ = r.Sync()
	r.mu.Lock()
	old := r.sinks
	r.sinks = nil
	r.mu.Unlock()
	metrics.ActiveSinks.Set(0)
	return closeSinks(old)
}

func closeSinks(sinks []*sink) error {
	var errs []error
	for _, s := range sinks {
		if err := s.close(); err != nil {
			errs = append(errs, fmt.Errorf("sink %q: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

/*──────────────────────────── emission ────────────────────────────────────*/

type failure struct {
	sink *sink
	err  error
}

// emit writes one entry to every admitting sink.
func (r *Router) emit(ent zapcore.Entry, fields []zapcore.Field) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	level := fromZap(ent.Level)
	var (
		rec      *Record
		failures []failure
	)
	for _, s := range r.sinks {
		if !s.admits(level) {
			continue
		}
		if s.filter != nil {
			if rec == nil {
				nr := newRecord(ent, fields)
				rec = &nr
			}
			if !s.filter(*rec) {
				continue
			}
		}
		if err := s.core.Write(ent, fields); err != nil {
			metrics.LogWriteErrorsTotal.WithLabelValues(s.name).Inc()
			failures = append(failures, failure{sink: s, err: err})
			continue
		}
		metrics.LogRecordsTotal.WithLabelValues(s.name).Inc()
	}

	if len(failures) > 0 {
		r.reportFailures(ent, failures)
	}
}

// reportFailures tells the healthy sinks which sinks dropped ent.  Errors
// from this pass are discarded.
func (r *Router) reportFailures(ent zapcore.Entry, failures []failure) {
	failed := make(map[*sink]struct{}, len(failures))
	for _, f := range failures {
		failed[f.sink] = struct{}{}
	}

	for _, f := range failures {
		note := zapcore.Entry{
			Level:   zapcore.ErrorLevel,
			Time:    ent.Time,
			Message: "log sink write failed",
			Caller:  ent.Caller,
		}
		fields := []zapcore.Field{
			zap.String("sink", f.sink.name),
			zap.String("dropped", ent.Message),
			zap.Error(f.err),
		}
		for _, s := range r.sinks {
			if _, bad := failed[s]; bad || !s.admits(ErrorLevel) {
				continue
			}
			_ = s.core.Write(note, fields)
		}
	}
}

/*──────────────────────────── zap bridge ──────────────────────────────────*/

// routerCore adapts Router to zapcore.Core so the zap front end (sugar,
// With, caller capture) feeds the fan-out.  It always resolves the current
// sink set, so loggers built before a Configure keep working after it.
type routerCore struct {
	r      *Router
	fields []zapcore.Field
}

func (c *routerCore) Enabled(l zapcore.Level) bool { return c.r.Enabled(fromZap(l)) }

func (c *routerCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &routerCore{r: c.r, fields: merged}
}

func (c *routerCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *routerCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	all := fields
	if len(c.fields) > 0 {
		all = make([]zapcore.Field, 0, len(c.fields)+len(fields))
		all = append(all, c.fields...)
		all = append(all, fields...)
	}
	c.r.emit(ent, all)
	return nil
}

func (c *routerCore) Sync() error { return c.r.Sync() }
