// internal/logger/filter.go
//
// Records and per-sink filter predicates.
//
// A filter runs after the sink's level check and both must pass.  The
// Record handed to a filter is built lazily, once per emitted entry, and
// shared by every sink that has a filter.
package logger

import (
	"time"

	"go.uber.org/zap/zapcore"
)

// Record is the immutable view of one emitted entry.
type Record struct {
	Time    time.Time
	Level   Level
	Caller  string
	Message string
	Fields  map[string]any
}

// Filter decides whether a sink receives a record.
type Filter func(Record) bool

// ExcludeDebug drops DEBUG records.
func ExcludeDebug(r Record) bool { return r.Level != DebugLevel }

// Only admits the listed levels.
func Only(levels ...Level) Filter {
	set := make(map[Level]struct{}, len(levels))
	for _, l := range levels {
		set[l] = struct{}{}
	}
	return func(r Record) bool {
		_, ok := set[r.Level]
		return ok
	}
}

// HasField admits records carrying key among their bound fields.
func HasField(key string) Filter {
	return func(r Record) bool {
		_, ok := r.Fields[key]
		return ok
	}
}

func newRecord(ent zapcore.Entry, fields []zapcore.Field) Record {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
	}
	rec := Record{
		Time:    ent.Time,
		Level:   fromZap(ent.Level),
		Message: ent.Message,
		Fields:  enc.Fields,
	}
	if ent.Caller.Defined {
		rec.Caller = ent.Caller.TrimmedPath()
	}
	return rec
}
