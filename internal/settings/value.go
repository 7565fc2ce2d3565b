// internal/settings/value.go
//
// Typed variant for a single setting.
//
// Context
// -------
// Parsers hand back `any` in many shapes (int, int64, float64, uint8,
// time.Time, nested maps, slices).  NewValue normalises them into one of six
// kinds so accessors can coerce explicitly and fail with a ConversionError
// instead of guessing.
//
// Notes
// -----
//   - Bool() accepts the textual forms an operator is likely to export from a
//     shell:  true/false, 1/0, yes/no, on/off.
//   - JSON() decodes strings; maps and lists are returned as-is.
package settings

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind enumerates the shapes a Value can hold.
type Kind int

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindMap
	KindList
)

var kindNames = [...]string{"invalid", "bool", "int", "float", "string", "map", "list"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is an immutable, normalised setting value.
type Value struct {
	key  string
	kind Kind
	raw  any
}

// NewValue normalises raw into a Value.  Unknown shapes become KindInvalid.
func NewValue(key string, raw any) Value {
	v := Value{key: key}
	switch t := raw.(type) {
	case bool:
		v.kind, v.raw = KindBool, t
	case int:
		v.kind, v.raw = KindInt, int64(t)
	case int8:
		v.kind, v.raw = KindInt, int64(t)
	case int16:
		v.kind, v.raw = KindInt, int64(t)
	case int32:
		v.kind, v.raw = KindInt, int64(t)
	case int64:
		v.kind, v.raw = KindInt, t
	case uint:
		v.kind, v.raw = KindInt, int64(t)
	case uint8:
		v.kind, v.raw = KindInt, int64(t)
	case uint16:
		v.kind, v.raw = KindInt, int64(t)
	case uint32:
		v.kind, v.raw = KindInt, int64(t)
	case uint64:
		if t > math.MaxInt64 {
			v.kind, v.raw = KindFloat, float64(t)
		} else {
			v.kind, v.raw = KindInt, int64(t)
		}
	case float32:
		v.kind, v.raw = KindFloat, float64(t)
	case float64:
		v.kind, v.raw = KindFloat, t
	case string:
		v.kind, v.raw = KindString, t
	case time.Time:
		v.kind, v.raw = KindString, t.Format(time.RFC3339)
	case map[string]any:
		v.kind, v.raw = KindMap, t
	case []any:
		v.kind, v.raw = KindList, t
	default:
		v.raw = raw
	}
	return v
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) Key() string { return v.key }

// Raw returns the normalised underlying value.
func (v Value) Raw() any { return v.raw }

func (v Value) fail(to Kind) error {
	return &ConversionError{Key: v.key, From: v.kind, To: to}
}

// Bool coerces bools, numbers, and textual booleans.
func (v Value) Bool() (bool, error) {
	switch v.kind {
	case KindBool:
		return v.raw.(bool), nil
	case KindInt:
		return v.raw.(int64) != 0, nil
	case KindFloat:
		return v.raw.(float64) != 0, nil
	case KindString:
		switch strings.ToLower(strings.TrimSpace(v.raw.(string))) {
		case "true", "1", "yes", "on", "y", "t":
			return true, nil
		case "false", "0", "no", "off", "n", "f", "":
			return false, nil
		}
	}
	return false, v.fail(KindBool)
}

// Int accepts integers, integral floats, and numeric strings.
func (v Value) Int() (int64, error) {
	switch v.kind {
	case KindInt:
		return v.raw.(int64), nil
	case KindFloat:
		f := v.raw.(float64)
		if f == math.Trunc(f) && f >= math.MinInt64 && f <= math.MaxInt64 {
			return int64(f), nil
		}
	case KindString:
		if n, err := strconv.ParseInt(strings.TrimSpace(v.raw.(string)), 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, v.fail(KindInt)
}

// Float accepts numbers and numeric strings.
func (v Value) Float() (float64, error) {
	switch v.kind {
	case KindFloat:
		return v.raw.(float64), nil
	case KindInt:
		return float64(v.raw.(int64)), nil
	case KindString:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v.raw.(string)), 64); err == nil {
			return f, nil
		}
	}
	return 0, v.fail(KindFloat)
}

// String renders scalars.  Maps and lists are refused; use JSON for those.
func (v Value) String() (string, error) {
	switch v.kind {
	case KindString:
		return v.raw.(string), nil
	case KindBool:
		return strconv.FormatBool(v.raw.(bool)), nil
	case KindInt:
		return strconv.FormatInt(v.raw.(int64), 10), nil
	case KindFloat:
		return strconv.FormatFloat(v.raw.(float64), 'g', -1, 64), nil
	}
	return "", v.fail(KindString)
}

// Map returns a nested mapping.
func (v Value) Map() (map[string]any, error) {
	if v.kind == KindMap {
		return v.raw.(map[string]any), nil
	}
	return nil, v.fail(KindMap)
}

// Slice returns a list value.
func (v Value) Slice() ([]any, error) {
	if v.kind == KindList {
		return v.raw.([]any), nil
	}
	return nil, v.fail(KindList)
}

// JSON returns structured data: maps and lists as-is, strings decoded.
func (v Value) JSON() (any, error) {
	switch v.kind {
	case KindMap, KindList:
		return v.raw, nil
	case KindString:
		var out any
		if err := json.Unmarshal([]byte(v.raw.(string)), &out); err != nil {
			return nil, fmt.Errorf("settings: %s: decode json: %w", v.key, err)
		}
		return out, nil
	}
	return nil, v.fail(KindMap)
}

// parseScalar interprets text the way a TOML literal would read:  booleans,
// integers, floats, and otherwise the string unchanged.
func parseScalar(s string) any {
	t := strings.TrimSpace(s)
	switch strings.ToLower(t) {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(t, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil && !strings.ContainsAny(t, "xXpP_") {
		if !math.IsInf(f, 0) && !math.IsNaN(f) {
			return f
		}
	}
	if len(t) >= 2 && (t[0] == '{' || t[0] == '[') {
		var out any
		if err := json.Unmarshal([]byte(t), &out); err == nil {
			return out
		}
	}
	return s
}
