// internal/settings/errors.go
//
// Error taxonomy for the settings loader.
//
// LoadError and ValidationError are fatal at startup.  ConversionError is
// returned by the typed accessors on Value and Registry.  A missing key is
// never an error; callers pass a default instead.
package settings

import (
	"fmt"
	"strings"
)

// LoadError wraps a read or parse failure for one settings file.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("settings: load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ValidationError names the offending key and the constraint it broke.
type ValidationError struct {
	Key        string
	Constraint string
	Value      any
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("settings: %s: %s", strings.ToUpper(e.Key), e.Constraint)
	}
	return fmt.Sprintf("settings: %s: %s (got %v)", strings.ToUpper(e.Key), e.Constraint, e.Value)
}

// ConversionError reports a typed accessor that could not coerce a value.
type ConversionError struct {
	Key  string
	From Kind
	To   Kind
}

func (e *ConversionError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("settings: cannot convert %s to %s", e.From, e.To)
	}
	return fmt.Sprintf("settings: %s: cannot convert %s to %s", e.Key, e.From, e.To)
}
