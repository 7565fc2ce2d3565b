// internal/settings/rules.go
//
// Declarative validation rules.
//
// Context
// -------
// `Load()` calls `Validate` once on the merged tree.  Each Rule names a key,
// whether it must exist, and an optional type, enumeration, or raw
// go-playground/validator tag.  Every rule is evaluated and the violations
// are joined so operators see the whole list in one boot attempt.
//
// Notes
// -----
//   - An optional key that is absent is skipped, never validated.
//   - IsIn compiles to a `oneof=` tag, so members may not contain spaces.
package settings

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Rule is one constraint on the merged tree.
type Rule struct {
	Key       string
	MustExist bool
	IsType    Kind
	IsIn      []string
	Tag       string
}

// DefaultRules is the contract every process boots with:  DEBUG must exist
// and be a bool, LOG_LEVEL is optional but must name a known level.
func DefaultRules() []Rule {
	return []Rule{
		{Key: "DEBUG", MustExist: true, IsType: KindBool},
		{Key: "LOG_LEVEL", IsIn: []string{"DEBUG", "INFO", "WARNING", "ERROR"}},
	}
}

// Validate checks every rule against r and joins the violations.
func Validate(r *Registry, rules []Rule) error {
	var errs []error
	for _, rule := range rules {
		if err := rule.check(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (rule Rule) check(r *Registry) error {
	v, ok := r.Value(rule.Key)
	if !ok {
		if rule.MustExist {
			return &ValidationError{Key: rule.Key, Constraint: "must exist"}
		}
		return nil
	}

	if rule.IsType != KindInvalid && v.Kind() != rule.IsType {
		return &ValidationError{
			Key:        rule.Key,
			Constraint: "must be of type " + rule.IsType.String(),
			Value:      v.Raw(),
		}
	}

	if len(rule.IsIn) > 0 {
		s, err := v.String()
		if err == nil {
			err = validate.Var(s, "oneof="+strings.Join(rule.IsIn, " "))
		}
		if err != nil {
			return &ValidationError{
				Key:        rule.Key,
				Constraint: fmt.Sprintf("must be one of %v", rule.IsIn),
				Value:      v.Raw(),
			}
		}
	}

	if rule.Tag != "" {
		if err := validate.Var(v.Raw(), rule.Tag); err != nil {
			return &ValidationError{
				Key:        rule.Key,
				Constraint: "must satisfy " + rule.Tag,
				Value:      v.Raw(),
			}
		}
	}
	return nil
}
