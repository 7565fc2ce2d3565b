// internal/settings/registry.go
//
// Read-only view over the merged settings tree.
//
// Keys are dot paths and case-insensitive.  A missing segment anywhere in
// the path means "absent" and callers get their default back.  Nothing
// mutates a Registry after Load returns, so concurrent reads need no lock.
// The only shared mutable state is the memo of environment views, which
// guards itself.
package settings

import (
	"context"
	"sort"
	"strings"

	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/AdeptTravel/adept-bootstrap/internal/cache"
)

// Registry is the validated, environment-aware settings view.
type Registry struct {
	k       *koanf.Koanf
	env     string
	origins map[string]string
	src     *sources
	views   *cache.LRU[string, *Registry]
}

func norm(key string) string { return strings.ToLower(strings.TrimSpace(key)) }

// Environment names the section this view resolves against.
func (r *Registry) Environment() string { return r.env }

// Exists reports whether key resolves to a value.
func (r *Registry) Exists(key string) bool { return r.k.Exists(norm(key)) }

// Get returns the raw value for key, or def when it is absent.
func (r *Registry) Get(key string, def any) any {
	key = norm(key)
	if !r.k.Exists(key) {
		return def
	}
	return r.k.Get(key)
}

// Value returns key as a typed Value.
func (r *Registry) Value(key string) (Value, bool) {
	key = norm(key)
	if !r.k.Exists(key) {
		return Value{key: key}, false
	}
	return NewValue(key, r.k.Get(key)), true
}

// Bool coerces key to a bool.  An absent key is false.
func (r *Registry) Bool(key string) (bool, error) {
	v, ok := r.Value(key)
	if !ok {
		return false, nil
	}
	return v.Bool()
}

// Int coerces key to an integer.  An absent key is zero.
func (r *Registry) Int(key string) (int64, error) {
	v, ok := r.Value(key)
	if !ok {
		return 0, nil
	}
	return v.Int()
}

// Float coerces key to a float.  An absent key is zero.
func (r *Registry) Float(key string) (float64, error) {
	v, ok := r.Value(key)
	if !ok {
		return 0, nil
	}
	return v.Float()
}

// String renders a scalar key.  An absent key is "".
func (r *Registry) String(key string) (string, error) {
	v, ok := r.Value(key)
	if !ok {
		return "", nil
	}
	return v.String()
}

// JSON returns key as structured data.  An absent key is nil.
func (r *Registry) JSON(key string) (any, error) {
	v, ok := r.Value(key)
	if !ok {
		return nil, nil
	}
	return v.JSON()
}

// Keys lists every leaf key in sorted order.
func (r *Registry) Keys() []string {
	keys := r.k.Keys()
	sort.Strings(keys)
	return keys
}

// All returns a flattened copy of the tree.
func (r *Registry) All() map[string]any { return r.k.All() }

// Origin names the layer that supplied key, e.g. `settings.toml#production`.
func (r *Registry) Origin(key string) string { return r.origins[norm(key)] }

// Unmarshal decodes the subtree at path into out using `koanf` tags.
// Tag names must be lower-case since keys are normalised on load.
func (r *Registry) Unmarshal(path string, out any) error {
	return r.k.UnmarshalWithConf(norm(path), out, koanf.UnmarshalConf{Tag: "koanf"})
}

// FromEnvironment returns a view resolving keys against the named section,
// falling back to `[default]` for keys it does not override.  Views are
// memoised and are not re-validated.
func (r *Registry) FromEnvironment(name string) *Registry {
	name = norm(name)
	if name == r.env {
		return r
	}
	if v, ok := r.views.Get(name); ok {
		return v
	}

	view, err := r.src.compose(context.Background(), name, r.src.resolver)
	if err != nil {
		// Files are already parsed, so only secret resolution can fail here.
		zap.S().Warnw("settings view left vault references unresolved", "environment", name, "err", err)
		view, _ = r.src.compose(context.Background(), name, nil)
	}
	r.views.Add(name, view)
	return view
}
