// internal/settings/source.go
//
// Readers for the individual settings layers.
//
// Context
// -------
// Each reader returns a nested map with lower-cased keys.  Nothing here
// merges; loader.go stacks the maps in precedence order and hands them to
// Koanf.  Files whose extension is unknown are rejected so a typo in the
// file list surfaces at boot rather than as a silently empty layer.
//
// Notes
// -----
//   - A missing file is skipped.  An unreadable or malformed one is fatal.
//   - Environment variables are only imported when a prefix is configured.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	toml "github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

// Section names with special meaning when environments are enabled.
const (
	SectionDefault = "default"
	SectionGlobal  = "global"
)

// fileTree is one parsed settings file.
type fileTree struct {
	path string
	data map[string]any
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Parser(), nil
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	}
	return nil, fmt.Errorf("unsupported settings format %q", filepath.Ext(path))
}

// readFile parses path into a lower-cased tree.  ok is false when the file
// does not exist.
func readFile(path string) (tree fileTree, ok bool, err error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			zap.S().Debugw("settings file skipped", "file", path)
			return fileTree{}, false, nil
		}
		return fileTree{}, false, &LoadError{Path: path, Err: err}
	}

	p, err := parserFor(path)
	if err != nil {
		return fileTree{}, false, &LoadError{Path: path, Err: err}
	}

	tmp := koanf.New(".")
	if err := tmp.Load(file.Provider(path), p); err != nil {
		return fileTree{}, false, &LoadError{Path: path, Err: err}
	}
	zap.S().Debugw("settings file loaded", "file", path)
	return fileTree{path: path, data: lowerKeys(tmp.Raw())}, true, nil
}

// readFiles resolves names against root and parses every file that exists.
func readFiles(root string, names []string) ([]fileTree, error) {
	var out []fileTree
	for _, name := range names {
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, name)
		}
		tree, ok, err := readFile(path)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, tree)
		}
	}
	return out, nil
}

// loadDotenv copies a .env file into the process environment.  Variables
// already set win, matching godotenv.Load.
func loadDotenv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return &LoadError{Path: path, Err: err}
	}
	zap.S().Debugw("dotenv loaded", "file", path)
	return nil
}

// readEnv imports PREFIX_* variables.  PREFIX_A__B=v becomes a.b and the
// value is parsed as a scalar literal.  An empty prefix imports nothing.
func readEnv(prefix string) (map[string]any, error) {
	if prefix == "" {
		return map[string]any{}, nil
	}
	if !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}

	k := koanf.New(".")
	err := k.Load(env.ProviderWithValue(prefix, ".", func(key, value string) (string, any) {
		name := strings.TrimPrefix(key, prefix)
		if name == "" {
			return "", nil
		}
		return strings.ToLower(strings.ReplaceAll(name, "__", ".")), parseScalar(value)
	}), nil)
	if err != nil {
		return nil, &LoadError{Path: "env:" + prefix + "*", Err: err}
	}
	return lowerKeys(k.Raw()), nil
}

// lowerKeys returns a deep copy of m with every map key lower-cased.
func lowerKeys(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if sub, ok := v.(map[string]any); ok {
			v = lowerKeys(sub)
		}
		out[strings.ToLower(k)] = v
	}
	return out
}

// section extracts a named table from a file tree, or nil.
func section(tree map[string]any, name string) map[string]any {
	if sub, ok := tree[name].(map[string]any); ok {
		return sub
	}
	return nil
}
