// internal/settings/loader.go
//
// Layered settings loader.
//
/*
Context
--------
`Load()` builds one read-only Registry from five layers (highest precedence
last):

  1. `Options.Defaults`.
  2. Each settings file in list order.  With environments enabled the
     `[default]` table of every file is applied, then the selected
     environment table, then `[global]`.
  3. Process environment variables under `Options.EnvPrefix`, where `__`
     maps to "." (e.g., `ADEPT_DATABASE__HOST → database.host`).
  4. The optional secrets file, sectioned the same way as step 2.
  5. `vault:` references resolved through `Options.Resolver`.

Mappings merge key by key; scalars and lists are overwritten whole.  The
merged tree is validated once against `Options.Rules`; any violation aborts
the load so the process never runs on a half-valid configuration.

Instrumentation
---------------
  • DEBUG spans:  file skipped or loaded, dotenv loaded.
  • ERROR spans:  parse and validation failures.
  • INFO  span:   final “settings loaded” with the selected environment.
  • Logs use the global sugared logger (`zap.S()`) so problems surface even
    before the router exists.
*/
package settings

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/maps"
	"github.com/knadh/koanf/providers/confmap"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/AdeptTravel/adept-bootstrap/internal/cache"
	"github.com/AdeptTravel/adept-bootstrap/internal/metrics"
)

// Defaults for Options fields left empty.
const (
	DefaultSettingsFile = "settings.toml"
	DefaultSecretsFile  = ".secrets.toml"
	DefaultEnvironment  = "development"
	DefaultDotenvFile   = ".env"

	// EnvSwitcher selects the environment when Options.Environment is empty.
	EnvSwitcher = "ENV_FOR_ADEPT"

	vaultPrefix = "vault:"
	viewCacheSz = 16
)

// SecretResolver turns a `vault:` reference into its secret value.
type SecretResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// Options controls which layers Load reads.
type Options struct {
	Root         string
	Files        []string
	Environments bool
	Environment  string
	EnvPrefix    string
	SecretsFile  string
	LoadDotenv   bool
	DotenvFile   string
	Defaults     map[string]any
	Rules        []Rule
	Resolver     SecretResolver
}

// sources is the parsed, unmerged input retained so environment views can
// be recomposed without touching the filesystem again.
type sources struct {
	environments bool
	defaults     map[string]any
	files        []fileTree
	env          map[string]any
	secrets      []fileTree
	resolver     SecretResolver
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads every layer, merges, resolves secrets, and validates.
func Load(ctx context.Context, opts Options) (*Registry, error) {
	reg, err := load(ctx, opts)
	if err != nil {
		metrics.SettingsLoadErrorsTotal.Inc()
		return nil, err
	}
	metrics.SettingsLoadTotal.Inc()
	return reg, nil
}

func load(ctx context.Context, opts Options) (*Registry, error) {
	root := opts.Root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, &LoadError{Path: ".", Err: err}
		}
		root = wd
	}
	names := opts.Files
	if len(names) == 0 {
		names = []string{DefaultSettingsFile}
	}

	if opts.LoadDotenv {
		name := opts.DotenvFile
		if name == "" {
			name = DefaultDotenvFile
		}
		if !filepath.IsAbs(name) {
			name = filepath.Join(root, name)
		}
		if err := loadDotenv(name); err != nil {
			zap.S().Errorw("dotenv load failed", "file", name, "err", err)
			return nil, err
		}
	}

	files, err := readFiles(root, names)
	if err != nil {
		zap.S().Errorw("settings file load failed", "err", err)
		return nil, err
	}

	envVars, err := readEnv(opts.EnvPrefix)
	if err != nil {
		zap.S().Errorw("settings env overlay failed", "err", err)
		return nil, err
	}

	secretsName := opts.SecretsFile
	if secretsName == "" {
		secretsName = DefaultSecretsFile
	}
	secrets, err := readFiles(root, []string{secretsName})
	if err != nil {
		zap.S().Errorw("settings secrets load failed", "err", err)
		return nil, err
	}

	src := &sources{
		environments: opts.Environments,
		defaults:     lowerKeys(opts.Defaults),
		files:        files,
		env:          envVars,
		secrets:      secrets,
		resolver:     opts.Resolver,
	}

	environment := opts.Environment
	if environment == "" {
		environment = os.Getenv(EnvSwitcher)
	}
	if environment == "" {
		environment = DefaultEnvironment
	}

	reg, err := src.compose(ctx, strings.ToLower(environment), src.resolver)
	if err != nil {
		zap.S().Errorw("settings merge failed", "err", err)
		return nil, err
	}

	if err := Validate(reg, opts.Rules); err != nil {
		zap.S().Errorw("settings validation failed", "err", err)
		return nil, err
	}

	zap.S().Infow("settings loaded",
		"root", root,
		"environment", reg.env,
		"files", len(files),
		"keys", len(reg.k.Keys()),
	)
	return reg, nil
}

/*──────────────────────────── composition ─────────────────────────────────*/

// compose stacks the retained layers for one environment.
func (s *sources) compose(ctx context.Context, environment string, resolver SecretResolver) (*Registry, error) {
	k := koanf.New(".")
	origins := make(map[string]string)

	apply := func(origin string, m map[string]any) error {
		if len(m) == 0 {
			return nil
		}
		if err := k.Load(confmap.Provider(m, ""), nil); err != nil {
			return fmt.Errorf("merge %s: %w", origin, err)
		}
		flat, _ := maps.Flatten(m, nil, ".")
		for key := range flat {
			origins[key] = origin
		}
		return nil
	}

	sectioned := func(trees []fileTree) error {
		if !s.environments {
			for _, t := range trees {
				if err := apply(t.path, t.data); err != nil {
					return err
				}
			}
			return nil
		}
		for _, name := range []string{SectionDefault, environment, SectionGlobal} {
			for _, t := range trees {
				if err := apply(t.path+"#"+name, section(t.data, name)); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := apply("defaults", s.defaults); err != nil {
		return nil, err
	}
	if err := sectioned(s.files); err != nil {
		return nil, err
	}
	if err := apply("env", s.env); err != nil {
		return nil, err
	}
	if err := sectioned(s.secrets); err != nil {
		return nil, err
	}
	if err := resolveSecrets(ctx, resolver, k, origins); err != nil {
		return nil, err
	}

	return &Registry{
		k:       k,
		env:     environment,
		origins: origins,
		src:     s,
		views:   cache.New[string, *Registry](viewCacheSz),
	}, nil
}

// resolveSecrets swaps `vault:` strings for their secret values.  Without a
// resolver the literal is kept and a warning logged.
func resolveSecrets(ctx context.Context, resolver SecretResolver, k *koanf.Koanf, origins map[string]string) error {
	for key, raw := range k.All() {
		str, ok := raw.(string)
		if !ok || !strings.HasPrefix(str, vaultPrefix) {
			continue
		}
		if resolver == nil {
			zap.S().Warnw("vault reference left unresolved", "key", key)
			continue
		}
		ref := strings.TrimPrefix(str, vaultPrefix)
		val, err := resolver.Resolve(ctx, ref)
		if err != nil {
			return &LoadError{Path: str, Err: fmt.Errorf("resolve %s: %w", key, err)}
		}
		if err := k.Set(key, val); err != nil {
			return &LoadError{Path: str, Err: err}
		}
		origins[key] = vaultPrefix + origins[key]
	}
	return nil
}
