// internal/bootstrap/bootstrap.go
//
// Process bootstrap:  settings first, logging second.
//
/*
Context
--------
`New()` runs the whole start-up sequence and returns an App holding the
validated settings Registry and the Logger built from it:

 1. Load settings (defaults, files, environment section, prefixed env vars,
    secrets, Vault references) and validate them.
 2. Decode the core keys, `DEBUG`, `LOG_LEVEL`, and `LOG_DIR`, into Core and
    validate the struct.
 3. Create the log directory and build the default sink topology.

`Init()` does the same exactly once per process, installs the logger as
zap's global, and makes the App reachable through `Current()`.  Tests call
`New()` directly to get isolated instances.

Notes
-----
  • A Vault resolver is created automatically when VAULT_ADDR is set and the
    caller did not supply one.
  • Any error is fatal; callers should exit rather than continue.
*/
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/AdeptTravel/adept-bootstrap/internal/logger"
	"github.com/AdeptTravel/adept-bootstrap/internal/settings"
	"github.com/AdeptTravel/adept-bootstrap/internal/vault"
)

// DefaultLogDir is used when neither Options nor LOG_DIR name one.
const DefaultLogDir = "logs"

// Core holds the keys the bootstrap itself consumes.
type Core struct {
	Debug    bool   `koanf:"debug"`
	LogLevel string `koanf:"log_level" validate:"required,oneof=DEBUG INFO WARNING ERROR"`
	LogDir   string `koanf:"log_dir"   validate:"required"`
}

// Options configures New.
type Options struct {
	Settings settings.Options
	LogDir   string    // overrides LOG_DIR
	Console  io.Writer // defaults to stderr
}

// App is the process-wide state every other component receives.
type App struct {
	Settings *settings.Registry
	Log      *logger.Logger
	Core     Core
}

var v = validator.New()

// New loads settings and builds the logger.
func New(ctx context.Context, opts Options) (*App, error) {
	sopts := opts.Settings
	if sopts.Rules == nil {
		sopts.Rules = settings.DefaultRules()
	}
	if sopts.Resolver == nil && os.Getenv("VAULT_ADDR") != "" {
		cli, err := vault.New(vault.DefaultTTL)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: vault: %w", err)
		}
		sopts.Resolver = cli
	}

	reg, err := settings.Load(ctx, sopts)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: settings: %w", err)
	}

	core, err := decodeCore(reg, sopts.Root, opts.LogDir)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: core settings: %w", err)
	}

	level, err := logger.ParseLevel(core.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	if err := os.MkdirAll(core.LogDir, 0o755); err != nil {
		return nil, fmt.Errorf("bootstrap: log dir: %w", err)
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	router, err := logger.NewRouter(logger.DefaultTopology(core.Debug, level, core.LogDir, console)...)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: logger: %w", err)
	}

	log := logger.NewLogger(router)
	log.Debug("bootstrap complete",
		"environment", reg.Environment(),
		"debug", core.Debug,
		"log_level", core.LogLevel,
		"log_dir", core.LogDir,
	)
	return &App{Settings: reg, Log: log, Core: core}, nil
}

// decodeCore reads DEBUG, LOG_LEVEL, and LOG_DIR with their defaults.  In
// debug mode an unset LOG_LEVEL means DEBUG.
func decodeCore(reg *settings.Registry, root, logDir string) (Core, error) {
	var c Core
	if err := reg.Unmarshal("", &c); err != nil {
		return c, err
	}

	debug, err := reg.Bool("DEBUG")
	if err != nil {
		return c, err
	}
	c.Debug = debug

	c.LogLevel = strings.ToUpper(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
		if c.Debug {
			c.LogLevel = "DEBUG"
		}
	}

	if logDir != "" {
		c.LogDir = logDir
	}
	if c.LogDir == "" {
		c.LogDir = DefaultLogDir
	}
	if !filepath.IsAbs(c.LogDir) && root != "" {
		c.LogDir = filepath.Join(root, c.LogDir)
	}

	return c, v.Struct(&c)
}

// Close flushes and closes every log sink.
func (a *App) Close() error {
	_ = a.Log.Sync()
	return a.Log.Close()
}

/*──────────────────────────── process-wide ────────────────────────────────*/

var (
	once    sync.Once
	current atomic.Pointer[App]
	initErr error
)

// Init runs New once per process and installs the result globally.  Later
// calls return the first result regardless of opts.
func Init(ctx context.Context, opts Options) (*App, error) {
	once.Do(func() {
		app, err := New(ctx, opts)
		if err != nil {
			initErr = err
			return
		}
		zap.ReplaceGlobals(app.Log.Sugar().Desugar())
		current.Store(app)
	})
	return current.Load(), initErr
}

// Current returns the App installed by Init, or nil before it ran.
func Current() *App { return current.Load() }
