// internal/settings/loader_test.go
//
// Unit-tests for the layered loader, environment views, and rules.
//
// Run: go test ./internal/settings -v

package settings

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseTOML = `
[default]
DEBUG = false
LOG_LEVEL = "INFO"
name = "base"
tags = ["a", "b"]

[default.database.credentials]
username = "root"
password = "hunter2"

[development]
name = "dev"

[production]
name = "prod"
DEBUG = true
tags = ["p"]

[production.database.credentials]
username = "prod_user"

[bark]
url = "https://api.day.app"
apikey = "bark-key"
`

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func loadDir(t *testing.T, dir string, mod func(*Options)) (*Registry, error) {
	t.Helper()
	opts := Options{
		Root:         dir,
		Environments: true,
		Environment:  "development",
		Rules:        DefaultRules(),
	}
	if mod != nil {
		mod(&opts)
	}
	return Load(context.Background(), opts)
}

func TestLoadSelectsEnvironmentSection(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "settings.toml", baseTOML)

	reg, err := loadDir(t, dir, nil)
	require.NoError(t, err)

	assert.Equal(t, "development", reg.Environment())
	assert.Equal(t, "dev", reg.Get("name", nil))
	assert.Equal(t, "root", reg.Get("database.credentials.username", nil))
	assert.Equal(t, "settings.toml#development", filepath.Base(reg.Origin("NAME")))

	debug, err := reg.Bool("DEBUG")
	require.NoError(t, err)
	assert.False(t, debug)
}

func TestFromEnvironmentOverridesAndFallsThrough(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "settings.toml", baseTOML)

	reg, err := loadDir(t, dir, nil)
	require.NoError(t, err)

	prod := reg.FromEnvironment("production")
	assert.Equal(t, "prod", prod.Get("name", nil))
	assert.Equal(t, "INFO", prod.Get("LOG_LEVEL", nil), "default-only key falls through")

	// Mappings merge per key: username overridden, password kept.
	assert.Equal(t, "prod_user", prod.Get("database.credentials.username", nil))
	assert.Equal(t, "hunter2", prod.Get("database.credentials.password", nil))

	// Lists are replaced whole.
	assert.Equal(t, []any{"p"}, prod.Get("tags", nil))

	bark := reg.FromEnvironment("bark")
	assert.Equal(t, "https://api.day.app", bark.Get("url", nil))
	assert.Equal(t, "bark-key", bark.Get("apikey", nil))

	assert.Same(t, prod, reg.FromEnvironment("PRODUCTION"), "views are memoised")
	assert.Same(t, reg, reg.FromEnvironment("development"))

	// The parent view is untouched.
	assert.Equal(t, "dev", reg.Get("name", nil))
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "settings.toml", `
[default]
debug = false
a = "file"
b = "file"
c = "file"
d = "file"
`)
	writeFile(t, dir, "override.yaml", `
default:
  b: override
  c: override
  d: override
`)
	writeFile(t, dir, ".secrets.toml", `
[default]
d = "secret"
`)
	t.Setenv("ADEPTT_C", "env")
	t.Setenv("ADEPTT_D", "env")
	t.Setenv("ADEPTT_NESTED__DEEP__KEY", "42")

	reg, err := loadDir(t, dir, func(o *Options) {
		o.Files = []string{"settings.toml", "missing.toml", "override.yaml"}
		o.EnvPrefix = "ADEPTT"
		o.Defaults = map[string]any{"a": "default", "z": "default"}
	})
	require.NoError(t, err)

	assert.Equal(t, "default", reg.Get("z", nil))
	assert.Equal(t, "file", reg.Get("a", nil))
	assert.Equal(t, "override", reg.Get("b", nil))
	assert.Equal(t, "env", reg.Get("c", nil))
	assert.Equal(t, "secret", reg.Get("d", nil))
	assert.Equal(t, int64(42), reg.Get("nested.deep.key", nil))
	assert.Equal(t, "env", reg.Origin("c"))
}

func TestEnvImportDisabledWithoutPrefix(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "settings.toml", "[default]\ndebug = false\n")
	t.Setenv("SOMETHING_ELSE", "x")

	reg, err := loadDir(t, dir, nil)
	require.NoError(t, err)
	assert.False(t, reg.Exists("something_else"))
}

func TestEnvironmentsDisabledReadsFlatTree(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "settings.toml", "DEBUG = true\n[server]\nport = 8080\n")

	reg, err := loadDir(t, dir, func(o *Options) { o.Environments = false })
	require.NoError(t, err)

	port, err := reg.Int("server.port")
	require.NoError(t, err)
	assert.Equal(t, int64(8080), port)
}

func TestGlobalSectionOverridesEnvironment(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "settings.toml", `
[default]
debug = false
[development]
region = "dev"
[global]
region = "everywhere"
`)
	reg, err := loadDir(t, dir, nil)
	require.NoError(t, err)
	assert.Equal(t, "everywhere", reg.Get("region", nil))
}

func TestBoolCoercesTextualValues(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "settings.toml", `
[default]
debug = false
t1 = "true"
t2 = "1"
f1 = "false"
f2 = "0"
bad = "maybe"
`)
	t.Setenv("ADEPTB_FLAG", "true")

	reg, err := loadDir(t, dir, func(o *Options) { o.EnvPrefix = "ADEPTB" })
	require.NoError(t, err)

	for key, want := range map[string]bool{"t1": true, "t2": true, "f1": false, "f2": false, "flag": true, "absent": false} {
		got, err := reg.Bool(key)
		require.NoError(t, err, key)
		assert.Equal(t, want, got, key)
	}

	_, err = reg.Bool("bad")
	var convErr *ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, "bad", convErr.Key)
}

func TestMissingIntermediateSegmentReturnsDefault(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "settings.toml", baseTOML)

	reg, err := loadDir(t, dir, nil)
	require.NoError(t, err)

	assert.Equal(t, "fallback", reg.Get("database.nope.username", "fallback"))
	assert.Equal(t, "fallback", reg.Get("name.too.deep", "fallback"))
}

func TestJSONAccessor(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "settings.toml", `
[default]
debug = false
config_json = '{"retries": 3}'
[default.table]
x = 1
`)
	reg, err := loadDir(t, dir, nil)
	require.NoError(t, err)

	got, err := reg.JSON("config_json")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"retries": float64(3)}, got)

	tbl, err := reg.JSON("table")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": int64(1)}, tbl)
}

func TestLogLevelRule(t *testing.T) {
	for _, tc := range []struct {
		level string
		ok    bool
	}{
		{"TRACE", false},
		{"WARNING", true},
		{"DEBUG", true},
	} {
		t.Run(tc.level, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "settings.toml", "[default]\ndebug = false\nlog_level = \""+tc.level+"\"\n")

			_, err := loadDir(t, dir, nil)
			if tc.ok {
				require.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, "LOG_LEVEL", vErr.Key)
			assert.Contains(t, err.Error(), "LOG_LEVEL")
		})
	}
}

func TestRequiredRules(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "settings.toml", "[default]\nname = \"x\"\n")

	_, err := loadDir(t, dir, nil)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "DEBUG", vErr.Key)
	assert.Equal(t, "must exist", vErr.Constraint)

	writeFile(t, dir, "settings.toml", "[default]\ndebug = \"yes\"\n")
	_, err = loadDir(t, dir, nil)
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Constraint, "bool")
}

func TestRuleTagAndJoinedErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "settings.toml", "[default]\ndebug = 1\nport = 99999\n")

	_, err := loadDir(t, dir, func(o *Options) {
		o.Rules = append(o.Rules, Rule{Key: "port", MustExist: true, Tag: "min=1,max=65535"})
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEBUG")
	assert.Contains(t, err.Error(), "PORT")
}

func TestMalformedFileIsLoadError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "settings.toml", "[default\nbroken")

	_, err := loadDir(t, dir, nil)
	var lErr *LoadError
	require.ErrorAs(t, err, &lErr)
	assert.Equal(t, filepath.Join(dir, "settings.toml"), lErr.Path)
}

func TestDotenvFeedsPrefixedImport(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "settings.toml", "[default]\ndebug = false\n")
	writeFile(t, dir, ".env", "ADEPTD_FROM_DOTENV=yes\n")
	t.Cleanup(func() { os.Unsetenv("ADEPTD_FROM_DOTENV") })

	reg, err := loadDir(t, dir, func(o *Options) {
		o.EnvPrefix = "ADEPTD"
		o.LoadDotenv = true
	})
	require.NoError(t, err)
	assert.Equal(t, "yes", reg.Get("from_dotenv", nil))
}

type fakeResolver map[string]string

func (f fakeResolver) Resolve(_ context.Context, ref string) (string, error) {
	if v, ok := f[ref]; ok {
		return v, nil
	}
	return "", errors.New("not found")
}

func TestVaultReferencesResolved(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "settings.toml", `
[default]
debug = false
[default.database]
password = "vault:secret/db#password"
`)
	reg, err := loadDir(t, dir, func(o *Options) {
		o.Resolver = fakeResolver{"secret/db#password": "s3cret"}
	})
	require.NoError(t, err)
	assert.Equal(t, "s3cret", reg.Get("database.password", nil))

	_, err = loadDir(t, dir, func(o *Options) { o.Resolver = fakeResolver{} })
	var lErr *LoadError
	require.ErrorAs(t, err, &lErr)

	reg, err = loadDir(t, dir, nil)
	require.NoError(t, err)
	assert.Equal(t, "vault:secret/db#password", reg.Get("database.password", nil))
}

func TestUnmarshal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "settings.toml", baseTOML)

	reg, err := loadDir(t, dir, nil)
	require.NoError(t, err)

	var creds struct {
		Username string `koanf:"username"`
		Password string `koanf:"password"`
	}
	require.NoError(t, reg.Unmarshal("database.credentials", &creds))
	assert.Equal(t, "root", creds.Username)
	assert.Equal(t, "hunter2", creds.Password)
}

func TestUnreadableWorkingDirIsLoadError(t *testing.T) {
	gone := filepath.Join(t.TempDir(), "gone")
	require.NoError(t, os.Mkdir(gone, 0o755))
	prevWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(gone))
	t.Cleanup(func() { _ = os.Chdir(prevWd) })
	require.NoError(t, os.Remove(gone))

	_, err = Load(context.Background(), Options{})
	var lErr *LoadError
	require.ErrorAs(t, err, &lErr)
	assert.Equal(t, ".", lErr.Path)
}
