package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdeptTravel/adept-bootstrap/internal/settings"
)

func load(t *testing.T, body string) *settings.Registry {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.toml"), []byte(body), 0o644))
	reg, err := settings.Load(context.Background(), settings.Options{Root: dir, Environments: true, Environment: "development"})
	require.NoError(t, err)
	return reg
}

func TestPoolFromSettings(t *testing.T) {
	reg := load(t, `
[default.database]
dsn = "user:pw@tcp(localhost:3306)/adept"
max_open = 4
`)
	p, err := PoolFromSettings(reg)
	require.NoError(t, err)
	assert.Equal(t, "user:pw@tcp(localhost:3306)/adept", p.DSN)
	assert.Equal(t, 4, p.MaxOpen)
	assert.Equal(t, 5, p.MaxIdle)
}

func TestPoolFromSettingsRequiresDSN(t *testing.T) {
	_, err := PoolFromSettings(load(t, "[default]\nname = \"x\"\n"))
	assert.ErrorIs(t, err, ErrNoDSN)
}
