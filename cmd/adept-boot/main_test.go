// cmd/adept-boot/main_test.go
//
// Exit codes of the CLI entry point.
//
// Run: go test ./cmd/adept-boot -v

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cliSettings = `
[default]
DEBUG = false
LOG_DIR = "logs"
SITE_NAME = "adept"
`

func TestRunReturnsExitCode(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.toml"), []byte(cliSettings), 0o644))
	t.Setenv("ENV_FOR_ADEPT", "development")

	assert.Equal(t, 0, run([]string{"--root", dir, "get", "site_name"}))
	assert.DirExists(t, filepath.Join(dir, "logs"))

	// A failing command returns its code so deferred sinks and servers close.
	assert.Equal(t, 1, run([]string{"--root", dir, "get", "no.such.key"}))
}
