// internal/notify/bark_test.go
//
// Unit-tests for the Bark client against an httptest server.
//
// Run: go test ./internal/notify -v

package notify

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdeptTravel/adept-bootstrap/internal/logger"
	"github.com/AdeptTravel/adept-bootstrap/internal/settings"
)

func newBark(t *testing.T, baseURL string) (*Bark, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	body := "[default]\nDEBUG = false\n[bark]\nurl = \"" + baseURL + "\"\napikey = \"k3y\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.toml"), []byte(body), 0o644))

	reg, err := settings.Load(context.Background(), settings.Options{
		Root: dir, Environments: true, Environment: "development", Rules: settings.DefaultRules(),
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	r, err := logger.NewRouter(logger.SinkSpec{Name: "buf", Writer: &buf, Level: logger.DebugLevel})
	require.NoError(t, err)

	b, err := New(reg, "alerts", logger.NewLogger(r))
	require.NoError(t, err)
	b.http.RetryMax = 0
	return b, &buf
}

func TestSendSuccess(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = w.Write([]byte(`{"code":200,"message":"success"}`))
	}))
	defer srv.Close()

	b, logs := newBark(t, srv.URL)
	ok := b.Send(context.Background(), Message{Title: "Deploy", Body: "done & dusted", URL: "https://example.com", Archive: true})
	require.True(t, ok)

	require.NotNil(t, got)
	assert.Equal(t, "/k3y/done & dusted", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "alerts", q.Get("group"))
	assert.Equal(t, "Deploy", q.Get("title"))
	assert.Equal(t, "birdsong", q.Get("sound"))
	assert.Equal(t, "active", q.Get("level"))
	assert.Equal(t, "1", q.Get("isArchive"))
	assert.Contains(t, logs.String(), "bark message sent")
}

func TestSendRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":400,"message":"bad key"}`))
	}))
	defer srv.Close()

	b, logs := newBark(t, srv.URL)
	assert.False(t, b.Send(context.Background(), Message{Body: "x"}))
	assert.Contains(t, logs.String(), "bad key")
}

func TestSendTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	b, logs := newBark(t, url)
	assert.False(t, b.Send(context.Background(), Message{Body: "x"}))
	assert.Contains(t, logs.String(), "bark send failed")
}

func TestNewRequiresCredentials(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.toml"), []byte("[default]\nDEBUG = false\n"), 0o644))
	reg, err := settings.Load(context.Background(), settings.Options{Root: dir, Environments: true})
	require.NoError(t, err)

	r, err := logger.NewRouter()
	require.NoError(t, err)
	_, err = New(reg, "g", logger.NewLogger(r))
	assert.Error(t, err)
}
