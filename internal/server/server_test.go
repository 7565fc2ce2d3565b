package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdeptTravel/adept-bootstrap/internal/logger"
)

func TestHandlerServesMetricsAndHealth(t *testing.T) {
	var buf bytes.Buffer
	r, err := logger.NewRouter(logger.SinkSpec{Name: "buf", Writer: &buf, Level: logger.DebugLevel})
	require.NoError(t, err)
	h := Handler(logger.NewLogger(r))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "log_active_sinks")

	assert.Contains(t, buf.String(), "/metrics")
}
