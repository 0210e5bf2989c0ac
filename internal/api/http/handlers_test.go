package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/Playground/backend/internal/logging"
	"github.com/GriffinCanCode/Playground/backend/internal/monitoring"
	"github.com/GriffinCanCode/Playground/backend/internal/playground"
	"github.com/GriffinCanCode/Playground/backend/internal/sandbox"
	"github.com/GriffinCanCode/Playground/backend/internal/snippets"
)

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry, err := snippets.Load()
	require.NoError(t, err)

	cfg := playground.DefaultConfig()
	cfg.GracePeriod = 150 * time.Millisecond
	cfg.ReadyTimeout = 25 * time.Millisecond

	gate := sandbox.NewGate(4)
	t.Cleanup(func() { gate.Close() })

	h := NewHandlers(cfg, gate, registry, monitoring.NewMetrics(), logging.Nop())

	router := gin.New()
	router.GET("/", h.Root)
	router.GET("/health", h.Health)
	router.POST("/execute", h.Execute)
	router.GET("/snippets", h.ListSnippets)
	router.GET("/snippets/:id", h.GetSnippet)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router := testRouter(t)
	w := doJSON(t, router, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Contains(t, resp, "runners")
}

func TestExecute(t *testing.T) {
	router := testRouter(t)
	w := doJSON(t, router, http.MethodPost, "/execute", map[string]string{
		"source": "console.log('a'); console.log('b')",
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp ExecuteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RunID)
	assert.Empty(t, resp.Error)
	require.Len(t, resp.Events, 2)
	assert.Equal(t, "a", resp.Events[0].Text)
	assert.Equal(t, "b", resp.Events[1].Text)
}

func TestExecuteFault(t *testing.T) {
	router := testRouter(t)
	w := doJSON(t, router, http.MethodPost, "/execute", map[string]string{
		"source": "throw new Error('rest fault')",
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp ExecuteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "error", string(resp.Events[0].Kind))
	assert.Equal(t, "Error: rest fault", resp.Events[0].Text)
	assert.Empty(t, resp.Error, "execution faults are events, not banners")
}

func TestExecuteMissingSource(t *testing.T) {
	router := testRouter(t)
	w := doJSON(t, router, http.MethodPost, "/execute", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSnippets(t *testing.T) {
	router := testRouter(t)

	w := doJSON(t, router, http.MethodGet, "/snippets", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Snippets []snippets.Snippet `json:"snippets"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Snippets)

	w = doJSON(t, router, http.MethodGet, "/snippets/hello", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/snippets/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
