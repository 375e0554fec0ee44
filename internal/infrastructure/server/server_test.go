package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	handlers "github.com/GriffinCanCode/AiPlugs/backend/internal/api/http"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/api/ws"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/bypass"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/navigation"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/policy"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/types"
)

type fakeBrowser struct {
	mu     sync.Mutex
	opened []string
	tabs   map[types.ContextID]string
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{tabs: make(map[types.ContextID]string)}
}

func (b *fakeBrowser) OpenTab(_ context.Context, url string) (types.ContextID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opened = append(b.opened, url)
	id := types.ContextID("tab-" + string(rune('0'+len(b.opened))))
	b.tabs[id] = url
	return id, nil
}

func (b *fakeBrowser) CloseTab(id types.ContextID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.tabs[id]; !ok {
		return navigation.ErrContextGone
	}
	delete(b.tabs, id)
	return nil
}

func (b *fakeBrowser) Tabs() []types.NavigableContext {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []types.NavigableContext
	for id, url := range b.tabs {
		out = append(out, types.NavigableContext{ID: id, URL: url, Readiness: types.ReadinessLoading})
	}
	return out
}

type fakeHub struct{ n int }

func (h fakeHub) Contexts() int { return h.n }

type fakeMatcher struct{}

func (fakeMatcher) Enabled() bool    { return true }
func (fakeMatcher) Endpoint() string { return "http://127.0.0.1:5000" }
func (fakeMatcher) Health() string   { return "open" }

func newTestServer(t *testing.T, browser handlers.Browser) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Logging.Development = true
	cfg.Control.RateRPS = 0

	store := policy.NewStore(policy.SecurityPolicy{BypassCSP: true, ApplyTo: []string{"*.example.com"}})
	metrics := monitoring.NewMetrics()
	deps := handlers.Deps{
		Store:   store,
		Engine:  bypass.New(store),
		Hub:     fakeHub{n: 2},
		Matcher: fakeMatcher{},
	}
	if browser != nil {
		deps.Browser = browser
	}
	return New(cfg, deps, ws.NewStream(nil, metrics), metrics, nil)
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, newFakeBrowser())

	w := do(s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(2), body["contexts"])
	assert.Equal(t, true, body["browser"])
	m, ok := body["matcher"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "open", m["circuit"])
	assert.Equal(t, "http://127.0.0.1:5000", m["endpoint"])
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
}

func TestPolicy(t *testing.T) {
	s := newTestServer(t, nil)

	w := do(s, http.MethodGet, "/v1/policy", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)

	p, ok := body["policy"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, p["bypass_csp"])
	assert.Equal(t, []any{"*.example.com"}, p["apply_to"])
	assert.Contains(t, body["switches"], "--disable-site-isolation-trials")
	assert.Empty(t, body["issues"])
}

func TestOpenTabNormalizesURL(t *testing.T) {
	browser := newFakeBrowser()
	s := newTestServer(t, browser)

	w := do(s, http.MethodPost, "/v1/tabs", `{"url":"example.com"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, "https://example.com", body["url"])
	assert.Equal(t, []string{"https://example.com"}, browser.opened)
}

func TestOpenTabRejectsBadInput(t *testing.T) {
	s := newTestServer(t, newFakeBrowser())

	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodPost, "/v1/tabs", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodPost, "/v1/tabs", `{"url":"ftp://x.org"}`).Code)
}

func TestCloseTab(t *testing.T) {
	browser := newFakeBrowser()
	s := newTestServer(t, browser)

	w := do(s, http.MethodPost, "/v1/tabs", `{"url":"https://a.example.com/"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["id"].(string)

	list := decode(t, do(s, http.MethodGet, "/v1/tabs", ""))
	assert.Len(t, list["tabs"], 1)

	assert.Equal(t, http.StatusNoContent, do(s, http.MethodDelete, "/v1/tabs/"+id, "").Code)
	assert.Equal(t, http.StatusNotFound, do(s, http.MethodDelete, "/v1/tabs/"+id, "").Code)
}

func TestTabsWithoutBrowser(t *testing.T) {
	s := newTestServer(t, nil)

	assert.Equal(t, http.StatusServiceUnavailable, do(s, http.MethodGet, "/v1/tabs", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(s, http.MethodPost, "/v1/tabs", `{"url":"example.com"}`).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	do(s, http.MethodGet, "/health", "")

	w := do(s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "shell_http_requests_total")
}
