package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	trrepo "hyperagent/internal/transcript/repository"
	"hyperagent/pkg/config"
	"hyperagent/pkg/logging"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, mutate func(*config.Config)) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		JWTSecret:  "test-secret",
		CronSecret: "cron-secret",
		SiteURL:    "http://localhost:3000",
	}
	if mutate != nil {
		mutate(cfg)
	}
	app, err := NewApp(context.Background(), cfg, logging.NewDiscardLogger())
	require.NoError(t, err)
	t.Cleanup(app.Close)
	return app
}

func serve(h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestNewApp_InMemoryDefaults(t *testing.T) {
	app := newTestApp(t, nil)
	assert.Nil(t, app.DB())
	_, disabled := app.AI.(unavailableAI)
	assert.True(t, disabled)
}

func TestSessionStore_SelectedByRedisAddr(t *testing.T) {
	_, inMemory := newTestApp(t, nil).sessionStore().(*trrepo.MemorySessionStore)
	assert.True(t, inMemory)

	mr := miniredis.RunT(t)
	app := newTestApp(t, func(c *config.Config) { c.RedisAddr = mr.Addr() })
	_, shared := app.sessionStore().(*trrepo.RedisSessionStore)
	assert.True(t, shared)
}

func TestRoutes_PublicAndProtected(t *testing.T) {
	r := NewHandler(newTestApp(t, nil)).Engine()

	w := serve(r, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = serve(r, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	for _, path := range []string{"/api/opportunities", "/api/goals", "/api/writing-style", "/api/settings/ai", "/api/auth/me"} {
		w = serve(r, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	w = serve(r, http.MethodOptions, "/api/opportunities", "", map[string]string{"Origin": "https://app.example.com"})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRoutes_WidgetIsPublic(t *testing.T) {
	r := NewHandler(newTestApp(t, nil)).Engine()

	w := serve(r, http.MethodPost, "/api/widget/submit", `{"celebrityId":"c1","email":"fan@example.com"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, http.MethodPost, "/api/widget/submit", `{"celebrityId":"ghost","email":"fan@example.com","message":"hi"}`, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoutes_CronSecrets(t *testing.T) {
	r := NewHandler(newTestApp(t, nil)).Engine()

	w := serve(r, http.MethodGet, "/api/cron/twitter-dms", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Twitter is not configured in tests
	w = serve(r, http.MethodGet, "/api/cron/twitter-dms", "", map[string]string{"Authorization": "Bearer cron-secret"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = serve(r, http.MethodGet, "/api/cron/classify", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.EqualValues(t, 0, report["processed"])
}

func TestRoutes_ClassifySecretWhenRequired(t *testing.T) {
	r := NewHandler(newTestApp(t, func(cfg *config.Config) { cfg.ClassifyRequireSecret = true })).Engine()

	w := serve(r, http.MethodGet, "/api/cron/classify", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, http.MethodGet, "/api/cron/classify", "", map[string]string{"Authorization": "Bearer cron-secret"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTopicName(t *testing.T) {
	assert.Equal(t, "events", topicName("projects/p1/topics/events"))
	assert.Equal(t, "events", topicName("events"))
	assert.Equal(t, "opportunity-events", topicName(""))
}
