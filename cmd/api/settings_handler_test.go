package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"hyperagent/pkg/ai"
	"hyperagent/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func settingsRouter(settings *RuntimeSettings, pinger stubPinger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewSettingsHandler(settings, pinger)
	r := gin.New()
	r.GET("/api/settings/ai", h.GetAISettings)
	r.PUT("/api/settings/ai", h.UpdateAISettings)
	r.POST("/api/settings/ai/test", h.TestAIConnection)
	return r
}

func TestRuntimeSettings_Model(t *testing.T) {
	s := NewRuntimeSettings(&config.Config{AIProvider: "auto", OpenAIModel: "gpt-4o-mini", DeepseekModel: "deepseek-chat"})
	assert.Equal(t, "gpt-4o-mini", s.Model(ai.ProviderOpenAI))
	assert.Equal(t, "deepseek-chat", s.Model(ai.ProviderDeepseek))
	assert.Empty(t, s.Model(ai.ProviderPerplexity))
}

func TestUpdateAISettings(t *testing.T) {
	s := NewRuntimeSettings(&config.Config{AIProvider: "openai", OpenAIModel: "gpt-4o-mini", DeepseekModel: "deepseek-chat"})
	r := settingsRouter(s, stubPinger{})

	w := serve(r, http.MethodPut, "/api/settings/ai", `{"openai_model":" gpt-4o "}`, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gpt-4o", s.Model(ai.ProviderOpenAI))
	assert.Equal(t, "deepseek-chat", s.Model(ai.ProviderDeepseek))

	w = serve(r, http.MethodPut, "/api/settings/ai", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, http.MethodGet, "/api/settings/ai", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"provider":"openai","openai_model":"gpt-4o","deepseek_model":"deepseek-chat"}`, w.Body.String())
}

func TestTestAIConnection(t *testing.T) {
	s := NewRuntimeSettings(&config.Config{})

	w := serve(settingsRouter(s, stubPinger{}), http.MethodPost, "/api/settings/ai/test", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(settingsRouter(s, stubPinger{err: errors.New("quota exceeded")}), http.MethodPost, "/api/settings/ai/test", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "quota exceeded")
}
