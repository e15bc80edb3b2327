package api

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"hyperagent/pkg/ai"
	"hyperagent/pkg/config"

	"github.com/gin-gonic/gin"
)

// RuntimeSettings holds model choices that can change without a restart
type RuntimeSettings struct {
	mu            sync.RWMutex
	provider      ai.ProviderType
	openAIModel   string
	deepseekModel string
}

func NewRuntimeSettings(cfg *config.Config) *RuntimeSettings {
	return &RuntimeSettings{
		provider:      ai.ProviderType(cfg.AIProvider),
		openAIModel:   cfg.OpenAIModel,
		deepseekModel: cfg.DeepseekModel,
	}
}

// Model returns the current model for a provider; it backs ai.Config.GetModel
func (s *RuntimeSettings) Model(provider ai.ProviderType) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch provider {
	case ai.ProviderOpenAI:
		return s.openAIModel
	case ai.ProviderDeepseek:
		return s.deepseekModel
	}
	return ""
}

// AISettings is the wire form of the runtime settings
type AISettings struct {
	Provider      ai.ProviderType `json:"provider"`
	OpenAIModel   string          `json:"openai_model"`
	DeepseekModel string          `json:"deepseek_model"`
}

func (s *RuntimeSettings) snapshot() AISettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return AISettings{Provider: s.provider, OpenAIModel: s.openAIModel, DeepseekModel: s.deepseekModel}
}

// UpdateAISettingsRequest changes model names; empty fields keep the current value
type UpdateAISettingsRequest struct {
	OpenAIModel   string `json:"openai_model"`
	DeepseekModel string `json:"deepseek_model"`
}

// providerPinger checks that the configured model answers
type providerPinger interface {
	Ping(ctx context.Context) error
}

// SettingsHandler serves runtime AI settings
type SettingsHandler struct {
	settings *RuntimeSettings
	pinger   providerPinger
}

func NewSettingsHandler(settings *RuntimeSettings, pinger providerPinger) *SettingsHandler {
	return &SettingsHandler{settings: settings, pinger: pinger}
}

// GetAISettings returns the current model configuration
// GET /api/settings/ai
func (h *SettingsHandler) GetAISettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.snapshot())
}

// UpdateAISettings switches models at runtime
// PUT /api/settings/ai
func (h *SettingsHandler) UpdateAISettings(c *gin.Context) {
	var req UpdateAISettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	openAI := strings.TrimSpace(req.OpenAIModel)
	deepseek := strings.TrimSpace(req.DeepseekModel)
	if openAI == "" && deepseek == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "openai_model or deepseek_model is required"})
		return
	}

	h.settings.mu.Lock()
	if openAI != "" {
		h.settings.openAIModel = openAI
	}
	if deepseek != "" {
		h.settings.deepseekModel = deepseek
	}
	h.settings.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"message":  "AI settings updated successfully",
		"settings": h.settings.snapshot(),
	})
}

// TestAIConnection sends a minimal prompt to the configured provider
// POST /api/settings/ai/test
func (h *SettingsHandler) TestAIConnection(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 20*time.Second)
	defer cancel()

	if err := h.pinger.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"connected": false,
			"error":     err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"connected": true,
		"settings":  h.settings.snapshot(),
	})
}
