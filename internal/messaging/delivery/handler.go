package delivery

import (
	"errors"
	"net/http"
	"time"

	"hyperagent/internal/messaging/domain"
	"hyperagent/internal/messaging/usecase"
	oppdomain "hyperagent/internal/opportunity/domain"
	"hyperagent/pkg/logging"
	"hyperagent/pkg/twitter"

	"github.com/gin-gonic/gin"
)

// MessagingHandler handles outbound replies and conversation history
type MessagingHandler struct {
	usecase usecase.MessagingUsecase
	logger  logging.Logger
}

func NewMessagingHandler(uc usecase.MessagingUsecase, logger logging.Logger) *MessagingHandler {
	return &MessagingHandler{usecase: uc, logger: logger}
}

type updateThreadStatusRequest struct {
	Status domain.ThreadStatus `json:"status" binding:"required"`
}

type connectTwitterRequest struct {
	AccessToken  string     `json:"accessToken" binding:"required"`
	RefreshToken string     `json:"refreshToken"`
	ExpiresAt    *time.Time `json:"expiresAt"`
}

func (h *MessagingHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrOpportunityIDRequired),
		errors.Is(err, domain.ErrMessageRequired),
		errors.Is(err, domain.ErrInvalidThreadStatus),
		errors.Is(err, domain.ErrNoRecipient),
		errors.Is(err, domain.ErrNoConversation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, oppdomain.ErrOpportunityNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "opportunity not found"})
	case errors.Is(err, domain.ErrThreadNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "thread not found"})
	case errors.Is(err, oppdomain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, twitter.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "twitter rejected the credentials"})
	case errors.Is(err, domain.ErrTwitterNotConnected):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrEmailNotConfigured), errors.Is(err, domain.ErrDraftUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrSendFailed):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
	default:
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("Messaging request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// SendEmail replies to an opportunity by email
// POST /api/messages/email
func (h *MessagingHandler) SendEmail(c *gin.Context) {
	var req usecase.SendEmailInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	msg, err := h.usecase.SendEmail(c.Request.Context(), c.GetString("celebrityID"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg})
}

// SendTwitter replies to an opportunity by DM
// POST /api/messages/twitter
func (h *MessagingHandler) SendTwitter(c *gin.Context) {
	var req usecase.SendTwitterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	msg, err := h.usecase.SendTwitter(c.Request.Context(), c.GetString("celebrityID"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg})
}

// GetThread returns the conversation of an opportunity
// GET /api/messages/thread?opportunityId=
func (h *MessagingHandler) GetThread(c *gin.Context) {
	view, err := h.usecase.GetThread(c.Request.Context(), c.GetString("celebrityID"), c.Query("opportunityId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// UpdateThreadStatus archives or flags a thread
// PATCH /api/messages/thread/:id/status
func (h *MessagingHandler) UpdateThreadStatus(c *gin.Context) {
	var req updateThreadStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}
	thread, err := h.usecase.UpdateThreadStatus(c.Request.Context(), c.GetString("celebrityID"), c.Param("id"), req.Status)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, thread)
}

// DraftReply writes a reply suggestion in the celebrity's voice
// POST /api/messages/draft
func (h *MessagingHandler) DraftReply(c *gin.Context) {
	var req usecase.DraftInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	draft, err := h.usecase.DraftReply(c.Request.Context(), c.GetString("celebrityID"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": draft})
}

// GetWritingStyle returns the caller's writing style
// GET /api/writing-style
func (h *MessagingHandler) GetWritingStyle(c *gin.Context) {
	style, err := h.usecase.GetWritingStyle(c.Request.Context(), c.GetString("celebrityID"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, style)
}

// SaveWritingStyle replaces the caller's writing style
// PUT /api/writing-style
func (h *MessagingHandler) SaveWritingStyle(c *gin.Context) {
	var req usecase.WritingStyleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	style, err := h.usecase.SaveWritingStyle(c.Request.Context(), c.GetString("celebrityID"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, style)
}

// ConnectTwitter stores OAuth2 credentials obtained by the frontend
// POST /api/twitter/connect
func (h *MessagingHandler) ConnectTwitter(c *gin.Context) {
	var req connectTwitterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "accessToken is required"})
		return
	}
	creds := twitter.Credentials{AccessToken: req.AccessToken, RefreshToken: req.RefreshToken}
	if req.ExpiresAt != nil {
		creds.ExpiresAt = *req.ExpiresAt
	}
	account, err := h.usecase.ConnectTwitter(c.Request.Context(), c.GetString("celebrityID"), creds)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}
