package delivery

import (
	"errors"
	"net/http"

	"hyperagent/internal/ingestion/domain"
	"hyperagent/internal/ingestion/usecase"
	oppdomain "hyperagent/internal/opportunity/domain"
	"hyperagent/pkg/logging"
	"hyperagent/pkg/mailgun"

	"github.com/gin-gonic/gin"
)

// IngestionHandler exposes the public intake endpoints
type IngestionHandler struct {
	usecase usecase.IngestionUsecase
	logger  logging.Logger
}

func NewIngestionHandler(uc usecase.IngestionUsecase, logger logging.Logger) *IngestionHandler {
	return &IngestionHandler{usecase: uc, logger: logger}
}

// SubmitWidget accepts a contact-form submission
// POST /api/widget/submit
func (h *IngestionHandler) SubmitWidget(c *gin.Context) {
	var req domain.WidgetSubmission
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	opp, err := h.usecase.SubmitWidget(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCelebrityIDRequired),
			errors.Is(err, domain.ErrEmailRequired),
			errors.Is(err, domain.ErrInvalidEmail),
			errors.Is(err, domain.ErrMessageRequired):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, oppdomain.ErrCelebrityNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "celebrity not found"})
		default:
			h.logger.WithError(err).WithField("celebrity_id", req.CelebrityID).Error("Widget submission failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit message"})
		}
		return
	}
	c.JSON(http.StatusCreated, opp)
}

// MailgunWebhook receives inbound email routed by Mailgun
// POST /api/webhooks/mailgun
func (h *IngestionHandler) MailgunWebhook(c *gin.Context) {
	in := domain.InboundEmail{
		Timestamp:    c.PostForm("timestamp"),
		Token:        c.PostForm("token"),
		Signature:    c.PostForm("signature"),
		Recipient:    c.PostForm("recipient"),
		Sender:       c.PostForm("sender"),
		From:         c.PostForm("from"),
		Subject:      c.PostForm("subject"),
		BodyPlain:    c.PostForm("body-plain"),
		StrippedText: c.PostForm("stripped-text"),
		MessageID:    c.PostForm("Message-Id"),
	}

	result, err := h.usecase.HandleInboundEmail(c.Request.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, mailgun.ErrInvalidSignature):
			h.logger.WithField("recipient", in.Recipient).Warn("Rejected mailgun webhook with invalid signature")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid signature"})
		case errors.Is(err, oppdomain.ErrOpportunityNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "opportunity not found"})
		case errors.Is(err, domain.ErrUnknownRecipient):
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown recipient"})
		default:
			h.logger.WithError(err).WithField("recipient", in.Recipient).Error("Failed to process inbound email")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process email"})
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

// SyncTwitter runs one DM sweep over every connected account
// GET /api/cron/twitter-dms
func (h *IngestionHandler) SyncTwitter(c *gin.Context) {
	report, err := h.usecase.SyncTwitter(c.Request.Context())
	if err != nil {
		if errors.Is(err, domain.ErrTwitterDisabled) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		h.logger.WithError(err).Error("Twitter DM sweep failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "twitter sync failed"})
		return
	}
	c.JSON(http.StatusOK, report)
}
