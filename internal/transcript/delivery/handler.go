package delivery

import (
	"errors"
	"net/http"

	oppdomain "hyperagent/internal/opportunity/domain"
	"hyperagent/internal/transcript/domain"
	"hyperagent/internal/transcript/usecase"
	"hyperagent/pkg/logging"

	"github.com/gin-gonic/gin"
)

type TranscriptHandler struct {
	usecase usecase.TranscriptUsecase
	logger  logging.Logger
}

func NewTranscriptHandler(uc usecase.TranscriptUsecase, logger logging.Logger) *TranscriptHandler {
	return &TranscriptHandler{usecase: uc, logger: logger}
}

type processRequest struct {
	OpportunityID string `json:"opportunityId"`
	Transcript    string `json:"transcript"`
}

type bulkRequest struct {
	Transcript     string   `json:"transcript"`
	OpportunityIDs []string `json:"opportunityIds"`
}

func (h *TranscriptHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrTranscriptRequired),
		errors.Is(err, domain.ErrOpportunityRequired),
		errors.Is(err, domain.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, oppdomain.ErrOpportunityNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "opportunity not found"})
	case errors.Is(err, domain.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, oppdomain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, domain.ErrSessionState), errors.Is(err, oppdomain.ErrRevisionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("Transcript request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// Process proposes an outcome for one opportunity
// POST /api/transcripts/process
func (h *TranscriptHandler) Process(c *gin.Context) {
	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	proposal, err := h.usecase.Process(c.Request.Context(), c.GetString("celebrityID"), req.OpportunityID, req.Transcript)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, proposal)
}

// ProcessBulk finds every opportunity discussed in a transcript
// POST /api/transcripts/process-bulk
func (h *TranscriptHandler) ProcessBulk(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	result, err := h.usecase.ProcessBulk(c.Request.Context(), c.GetString("celebrityID"), req.Transcript, req.OpportunityIDs)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Apply writes a reviewed proposal
// POST /api/transcripts/apply
func (h *TranscriptHandler) Apply(c *gin.Context) {
	var req domain.ApplyInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	opp, err := h.usecase.Apply(c.Request.Context(), c.GetString("celebrityID"), c.GetString("userID"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, opp)
}

// CreateSession processes a transcript and opens a review session
// POST /api/transcripts/sessions
func (h *TranscriptHandler) CreateSession(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	session, err := h.usecase.CreateSession(c.Request.Context(), c.GetString("celebrityID"), c.GetString("userID"), req.Transcript, req.OpportunityIDs)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// GET /api/transcripts/sessions/:id
func (h *TranscriptHandler) GetSession(c *gin.Context) {
	session, err := h.usecase.GetSession(c.Request.Context(), c.GetString("celebrityID"), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// ApplyCurrent applies the proposal under review, optionally edited
// POST /api/transcripts/sessions/:id/apply
func (h *TranscriptHandler) ApplyCurrent(c *gin.Context) {
	var edits usecase.ProposalEdits
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&edits); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	session, err := h.usecase.ApplyCurrent(c.Request.Context(), c.GetString("celebrityID"), c.GetString("userID"), c.Param("id"), edits)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// POST /api/transcripts/sessions/:id/skip
func (h *TranscriptHandler) SkipCurrent(c *gin.Context) {
	session, err := h.usecase.SkipCurrent(c.Request.Context(), c.GetString("celebrityID"), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}
