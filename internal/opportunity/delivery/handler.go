package delivery

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"hyperagent/internal/opportunity/domain"
	"hyperagent/internal/opportunity/usecase"
	"hyperagent/pkg/logging"

	"github.com/gin-gonic/gin"
)

// OpportunityHandler handles opportunity review requests
type OpportunityHandler struct {
	oppUsecase  usecase.OpportunityUsecase
	goalUsecase usecase.GoalUsecase
	logger      logging.Logger
}

func NewOpportunityHandler(oppUsecase usecase.OpportunityUsecase, goalUsecase usecase.GoalUsecase, logger logging.Logger) *OpportunityHandler {
	return &OpportunityHandler{
		oppUsecase:  oppUsecase,
		goalUsecase: goalUsecase,
		logger:      logger,
	}
}

// ActionRequest is the tagged union body of POST /api/opportunities/:id/actions
type ActionRequest struct {
	Type             domain.ActionType `json:"type" binding:"required"`
	Payload          json.RawMessage   `json:"payload"`
	ExpectedRevision *int              `json:"expectedRevision"`
}

// SemanticSearchRequest is the body of POST /api/opportunities/semantic-search
type SemanticSearchRequest struct {
	Query string `json:"query" binding:"required"`
	Limit int    `json:"limit"`
}

// writeError maps domain errors to status codes. Anything unknown is logged
// and reported as a generic 500.
func (h *OpportunityHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrOpportunityNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "opportunity not found"})
	case errors.Is(err, domain.ErrGoalNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "goal not found"})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, domain.ErrRevisionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotClassified):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidAction), errors.Is(err, domain.ErrInvalidGoal):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrSearchUnavailable), errors.Is(err, domain.ErrResearchUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("Opportunity request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// ListOpportunities returns the caller's opportunities
// GET /api/opportunities?status=&source=&goalId=&needsDiscussion=&limit=50&offset=0
func (h *OpportunityHandler) ListOpportunities(c *gin.Context) {
	filter := domain.ListFilter{CelebrityID: c.GetString("celebrityID")}

	if s := c.Query("status"); s != "" {
		status := domain.Status(s)
		if !status.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		filter.Status = &status
	}
	if s := c.Query("source"); s != "" {
		source := domain.Source(s)
		if !source.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid source"})
			return
		}
		filter.Source = &source
	}
	if g := c.Query("goalId"); g != "" {
		filter.GoalID = &g
	}
	if nd := c.Query("needsDiscussion"); nd != "" {
		v, err := strconv.ParseBool(nd)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid needsDiscussion"})
			return
		}
		filter.NeedsDiscussion = &v
	}
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	opps, total, err := h.oppUsecase.ListOpportunities(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"opportunities": opps,
		"total":         total,
	})
}

// GetOpportunity returns one opportunity
// GET /api/opportunities/:id
func (h *OpportunityHandler) GetOpportunity(c *gin.Context) {
	opp, err := h.oppUsecase.GetOpportunity(c.Request.Context(), c.GetString("celebrityID"), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, opp)
}

// ListComments returns an opportunity's comments, oldest first
// GET /api/opportunities/:id/comments
func (h *OpportunityHandler) ListComments(c *gin.Context) {
	comments, err := h.oppUsecase.ListComments(c.Request.Context(), c.GetString("celebrityID"), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if comments == nil {
		comments = []*domain.Comment{}
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

// ApplyAction runs one manual override
// POST /api/opportunities/:id/actions
func (h *OpportunityHandler) ApplyAction(c *gin.Context) {
	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type is required"})
		return
	}

	action, err := domain.DecodeAction(req.Type, req.Payload)
	if err != nil {
		h.writeError(c, err)
		return
	}

	opp, err := h.oppUsecase.ApplyAction(
		c.Request.Context(),
		c.GetString("celebrityID"),
		c.GetString("userID"),
		c.Param("id"),
		action,
		req.ExpectedRevision,
	)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, opp)
}

// Search runs a typo-tolerant keyword search
// GET /api/opportunities/search?q=podcast&limit=20
func (h *OpportunityHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	results, err := h.oppUsecase.Search(c.Request.Context(), c.GetString("celebrityID"), query, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// SemanticSearch ranks opportunities by meaning
// POST /api/opportunities/semantic-search
func (h *OpportunityHandler) SemanticSearch(c *gin.Context) {
	var req SemanticSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	results, err := h.oppUsecase.SemanticSearch(c.Request.Context(), c.GetString("celebrityID"), req.Query, req.Limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// ResearchSender looks the sender up and stores the findings
// POST /api/opportunities/:id/research
func (h *OpportunityHandler) ResearchSender(c *gin.Context) {
	opp, err := h.oppUsecase.ResearchSender(c.Request.Context(), c.GetString("celebrityID"), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, opp)
}

// ListGoals returns goals by descending priority
// GET /api/goals
func (h *OpportunityHandler) ListGoals(c *gin.Context) {
	goals, err := h.goalUsecase.ListGoals(c.Request.Context(), c.GetString("celebrityID"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if goals == nil {
		goals = []*domain.Goal{}
	}
	c.JSON(http.StatusOK, gin.H{"goals": goals})
}

// CreateGoal adds a goal
// POST /api/goals
func (h *OpportunityHandler) CreateGoal(c *gin.Context) {
	var input usecase.GoalInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	goal, err := h.goalUsecase.CreateGoal(c.Request.Context(), c.GetString("celebrityID"), input)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, goal)
}

// UpdateGoal replaces a goal's editable fields
// PUT /api/goals/:id
func (h *OpportunityHandler) UpdateGoal(c *gin.Context) {
	var input usecase.GoalInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	goal, err := h.goalUsecase.UpdateGoal(c.Request.Context(), c.GetString("celebrityID"), c.Param("id"), input)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, goal)
}

// DeleteGoal removes a goal
// DELETE /api/goals/:id
func (h *OpportunityHandler) DeleteGoal(c *gin.Context) {
	if err := h.goalUsecase.DeleteGoal(c.Request.Context(), c.GetString("celebrityID"), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Goal deleted"})
}
