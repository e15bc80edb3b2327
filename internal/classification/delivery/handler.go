package delivery

import (
	"errors"
	"net/http"

	"hyperagent/internal/classification/domain"
	"hyperagent/internal/classification/usecase"
	"hyperagent/pkg/logging"

	"github.com/gin-gonic/gin"
)

type ClassificationHandler struct {
	sweeper usecase.SweepUsecase
	logger  logging.Logger
}

func NewClassificationHandler(sweeper usecase.SweepUsecase, logger logging.Logger) *ClassificationHandler {
	return &ClassificationHandler{sweeper: sweeper, logger: logger}
}

// RunSweep classifies one batch of new opportunities
// GET /api/cron/classify
func (h *ClassificationHandler) RunSweep(c *gin.Context) {
	report, err := h.sweeper.RunSweep(c.Request.Context())
	if err != nil {
		if errors.Is(err, domain.ErrSweepInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logger.WithError(err).Error("Classification sweep failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "classification failed"})
		return
	}
	c.JSON(http.StatusOK, report)
}
