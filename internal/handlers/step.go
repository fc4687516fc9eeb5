package handlers

import (
	"errors"
	"net/http"

	"tasktrophy/internal/tracker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StepHandler serves the Step King bridge namespace.
type StepHandler struct {
	log     *zap.Logger
	tracker *tracker.StepTracker
}

func NewStepHandler(log *zap.Logger, t *tracker.StepTracker) *StepHandler {
	return &StepHandler{log: log, tracker: t}
}

// Refresh is POST /bridge/stepking/refresh: arm the sensor listener and
// re-push the cached total.
func (h *StepHandler) Refresh(c *gin.Context) {
	if err := h.tracker.Refresh(); err != nil {
		c.JSON(statusForTrackerError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"steps": h.tracker.TodaySteps()})
}

// Count is GET /bridge/stepking/steps: the synchronous getter the page polls.
func (h *StepHandler) Count(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"steps":     h.tracker.TodaySteps(),
		"listening": h.tracker.Listening(),
	})
}

// statusForTrackerError maps the tracker error taxonomy onto HTTP statuses.
// The page keys off the named error events; the status is for plain clients.
func statusForTrackerError(err error) int {
	switch {
	case errors.Is(err, tracker.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, tracker.ErrCapabilityUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, tracker.ErrMockLocationDetected),
		errors.Is(err, tracker.ErrClonedAppSuspected),
		errors.Is(err, tracker.ErrTimezoneTamper):
		return http.StatusUnprocessableEntity
	case errors.Is(err, tracker.ErrTrialLimitReached),
		errors.Is(err, tracker.ErrOutsideActiveWindow):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
