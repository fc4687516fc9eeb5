package handlers

import (
	"net/http"

	"tasktrophy/internal/tracker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FocusHandler serves the Deep Work bridge namespace.
type FocusHandler struct {
	log     *zap.Logger
	tracker *tracker.FocusTracker
}

func NewFocusHandler(log *zap.Logger, t *tracker.FocusTracker) *FocusHandler {
	return &FocusHandler{log: log, tracker: t}
}

// Start is POST /bridge/deepwork/start: arm a new trial.
func (h *FocusHandler) Start(c *gin.Context) {
	if err := h.tracker.StartTrial(); err != nil {
		c.JSON(statusForTrackerError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.tracker.Info())
}

// Check is POST /bridge/deepwork/check: the page's visibility-driven poll.
// A visible page during FOCUSING means the user has unlocked.
func (h *FocusHandler) Check(c *gin.Context) {
	h.tracker.CheckTrialState()
	c.JSON(http.StatusOK, h.tracker.Info())
}

// Info is GET /bridge/deepwork/info: the snapshot getter, minute counters
// including any in-progress off-screen time.
func (h *FocusHandler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, h.tracker.Info())
}
