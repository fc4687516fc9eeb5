package handlers

import (
	"net/http"
	"strconv"

	"tasktrophy/internal/tracker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RunHandler serves the Ghost Runner bridge namespace.
type RunHandler struct {
	log     *zap.Logger
	tracker *tracker.RunTracker
}

func NewRunHandler(log *zap.Logger, t *tracker.RunTracker) *RunHandler {
	return &RunHandler{log: log, tracker: t}
}

// Start is POST /bridge/ghostrunner/start.
func (h *RunHandler) Start(c *gin.Context) {
	if err := h.tracker.StartSession(); err != nil {
		c.JSON(statusForTrackerError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.tracker.Info())
}

// Stop is POST /bridge/ghostrunner/stop.
func (h *RunHandler) Stop(c *gin.Context) {
	h.tracker.StopSession()
	c.JSON(http.StatusOK, h.tracker.Info())
}

// Info is GET /bridge/ghostrunner/info: the snapshot getter the page polls.
func (h *RunHandler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, h.tracker.Info())
}

// Unsynced is GET /bridge/ghostrunner/points/unsynced: breadcrumbs awaiting
// upload by the sync collaborator.
func (h *RunHandler) Unsynced(c *gin.Context) {
	points, err := h.tracker.UnsyncedPoints()
	if err != nil {
		h.log.Error("Failed to read unsynced points", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read points"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"points": points})
}

// MarkSynced is POST /bridge/ghostrunner/points/synced/:seq: acknowledgment
// that breadcrumbs up to seq have been uploaded.
func (h *RunHandler) MarkSynced(c *gin.Context) {
	seq, err := strconv.Atoi(c.Param("seq"))
	if err != nil || seq < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sequence number"})
		return
	}
	h.tracker.MarkSynced(seq)
	c.Status(http.StatusNoContent)
}
