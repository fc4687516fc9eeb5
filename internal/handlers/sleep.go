package handlers

import (
	"net/http"

	"tasktrophy/internal/tracker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SleepHandler serves the Sleep Tracker bridge namespace.
type SleepHandler struct {
	log     *zap.Logger
	tracker *tracker.SleepTracker
}

func NewSleepHandler(log *zap.Logger, t *tracker.SleepTracker) *SleepHandler {
	return &SleepHandler{log: log, tracker: t}
}

type startSleepRequest struct {
	BedHour    int `json:"bedHour" binding:"min=0,max=23"`
	BedMinute  int `json:"bedMinute" binding:"min=0,max=59"`
	WakeHour   int `json:"wakeHour" binding:"min=0,max=23"`
	WakeMinute int `json:"wakeMinute" binding:"min=0,max=59"`
}

// Start is POST /bridge/sleep/start: join the challenge with target times.
func (h *SleepHandler) Start(c *gin.Context) {
	var req startSleepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid target times"})
		return
	}
	h.tracker.StartTracking(req.BedHour, req.BedMinute, req.WakeHour, req.WakeMinute)
	c.JSON(http.StatusOK, h.tracker.Status())
}

// Stop is POST /bridge/sleep/stop.
func (h *SleepHandler) Stop(c *gin.Context) {
	h.tracker.StopTracking()
	c.JSON(http.StatusOK, h.tracker.Status())
}

// Status is GET /bridge/sleep/status.
func (h *SleepHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.tracker.Status())
}

// Bedtime is POST /bridge/sleep/bedtime: the "Going to Sleep" button.
func (h *SleepHandler) Bedtime(c *gin.Context) {
	if !h.tracker.RecordBedtimeManual() {
		c.JSON(http.StatusConflict, gin.H{"error": "bedtime not recordable now"})
		return
	}
	c.JSON(http.StatusOK, h.tracker.Status())
}

// Wake is POST /bridge/sleep/wake: the "I'm Awake" button.
func (h *SleepHandler) Wake(c *gin.Context) {
	if !h.tracker.RecordWaketimeManual() {
		c.JSON(http.StatusConflict, gin.H{"error": "wake time not recordable now"})
		return
	}
	c.JSON(http.StatusOK, h.tracker.Status())
}
