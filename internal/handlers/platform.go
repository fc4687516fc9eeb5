package handlers

import (
	"net/http"

	"tasktrophy/internal/device"
	"tasktrophy/internal/tracker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PlatformHandler is the ingestion surface the platform shell feeds raw
// samples through: sensor readings, location fixes, screen state broadcasts
// and capability changes. Screen events fan out to every tracker that cares.
type PlatformHandler struct {
	log     *zap.Logger
	state   *device.State
	profile *device.Profile
	hub     *EventHub
	steps   *tracker.StepTracker
	runs    *tracker.RunTracker
	focus   *tracker.FocusTracker
	sleep   *tracker.SleepTracker
}

func NewPlatformHandler(
	log *zap.Logger,
	state *device.State,
	profile *device.Profile,
	hub *EventHub,
	steps *tracker.StepTracker,
	runs *tracker.RunTracker,
	focus *tracker.FocusTracker,
	sleep *tracker.SleepTracker,
) *PlatformHandler {
	return &PlatformHandler{
		log:     log,
		state:   state,
		profile: profile,
		hub:     hub,
		steps:   steps,
		runs:    runs,
		focus:   focus,
		sleep:   sleep,
	}
}

type stepSampleRequest struct {
	Cumulative float64 `json:"cumulative" binding:"min=0"`
}

// StepSample is POST /platform/steps: one cumulative-since-boot counter
// reading.
func (h *PlatformHandler) StepSample(c *gin.Context) {
	var req stepSampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid step sample"})
		return
	}
	h.steps.ReportSensorSample(req.Cumulative)
	c.Status(http.StatusNoContent)
}

// LocationFix is POST /platform/location: one raw GPS fix.
func (h *PlatformHandler) LocationFix(c *gin.Context) {
	var fix tracker.Fix
	if err := c.ShouldBindJSON(&fix); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location fix"})
		return
	}
	if err := h.runs.ReportLocationFix(fix); err != nil {
		c.JSON(statusForTrackerError(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type screenEventRequest struct {
	State string `json:"state" binding:"required,oneof=off on present"`
}

// ScreenEvent is POST /platform/screen: a screen state broadcast. Both the
// Deep Work and Sleep trackers consume these, plus the shared device state.
func (h *PlatformHandler) ScreenEvent(c *gin.Context) {
	var req screenEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid screen event"})
		return
	}
	switch req.State {
	case "off":
		h.state.SetScreen(false, true)
		h.focus.ReportScreenOff()
		h.sleep.ReportScreenOff()
	case "on":
		// Screen lit but possibly still keyguarded.
		h.state.SetScreen(true, h.state.DeviceLocked())
		h.focus.ReportScreenOn()
		h.sleep.ReportScreenOn()
	case "present":
		h.state.SetScreen(true, false)
		h.focus.ReportUserPresent()
	}
	c.Status(http.StatusNoContent)
}

type capabilitiesRequest struct {
	ActivityRecognition *bool `json:"activityRecognition"`
	FineLocation        *bool `json:"fineLocation"`
	StepSensor          *bool `json:"stepSensor"`
	Gps                 *bool `json:"gps"`
}

// Capabilities is POST /platform/capabilities: permission grants and hardware
// availability as the shell observes them. Omitted fields keep their value.
func (h *PlatformHandler) Capabilities(c *gin.Context) {
	var req capabilitiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid capabilities"})
		return
	}

	activity := h.state.ActivityRecognitionGranted()
	location := h.state.FineLocationGranted()
	if req.ActivityRecognition != nil {
		activity = *req.ActivityRecognition
	}
	if req.FineLocation != nil {
		location = *req.FineLocation
	}
	h.state.SetGrants(activity, location)

	sensor := h.state.StepSensorAvailable()
	gps := h.state.GpsAvailable()
	if req.StepSensor != nil {
		sensor = *req.StepSensor
	}
	if req.Gps != nil {
		gps = *req.Gps
	}
	h.state.SetHardware(sensor, gps)

	c.Status(http.StatusNoContent)
}

// Status is GET /platform/status: one diagnostic snapshot across the bridge.
func (h *PlatformHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"installId":   h.profile.InstallID,
		"cloned":      h.profile.Cloned(),
		"subscribers": h.hub.SubscriberCount(),
		"stepking": gin.H{
			"steps":     h.steps.TodaySteps(),
			"listening": h.steps.Listening(),
		},
		"ghostrunner": h.runs.Info(),
		"deepwork":    h.focus.Info(),
		"sleep":       h.sleep.Status(),
	})
}
