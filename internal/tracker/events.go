package tracker

// Bridge namespaces, matching the command objects the hosted page sees.
const (
	BridgeStepKing    = "StepKing"
	BridgeGhostRunner = "GhostRunner"
	BridgeDeepWork    = "DeepWork"
	BridgeSleep       = "SleepTracker"
)

// Event names pushed to the page.
const (
	EventStepsUpdated      = "stepsUpdated"
	EventStepsError        = "stepsError"
	EventTrackingStarted   = "trackingStarted"
	EventTrackingStopped   = "trackingStopped"
	EventLocationUpdate    = "locationUpdate"
	EventGpsError          = "gpsError"
	EventChallengeComplete = "challengeComplete"
	EventTrialStarted      = "trialStarted"
	EventFocusBegan        = "focusBegan"
	EventScreenOn          = "screenOn"
	EventTrialEnded        = "trialEnded"
	EventMaxTrialsReached  = "maxTrialsReached"
	EventAppCloned         = "appCloned"
	EventTimezoneCheat     = "timezoneCheat"
	EventBedtime           = "bedtime"
	EventWakeup            = "wakeup"
)

// Event is one push notification for the page: a named event in a bridge
// namespace with a typed payload. The JSON encoding of the payload is strictly
// a boundary concern of the sink.
type Event struct {
	Bridge  string `json:"bridge"`
	Name    string `json:"event"`
	Payload any    `json:"payload"`
}

// Sink delivers events to the hosted page. Implementations must be
// non-blocking; delivery failures are the sink's to log (DeliveryFailure is
// never retried and never propagates back into tracker state).
type Sink interface {
	Publish(evt Event)
}

// ErrorPayload is the payload for named error events.
type ErrorPayload struct {
	Error string `json:"error"`
}

// StepsPayload accompanies stepsUpdated.
type StepsPayload struct {
	Steps int64 `json:"steps"`
}

// RunInfo is the Ghost Runner snapshot attached to every GhostRunner event
// and served by the info getter.
type RunInfo struct {
	SessionActive      bool    `json:"sessionActive"`
	TotalDistanceM     int     `json:"totalDistanceMeters"`
	QualifiedDistanceM int     `json:"qualifiedDistanceMeters"`
	TargetDistanceM    int     `json:"targetDistanceMeters"`
	MaxSpeedKmh        float64 `json:"maxSpeedKmh"`
	CurrentSpeedKmh    float64 `json:"currentSpeedKmh"`
	GpsPointCount      int     `json:"gpsPointsCount"`
	SessionsToday      int     `json:"sessionsToday"`
	InActiveWindow     bool    `json:"inActiveWindow"`
	SpeedZone          string  `json:"speedZone"`
	LastLat            float64 `json:"lastLat,omitempty"`
	LastLng            float64 `json:"lastLng,omitempty"`
	LastAccuracy       float64 `json:"lastAccuracy,omitempty"`
}

// FocusInfo is the Deep Work snapshot attached to DeepWork events and served
// by the info getter. Minute counters include the pending portion of an
// in-progress off-screen period.
type FocusInfo struct {
	SessionActive       bool   `json:"sessionActive"`
	TrialState          string `json:"trialState"`
	TrialCount          int    `json:"trialCount"`
	MaxTrials           int    `json:"maxTrials"`
	RemainingTrials     int    `json:"remainingTrials"`
	FocusMinutes        int    `json:"focusMinutes"`
	LongestStreak       int    `json:"longestStreak"`
	CurrentStreak       int    `json:"currentStreak"`
	CurrentTrialMinutes int    `json:"currentTrialMinutes"`
	CompletedTrials     int    `json:"completedTrials"`
	TimezoneFlagged     bool   `json:"timezoneFlagged"`
	EarnedMinutes       *int   `json:"earnedMinutes,omitempty"`
}

// SleepStatus is the Sleep Tracker snapshot attached to sleep events and
// served by the status getter.
type SleepStatus struct {
	TrackingActive   bool  `json:"trackingActive"`
	BedtimeRecorded  bool  `json:"bedtimeRecorded"`
	WaketimeRecorded bool  `json:"waketimeRecorded"`
	BedtimeMs        int64 `json:"bedtimeTimestamp"`
	WaketimeMs       int64 `json:"waketimeTimestamp"`
	TargetBedHour    int   `json:"targetBedHour"`
	TargetBedMinute  int   `json:"targetBedMinute"`
	TargetWakeHour   int   `json:"targetWakeHour"`
	TargetWakeMinute int   `json:"targetWakeMinute"`
	InBedtimeWindow  bool  `json:"inBedtimeWindow"`
	InWakeWindow     bool  `json:"inWakeWindow"`
}

// Capabilities is the platform capability check surface consumed by trackers.
// device.State implements it.
type Capabilities interface {
	ActivityRecognitionGranted() bool
	StepSensorAvailable() bool
	FineLocationGranted() bool
	GpsAvailable() bool
	ScreenInteractive() bool
	DeviceLocked() bool
}

// CloneChecker is the app-clone heuristic surface. device.Profile implements
// it; the check must fail open on internal error.
type CloneChecker interface {
	Cloned() bool
}
