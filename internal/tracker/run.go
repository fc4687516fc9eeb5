package tracker

import (
	"math"
	"sync"

	"tasktrophy/internal/models"
	"tasktrophy/internal/repository"

	"go.uber.org/zap"
)

// fixRef is the last accepted fix, used as the distance origin for the next.
type fixRef struct {
	lat, lng    float64
	accuracy    float64
	timestampMs int64
}

// Fix is one raw location callback from the platform.
type Fix struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	AccuracyM   float64 `json:"accuracy"`
	SpeedMs     float64 `json:"speed"`
	Altitude    float64 `json:"altitude"`
	TimestampMs int64   `json:"timestamp"`
	Mock        bool    `json:"mock"`
}

// RunTracker is the Ghost Runner daily distance challenge: GPS fixes in,
// filtered cumulative distance out. Multiple tracking sessions per day feed
// the same accumulators; only the smoothing buffer and last-fix reference
// reset between sessions so the gap produces no phantom distance.
type RunTracker struct {
	mu    sync.Mutex
	log   *zap.Logger
	clock Clock
	caps  Capabilities
	repo  *repository.RunRepo
	sink  Sink
	cfg   models.GhostRunnerTuning

	day            models.RunDay
	pending        []models.GpsPoint
	lastFix        *fixRef
	smoother       speedSmoother
	currentSpeedMs float64
}

func NewRunTracker(log *zap.Logger, clock Clock, caps Capabilities, repo *repository.RunRepo, sink Sink, cfg models.GhostRunnerTuning) (*RunTracker, error) {
	t := &RunTracker{
		log:   log,
		clock: clock,
		caps:  caps,
		repo:  repo,
		sink:  sink,
		cfg:   cfg,
	}
	day, err := repo.Load(DayKey(clock.Now()))
	if err != nil {
		return nil, err
	}
	t.day = day

	// Restore the distance origin from the last persisted breadcrumb so a
	// process restart mid-session doesn't credit the gap as movement.
	if day.SessionActive {
		last, err := repo.LastPoint(day.Date)
		if err != nil {
			return nil, err
		}
		if last != nil {
			t.lastFix = &fixRef{
				lat: last.Lat, lng: last.Lng,
				accuracy:    last.Accuracy,
				timestampMs: last.TimestampMs,
			}
		}
		log.Debug("Resuming tracking session",
			zap.Float64("qualifiedM", day.QualifiedDistanceM),
			zap.Float64("totalM", day.TotalDistanceM))
	}
	return t, nil
}

func (t *RunTracker) rolloverLocked() {
	today := DayKey(t.clock.Now())
	if t.day.Date == today {
		return
	}
	t.log.Info("Run day rolled over",
		zap.String("from", t.day.Date), zap.String("to", today))
	t.day = models.NewRunDay(today)
	t.pending = nil
	t.lastFix = nil
	t.smoother.reset()
	t.currentSpeedMs = 0
	if err := t.repo.Save(&t.day); err != nil {
		t.log.Error("Failed to persist run rollover", zap.Error(err))
	}
	if err := t.repo.DeletePoints(today); err != nil {
		t.log.Error("Failed to drop stale breadcrumbs", zap.Error(err))
	}
}

func (t *RunTracker) inActiveWindow() bool {
	return t.clock.Now().Hour() >= t.cfg.ActiveFromHour
}

// StartSession begins a tracking session. Can be called multiple times per
// day; distance accumulates across sessions.
func (t *RunTracker) StartSession() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()

	if t.day.SessionActive {
		return nil
	}
	if !t.caps.FineLocationGranted() {
		t.publishError("Location permission not granted")
		return ErrPermissionDenied
	}
	if !t.caps.GpsAvailable() {
		t.publishError("No GPS available on this device")
		return ErrCapabilityUnavailable
	}
	if !t.inActiveWindow() {
		t.publishError("Challenge active only between 5 AM and midnight")
		return ErrOutsideActiveWindow
	}

	t.day.SessionActive = true
	t.day.SessionStartMs = t.clock.Now().UnixMilli()
	t.day.SessionsToday++

	// Fresh smoothing window and distance origin; accumulated distances keep.
	t.smoother.reset()
	t.currentSpeedMs = 0
	t.lastFix = nil

	if err := t.repo.Save(&t.day); err != nil {
		t.log.Error("Failed to persist session start", zap.Error(err))
	}
	t.log.Debug("Tracking session started",
		zap.Int("session", t.day.SessionsToday),
		zap.Float64("qualifiedM", t.day.QualifiedDistanceM))
	t.publish(EventTrackingStarted)
	return nil
}

// StopSession ends the current tracking session. Distance is preserved.
func (t *RunTracker) StopSession() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()

	if !t.day.SessionActive {
		return
	}
	t.day.SessionActive = false
	t.flushLocked()
	if err := t.repo.Save(&t.day); err != nil {
		t.log.Error("Failed to persist session stop", zap.Error(err))
	}
	t.log.Debug("Tracking session stopped",
		zap.Float64("qualifiedM", t.day.QualifiedDistanceM),
		zap.Float64("totalM", t.day.TotalDistanceM))
	t.publish(EventTrackingStopped)
}

// ReportLocationFix runs one raw fix through the filter chain and updates the
// daily accumulators.
func (t *RunTracker) ReportLocationFix(fix Fix) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()

	if !t.day.SessionActive {
		return nil
	}

	// Hard reject poor accuracy.
	if fix.AccuracyM > t.cfg.MaxAccuracyM {
		return nil
	}

	// Software-simulated fixes are a hard anti-cheat gate, not a silent drop.
	if fix.Mock {
		t.log.Warn("Mock location detected, ignoring fix")
		t.publishError("Mock location detected")
		return ErrMockLocationDetected
	}

	// Rapid-fire duplicate suppression.
	if t.lastFix != nil && fix.TimestampMs-t.lastFix.timestampMs < t.cfg.MinIntervalMs {
		return nil
	}

	smoothed := t.smoother.add(fix.SpeedMs)
	t.currentSpeedMs = smoothed
	smoothedKmh := smoothed * 3.6

	added := 0.0
	qualifies := false
	if t.lastFix != nil {
		added = HaversineMeters(t.lastFix.lat, t.lastFix.lng, fix.Lat, fix.Lng)

		// Below the GPS noise floor.
		if added < t.cfg.MinDistanceM {
			added = 0
		}

		// Stationary drift: both smoothed and raw speed below standstill.
		if smoothed < t.cfg.StandstillSpeedMs && fix.SpeedMs < t.cfg.StandstillSpeedMs {
			added = 0
		}

		// Mediocre accuracy with a small candidate distance.
		if fix.AccuracyM > t.cfg.GoodAccuracyM && added < 5.0 {
			added = 0
		}

		// Teleport detection: implied speed far beyond plausible over a
		// non-trivial distance.
		elapsed := float64(fix.TimestampMs-t.lastFix.timestampMs) / 1000.0
		if elapsed > 0 {
			maxPossible := (t.cfg.MaxPlausibleKmh / 3.6) * elapsed * 1.5
			if added > maxPossible && added > 50 {
				t.log.Warn("Teleport detected",
					zap.Float64("meters", added), zap.Float64("seconds", elapsed))
				added = 0
			}
		}

		if smoothedKmh >= t.cfg.MinQualifySpeedKmh && smoothedKmh <= t.cfg.MaxQualifySpeedKmh &&
			added > 0 && fix.AccuracyM <= t.cfg.GoodAccuracyM {
			qualifies = true
		}
	}

	if added > 0 && fix.AccuracyM <= t.cfg.GoodAccuracyM {
		t.day.TotalDistanceM += added
		if qualifies {
			t.day.QualifiedDistanceM += added
		}
	}

	// Running max, discarding implausible spikes as sensor glitches.
	if smoothedKmh > t.day.MaxSpeedKmh && smoothedKmh < t.cfg.SpeedSpikeCapKmh {
		t.day.MaxSpeedKmh = smoothedKmh
	}

	t.day.GpsPointCount++
	t.pending = append(t.pending, models.GpsPoint{
		RunDate:     t.day.Date,
		Seq:         t.day.GpsPointCount,
		Lat:         fix.Lat,
		Lng:         fix.Lng,
		Accuracy:    fix.AccuracyM,
		Speed:       fix.SpeedMs,
		Altitude:    fix.Altitude,
		TimestampMs: fix.TimestampMs,
		Qualified:   qualifies,
	})

	t.lastFix = &fixRef{
		lat: fix.Lat, lng: fix.Lng,
		accuracy:    fix.AccuracyM,
		timestampMs: fix.TimestampMs,
	}

	// Bound write frequency: persist every Nth sample.
	if t.day.GpsPointCount%t.cfg.PersistEveryN == 0 {
		t.flushLocked()
		if err := t.repo.Save(&t.day); err != nil {
			t.log.Error("Failed to persist run day", zap.Error(err))
		}
	}

	t.publish(EventLocationUpdate)

	if t.autoFinish() && t.day.QualifiedDistanceM >= t.cfg.TargetDistanceM {
		t.day.SessionActive = false
		t.flushLocked()
		if err := t.repo.Save(&t.day); err != nil {
			t.log.Error("Failed to persist challenge completion", zap.Error(err))
		}
		t.log.Info("Daily distance target reached",
			zap.Float64("qualifiedM", t.day.QualifiedDistanceM))
		t.publish(EventChallengeComplete)
	}
	return nil
}

func (t *RunTracker) autoFinish() bool {
	return t.cfg.AutoFinishAtTarget == nil || *t.cfg.AutoFinishAtTarget
}

// flushLocked writes buffered breadcrumbs, trimming storage to the cap. The
// running totals are unaffected by the trim.
func (t *RunTracker) flushLocked() {
	if len(t.pending) == 0 {
		return
	}
	if err := t.repo.SavePoints(t.day.Date, t.pending, t.cfg.BreadcrumbCap); err != nil {
		t.log.Error("Failed to persist breadcrumbs", zap.Error(err))
		return
	}
	t.pending = nil
}

// SessionActive reports whether a tracking session is running.
func (t *RunTracker) SessionActive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()
	return t.day.SessionActive
}

// Info returns the point-in-time snapshot served to the page.
func (t *RunTracker) Info() RunInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()
	return t.infoLocked()
}

func (t *RunTracker) infoLocked() RunInfo {
	info := RunInfo{
		SessionActive:      t.day.SessionActive,
		TotalDistanceM:     int(t.day.TotalDistanceM),
		QualifiedDistanceM: int(t.day.QualifiedDistanceM),
		TargetDistanceM:    int(t.cfg.TargetDistanceM),
		MaxSpeedKmh:        math.Round(t.day.MaxSpeedKmh*10) / 10,
		CurrentSpeedKmh:    math.Round(t.currentSpeedMs*3.6*10) / 10,
		GpsPointCount:      t.day.GpsPointCount,
		SessionsToday:      t.day.SessionsToday,
		InActiveWindow:     t.inActiveWindow(),
		SpeedZone:          t.speedZoneLocked(),
	}
	if t.lastFix != nil {
		info.LastLat = t.lastFix.lat
		info.LastLng = t.lastFix.lng
		info.LastAccuracy = t.lastFix.accuracy
	}
	return info
}

// speedZoneLocked buckets the current smoothed speed for the UI.
func (t *RunTracker) speedZoneLocked() string {
	kmh := t.currentSpeedMs * 3.6
	switch {
	case kmh < 1.0:
		return "stationary"
	case kmh < t.cfg.MinQualifySpeedKmh:
		return "strolling"
	case kmh <= t.cfg.MaxQualifySpeedKmh:
		return "active"
	case kmh <= t.cfg.MaxPlausibleKmh:
		return "too_fast"
	default:
		return "flagged"
	}
}

// UnsyncedPoints returns breadcrumbs not yet acknowledged by the sync
// collaborator, in sequence order.
func (t *RunTracker) UnsyncedPoints() ([]models.GpsPoint, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()
	t.flushLocked()
	return t.repo.PointsAfter(t.day.Date, t.day.LastSyncedSeq)
}

// MarkSynced records that breadcrumbs up to seq have been uploaded.
func (t *RunTracker) MarkSynced(seq int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()
	t.day.LastSyncedSeq = seq
	if err := t.repo.Save(&t.day); err != nil {
		t.log.Error("Failed to persist synced seq", zap.Error(err))
	}
}

// Shutdown flushes pending state on clean teardown.
func (t *RunTracker) Shutdown() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.flushLocked()
	if err := t.repo.Save(&t.day); err != nil {
		t.log.Error("Failed to persist run day on shutdown", zap.Error(err))
	}
}

func (t *RunTracker) publish(name string) {
	t.sink.Publish(Event{Bridge: BridgeGhostRunner, Name: name, Payload: t.infoLocked()})
}

func (t *RunTracker) publishError(msg string) {
	t.sink.Publish(Event{Bridge: BridgeGhostRunner, Name: EventGpsError, Payload: ErrorPayload{Error: msg}})
}
