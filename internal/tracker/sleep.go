package tracker

import (
	"sync"

	"tasktrophy/internal/models"
	"tasktrophy/internal/repository"

	"go.uber.org/zap"
)

// SleepTracker records one bed/wake cycle per day from screen state events.
// Bedtime is a screen-off inside the bedtime window; wake is a screen-on
// inside the wake window after a recorded bedtime. A cycle spans midnight, so
// the rollover rule is conditional: a half-completed cycle (bedtime recorded,
// still awaiting wake) survives a date change, while a completed or inactive
// one resets.
type SleepTracker struct {
	mu    sync.Mutex
	log   *zap.Logger
	clock Clock
	repo  *repository.SleepRepo
	sink  Sink
	cfg   models.SleepTuning

	cycle models.SleepCycle
}

func NewSleepTracker(log *zap.Logger, clock Clock, repo *repository.SleepRepo, sink Sink, cfg models.SleepTuning) (*SleepTracker, error) {
	t := &SleepTracker{
		log:   log,
		clock: clock,
		repo:  repo,
		sink:  sink,
		cfg:   cfg,
	}
	latest, err := repo.Latest()
	if err != nil {
		return nil, err
	}
	today := DayKey(clock.Now())
	if latest == nil {
		t.cycle = models.NewSleepCycle(today)
	} else {
		t.cycle = *latest
		t.rolloverLocked()
	}
	return t, nil
}

// rolloverLocked applies the conditional reset: only a completed or inactive
// cycle resets on a new date. A user who joined yesterday evening and is
// still asleep keeps their half-completed cycle.
func (t *SleepTracker) rolloverLocked() {
	today := DayKey(t.clock.Now())
	if t.cycle.Date == today {
		return
	}
	if t.cycle.Complete() || !t.cycle.TrackingActive {
		t.log.Info("Sleep cycle rolled over",
			zap.String("from", t.cycle.Date), zap.String("to", today))
		t.cycle = models.NewSleepCycle(today)
		if err := t.repo.Save(&t.cycle); err != nil {
			t.log.Error("Failed to persist sleep rollover", zap.Error(err))
		}
	}
	// Bedtime recorded yesterday with no wake yet: keep tracking, the user is
	// sleeping.
}

func (t *SleepTracker) inBedtimeWindow() bool {
	hour := t.clock.Now().Hour()
	// The bedtime window wraps past midnight.
	return hour >= t.cfg.BedWindowStartHour || hour < t.cfg.BedWindowEndHour
}

func (t *SleepTracker) inWakeWindow() bool {
	hour := t.clock.Now().Hour()
	return hour >= t.cfg.WakeWindowStart && hour < t.cfg.WakeWindowEnd
}

// StartTracking begins a new cycle with the given target times. Called when
// the user joins the challenge.
func (t *SleepTracker) StartTracking(bedHour, bedMinute, wakeHour, wakeMinute int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cycle = models.NewSleepCycle(DayKey(t.clock.Now()))
	t.cycle.TrackingActive = true
	t.cycle.TargetBedHour = bedHour
	t.cycle.TargetBedMinute = bedMinute
	t.cycle.TargetWakeHour = wakeHour
	t.cycle.TargetWakeMinute = wakeMinute
	if err := t.repo.Save(&t.cycle); err != nil {
		t.log.Error("Failed to persist sleep start", zap.Error(err))
	}
	t.log.Debug("Sleep tracking started",
		zap.Int("bedHour", bedHour), zap.Int("wakeHour", wakeHour))
}

// StopTracking deactivates the cycle.
func (t *SleepTracker) StopTracking() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()

	t.cycle.TrackingActive = false
	if err := t.repo.Save(&t.cycle); err != nil {
		t.log.Error("Failed to persist sleep stop", zap.Error(err))
	}
}

// ReportScreenOff auto-records bedtime when inside the bedtime window.
func (t *SleepTracker) ReportScreenOff() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()

	if !t.cycle.TrackingActive || t.cycle.BedtimeRecorded || t.cycle.WaketimeRecorded {
		return
	}
	if !t.inBedtimeWindow() {
		return
	}
	t.cycle.BedtimeRecorded = true
	t.cycle.BedtimeMs = t.clock.Now().UnixMilli()
	if err := t.repo.Save(&t.cycle); err != nil {
		t.log.Error("Failed to persist bedtime", zap.Error(err))
	}
	t.log.Debug("Bedtime auto-detected", zap.Int64("ms", t.cycle.BedtimeMs))
	t.publish(EventBedtime)
}

// ReportScreenOn auto-records wake time when inside the wake window after a
// recorded bedtime. Recording it completes the challenge.
func (t *SleepTracker) ReportScreenOn() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()

	if !t.cycle.TrackingActive || !t.cycle.BedtimeRecorded || t.cycle.WaketimeRecorded {
		return
	}
	if !t.inWakeWindow() {
		return
	}
	t.cycle.WaketimeRecorded = true
	t.cycle.WaketimeMs = t.clock.Now().UnixMilli()
	if err := t.repo.Save(&t.cycle); err != nil {
		t.log.Error("Failed to persist wake time", zap.Error(err))
	}
	t.log.Debug("Wake time auto-detected", zap.Int64("ms", t.cycle.WaketimeMs))
	t.publish(EventWakeup)
}

// RecordBedtimeManual records bedtime on a "Going to Sleep" tap. Returns
// false when outside the window or already recorded.
func (t *SleepTracker) RecordBedtimeManual() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()

	if !t.cycle.TrackingActive || t.cycle.BedtimeRecorded || !t.inBedtimeWindow() {
		return false
	}
	t.cycle.BedtimeRecorded = true
	t.cycle.BedtimeMs = t.clock.Now().UnixMilli()
	if err := t.repo.Save(&t.cycle); err != nil {
		t.log.Error("Failed to persist manual bedtime", zap.Error(err))
	}
	return true
}

// RecordWaketimeManual records wake time on an "I'm Awake" tap. Returns false
// when outside the window or out of order.
func (t *SleepTracker) RecordWaketimeManual() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()

	if !t.cycle.TrackingActive || !t.cycle.BedtimeRecorded || t.cycle.WaketimeRecorded || !t.inWakeWindow() {
		return false
	}
	t.cycle.WaketimeRecorded = true
	t.cycle.WaketimeMs = t.clock.Now().UnixMilli()
	if err := t.repo.Save(&t.cycle); err != nil {
		t.log.Error("Failed to persist manual wake time", zap.Error(err))
	}
	return true
}

// TrackingActive reports whether a cycle is being tracked.
func (t *SleepTracker) TrackingActive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()
	return t.cycle.TrackingActive
}

// Status returns the point-in-time snapshot served to the page.
func (t *SleepTracker) Status() SleepStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()
	return t.statusLocked()
}

func (t *SleepTracker) statusLocked() SleepStatus {
	return SleepStatus{
		TrackingActive:   t.cycle.TrackingActive,
		BedtimeRecorded:  t.cycle.BedtimeRecorded,
		WaketimeRecorded: t.cycle.WaketimeRecorded,
		BedtimeMs:        t.cycle.BedtimeMs,
		WaketimeMs:       t.cycle.WaketimeMs,
		TargetBedHour:    t.cycle.TargetBedHour,
		TargetBedMinute:  t.cycle.TargetBedMinute,
		TargetWakeHour:   t.cycle.TargetWakeHour,
		TargetWakeMinute: t.cycle.TargetWakeMinute,
		InBedtimeWindow:  t.inBedtimeWindow(),
		InWakeWindow:     t.inWakeWindow(),
	}
}

func (t *SleepTracker) publish(name string) {
	t.sink.Publish(Event{Bridge: BridgeSleep, Name: name, Payload: t.statusLocked()})
}
