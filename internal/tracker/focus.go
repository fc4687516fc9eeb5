package tracker

import (
	"sync"
	"time"

	"tasktrophy/internal/models"
	"tasktrophy/internal/repository"

	"go.uber.org/zap"
)

// FocusTracker is the Deep Work trial machine: the user arms a trial, locks
// the phone to start the timer, and the trial ends on confirmed unlock. Up to
// MaxTrialsPerDay trials per calendar day. Timezone changes during a trial
// void its minutes; a clone-suspect install cannot start trials at all.
//
// The confirmed-unlock broadcast is unreliable on some devices, so there are
// two fallbacks: a delayed keyguard recheck after screen-on, and a UI-driven
// poll (CheckTrialState).
type FocusTracker struct {
	mu    sync.Mutex
	log   *zap.Logger
	clock Clock
	caps  Capabilities
	clone CloneChecker
	repo  *repository.FocusRepo
	sink  Sink
	cfg   models.DeepWorkTuning

	// after schedules the delayed keyguard recheck; injectable for tests.
	after func(d time.Duration, f func())

	day models.FocusDay
}

func NewFocusTracker(log *zap.Logger, clock Clock, caps Capabilities, clone CloneChecker, repo *repository.FocusRepo, sink Sink, cfg models.DeepWorkTuning) (*FocusTracker, error) {
	t := &FocusTracker{
		log:   log,
		clock: clock,
		caps:  caps,
		clone: clone,
		repo:  repo,
		sink:  sink,
		cfg:   cfg,
		after: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
	day, err := repo.Load(DayKey(clock.Now()))
	if err != nil {
		return nil, err
	}
	t.day = day

	// If the process died while FOCUSING with the screen off, fold the
	// elapsed interval in and restart the baseline from now.
	if t.day.TrialState == models.TrialFocusing && t.day.ScreenOffSinceMs > 0 {
		nowMs := clock.Now().UnixMilli()
		elapsed := int((nowMs - t.day.ScreenOffSinceMs) / 60000)
		if elapsed > 0 {
			t.creditLocked(elapsed)
			t.day.ScreenOffSinceMs = nowMs
			if err := repo.Save(&t.day); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

// SetAfter overrides the recheck scheduler. Test hook.
func (t *FocusTracker) SetAfter(after func(d time.Duration, f func())) {
	t.after = after
}

func (t *FocusTracker) rolloverLocked() {
	today := DayKey(t.clock.Now())
	if t.day.Date == today {
		return
	}
	t.log.Info("Focus day rolled over",
		zap.String("from", t.day.Date), zap.String("to", today))
	t.day = models.NewFocusDay(today)
	if err := t.repo.Save(&t.day); err != nil {
		t.log.Error("Failed to persist focus rollover", zap.Error(err))
	}
}

// creditLocked folds earned minutes into the daily totals and the longest
// trial high-water mark.
func (t *FocusTracker) creditLocked(minutes int) {
	if minutes <= 0 {
		return
	}
	t.day.FocusMinutes += minutes
	t.day.CurrentStreak += minutes
	if t.day.CurrentStreak > t.day.LongestStreak {
		t.day.LongestStreak = t.day.CurrentStreak
	}
}

// StartTrial arms a new trial (state WAITING_FOR_LOCK). The user must lock
// the phone to begin focusing.
func (t *FocusTracker) StartTrial() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()

	if t.day.TrialState != models.TrialIdle {
		t.log.Debug("startTrial ignored, trial already in progress",
			zap.String("state", t.day.TrialState))
		return nil
	}
	if t.clone.Cloned() {
		t.log.Warn("startTrial blocked, app cloner detected")
		t.publish(EventAppCloned, nil)
		return ErrClonedAppSuspected
	}
	if t.day.TrialCount >= t.cfg.MaxTrialsPerDay {
		t.log.Debug("startTrial ignored, max trials reached",
			zap.Int("max", t.cfg.MaxTrialsPerDay))
		t.publish(EventMaxTrialsReached, nil)
		return ErrTrialLimitReached
	}

	// Timezone offset at trial start is the tamper baseline.
	t.day.TimezoneOffsetMs = tzOffsetMs(t.clock.Now())
	t.day.TimezoneFlagged = false
	t.day.TrialState = models.TrialWaitingForLock
	t.day.CurrentStreak = 0
	t.day.ScreenOffSinceMs = 0
	t.day.TrialCount++
	if err := t.repo.Save(&t.day); err != nil {
		t.log.Error("Failed to persist trial start", zap.Error(err))
	}
	t.log.Debug("Trial started", zap.Int("trial", t.day.TrialCount))
	t.publish(EventTrialStarted, nil)

	// Screen may already be off when the trial is armed.
	if !t.caps.ScreenInteractive() {
		t.screenOffLocked()
	}
	return nil
}

// ReportScreenOff feeds a screen-off broadcast.
func (t *FocusTracker) ReportScreenOff() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()
	t.screenOffLocked()
}

func (t *FocusTracker) screenOffLocked() {
	switch t.day.TrialState {
	case models.TrialWaitingForLock:
		t.checkTimezoneLocked()
		t.day.TrialState = models.TrialFocusing
		t.day.ScreenOffSinceMs = t.clock.Now().UnixMilli()
		t.day.CurrentStreak = 0
		if err := t.repo.Save(&t.day); err != nil {
			t.log.Error("Failed to persist focus begin", zap.Error(err))
		}
		t.log.Debug("Screen off while waiting, timer started")
		t.publish(EventFocusBegan, nil)
	case models.TrialFocusing:
		// Duplicate broadcast while a timer is already running is a no-op.
		if t.day.ScreenOffSinceMs <= 0 {
			t.day.ScreenOffSinceMs = t.clock.Now().UnixMilli()
			if err := t.repo.Save(&t.day); err != nil {
				t.log.Error("Failed to persist off timestamp", zap.Error(err))
			}
		}
	}
}

// ReportScreenOn feeds a screen-on broadcast. The confirmed-unlock broadcast
// doesn't fire on all devices, so a delayed keyguard check ends the trial if
// the device reports itself unlocked and no confirmation arrived meanwhile.
func (t *FocusTracker) ReportScreenOn() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()

	if t.day.TrialState != models.TrialFocusing || t.day.ScreenOffSinceMs <= 0 {
		return
	}
	t.publish(EventScreenOn, nil)

	t.after(time.Duration(t.cfg.KeyguardRecheckMs)*time.Millisecond, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		// Self-invalidating: the trial may have ended while we waited.
		if t.day.TrialState != models.TrialFocusing {
			return
		}
		if !t.caps.DeviceLocked() {
			t.log.Debug("Keyguard not locked after screen on, ending trial")
			t.confirmUnlockLocked()
		}
	})
}

// ReportUserPresent feeds a confirmed-unlock broadcast.
func (t *FocusTracker) ReportUserPresent() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()

	switch t.day.TrialState {
	case models.TrialFocusing:
		t.confirmUnlockLocked()
	case models.TrialWaitingForLock:
		// Power pressed and released without a full lock cycle; keep waiting.
		t.log.Debug("Unlock while waiting for lock, still waiting")
	}
}

// CheckTrialState is the UI-driven fallback: if the page is visible while we
// still believe we're FOCUSING, the user has definitely unlocked.
func (t *FocusTracker) CheckTrialState() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()

	if t.day.TrialState == models.TrialFocusing && t.caps.ScreenInteractive() {
		t.log.Debug("Screen interactive during FOCUSING, ending trial")
		t.confirmUnlockLocked()
	}
}

func (t *FocusTracker) confirmUnlockLocked() {
	t.checkTimezoneLocked()

	earned := 0
	if t.day.ScreenOffSinceMs > 0 && !t.day.TimezoneFlagged {
		earned = int((t.clock.Now().UnixMilli() - t.day.ScreenOffSinceMs) / 60000)
		t.creditLocked(earned)
	} else if t.day.TimezoneFlagged {
		t.log.Warn("Timezone change detected, trial time not counted")
	}

	t.day.CompletedTrials++
	t.day.ScreenOffSinceMs = 0
	t.day.TrialState = models.TrialIdle
	if err := t.repo.Save(&t.day); err != nil {
		t.log.Error("Failed to persist trial end", zap.Error(err))
	}
	t.log.Debug("Trial ended",
		zap.Int("trial", t.day.CompletedTrials), zap.Int("earned", earned))
	t.publish(EventTrialEnded, &earned)
}

// checkTimezoneLocked compares the current UTC offset against the baseline
// captured at trial start. A mismatch flags the trial for the rest of its
// life; the flag only clears when a new trial starts.
func (t *FocusTracker) checkTimezoneLocked() {
	if t.day.TimezoneOffsetMs == models.NoTimezoneBaseline {
		return
	}
	current := tzOffsetMs(t.clock.Now())
	if current != t.day.TimezoneOffsetMs {
		t.day.TimezoneFlagged = true
		t.log.Warn("Timezone change detected, trial flagged",
			zap.Int64("baselineMs", t.day.TimezoneOffsetMs),
			zap.Int64("currentMs", current))
		if err := t.repo.Save(&t.day); err != nil {
			t.log.Error("Failed to persist timezone flag", zap.Error(err))
		}
		t.publish(EventTimezoneCheat, nil)
	}
}

// pendingMinutesLocked is the unfinalized portion of the current off-screen
// period.
func (t *FocusTracker) pendingMinutesLocked() int {
	if t.day.TrialState == models.TrialFocusing && t.day.ScreenOffSinceMs > 0 {
		return int((t.clock.Now().UnixMilli() - t.day.ScreenOffSinceMs) / 60000)
	}
	return 0
}

// FocusMinutes returns today's total including the pending portion of an
// in-progress trial.
func (t *FocusTracker) FocusMinutes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()
	return t.day.FocusMinutes + t.pendingMinutesLocked()
}

// LongestStreak returns the longest single trial, considering the in-progress
// one.
func (t *FocusTracker) LongestStreak() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()
	if pending := t.pendingMinutesLocked(); t.day.CurrentStreak+pending > t.day.LongestStreak {
		return t.day.CurrentStreak + pending
	}
	return t.day.LongestStreak
}

// CurrentTrialMinutes returns the in-progress trial's minutes, or 0 outside a
// trial.
func (t *FocusTracker) CurrentTrialMinutes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()
	if t.day.TrialState != models.TrialFocusing {
		return 0
	}
	return t.day.CurrentStreak + t.pendingMinutesLocked()
}

// TrialState returns the current state name.
func (t *FocusTracker) TrialState() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()
	return t.day.TrialState
}

// Info returns the point-in-time snapshot served to the page.
func (t *FocusTracker) Info() FocusInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()
	return t.infoLocked(nil)
}

func (t *FocusTracker) infoLocked(earned *int) FocusInfo {
	pending := t.pendingMinutesLocked()
	longest := t.day.LongestStreak
	if t.day.CurrentStreak+pending > longest {
		longest = t.day.CurrentStreak + pending
	}
	currentTrial := 0
	if t.day.TrialState == models.TrialFocusing {
		currentTrial = t.day.CurrentStreak + pending
	}
	remaining := t.cfg.MaxTrialsPerDay - t.day.TrialCount
	if remaining < 0 {
		remaining = 0
	}
	return FocusInfo{
		SessionActive:       t.day.TrialState != models.TrialIdle,
		TrialState:          t.day.TrialState,
		TrialCount:          t.day.TrialCount,
		MaxTrials:           t.cfg.MaxTrialsPerDay,
		RemainingTrials:     remaining,
		FocusMinutes:        t.day.FocusMinutes + pending,
		LongestStreak:       longest,
		CurrentStreak:       t.day.CurrentStreak + pending,
		CurrentTrialMinutes: currentTrial,
		CompletedTrials:     t.day.CompletedTrials,
		TimezoneFlagged:     t.day.TimezoneFlagged,
		EarnedMinutes:       earned,
	}
}

// Flush finalizes any pending off-screen time without ending the trial.
// Called on clean shutdown so accumulated time is not lost.
func (t *FocusTracker) Flush() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.day.TrialState == models.TrialFocusing && t.day.ScreenOffSinceMs > 0 {
		nowMs := t.clock.Now().UnixMilli()
		if elapsed := int((nowMs - t.day.ScreenOffSinceMs) / 60000); elapsed > 0 {
			t.creditLocked(elapsed)
			t.day.ScreenOffSinceMs = nowMs
		}
	}
	if err := t.repo.Save(&t.day); err != nil {
		t.log.Error("Failed to persist focus day on shutdown", zap.Error(err))
	}
}

func (t *FocusTracker) publish(name string, earned *int) {
	t.sink.Publish(Event{Bridge: BridgeDeepWork, Name: name, Payload: t.infoLocked(earned)})
}
