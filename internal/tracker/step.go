package tracker

import (
	"sync"

	"tasktrophy/internal/models"
	"tasktrophy/internal/repository"

	"go.uber.org/zap"
)

// StepTracker reconciles the hardware step counter (cumulative since boot)
// against a daily baseline. The Step King page polls TodaySteps and receives
// stepsUpdated pushes as samples arrive.
type StepTracker struct {
	mu        sync.Mutex
	log       *zap.Logger
	clock     Clock
	caps      Capabilities
	repo      *repository.StepRepo
	sink      Sink
	day       models.StepDay
	listening bool
}

func NewStepTracker(log *zap.Logger, clock Clock, caps Capabilities, repo *repository.StepRepo, sink Sink) (*StepTracker, error) {
	t := &StepTracker{
		log:   log,
		clock: clock,
		caps:  caps,
		repo:  repo,
		sink:  sink,
	}
	day, err := repo.Load(DayKey(clock.Now()))
	if err != nil {
		return nil, err
	}
	t.day = day
	return t, nil
}

// rolloverLocked re-validates the record's date against the wall clock. The
// process may sit resident across midnight, so every public operation calls
// this before touching counters.
func (t *StepTracker) rolloverLocked() {
	today := DayKey(t.clock.Now())
	if t.day.Date == today {
		return
	}
	t.log.Info("Step day rolled over",
		zap.String("from", t.day.Date), zap.String("to", today))
	t.day = models.NewStepDay(today)
	if err := t.repo.Save(&t.day); err != nil {
		t.log.Error("Failed to persist step rollover", zap.Error(err))
	}
}

// ReportSensorSample feeds one cumulative-since-boot reading. The first sample
// of the day becomes the baseline; later samples update the daily delta. A
// reading below the baseline means the device rebooted mid-day: the baseline
// is resynchronized while the steps accumulated so far are preserved.
func (t *StepTracker) ReportSensorSample(cumulative float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()

	if t.day.SensorBaseline < 0 {
		t.day.SensorBaseline = cumulative
		t.day.Steps = 0
		t.log.Debug("Step baseline set", zap.Float64("baseline", cumulative))
	} else if delta := cumulative - t.day.SensorBaseline; delta < 0 {
		t.day.SensorBaseline = cumulative - float64(t.day.Steps)
		t.log.Warn("Step counter went backwards, re-baselining after reboot",
			zap.Float64("reading", cumulative), zap.Int64("kept", t.day.Steps))
	} else {
		t.day.Steps = int64(delta)
	}

	if err := t.repo.Save(&t.day); err != nil {
		t.log.Error("Failed to persist steps", zap.Error(err))
	}
	t.sink.Publish(Event{
		Bridge:  BridgeStepKing,
		Name:    EventStepsUpdated,
		Payload: StepsPayload{Steps: t.day.Steps},
	})
}

// TodaySteps returns the cached daily total.
func (t *StepTracker) TodaySteps() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()
	return t.day.Steps
}

// Baseline returns the sensor reading used as today's zero point, or -1 if no
// sample has arrived yet.
func (t *StepTracker) Baseline() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()
	return t.day.SensorBaseline
}

// Refresh ensures the sensor listener is active and re-emits the cached total.
// Capability problems are surfaced as named error events, never retried.
func (t *StepTracker) Refresh() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()

	if !t.caps.ActivityRecognitionGranted() {
		t.sink.Publish(Event{
			Bridge:  BridgeStepKing,
			Name:    EventStepsError,
			Payload: ErrorPayload{Error: "Activity recognition permission not granted"},
		})
		return ErrPermissionDenied
	}
	if !t.caps.StepSensorAvailable() {
		t.sink.Publish(Event{
			Bridge:  BridgeStepKing,
			Name:    EventStepsError,
			Payload: ErrorPayload{Error: "No step counter sensor available on this device"},
		})
		return ErrCapabilityUnavailable
	}

	t.listening = true
	t.sink.Publish(Event{
		Bridge:  BridgeStepKing,
		Name:    EventStepsUpdated,
		Payload: StepsPayload{Steps: t.day.Steps},
	})
	return nil
}

// Listening reports whether Refresh has armed the sensor listener.
func (t *StepTracker) Listening() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.listening
}
