package device

import "sync"

// State holds the platform capability and screen facts the shell has relayed
// to the bridge. The shell pushes updates through the platform ingestion
// routes; trackers read through the getters. All methods are safe for
// concurrent use.
type State struct {
	mu                  sync.RWMutex
	activityRecognition bool
	stepSensor          bool
	fineLocation        bool
	gps                 bool
	screenInteractive   bool
	deviceLocked        bool
}

// NewState returns a State with everything denied/absent until the shell
// reports otherwise. The screen starts interactive: the page can only talk to
// the bridge while it is visible.
func NewState() *State {
	return &State{screenInteractive: true}
}

func (s *State) SetGrants(activityRecognition, fineLocation bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activityRecognition = activityRecognition
	s.fineLocation = fineLocation
}

func (s *State) SetHardware(stepSensor, gps bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stepSensor = stepSensor
	s.gps = gps
}

func (s *State) SetScreen(interactive, locked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screenInteractive = interactive
	s.deviceLocked = locked
}

func (s *State) ActivityRecognitionGranted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activityRecognition
}

func (s *State) StepSensorAvailable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stepSensor
}

func (s *State) FineLocationGranted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fineLocation
}

func (s *State) GpsAvailable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gps
}

func (s *State) ScreenInteractive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.screenInteractive
}

func (s *State) DeviceLocked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deviceLocked
}
