package tracker

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"tasktrophy/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	err = db.AutoMigrate(
		&models.StepDay{},
		&models.RunDay{},
		&models.GpsPoint{},
		&models.FocusDay{},
		&models.SleepCycle{},
	)
	if err != nil {
		t.Fatal(err)
	}
	return db
}

// fakeClock is a settable wall clock. Its location matters: the timezone
// tamper check reads the UTC offset of Now().
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// captureSink records published events for assertions.
type captureSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *captureSink) Publish(evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
}

func (s *captureSink) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, evt := range s.events {
		if evt.Name == name {
			n++
		}
	}
	return n
}

func (s *captureSink) last(name string) *Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].Name == name {
			return &s.events[i]
		}
	}
	return nil
}

// fakeCaps is a settable Capabilities implementation.
type fakeCaps struct {
	activityRecognition bool
	stepSensor          bool
	fineLocation        bool
	gps                 bool
	screenInteractive   bool
	deviceLocked        bool
}

func grantedCaps() *fakeCaps {
	return &fakeCaps{
		activityRecognition: true,
		stepSensor:          true,
		fineLocation:        true,
		gps:                 true,
		screenInteractive:   true,
	}
}

func (c *fakeCaps) ActivityRecognitionGranted() bool { return c.activityRecognition }
func (c *fakeCaps) StepSensorAvailable() bool        { return c.stepSensor }
func (c *fakeCaps) FineLocationGranted() bool        { return c.fineLocation }
func (c *fakeCaps) GpsAvailable() bool               { return c.gps }
func (c *fakeCaps) ScreenInteractive() bool          { return c.screenInteractive }
func (c *fakeCaps) DeviceLocked() bool               { return c.deviceLocked }

type fakeClone struct {
	cloned bool
}

func (c *fakeClone) Cloned() bool { return c.cloned }

func testLogger() *zap.Logger { return zap.NewNop() }
