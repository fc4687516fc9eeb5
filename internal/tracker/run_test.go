package tracker

import (
	"errors"
	"math"
	"testing"
	"time"

	"tasktrophy/internal/models"
	"tasktrophy/internal/repository"
)

func newTestRunTracker(t *testing.T, clock Clock, cfg models.GhostRunnerTuning) (*RunTracker, *captureSink, *repository.RunRepo) {
	t.Helper()
	repo := repository.NewRunRepo(testDB(t))
	sink := &captureSink{}
	tr, err := NewRunTracker(testLogger(), clock, grantedCaps(), repo, sink, cfg)
	if err != nil {
		t.Fatal(err)
	}
	return tr, sink, repo
}

func runTuning() models.GhostRunnerTuning {
	return models.DefaultChallenges().GhostRunner
}

// walkFix is a clean pedestrian-quality fix at the given coordinates.
func walkFix(lat, lng float64, ts time.Time) Fix {
	return Fix{Lat: lat, Lng: lng, AccuracyM: 10, SpeedMs: 2.0, TimestampMs: ts.UnixMilli()}
}

func TestRunQualifiedDistanceAccumulates(t *testing.T) {
	start := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)
	tr, sink, _ := newTestRunTracker(t, clock, runTuning())

	if err := tr.StartSession(); err != nil {
		t.Fatal(err)
	}

	// First fix only anchors the distance origin.
	if err := tr.ReportLocationFix(walkFix(0, 0, start)); err != nil {
		t.Fatal(err)
	}
	info := tr.Info()
	if info.TotalDistanceM != 0 || info.GpsPointCount != 1 {
		t.Fatalf("after anchor fix: total = %d, points = %d, want 0 and 1",
			info.TotalDistanceM, info.GpsPointCount)
	}

	// ~5.56 m east five seconds later at a brisk walk.
	if err := tr.ReportLocationFix(walkFix(0, 0.00005, start.Add(5*time.Second))); err != nil {
		t.Fatal(err)
	}
	info = tr.Info()
	if info.TotalDistanceM != 5 { // truncated to whole meters in the snapshot
		t.Errorf("total = %d m, want 5", info.TotalDistanceM)
	}
	if info.QualifiedDistanceM != 5 {
		t.Errorf("qualified = %d m, want 5", info.QualifiedDistanceM)
	}
	if info.SpeedZone != "active" {
		t.Errorf("speed zone = %q, want active", info.SpeedZone)
	}
	if sink.count(EventLocationUpdate) != 2 {
		t.Errorf("locationUpdate events = %d, want 2", sink.count(EventLocationUpdate))
	}
}

func TestRunDuplicateTimestampSuppressed(t *testing.T) {
	start := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)
	tr, _, _ := newTestRunTracker(t, clock, runTuning())
	if err := tr.StartSession(); err != nil {
		t.Fatal(err)
	}

	tr.ReportLocationFix(walkFix(0, 0, start))
	// Same timestamp replayed with different coordinates must be dropped.
	tr.ReportLocationFix(walkFix(0, 0.001, start))

	info := tr.Info()
	if info.GpsPointCount != 1 {
		t.Errorf("points = %d, want 1", info.GpsPointCount)
	}
	if info.TotalDistanceM != 0 {
		t.Errorf("total = %d, want 0", info.TotalDistanceM)
	}
}

func TestRunMockLocationRejected(t *testing.T) {
	start := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)
	tr, sink, _ := newTestRunTracker(t, clock, runTuning())
	if err := tr.StartSession(); err != nil {
		t.Fatal(err)
	}

	fix := walkFix(0, 0, start)
	fix.Mock = true
	if err := tr.ReportLocationFix(fix); !errors.Is(err, ErrMockLocationDetected) {
		t.Fatalf("mock fix: err = %v, want ErrMockLocationDetected", err)
	}
	if sink.count(EventGpsError) != 1 {
		t.Errorf("gpsError events = %d, want 1", sink.count(EventGpsError))
	}
	if info := tr.Info(); info.GpsPointCount != 0 {
		t.Errorf("mock fix recorded as breadcrumb, points = %d", info.GpsPointCount)
	}
}

func TestRunPoorAccuracyRejected(t *testing.T) {
	start := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)
	tr, _, _ := newTestRunTracker(t, clock, runTuning())
	if err := tr.StartSession(); err != nil {
		t.Fatal(err)
	}

	fix := walkFix(0, 0, start)
	fix.AccuracyM = 80
	if err := tr.ReportLocationFix(fix); err != nil {
		t.Fatal(err)
	}
	if info := tr.Info(); info.GpsPointCount != 0 {
		t.Errorf("poor-accuracy fix recorded, points = %d", info.GpsPointCount)
	}
}

func TestRunTeleportZeroed(t *testing.T) {
	start := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)
	tr, _, _ := newTestRunTracker(t, clock, runTuning())
	if err := tr.StartSession(); err != nil {
		t.Fatal(err)
	}

	tr.ReportLocationFix(walkFix(0, 0, start))
	// ~1.1 km in five seconds is far beyond the plausible envelope.
	tr.ReportLocationFix(walkFix(0.01, 0, start.Add(5*time.Second)))

	info := tr.Info()
	if info.TotalDistanceM != 0 {
		t.Errorf("teleport credited %d m of distance", info.TotalDistanceM)
	}
	// The sample itself is still kept as evidence.
	if info.GpsPointCount != 2 {
		t.Errorf("points = %d, want 2", info.GpsPointCount)
	}
}

func TestRunStandstillDriftZeroed(t *testing.T) {
	start := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)
	tr, _, _ := newTestRunTracker(t, clock, runTuning())
	if err := tr.StartSession(); err != nil {
		t.Fatal(err)
	}

	still := func(lat, lng float64, ts time.Time) Fix {
		return Fix{Lat: lat, Lng: lng, AccuracyM: 10, SpeedMs: 0, TimestampMs: ts.UnixMilli()}
	}
	tr.ReportLocationFix(still(0, 0, start))
	// ~3.3 m of drift while the sensor reports zero speed.
	tr.ReportLocationFix(still(0.00003, 0, start.Add(5*time.Second)))

	if info := tr.Info(); info.TotalDistanceM != 0 {
		t.Errorf("stationary drift credited %d m", info.TotalDistanceM)
	}
}

func TestRunTooFastDoesNotQualify(t *testing.T) {
	start := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)
	tr, _, _ := newTestRunTracker(t, clock, runTuning())
	if err := tr.StartSession(); err != nil {
		t.Fatal(err)
	}

	// ~6 m/s (21.6 km/h) is above the qualification band but below the
	// teleport envelope, so distance counts but never qualifies.
	fast := func(lat, lng float64, ts time.Time) Fix {
		return Fix{Lat: lat, Lng: lng, AccuracyM: 10, SpeedMs: 6.0, TimestampMs: ts.UnixMilli()}
	}
	tr.ReportLocationFix(fast(0, 0, start))
	tr.ReportLocationFix(fast(0, 0.00027, start.Add(5*time.Second))) // ~30 m

	info := tr.Info()
	if info.TotalDistanceM == 0 {
		t.Error("fast movement credited no total distance")
	}
	if info.QualifiedDistanceM != 0 {
		t.Errorf("fast movement qualified %d m", info.QualifiedDistanceM)
	}
	if info.SpeedZone != "too_fast" {
		t.Errorf("speed zone = %q, want too_fast", info.SpeedZone)
	}
}

func TestRunAutoFinishAtTarget(t *testing.T) {
	start := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)
	cfg := runTuning()
	cfg.TargetDistanceM = 5
	tr, sink, _ := newTestRunTracker(t, clock, cfg)
	if err := tr.StartSession(); err != nil {
		t.Fatal(err)
	}

	tr.ReportLocationFix(walkFix(0, 0, start))
	tr.ReportLocationFix(walkFix(0, 0.00005, start.Add(5*time.Second)))

	if tr.SessionActive() {
		t.Error("session still active after reaching target")
	}
	if sink.count(EventChallengeComplete) != 1 {
		t.Errorf("challengeComplete events = %d, want 1", sink.count(EventChallengeComplete))
	}
}

func TestRunAutoFinishDisabled(t *testing.T) {
	start := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)
	cfg := runTuning()
	cfg.TargetDistanceM = 5
	off := false
	cfg.AutoFinishAtTarget = &off
	tr, sink, _ := newTestRunTracker(t, clock, cfg)
	if err := tr.StartSession(); err != nil {
		t.Fatal(err)
	}

	tr.ReportLocationFix(walkFix(0, 0, start))
	tr.ReportLocationFix(walkFix(0, 0.00005, start.Add(5*time.Second)))

	if !tr.SessionActive() {
		t.Error("session stopped despite auto-finish disabled")
	}
	if sink.count(EventChallengeComplete) != 0 {
		t.Error("challengeComplete published despite auto-finish disabled")
	}
}

func TestRunMultipleSessionsAccumulate(t *testing.T) {
	start := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)
	tr, _, _ := newTestRunTracker(t, clock, runTuning())

	if err := tr.StartSession(); err != nil {
		t.Fatal(err)
	}
	tr.ReportLocationFix(walkFix(0, 0, start))
	tr.ReportLocationFix(walkFix(0, 0.00005, start.Add(5*time.Second)))
	firstTotal := tr.Info().TotalDistanceM
	tr.StopSession()

	// Second session starts somewhere else entirely; the gap must not be
	// credited as movement.
	clock.Advance(2 * time.Hour)
	if err := tr.StartSession(); err != nil {
		t.Fatal(err)
	}
	later := clock.Now()
	tr.ReportLocationFix(walkFix(1.0, 1.0, later))

	info := tr.Info()
	if info.SessionsToday != 2 {
		t.Errorf("sessions = %d, want 2", info.SessionsToday)
	}
	if info.TotalDistanceM != firstTotal {
		t.Errorf("gap between sessions credited distance: %d, want %d",
			info.TotalDistanceM, firstTotal)
	}

	tr.ReportLocationFix(walkFix(1.0, 1.00005, later.Add(5*time.Second)))
	if got := tr.Info().TotalDistanceM; got <= firstTotal {
		t.Errorf("second session added no distance: %d", got)
	}
}

func TestRunStartOutsideActiveWindow(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 15, 3, 0, 0, 0, time.UTC))
	tr, sink, _ := newTestRunTracker(t, clock, runTuning())

	if err := tr.StartSession(); !errors.Is(err, ErrOutsideActiveWindow) {
		t.Fatalf("StartSession at 3 AM: err = %v, want ErrOutsideActiveWindow", err)
	}
	if tr.SessionActive() {
		t.Error("session active despite window rejection")
	}
	if sink.count(EventGpsError) != 1 {
		t.Errorf("gpsError events = %d, want 1", sink.count(EventGpsError))
	}
}

func TestRunStartWithoutPermission(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC))
	repo := repository.NewRunRepo(testDB(t))
	caps := grantedCaps()
	caps.fineLocation = false
	tr, err := NewRunTracker(testLogger(), clock, caps, repo, &captureSink{}, runTuning())
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.StartSession(); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("StartSession without location: err = %v, want ErrPermissionDenied", err)
	}
}

func TestRunFixIgnoredWhenInactive(t *testing.T) {
	start := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)
	tr, _, _ := newTestRunTracker(t, clock, runTuning())

	if err := tr.ReportLocationFix(walkFix(0, 0, start)); err != nil {
		t.Fatal(err)
	}
	if info := tr.Info(); info.GpsPointCount != 0 {
		t.Errorf("fix recorded without an active session, points = %d", info.GpsPointCount)
	}
}

func TestRunMidnightRolloverResets(t *testing.T) {
	start := time.Date(2025, 6, 15, 23, 30, 0, 0, time.UTC)
	clock := newFakeClock(start)
	tr, _, _ := newTestRunTracker(t, clock, runTuning())

	if err := tr.StartSession(); err != nil {
		t.Fatal(err)
	}
	tr.ReportLocationFix(walkFix(0, 0, start))
	tr.ReportLocationFix(walkFix(0, 0.00005, start.Add(5*time.Second)))

	clock.Set(time.Date(2025, 6, 16, 10, 0, 0, 0, time.UTC))
	info := tr.Info()
	if info.TotalDistanceM != 0 || info.SessionsToday != 0 || info.SessionActive {
		t.Errorf("state survived midnight: %+v", info)
	}
}

func TestRunUnsyncedPointsAndMarkSynced(t *testing.T) {
	start := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)
	tr, _, _ := newTestRunTracker(t, clock, runTuning())
	if err := tr.StartSession(); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 4; i++ {
		tr.ReportLocationFix(walkFix(0, float64(i)*0.00005, start.Add(time.Duration(i)*5*time.Second)))
	}

	points, err := tr.UnsyncedPoints()
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 4 {
		t.Fatalf("unsynced points = %d, want 4", len(points))
	}
	for i, p := range points {
		if p.Seq != i+1 {
			t.Errorf("point %d has seq %d, want %d", i, p.Seq, i+1)
		}
	}

	tr.MarkSynced(points[1].Seq)
	points, err = tr.UnsyncedPoints()
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 2 {
		t.Errorf("unsynced points after ack = %d, want 2", len(points))
	}
}

func TestRunBreadcrumbCapTrims(t *testing.T) {
	start := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)
	cfg := runTuning()
	cfg.BreadcrumbCap = 5
	cfg.PersistEveryN = 1
	tr, _, repo := newTestRunTracker(t, clock, cfg)
	if err := tr.StartSession(); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 8; i++ {
		tr.ReportLocationFix(walkFix(0, float64(i)*0.00005, start.Add(time.Duration(i)*5*time.Second)))
	}

	points, err := repo.PointsAfter(DayKey(start), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 5 {
		t.Errorf("stored breadcrumbs = %d, want cap of 5", len(points))
	}
	// Totals are unaffected by storage trimming.
	if info := tr.Info(); info.GpsPointCount != 8 {
		t.Errorf("point count = %d, want 8", info.GpsPointCount)
	}
}

func TestRunMaxSpeedIgnoresSpikes(t *testing.T) {
	start := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)
	tr, _, _ := newTestRunTracker(t, clock, runTuning())
	if err := tr.StartSession(); err != nil {
		t.Fatal(err)
	}

	// 30 m/s raw smooths to 30 km/h+ only if sustained; a single 100 m/s
	// glitch smoothed over one sample would be 360 km/h and must be dropped.
	glitch := Fix{Lat: 0, Lng: 0, AccuracyM: 10, SpeedMs: 100, TimestampMs: start.UnixMilli()}
	tr.ReportLocationFix(glitch)

	if got := tr.Info().MaxSpeedKmh; got != 0 {
		t.Errorf("max speed = %.1f after a sensor glitch, want 0", got)
	}

	// Enough steady samples to push the glitch out of the smoothing window.
	for i := 1; i <= 5; i++ {
		tr.ReportLocationFix(walkFix(0, float64(i)*0.00005, start.Add(time.Duration(i)*5*time.Second)))
	}
	if got := tr.Info().MaxSpeedKmh; got != 7.2 {
		t.Errorf("max speed = %.1f, want 7.2 once the glitch left the window", got)
	}
}

func TestRunRestartMidSessionRestoresOrigin(t *testing.T) {
	start := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)
	repo := repository.NewRunRepo(testDB(t))
	sink := &captureSink{}
	cfg := runTuning()
	cfg.PersistEveryN = 1

	tr, err := NewRunTracker(testLogger(), clock, grantedCaps(), repo, sink, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.StartSession(); err != nil {
		t.Fatal(err)
	}
	tr.ReportLocationFix(walkFix(0, 0, start))
	tr.ReportLocationFix(walkFix(0, 0.00005, start.Add(5*time.Second)))
	tr.Shutdown()

	restarted, err := NewRunTracker(testLogger(), clock, grantedCaps(), repo, sink, cfg)
	if err != nil {
		t.Fatal(err)
	}
	info := restarted.Info()
	if !info.SessionActive {
		t.Fatal("session not resumed after restart")
	}
	if math.Abs(info.LastLng-0.00005) > 1e-9 {
		t.Errorf("distance origin lng = %v, want 0.00005", info.LastLng)
	}
	if info.TotalDistanceM != 5 {
		t.Errorf("restored total = %d, want 5", info.TotalDistanceM)
	}
}
