package tracker

import "time"

// Clock abstracts wall-clock time so trackers can be driven deterministically
// in tests. The timezone of the returned time is significant: the Deep Work
// tamper check reads its UTC offset.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real wall clock.
func SystemClock() Clock { return systemClock{} }

// DayKey formats a time as the local calendar date used as the daily rollover
// discriminator for every tracker's storage bucket.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// tzOffsetMs returns the UTC offset of t's zone in milliseconds, matching the
// unit the tamper baseline is stored in.
func tzOffsetMs(t time.Time) int64 {
	_, offset := t.Zone()
	return int64(offset) * 1000
}
