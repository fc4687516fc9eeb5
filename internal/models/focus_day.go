package models

import "time"

// Trial states for the Deep Work state machine.
const (
	TrialIdle           = "idle"
	TrialWaitingForLock = "waiting_for_lock"
	TrialFocusing       = "focusing"
)

// NoTimezoneBaseline marks TimezoneOffsetMs as "no baseline captured".
const NoTimezoneBaseline = int64(-1 << 31)

// FocusDay is the Deep Work daily record. FocusMinutes accumulates across all
// completed trials; CurrentStreak is the in-progress trial's finalized minutes.
// TimezoneOffsetMs is the UTC offset captured when the current trial started
// and TimezoneFlagged goes sticky if the offset changes mid-trial.
type FocusDay struct {
	Date             string `json:"date" gorm:"primaryKey;size:10"`
	FocusMinutes     int    `json:"focusMinutes"`
	LongestStreak    int    `json:"longestStreak"`
	CurrentStreak    int    `json:"currentStreak"`
	CompletedTrials  int    `json:"completedTrials"`
	TrialCount       int    `json:"trialCount"`
	TrialState       string `json:"trialState"`
	ScreenOffSinceMs int64  `json:"screenOffSinceMs"`
	TimezoneOffsetMs int64  `json:"timezoneOffsetMs"`
	TimezoneFlagged  bool   `json:"timezoneFlagged"`
	UpdatedAt        time.Time
}

// NewFocusDay returns the zero state for a fresh calendar day.
func NewFocusDay(date string) FocusDay {
	return FocusDay{
		Date:             date,
		TrialState:       TrialIdle,
		TimezoneOffsetMs: NoTimezoneBaseline,
	}
}
