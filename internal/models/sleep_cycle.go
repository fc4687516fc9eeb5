package models

import "time"

// SleepCycle is the Sleep Discipline record for one bed/wake cycle. A cycle
// logically spans two calendar days (join in the evening, wake the next
// morning), so Date is the day the user joined, not a strict midnight key.
type SleepCycle struct {
	Date             string `json:"date" gorm:"primaryKey;size:10"`
	TrackingActive   bool   `json:"trackingActive"`
	BedtimeRecorded  bool   `json:"bedtimeRecorded"`
	BedtimeMs        int64  `json:"bedtimeTimestamp"`
	WaketimeRecorded bool   `json:"waketimeRecorded"`
	WaketimeMs       int64  `json:"waketimeTimestamp"`
	TargetBedHour    int    `json:"targetBedHour"`
	TargetBedMinute  int    `json:"targetBedMinute"`
	TargetWakeHour   int    `json:"targetWakeHour"`
	TargetWakeMinute int    `json:"targetWakeMinute"`
	UpdatedAt        time.Time
}

// NewSleepCycle returns the zero state for a fresh cycle with the default
// target times.
func NewSleepCycle(date string) SleepCycle {
	return SleepCycle{
		Date:             date,
		TargetBedHour:    23,
		TargetBedMinute:  0,
		TargetWakeHour:   6,
		TargetWakeMinute: 30,
	}
}

// Complete reports whether both ends of the cycle were recorded.
func (s SleepCycle) Complete() bool {
	return s.BedtimeRecorded && s.WaketimeRecorded
}
