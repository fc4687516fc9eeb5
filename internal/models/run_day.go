package models

import "time"

// RunDay is the Ghost Runner daily record. Distances are cumulative across all
// tracking sessions started on the same calendar day; QualifiedDistanceM counts
// only movement whose smoothed speed fell inside the reward window.
type RunDay struct {
	Date               string  `json:"date" gorm:"primaryKey;size:10"`
	SessionActive      bool    `json:"sessionActive"`
	SessionStartMs     int64   `json:"sessionStartMs"`
	TotalDistanceM     float64 `json:"totalDistanceMeters"`
	QualifiedDistanceM float64 `json:"qualifiedDistanceMeters"`
	MaxSpeedKmh        float64 `json:"maxSpeedKmh"`
	GpsPointCount      int     `json:"gpsPointsCount"`
	SessionsToday      int     `json:"sessionsToday"`
	LastSyncedSeq      int     `json:"lastSyncedSeq"`
	UpdatedAt          time.Time
}

// NewRunDay returns the zero state for a fresh calendar day.
func NewRunDay(date string) RunDay {
	return RunDay{Date: date}
}

// GpsPoint is one persisted breadcrumb: a filtered location fix with its
// sequence number and whether its speed fell in the reward-eligible window.
// Speed is the raw instantaneous reading; the smoothed value used for
// qualification is not stored.
type GpsPoint struct {
	ID          uint    `json:"-" gorm:"primaryKey"`
	RunDate     string  `json:"-" gorm:"index:idx_gps_day_seq;size:10"`
	Seq         int     `json:"seq" gorm:"index:idx_gps_day_seq"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Accuracy    float64 `json:"accuracy"`
	Speed       float64 `json:"speed"`
	Altitude    float64 `json:"altitude"`
	TimestampMs int64   `json:"timestamp"`
	Qualified   bool    `json:"qualified"`
}
