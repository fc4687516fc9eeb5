package models

import "time"

// StepDay is the Step King daily record. The hardware step counter reports a
// cumulative count since boot; SensorBaseline is its reading at the start of
// today's window and Steps is the delta accumulated so far.
//
// Baseline is stored as -1 until the first sensor sample of the day arrives.
type StepDay struct {
	Date           string  `json:"date" gorm:"primaryKey;size:10"`
	Steps          int64   `json:"steps"`
	SensorBaseline float64 `json:"sensorBaseline"`
	UpdatedAt      time.Time
}

// NewStepDay returns the zero state for a fresh calendar day.
func NewStepDay(date string) StepDay {
	return StepDay{Date: date, Steps: 0, SensorBaseline: -1}
}
