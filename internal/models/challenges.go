package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Challenges is the product tuning file loaded at startup. Every knob has a
// shipped default so the file is optional; product can retune thresholds
// without a rebuild.
type Challenges struct {
	GhostRunner GhostRunnerTuning `yaml:"ghostrunner"`
	DeepWork    DeepWorkTuning    `yaml:"deepwork"`
	Sleep       SleepTuning       `yaml:"sleep"`
}

// GhostRunnerTuning holds the GPS filter and qualification thresholds.
type GhostRunnerTuning struct {
	TargetDistanceM    float64 `yaml:"target_distance_m"`
	AutoFinishAtTarget *bool   `yaml:"auto_finish_at_target"`
	MinQualifySpeedKmh float64 `yaml:"min_qualify_speed_kmh"`
	MaxQualifySpeedKmh float64 `yaml:"max_qualify_speed_kmh"`
	MaxPlausibleKmh    float64 `yaml:"max_plausible_kmh"`
	SpeedSpikeCapKmh   float64 `yaml:"speed_spike_cap_kmh"`
	StandstillSpeedMs  float64 `yaml:"standstill_speed_ms"`
	GoodAccuracyM      float64 `yaml:"good_accuracy_m"`
	MaxAccuracyM       float64 `yaml:"max_accuracy_m"`
	MinDistanceM       float64 `yaml:"min_distance_m"`
	MinIntervalMs      int64   `yaml:"min_interval_ms"`
	ActiveFromHour     int     `yaml:"active_from_hour"`
	PersistEveryN      int     `yaml:"persist_every_n"`
	BreadcrumbCap      int     `yaml:"breadcrumb_cap"`
}

// DeepWorkTuning holds the trial machine knobs.
type DeepWorkTuning struct {
	MaxTrialsPerDay   int   `yaml:"max_trials_per_day"`
	KeyguardRecheckMs int64 `yaml:"keyguard_recheck_ms"`
}

// SleepTuning holds the auto-detection windows, as local hours. The bedtime
// window wraps past midnight (start > end).
type SleepTuning struct {
	BedWindowStartHour int `yaml:"bed_window_start_hour"`
	BedWindowEndHour   int `yaml:"bed_window_end_hour"`
	WakeWindowStart    int `yaml:"wake_window_start_hour"`
	WakeWindowEnd      int `yaml:"wake_window_end_hour"`
}

// DefaultChallenges returns the shipped tuning values.
func DefaultChallenges() Challenges {
	autoFinish := true
	return Challenges{
		GhostRunner: GhostRunnerTuning{
			TargetDistanceM:    5000,
			AutoFinishAtTarget: &autoFinish,
			MinQualifySpeedKmh: 4.0,  // brisk walk
			MaxQualifySpeedKmh: 15.0, // running
			MaxPlausibleKmh:    25.0, // above this = vehicle suspect
			SpeedSpikeCapKmh:   50.0,
			StandstillSpeedMs:  0.8,
			GoodAccuracyM:      20,
			MaxAccuracyM:       50,
			MinDistanceM:       2.0,
			MinIntervalMs:      2000,
			ActiveFromHour:     5, // 5 AM to 11:59 PM, midnight resets daily
			PersistEveryN:      10,
			BreadcrumbCap:      300,
		},
		DeepWork: DeepWorkTuning{
			MaxTrialsPerDay:   3,
			KeyguardRecheckMs: 1500,
		},
		Sleep: SleepTuning{
			BedWindowStartHour: 20, // 8 PM
			BedWindowEndHour:   3,  // ...to 3 AM, wrapping midnight
			WakeWindowStart:    4,  // 4 AM
			WakeWindowEnd:      12, // ...to noon
		},
	}
}

// LoadChallenges reads and parses the challenges tuning file, filling any
// omitted knob with its shipped default. A missing file yields pure defaults.
func LoadChallenges(path string) (*Challenges, error) {
	def := DefaultChallenges()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &def, nil
		}
		return nil, fmt.Errorf("failed to read challenges file: %w", err)
	}

	var loaded Challenges
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to unmarshal challenges YAML: %w", err)
	}

	merged := def
	mergeGhostRunner(&merged.GhostRunner, loaded.GhostRunner)
	mergeDeepWork(&merged.DeepWork, loaded.DeepWork)
	mergeSleep(&merged.Sleep, loaded.Sleep)
	return &merged, nil
}

func mergeGhostRunner(dst *GhostRunnerTuning, src GhostRunnerTuning) {
	if src.TargetDistanceM > 0 {
		dst.TargetDistanceM = src.TargetDistanceM
	}
	if src.AutoFinishAtTarget != nil {
		dst.AutoFinishAtTarget = src.AutoFinishAtTarget
	}
	if src.MinQualifySpeedKmh > 0 {
		dst.MinQualifySpeedKmh = src.MinQualifySpeedKmh
	}
	if src.MaxQualifySpeedKmh > 0 {
		dst.MaxQualifySpeedKmh = src.MaxQualifySpeedKmh
	}
	if src.MaxPlausibleKmh > 0 {
		dst.MaxPlausibleKmh = src.MaxPlausibleKmh
	}
	if src.SpeedSpikeCapKmh > 0 {
		dst.SpeedSpikeCapKmh = src.SpeedSpikeCapKmh
	}
	if src.StandstillSpeedMs > 0 {
		dst.StandstillSpeedMs = src.StandstillSpeedMs
	}
	if src.GoodAccuracyM > 0 {
		dst.GoodAccuracyM = src.GoodAccuracyM
	}
	if src.MaxAccuracyM > 0 {
		dst.MaxAccuracyM = src.MaxAccuracyM
	}
	if src.MinDistanceM > 0 {
		dst.MinDistanceM = src.MinDistanceM
	}
	if src.MinIntervalMs > 0 {
		dst.MinIntervalMs = src.MinIntervalMs
	}
	if src.ActiveFromHour > 0 {
		dst.ActiveFromHour = src.ActiveFromHour
	}
	if src.PersistEveryN > 0 {
		dst.PersistEveryN = src.PersistEveryN
	}
	if src.BreadcrumbCap > 0 {
		dst.BreadcrumbCap = src.BreadcrumbCap
	}
}

func mergeDeepWork(dst *DeepWorkTuning, src DeepWorkTuning) {
	if src.MaxTrialsPerDay > 0 {
		dst.MaxTrialsPerDay = src.MaxTrialsPerDay
	}
	if src.KeyguardRecheckMs > 0 {
		dst.KeyguardRecheckMs = src.KeyguardRecheckMs
	}
}

func mergeSleep(dst *SleepTuning, src SleepTuning) {
	if src.BedWindowStartHour > 0 {
		dst.BedWindowStartHour = src.BedWindowStartHour
	}
	if src.BedWindowEndHour > 0 {
		dst.BedWindowEndHour = src.BedWindowEndHour
	}
	if src.WakeWindowStart > 0 {
		dst.WakeWindowStart = src.WakeWindowStart
	}
	if src.WakeWindowEnd > 0 {
		dst.WakeWindowEnd = src.WakeWindowEnd
	}
}
