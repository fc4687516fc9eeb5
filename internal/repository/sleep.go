package repository

import (
	"errors"

	"tasktrophy/internal/models"

	"gorm.io/gorm"
)

// SleepRepo persists the sleep cycle record. Unlike the other trackers only
// one row is live at a time; Latest returns it regardless of date because a
// cycle legitimately spans midnight.
type SleepRepo struct {
	db *gorm.DB
}

func NewSleepRepo(db *gorm.DB) *SleepRepo {
	return &SleepRepo{db: db}
}

// Latest returns the most recently updated cycle, or nil if none is stored.
func (r *SleepRepo) Latest() (*models.SleepCycle, error) {
	var cycle models.SleepCycle
	err := r.db.Order("date DESC").First(&cycle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cycle, nil
}

// Save upserts the cycle by date.
func (r *SleepRepo) Save(cycle *models.SleepCycle) error {
	return r.db.Save(cycle).Error
}
