package repository

import (
	"errors"

	"tasktrophy/internal/models"

	"gorm.io/gorm"
)

// FocusRepo persists the Deep Work daily record.
type FocusRepo struct {
	db *gorm.DB
}

func NewFocusRepo(db *gorm.DB) *FocusRepo {
	return &FocusRepo{db: db}
}

// Load returns the record for the given date, or the zero state if none is
// stored yet.
func (r *FocusRepo) Load(date string) (models.FocusDay, error) {
	var day models.FocusDay
	err := r.db.First(&day, "date = ?", date).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewFocusDay(date), nil
	}
	if err != nil {
		return models.FocusDay{}, err
	}
	return day, nil
}

// Save upserts the record by date.
func (r *FocusRepo) Save(day *models.FocusDay) error {
	return r.db.Save(day).Error
}
