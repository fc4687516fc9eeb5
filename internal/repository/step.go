package repository

import (
	"errors"

	"tasktrophy/internal/models"

	"gorm.io/gorm"
)

// StepRepo persists the Step King daily record.
type StepRepo struct {
	db *gorm.DB
}

func NewStepRepo(db *gorm.DB) *StepRepo {
	return &StepRepo{db: db}
}

// Load returns the record for the given date, or the zero state if none is
// stored yet.
func (r *StepRepo) Load(date string) (models.StepDay, error) {
	var day models.StepDay
	err := r.db.First(&day, "date = ?", date).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewStepDay(date), nil
	}
	if err != nil {
		return models.StepDay{}, err
	}
	return day, nil
}

// Save upserts the record by date.
func (r *StepRepo) Save(day *models.StepDay) error {
	return r.db.Save(day).Error
}
