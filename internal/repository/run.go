package repository

import (
	"errors"

	"tasktrophy/internal/models"

	"gorm.io/gorm"
)

// RunRepo persists the Ghost Runner daily record and its GPS breadcrumbs.
type RunRepo struct {
	db *gorm.DB
}

func NewRunRepo(db *gorm.DB) *RunRepo {
	return &RunRepo{db: db}
}

// Load returns the record for the given date, or the zero state if none is
// stored yet.
func (r *RunRepo) Load(date string) (models.RunDay, error) {
	var day models.RunDay
	err := r.db.First(&day, "date = ?", date).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewRunDay(date), nil
	}
	if err != nil {
		return models.RunDay{}, err
	}
	return day, nil
}

// Save upserts the record by date.
func (r *RunRepo) Save(day *models.RunDay) error {
	return r.db.Save(day).Error
}

// SavePoints appends breadcrumbs for the given date and drops anything older
// than the cap, keeping only the most recent `cap` sequence numbers. The
// running distance totals live on RunDay and are unaffected by the trim.
func (r *RunRepo) SavePoints(date string, points []models.GpsPoint, cap int) error {
	if len(points) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&points).Error; err != nil {
			return err
		}
		var maxSeq int
		row := tx.Model(&models.GpsPoint{}).
			Where("run_date = ?", date).
			Select("COALESCE(MAX(seq), 0)").
			Row()
		if err := row.Scan(&maxSeq); err != nil {
			return err
		}
		if maxSeq > cap {
			return tx.Where("run_date = ? AND seq <= ?", date, maxSeq-cap).
				Delete(&models.GpsPoint{}).Error
		}
		return nil
	})
}

// PointsAfter returns breadcrumbs with a sequence number greater than seq, in
// order. This is the sync collaborator's read surface.
func (r *RunRepo) PointsAfter(date string, seq int) ([]models.GpsPoint, error) {
	var points []models.GpsPoint
	err := r.db.Where("run_date = ? AND seq > ?", date, seq).
		Order("seq").
		Find(&points).Error
	return points, err
}

// LastPoint returns the newest breadcrumb for the date, if any.
func (r *RunRepo) LastPoint(date string) (*models.GpsPoint, error) {
	var point models.GpsPoint
	err := r.db.Where("run_date = ?", date).
		Order("seq DESC").
		First(&point).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &point, nil
}

// DeletePoints removes all breadcrumbs for dates other than the given one.
// Called on rollover so a new day starts with an empty trail.
func (r *RunRepo) DeletePoints(keepDate string) error {
	return r.db.Where("run_date <> ?", keepDate).Delete(&models.GpsPoint{}).Error
}
