package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yinkev/Americano-sub009/internal/model"
)

type PerformanceRepository struct {
	DB *gorm.DB
}

func NewPerformanceRepository(db *gorm.DB) *PerformanceRepository {
	return &PerformanceRepository{DB: db}
}

// UpsertDaily writes the per-day aggregate row. Re-running with the same
// inputs overwrites the row with identical values, which keeps the batch
// recompute idempotent. Only the current day is ever passed here; past
// rows stay untouched.
func (r *PerformanceRepository) UpsertDaily(metric *model.PerformanceMetric) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "objective_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"retention_score", "study_time_ms", "review_count",
			"correct_reviews", "incorrect_reviews", "updated_at",
		}),
	}).Create(metric).Error
}

func (r *PerformanceRepository) FindByUserAndDate(userID uint, date time.Time) ([]*model.PerformanceMetric, error) {
	var metrics []*model.PerformanceMetric
	err := r.DB.
		Where("user_id = ? AND date = ?", userID, date.Format("2006-01-02")).
		Order("objective_id").
		Find(&metrics).Error
	return metrics, err
}
