package model

import "time"

// PerformanceMetric is the per-day aggregate for one user and objective.
// Rows for past dates are immutable; only the current day's row is upserted
// as new reviews arrive.
type PerformanceMetric struct {
	BaseModel
	UserID           uint      `gorm:"uniqueIndex:idx_metric_user_obj_date,priority:1" json:"userId"`
	ObjectiveID      uint      `gorm:"uniqueIndex:idx_metric_user_obj_date,priority:2" json:"objectiveId"`
	Date             time.Time `gorm:"type:date;uniqueIndex:idx_metric_user_obj_date,priority:3" json:"date"`
	RetentionScore   float64   `gorm:"default:0" json:"retentionScore"`
	StudyTimeMs      int64     `gorm:"default:0" json:"studyTimeMs"`
	ReviewCount      int       `gorm:"default:0" json:"reviewCount"`
	CorrectReviews   int       `gorm:"default:0" json:"correctReviews"`
	IncorrectReviews int       `gorm:"default:0" json:"incorrectReviews"`
}

func (PerformanceMetric) TableName() string {
	return "performance_metrics"
}
