package model

import "time"

type ReviewOutcome string

const (
	ReviewCorrect   ReviewOutcome = "correct"
	ReviewIncorrect ReviewOutcome = "incorrect"
)

// Review records one spaced-repetition event. Urgency is the external
// scheduler's normalized "how overdue" signal at review time; it is opaque
// to this service beyond being in [0,1].
type Review struct {
	BaseModel
	UserID      uint          `gorm:"index:idx_review_user_obj,priority:1" json:"userId"`
	ObjectiveID uint          `gorm:"index:idx_review_user_obj,priority:2" json:"objectiveId"`
	Outcome     ReviewOutcome `gorm:"type:enum('correct','incorrect');not null" json:"outcome"`
	Urgency     float64       `gorm:"default:0" json:"urgency"`
	DurationMs  int64         `gorm:"default:0" json:"durationMs"`
	// Self-reported 1-5 confidence, optional.
	Confidence *int      `json:"confidence,omitempty"`
	ReviewedAt time.Time `gorm:"index;not null" json:"reviewedAt"`
}

func (Review) TableName() string {
	return "reviews"
}
