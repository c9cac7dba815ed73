package model

import "time"

type Complexity string

const (
	ComplexityBasic        Complexity = "BASIC"
	ComplexityIntermediate Complexity = "INTERMEDIATE"
	ComplexityAdvanced     Complexity = "ADVANCED"
)

type MasteryLevel string

const (
	MasteryNotStarted   MasteryLevel = "NOT_STARTED"
	MasteryBeginner     MasteryLevel = "BEGINNER"
	MasteryIntermediate MasteryLevel = "INTERMEDIATE"
	MasteryAdvanced     MasteryLevel = "ADVANCED"
	MasteryMastered     MasteryLevel = "MASTERED"
)

// LearningObjective is one reviewable unit of course content. Performance
// fields (mastery, weakness, study time) are recomputed in batch as review
// data arrives; the mission generator only reads them.
type LearningObjective struct {
	BaseModel
	UserID      uint       `gorm:"index;uniqueIndex:idx_user_course_desc,priority:1" json:"userId"`
	CourseID    uint       `gorm:"index;uniqueIndex:idx_user_course_desc,priority:2" json:"courseId"`
	Description string     `gorm:"size:512;not null;uniqueIndex:idx_user_course_desc,priority:3" json:"description"`
	Complexity  Complexity `gorm:"type:enum('BASIC','INTERMEDIATE','ADVANCED');default:'BASIC'" json:"complexity"`
	HighYield   bool       `gorm:"default:false" json:"highYield"`
	// Optional foundation objective that should be learned first.
	PrerequisiteID *uint `gorm:"index" json:"prerequisiteId,omitempty"`

	MasteryLevel     MasteryLevel `gorm:"type:enum('NOT_STARTED','BEGINNER','INTERMEDIATE','ADVANCED','MASTERED');default:'NOT_STARTED'" json:"masteryLevel"`
	WeaknessScore    float64      `gorm:"default:0" json:"weaknessScore"`
	TotalStudyTimeMs int64        `gorm:"default:0" json:"totalStudyTimeMs"`
	LastStudiedAt    *time.Time   `json:"lastStudiedAt,omitempty"`
}

func (LearningObjective) TableName() string {
	return "learning_objectives"
}
