package model

import "time"

type MissionStatus string

const (
	MissionPending    MissionStatus = "PENDING"
	MissionInProgress MissionStatus = "IN_PROGRESS"
	MissionCompleted  MissionStatus = "COMPLETED"
	MissionSkipped    MissionStatus = "SKIPPED"
)

// Terminal reports whether the mission can no longer change.
func (s MissionStatus) Terminal() bool {
	return s == MissionCompleted || s == MissionSkipped
}

// Mission is one user's study plan for one calendar date. The unique
// (user, date) index is what makes concurrent generation idempotent: a
// duplicate insert is recovered by fetching the winning row.
type Mission struct {
	BaseModel
	UserID uint      `gorm:"uniqueIndex:idx_mission_user_date,priority:1" json:"userId"`
	Date   time.Time `gorm:"type:date;uniqueIndex:idx_mission_user_date,priority:2" json:"date"`
	Status MissionStatus `gorm:"type:enum('PENDING','IN_PROGRESS','COMPLETED','SKIPPED');default:'PENDING'" json:"status"`
	// Token rotated on regeneration so clients can detect a replaced plan.
	GenerationToken          string             `gorm:"size:36" json:"generationToken"`
	TargetMinutes            int                `gorm:"default:50" json:"targetMinutes"`
	TotalEstimatedMinutes    int                `gorm:"default:0" json:"totalEstimatedMinutes"`
	ActualMinutes            int                `gorm:"default:0" json:"actualMinutes"`
	CompletedObjectivesCount int                `gorm:"default:0" json:"completedObjectivesCount"`
	Objectives               []MissionObjective `gorm:"foreignKey:MissionID;constraint:OnDelete:CASCADE" json:"objectives"`
}

func (Mission) TableName() string {
	return "missions"
}

// MissionObjective is owned by its mission; it has no lifecycle of its own.
type MissionObjective struct {
	BaseModel
	MissionID        uint       `gorm:"index" json:"missionId"`
	ObjectiveID      uint       `gorm:"index" json:"objectiveId"`
	OrderIndex       int        `gorm:"default:0" json:"orderIndex"`
	EstimatedMinutes int        `gorm:"default:0" json:"estimatedMinutes"`
	Completed        bool       `gorm:"default:false" json:"completed"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
	Notes            string     `gorm:"type:text" json:"notes,omitempty"`
}

func (MissionObjective) TableName() string {
	return "mission_objectives"
}
