package model

// Course groups learning objectives by topic. Missions never schedule two
// objectives from the same course on the same day.
type Course struct {
	BaseModel
	UserID      uint   `gorm:"index" json:"userId"`
	Name        string `gorm:"size:255;not null" json:"name"`
	Description string `gorm:"type:text" json:"description,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}
