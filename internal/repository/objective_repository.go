package repository

import (
	"gorm.io/gorm"

	"github.com/yinkev/Americano-sub009/internal/model"
)

type ObjectiveRepository struct {
	DB *gorm.DB
}

func NewObjectiveRepository(db *gorm.DB) *ObjectiveRepository {
	return &ObjectiveRepository{DB: db}
}

func (r *ObjectiveRepository) Create(obj *model.LearningObjective) error {
	return r.DB.Create(obj).Error
}

func (r *ObjectiveRepository) FindByID(id uint) (*model.LearningObjective, error) {
	var obj model.LearningObjective
	err := r.DB.First(&obj, id).Error
	return &obj, err
}

func (r *ObjectiveRepository) FindByUser(userID uint) ([]*model.LearningObjective, error) {
	var objs []*model.LearningObjective
	err := r.DB.Where("user_id = ?", userID).Order("id").Find(&objs).Error
	return objs, err
}

// FindWeakByUser returns objectives above the weakness threshold, weakest
// first. Equal scores are ordered stalest-first; never-studied rows sort
// ahead of studied ones because NULL sorts first ascending.
func (r *ObjectiveRepository) FindWeakByUser(userID uint, threshold float64) ([]*model.LearningObjective, error) {
	var objs []*model.LearningObjective
	err := r.DB.
		Where("user_id = ? AND weakness_score > ?", userID, threshold).
		Order("weakness_score DESC, last_studied_at ASC, id ASC").
		Find(&objs).Error
	return objs, err
}

// SavePerformance persists only the derived performance columns.
func (r *ObjectiveRepository) SavePerformance(obj *model.LearningObjective) error {
	return r.DB.Model(obj).
		Select("mastery_level", "weakness_score", "total_study_time_ms", "last_studied_at").
		Updates(obj).Error
}
