package repository

import (
	"gorm.io/gorm"

	"github.com/yinkev/Americano-sub009/internal/model"
)

type ReviewRepository struct {
	DB *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{DB: db}
}

func (r *ReviewRepository) Create(review *model.Review) error {
	return r.DB.Create(review).Error
}

// FindByUser returns all of a user's reviews in chronological order,
// grouped by objective for single-pass aggregation.
func (r *ReviewRepository) FindByUser(userID uint) ([]*model.Review, error) {
	var reviews []*model.Review
	err := r.DB.
		Where("user_id = ?", userID).
		Order("objective_id ASC, reviewed_at ASC, id ASC").
		Find(&reviews).Error
	return reviews, err
}

func (r *ReviewRepository) FindByUserAndObjective(userID, objectiveID uint) ([]*model.Review, error) {
	var reviews []*model.Review
	err := r.DB.
		Where("user_id = ? AND objective_id = ?", userID, objectiveID).
		Order("reviewed_at ASC, id ASC").
		Find(&reviews).Error
	return reviews, err
}
