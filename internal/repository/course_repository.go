package repository

import (
	"gorm.io/gorm"

	"github.com/yinkev/Americano-sub009/internal/model"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) Create(course *model.Course) error {
	return r.DB.Create(course).Error
}

func (r *CourseRepository) FindByID(id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.First(&course, id).Error
	return &course, err
}

func (r *CourseRepository) FindByUser(userID uint) ([]*model.Course, error) {
	var courses []*model.Course
	err := r.DB.Where("user_id = ?", userID).Order("name").Find(&courses).Error
	return courses, err
}
