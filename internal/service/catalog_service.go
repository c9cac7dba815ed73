package service

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yinkev/Americano-sub009/internal/model"
	"github.com/yinkev/Americano-sub009/internal/repository"
	"github.com/yinkev/Americano-sub009/internal/util"
)

// CatalogService manages the courses and objectives the mission engine
// selects from. Content ingestion itself (lecture processing) happens
// upstream; this is the minimal authoring surface.
type CatalogService struct {
	CourseRepo    *repository.CourseRepository
	ObjectiveRepo *repository.ObjectiveRepository
}

func NewCatalogService(courseRepo *repository.CourseRepository, objectiveRepo *repository.ObjectiveRepository) *CatalogService {
	return &CatalogService{
		CourseRepo:    courseRepo,
		ObjectiveRepo: objectiveRepo,
	}
}

type CourseRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description"`
}

func (s *CatalogService) CreateCourse(userID uint, req CourseRequest) (*model.Course, error) {
	course := &model.Course{
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := s.CourseRepo.Create(course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CatalogService) ListCourses(userID uint) ([]*model.Course, error) {
	return s.CourseRepo.FindByUser(userID)
}

type ObjectiveRequest struct {
	CourseID       uint   `json:"courseId" binding:"required"`
	Description    string `json:"description" binding:"required,max=512"`
	Complexity     string `json:"complexity" binding:"required,oneof=BASIC INTERMEDIATE ADVANCED"`
	HighYield      bool   `json:"highYield"`
	PrerequisiteID *uint  `json:"prerequisiteId"`
}

func (s *CatalogService) CreateObjective(userID uint, req ObjectiveRequest) (*model.LearningObjective, error) {
	course, err := s.CourseRepo.FindByID(req.CourseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	if course.UserID != userID {
		return nil, util.ErrCourseNotFound
	}

	if req.PrerequisiteID != nil {
		prereq, err := s.ObjectiveRepo.FindByID(*req.PrerequisiteID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, util.ErrObjectiveNotFound
			}
			return nil, err
		}
		if prereq.UserID != userID {
			return nil, util.ErrObjectiveNotFound
		}
	}

	obj := &model.LearningObjective{
		UserID:         userID,
		CourseID:       req.CourseID,
		Description:    req.Description,
		Complexity:     model.Complexity(req.Complexity),
		HighYield:      req.HighYield,
		PrerequisiteID: req.PrerequisiteID,
		MasteryLevel:   model.MasteryNotStarted,
	}
	if err := s.ObjectiveRepo.Create(obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func (s *CatalogService) ListObjectives(userID uint) ([]*model.LearningObjective, error) {
	return s.ObjectiveRepo.FindByUser(userID)
}

func (s *CatalogService) GetObjective(userID, objectiveID uint) (*model.LearningObjective, error) {
	obj, err := s.ObjectiveRepo.FindByID(objectiveID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrObjectiveNotFound
		}
		return nil, err
	}
	if obj.UserID != userID {
		return nil, util.ErrObjectiveNotFound
	}
	return obj, nil
}
