package util

import "errors"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailRegistered   = errors.New("email already registered")
	ErrCourseNotFound    = errors.New("course not found")
	ErrObjectiveNotFound = errors.New("objective not found")
	ErrMissionNotFound   = errors.New("mission not found")

	ErrMissionFinished          = errors.New("mission already completed or skipped")
	ErrMissionObjectiveNotFound = errors.New("objective is not part of this mission")
	ErrRegenerateCompleted      = errors.New("completed missions cannot be regenerated")
	ErrRegenerateInProgress     = errors.New("regeneration already in progress for this mission")
)
