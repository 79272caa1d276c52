package course

import (
	"errors"
	"strings"

	"github.com/openlearn/learning-management/internal/core/common/validation"
)

type CreateCourseDTO struct {
	Name    string `json:"name"`
	Summary string `json:"summary"`
	Content string `json:"content"`
}

func (d *CreateCourseDTO) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.Summary = strings.TrimSpace(d.Summary)
}

// Validate validates the CreateCourseDTO
func (d CreateCourseDTO) Validate() error {
	validator := validation.NewValidator()

	validator.Field("name", d.Name).Required().MaxLength(255)
	validator.Field("summary", d.Summary).Required()
	validator.Field("content", d.Content).Required()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type CreateLessonDTO struct {
	Name    string `json:"name"`
	Index   int    `json:"index"`
	Content string `json:"content"`
}

func (d CreateLessonDTO) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return errors.New("name is required")
	}
	if d.Index < 0 {
		return errors.New("index must not be negative")
	}
	if d.Content == "" {
		return errors.New("content is required")
	}
	return nil
}

// AssignLessonDTO links an existing lesson into a course at a position.
type AssignLessonDTO struct {
	LessonID int64 `json:"lesson_id"`
	Index    int   `json:"index"`
}

func (d AssignLessonDTO) Validate() error {
	if d.LessonID <= 0 {
		return errors.New("lesson_id is required")
	}
	if d.Index < 0 {
		return errors.New("index must not be negative")
	}
	return nil
}

// EnrollDTO assigns a user to a course.
type EnrollDTO struct {
	UserID int64 `json:"user_id"`
}

func (d EnrollDTO) Validate() error {
	if d.UserID <= 0 {
		return errors.New("user_id is required")
	}
	return nil
}
