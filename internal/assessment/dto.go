package assessment

import (
	"errors"
	"strings"
)

// Question types supported by the catalog.
const (
	QuestionTypeMultipleChoice = "multiple_choice"
	QuestionTypeFreeText       = "free_text"
)

type CreateAssessmentDTO struct {
	Name              string `json:"name"`
	Summary           string `json:"summary"`
	DurationInMinutes int    `json:"duration_in_minutes"`
}

func (d *CreateAssessmentDTO) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.Summary = strings.TrimSpace(d.Summary)
}

// Validate validates the CreateAssessmentDTO
func (d CreateAssessmentDTO) Validate() error {
	if d.Name == "" {
		return errors.New("name is required")
	}
	if len(d.Name) > 255 {
		return errors.New("name must not exceed 255 characters")
	}
	if d.DurationInMinutes < 0 {
		return errors.New("duration must not be negative")
	}
	return nil
}

type CreateQuestionDTO struct {
	Question string `json:"question"`
	Type     string `json:"type"`
}

func (d CreateQuestionDTO) Validate() error {
	if strings.TrimSpace(d.Question) == "" {
		return errors.New("question is required")
	}
	switch d.Type {
	case QuestionTypeMultipleChoice, QuestionTypeFreeText:
		return nil
	default:
		return errors.New("type must be multiple_choice or free_text")
	}
}

type CreateChoiceDTO struct {
	Choice string `json:"choice"`
}

func (d CreateChoiceDTO) Validate() error {
	if strings.TrimSpace(d.Choice) == "" {
		return errors.New("choice is required")
	}
	return nil
}

type SetAnswerDTO struct {
	Answer string `json:"answer"`
}

func (d SetAnswerDTO) Validate() error {
	if strings.TrimSpace(d.Answer) == "" {
		return errors.New("answer is required")
	}
	return nil
}

type AssignQuestionDTO struct {
	QuestionID int64 `json:"question_id"`
}

func (d AssignQuestionDTO) Validate() error {
	if d.QuestionID <= 0 {
		return errors.New("question_id is required")
	}
	return nil
}

type AssignCourseDTO struct {
	CourseID int64 `json:"course_id"`
}

func (d AssignCourseDTO) Validate() error {
	if d.CourseID <= 0 {
		return errors.New("course_id is required")
	}
	return nil
}

type AssignUserDTO struct {
	UserID int64 `json:"user_id"`
}

func (d AssignUserDTO) Validate() error {
	if d.UserID <= 0 {
		return errors.New("user_id is required")
	}
	return nil
}
