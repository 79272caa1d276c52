package assessment

import (
	"errors"

	"github.com/openlearn/learning-management/internal/audit"
	assessmentmodel "github.com/openlearn/learning-management/internal/core/datamodel/assessment"
)

// ErrDuplicate is returned by the repository when a store-level uniqueness
// constraint rejects a write.
var ErrDuplicate = errors.New("duplicate row")

// Repository defines the data access methods for assessments, questions and
// attempts. Lookups return (nil, nil) when the row does not exist. Write
// methods append the given audit entries inside the same transaction.
type Repository interface {
	GetByID(assessmentID int64) (*assessmentmodel.Assessment, error)
	List(limit, offset int) ([]assessmentmodel.Assessment, error)
	Create(assessment *assessmentmodel.Assessment, entry audit.Entry) error

	GetQuestionByID(questionID int64) (*assessmentmodel.Question, error)
	CreateQuestion(question *assessmentmodel.Question, entry audit.Entry) error
	CreateChoice(choice *assessmentmodel.Choice, entry audit.Entry) error
	ChoicesOf(questionID int64) ([]assessmentmodel.Choice, error)
	GetAnswer(questionID int64) (*assessmentmodel.Answer, error)
	CreateAnswer(answer *assessmentmodel.Answer, entry audit.Entry) error

	GetAssessmentQuestion(assessmentID, questionID int64) (*assessmentmodel.AssessmentQuestion, error)
	CreateAssessmentQuestion(link *assessmentmodel.AssessmentQuestion, entry audit.Entry) error
	QuestionsOf(assessmentID int64) ([]assessmentmodel.Question, error)

	CourseExists(courseID int64) (bool, error)
	GetCourseAssessment(courseID, assessmentID int64) (*assessmentmodel.CourseAssessment, error)
	CreateCourseAssessment(link *assessmentmodel.CourseAssessment, entry audit.Entry) error

	UserExists(userID int64) (bool, error)
	GetAttempt(userID, assessmentID int64) (*assessmentmodel.UserAssessment, error)
	CreateAttempt(attempt *assessmentmodel.UserAssessment, entry audit.Entry) error
	UpdateAttempt(attempt *assessmentmodel.UserAssessment, entry audit.Entry) error
	AttemptsOf(userID int64) ([]assessmentmodel.UserAssessment, error)

	GetQuestionState(userID, assessmentID, questionID int64) (*assessmentmodel.UserAssessmentQuestion, error)
	SaveQuestionState(state *assessmentmodel.UserAssessmentQuestion, entry audit.Entry) error
	QuestionStatesOf(userID, assessmentID int64) ([]assessmentmodel.UserAssessmentQuestion, error)
}

type View struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	Summary           string `json:"summary"`
	DurationInMinutes int    `json:"duration_in_minutes"`
}

type QuestionView struct {
	ID       int64        `json:"id"`
	Question string       `json:"question"`
	Type     string       `json:"type"`
	Choices  []ChoiceView `json:"choices,omitempty"`
}

type ChoiceView struct {
	ID     int64  `json:"id"`
	Choice string `json:"choice"`
}

type AttemptView struct {
	UserID       int64   `json:"user_id"`
	AssessmentID int64   `json:"assessment_id"`
	IsStarted    bool    `json:"is_started"`
	IsCompleted  bool    `json:"is_completed"`
	IsOnHold     bool    `json:"is_on_hold"`
	StartedAt    *string `json:"started_at,omitempty"`
	CompletedAt  *string `json:"completed_at,omitempty"`
}

type QuestionStateView struct {
	QuestionID  int64   `json:"question_id"`
	IsCompleted bool    `json:"is_completed"`
	IsSkipped   bool    `json:"is_skipped"`
	OpenedAt    *string `json:"opened_at,omitempty"`
	ClosedAt    *string `json:"closed_at,omitempty"`
}

// EvaluationView is the evaluator's per-attempt summary: which questions were
// answered, skipped or left untouched.
type EvaluationView struct {
	UserID        int64               `json:"user_id"`
	AssessmentID  int64               `json:"assessment_id"`
	TotalCount    int                 `json:"total_count"`
	CompletedList []QuestionStateView `json:"completed"`
	SkippedList   []QuestionStateView `json:"skipped"`
	OpenCount     int                 `json:"open_count"`
}
