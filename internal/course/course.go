package course

import (
	"errors"

	"github.com/openlearn/learning-management/internal/audit"
	coursemodel "github.com/openlearn/learning-management/internal/core/datamodel/course"
)

// ErrDuplicate is returned by the repository when a store-level uniqueness
// constraint rejects a write. For association rows this is the signal for the
// idempotent already-assigned outcome.
var ErrDuplicate = errors.New("duplicate row")

// Repository defines the data access methods for the course catalog,
// enrollments and lesson progress. Lookups return (nil, nil) when the row
// does not exist. Write methods append the given audit entries inside the
// same transaction.
type Repository interface {
	GetByID(courseID int64) (*coursemodel.Course, error)
	GetByName(name string) (*coursemodel.Course, error)
	List(limit, offset int) ([]coursemodel.Course, error)
	Create(course *coursemodel.Course, entry audit.Entry) error
	Update(course *coursemodel.Course, entry audit.Entry) error
	EnrolledCount(courseID int64) (int64, error)

	GetLessonByID(lessonID int64) (*coursemodel.Lesson, error)
	CreateLesson(lesson *coursemodel.Lesson, entry audit.Entry) error
	LessonsOf(courseID int64) ([]coursemodel.Lesson, error)
	GetCourseLesson(courseID, lessonID int64) (*coursemodel.CourseLesson, error)
	CreateCourseLesson(link *coursemodel.CourseLesson, entry audit.Entry) error

	UserExists(userID int64) (bool, error)
	GetEnrollment(userID, courseID int64) (*coursemodel.UserCourse, error)
	CreateEnrollment(enrollment *coursemodel.UserCourse, entry audit.Entry) error
	UpdateEnrollment(enrollment *coursemodel.UserCourse, entry audit.Entry) error
	EnrollmentsOf(userID int64) ([]coursemodel.UserCourse, error)

	GetLessonProgress(userID, courseID, lessonID int64) (*coursemodel.UserCourseLesson, error)
	SaveLessonProgress(progress *coursemodel.UserCourseLesson, entry audit.Entry) error
	LessonProgressOf(userID, courseID int64) ([]coursemodel.UserCourseLesson, error)
}

type View struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Summary       string `json:"summary"`
	Content       string `json:"content,omitempty"`
	EnrolledCount int64  `json:"enrolled_count"`
}

type LessonView struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Index   int    `json:"index"`
	Content string `json:"content,omitempty"`
}

type EnrollmentView struct {
	UserID      int64   `json:"user_id"`
	CourseID    int64   `json:"course_id"`
	AssignedAt  string  `json:"assigned_at"`
	IsCompleted bool    `json:"is_completed"`
	CompletedAt *string `json:"completed_at,omitempty"`
}

type LessonProgressView struct {
	LessonID    int64   `json:"lesson_id"`
	IsAccessed  bool    `json:"is_accessed"`
	IsCompleted bool    `json:"is_completed"`
	IsSkipped   bool    `json:"is_skipped"`
	OpenedAt    *string `json:"opened_at,omitempty"`
	ClosedAt    *string `json:"closed_at,omitempty"`
}

// DashboardView aggregates the per-user metrics shown on the landing page.
type DashboardView struct {
	CourseCount       int     `json:"course_count"`
	CompletedCourses  int     `json:"completed_courses"`
	LearningHours     float64 `json:"learning_hours"`
	AssessmentCount   int     `json:"assessment_count"`
	StartedCount      int     `json:"started_count"`
	CompletedAttempts int     `json:"completed_attempts"`
}
