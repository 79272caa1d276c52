package assessment

import "time"

type Assessment struct {
	ID                int64  `gorm:"column:assessment_id;primaryKey"`
	Name              string `gorm:"column:name;not null"`
	Summary           string `gorm:"column:summary;default:N/A"`
	DurationInMinutes int    `gorm:"column:duration_in_minutes"`
}

func (Assessment) TableName() string { return "assessments" }

type Question struct {
	ID       int64  `gorm:"column:question_id;primaryKey"`
	Question string `gorm:"column:question;not null"`
	Type     string `gorm:"column:type;not null"`
}

func (Question) TableName() string { return "questions" }

type Choice struct {
	ID         int64  `gorm:"column:choice_id;primaryKey"`
	Choice     string `gorm:"column:choice;not null"`
	QuestionID int64  `gorm:"column:question_id;not null"`
}

func (Choice) TableName() string { return "choices" }

// Answer holds the correct answer of a question. The unique index on
// question_id enforces at most one answer per question.
type Answer struct {
	ID         int64  `gorm:"column:answer_id;primaryKey"`
	Answer     string `gorm:"column:answer;not null"`
	QuestionID int64  `gorm:"column:question_id;uniqueIndex;not null"`
}

func (Answer) TableName() string { return "answers" }

type AssessmentQuestion struct {
	AssessmentID int64     `gorm:"column:assessment_id;primaryKey"`
	QuestionID   int64     `gorm:"column:question_id;primaryKey"`
	AssignedAt   time.Time `gorm:"column:assigned_at;default:now()"`
	AssignedBy   int64     `gorm:"column:assigned_by_id;not null"`
}

func (AssessmentQuestion) TableName() string { return "assessment_questions" }

type CourseAssessment struct {
	CourseID     int64     `gorm:"column:course_id;primaryKey"`
	AssessmentID int64     `gorm:"column:assessment_id;primaryKey"`
	AssignedAt   time.Time `gorm:"column:assigned_at;default:now()"`
	AssignedBy   int64     `gorm:"column:assigned_by_id;not null"`
}

func (CourseAssessment) TableName() string { return "course_assessments" }

// UserAssessment is the attempt record for an assigned assessment.
type UserAssessment struct {
	UserID       int64      `gorm:"column:user_id;primaryKey"`
	AssessmentID int64      `gorm:"column:assessment_id;primaryKey"`
	AssignedAt   time.Time  `gorm:"column:assigned_at;default:now()"`
	AssignedBy   int64      `gorm:"column:assigned_by_id;not null"`
	StartedAt    *time.Time `gorm:"column:started_at"`
	CompletedAt  *time.Time `gorm:"column:completed_at"`
	IsStarted    bool       `gorm:"column:is_started;default:false"`
	IsCompleted  bool       `gorm:"column:is_completed;default:false"`
	IsOnHold     bool       `gorm:"column:is_on_hold;default:false"`
}

func (UserAssessment) TableName() string { return "user_assessments" }

type UserAssessmentQuestion struct {
	UserID       int64      `gorm:"column:user_id;primaryKey"`
	AssessmentID int64      `gorm:"column:assessment_id;primaryKey"`
	QuestionID   int64      `gorm:"column:question_id;primaryKey"`
	OpenedAt     *time.Time `gorm:"column:opened_at"`
	ClosedAt     *time.Time `gorm:"column:closed_at"`
	CompletedAt  *time.Time `gorm:"column:completed_at"`
	SkippedAt    *time.Time `gorm:"column:skipped_at"`
	IsCompleted  bool       `gorm:"column:is_completed;default:false"`
	IsSkipped    bool       `gorm:"column:is_skipped;default:false"`
}

func (UserAssessmentQuestion) TableName() string { return "user_assessment_questions" }
