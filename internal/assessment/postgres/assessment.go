package postgres

import (
	"errors"
	"log/slog"

	"gorm.io/gorm"

	assessmentpkg "github.com/openlearn/learning-management/internal/assessment"
	"github.com/openlearn/learning-management/internal/audit"
	assessmentmodel "github.com/openlearn/learning-management/internal/core/datamodel/assessment"
	coursemodel "github.com/openlearn/learning-management/internal/core/datamodel/course"
	"github.com/openlearn/learning-management/internal/core/datamodel/identity"
)

// AssessmentRepository implements assessment.Repository over gorm. Writes run
// inside a transaction that also appends the caller's audit entries.
type AssessmentRepository struct {
	db       *gorm.DB
	recorder audit.Recorder
	logger   *slog.Logger
}

func NewAssessmentRepository(db *gorm.DB, recorder audit.Recorder, logger *slog.Logger) *AssessmentRepository {
	return &AssessmentRepository{db: db, recorder: recorder, logger: logger}
}

func (r *AssessmentRepository) GetByID(assessmentID int64) (*assessmentmodel.Assessment, error) {
	var row assessmentmodel.Assessment
	err := r.db.Where("assessment_id = ?", assessmentID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *AssessmentRepository) List(limit, offset int) ([]assessmentmodel.Assessment, error) {
	var rows []assessmentmodel.Assessment
	err := r.db.Order("assessment_id ASC").Limit(limit).Offset(offset).Find(&rows).Error
	return rows, err
}

func (r *AssessmentRepository) Create(row *assessmentmodel.Assessment, entry audit.Entry) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return assessmentpkg.ErrDuplicate
			}
			return err
		}
		entry.ObjectID = audit.NewObjectID(row.ID)
		return r.recorder.Record(tx, entry)
	})
}

func (r *AssessmentRepository) GetQuestionByID(questionID int64) (*assessmentmodel.Question, error) {
	var row assessmentmodel.Question
	err := r.db.Where("question_id = ?", questionID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *AssessmentRepository) CreateQuestion(row *assessmentmodel.Question, entry audit.Entry) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		entry.ObjectID = audit.NewObjectID(row.ID)
		return r.recorder.Record(tx, entry)
	})
}

func (r *AssessmentRepository) CreateChoice(row *assessmentmodel.Choice, entry audit.Entry) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		entry.ObjectID = audit.NewObjectID(row.ID)
		return r.recorder.Record(tx, entry)
	})
}

func (r *AssessmentRepository) ChoicesOf(questionID int64) ([]assessmentmodel.Choice, error) {
	var rows []assessmentmodel.Choice
	err := r.db.Where("question_id = ?", questionID).Order("choice_id ASC").Find(&rows).Error
	return rows, err
}

func (r *AssessmentRepository) GetAnswer(questionID int64) (*assessmentmodel.Answer, error) {
	var row assessmentmodel.Answer
	err := r.db.Where("question_id = ?", questionID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *AssessmentRepository) CreateAnswer(row *assessmentmodel.Answer, entry audit.Entry) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return assessmentpkg.ErrDuplicate
			}
			return err
		}
		entry.ObjectID = audit.NewObjectID(row.ID)
		return r.recorder.Record(tx, entry)
	})
}

func (r *AssessmentRepository) GetAssessmentQuestion(assessmentID, questionID int64) (*assessmentmodel.AssessmentQuestion, error) {
	var row assessmentmodel.AssessmentQuestion
	err := r.db.Where("assessment_id = ? AND question_id = ?", assessmentID, questionID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *AssessmentRepository) CreateAssessmentQuestion(link *assessmentmodel.AssessmentQuestion, entry audit.Entry) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(link).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return assessmentpkg.ErrDuplicate
			}
			return err
		}
		return r.recorder.Record(tx, entry)
	})
}

// QuestionsOf returns the assessment's questions in assignment order.
func (r *AssessmentRepository) QuestionsOf(assessmentID int64) ([]assessmentmodel.Question, error) {
	var rows []assessmentmodel.Question
	err := r.db.
		Joins("JOIN assessment_questions aq ON aq.question_id = questions.question_id").
		Where("aq.assessment_id = ?", assessmentID).
		Order("aq.assigned_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *AssessmentRepository) CourseExists(courseID int64) (bool, error) {
	var count int64
	err := r.db.Model(&coursemodel.Course{}).Where("course_id = ?", courseID).Count(&count).Error
	return count > 0, err
}

func (r *AssessmentRepository) GetCourseAssessment(courseID, assessmentID int64) (*assessmentmodel.CourseAssessment, error) {
	var row assessmentmodel.CourseAssessment
	err := r.db.Where("course_id = ? AND assessment_id = ?", courseID, assessmentID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *AssessmentRepository) CreateCourseAssessment(link *assessmentmodel.CourseAssessment, entry audit.Entry) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(link).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return assessmentpkg.ErrDuplicate
			}
			return err
		}
		return r.recorder.Record(tx, entry)
	})
}

func (r *AssessmentRepository) UserExists(userID int64) (bool, error) {
	var count int64
	err := r.db.Model(&identity.User{}).Where("user_id = ?", userID).Count(&count).Error
	return count > 0, err
}

func (r *AssessmentRepository) GetAttempt(userID, assessmentID int64) (*assessmentmodel.UserAssessment, error) {
	var row assessmentmodel.UserAssessment
	err := r.db.Where("user_id = ? AND assessment_id = ?", userID, assessmentID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *AssessmentRepository) CreateAttempt(attempt *assessmentmodel.UserAssessment, entry audit.Entry) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(attempt).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return assessmentpkg.ErrDuplicate
			}
			return err
		}
		return r.recorder.Record(tx, entry)
	})
}

func (r *AssessmentRepository) UpdateAttempt(attempt *assessmentmodel.UserAssessment, entry audit.Entry) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&assessmentmodel.UserAssessment{}).
			Where("user_id = ? AND assessment_id = ?", attempt.UserID, attempt.AssessmentID).
			Updates(map[string]interface{}{
				"is_started":   attempt.IsStarted,
				"is_completed": attempt.IsCompleted,
				"is_on_hold":   attempt.IsOnHold,
				"started_at":   attempt.StartedAt,
				"completed_at": attempt.CompletedAt,
			}).Error
		if err != nil {
			return err
		}
		return r.recorder.Record(tx, entry)
	})
}

func (r *AssessmentRepository) AttemptsOf(userID int64) ([]assessmentmodel.UserAssessment, error) {
	var rows []assessmentmodel.UserAssessment
	err := r.db.Where("user_id = ?", userID).Order("assigned_at ASC").Find(&rows).Error
	return rows, err
}

func (r *AssessmentRepository) GetQuestionState(userID, assessmentID, questionID int64) (*assessmentmodel.UserAssessmentQuestion, error) {
	var row assessmentmodel.UserAssessmentQuestion
	err := r.db.Where("user_id = ? AND assessment_id = ? AND question_id = ?", userID, assessmentID, questionID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// SaveQuestionState upserts the state row; the composite key makes Save
// deterministic.
func (r *AssessmentRepository) SaveQuestionState(state *assessmentmodel.UserAssessmentQuestion, entry audit.Entry) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(state).Error; err != nil {
			return err
		}
		return r.recorder.Record(tx, entry)
	})
}

func (r *AssessmentRepository) QuestionStatesOf(userID, assessmentID int64) ([]assessmentmodel.UserAssessmentQuestion, error) {
	var rows []assessmentmodel.UserAssessmentQuestion
	err := r.db.Where("user_id = ? AND assessment_id = ?", userID, assessmentID).Find(&rows).Error
	return rows, err
}
