package postgres

import (
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"github.com/openlearn/learning-management/internal/audit"
	coursepkg "github.com/openlearn/learning-management/internal/course"
	coursemodel "github.com/openlearn/learning-management/internal/core/datamodel/course"
	"github.com/openlearn/learning-management/internal/core/datamodel/identity"
)

// CourseRepository implements course.Repository over gorm. Writes run inside
// a transaction that also appends the caller's audit entries.
type CourseRepository struct {
	db       *gorm.DB
	recorder audit.Recorder
	logger   *slog.Logger
}

func NewCourseRepository(db *gorm.DB, recorder audit.Recorder, logger *slog.Logger) *CourseRepository {
	return &CourseRepository{db: db, recorder: recorder, logger: logger}
}

func (r *CourseRepository) GetByID(courseID int64) (*coursemodel.Course, error) {
	var row coursemodel.Course
	err := r.db.Where("course_id = ?", courseID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *CourseRepository) GetByName(name string) (*coursemodel.Course, error) {
	var row coursemodel.Course
	err := r.db.Where("name = ?", name).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *CourseRepository) List(limit, offset int) ([]coursemodel.Course, error) {
	var rows []coursemodel.Course
	err := r.db.Order("course_id ASC").Limit(limit).Offset(offset).Find(&rows).Error
	return rows, err
}

func (r *CourseRepository) Create(row *coursemodel.Course, entry audit.Entry) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return coursepkg.ErrDuplicate
			}
			return err
		}
		entry.ObjectID = audit.NewObjectID(row.ID)
		return r.recorder.Record(tx, entry)
	})
}

func (r *CourseRepository) Update(row *coursemodel.Course, entry audit.Entry) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(row).Error; err != nil {
			return err
		}
		return r.recorder.Record(tx, entry)
	})
}

func (r *CourseRepository) EnrolledCount(courseID int64) (int64, error) {
	var count int64
	err := r.db.Model(&coursemodel.UserCourse{}).Where("course_id = ?", courseID).Count(&count).Error
	return count, err
}

func (r *CourseRepository) GetLessonByID(lessonID int64) (*coursemodel.Lesson, error) {
	var row coursemodel.Lesson
	err := r.db.Where("lesson_id = ?", lessonID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *CourseRepository) CreateLesson(row *coursemodel.Lesson, entry audit.Entry) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		entry.ObjectID = audit.NewObjectID(row.ID)
		return r.recorder.Record(tx, entry)
	})
}

// LessonsOf returns the course's lessons in assignment order.
func (r *CourseRepository) LessonsOf(courseID int64) ([]coursemodel.Lesson, error) {
	var rows []coursemodel.Lesson
	err := r.db.
		Joins("JOIN course_lessons cl ON cl.lesson_id = lessons.lesson_id").
		Where("cl.course_id = ?", courseID).
		Order(`cl."index" ASC`).
		Find(&rows).Error
	return rows, err
}

func (r *CourseRepository) GetCourseLesson(courseID, lessonID int64) (*coursemodel.CourseLesson, error) {
	var row coursemodel.CourseLesson
	err := r.db.Where("course_id = ? AND lesson_id = ?", courseID, lessonID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *CourseRepository) CreateCourseLesson(link *coursemodel.CourseLesson, entry audit.Entry) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(link).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return coursepkg.ErrDuplicate
			}
			return err
		}
		return r.recorder.Record(tx, entry)
	})
}

func (r *CourseRepository) UserExists(userID int64) (bool, error) {
	var count int64
	err := r.db.Model(&identity.User{}).Where("user_id = ?", userID).Count(&count).Error
	return count > 0, err
}

func (r *CourseRepository) GetEnrollment(userID, courseID int64) (*coursemodel.UserCourse, error) {
	var row coursemodel.UserCourse
	err := r.db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *CourseRepository) CreateEnrollment(enrollment *coursemodel.UserCourse, entry audit.Entry) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(enrollment).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return coursepkg.ErrDuplicate
			}
			return err
		}
		return r.recorder.Record(tx, entry)
	})
}

func (r *CourseRepository) UpdateEnrollment(enrollment *coursemodel.UserCourse, entry audit.Entry) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&coursemodel.UserCourse{}).
			Where("user_id = ? AND course_id = ?", enrollment.UserID, enrollment.CourseID).
			Updates(map[string]interface{}{
				"is_completed": enrollment.IsCompleted,
				"completed_at": enrollment.CompletedAt,
			}).Error
		if err != nil {
			return err
		}
		return r.recorder.Record(tx, entry)
	})
}

func (r *CourseRepository) EnrollmentsOf(userID int64) ([]coursemodel.UserCourse, error) {
	var rows []coursemodel.UserCourse
	err := r.db.Where("user_id = ?", userID).Order("assigned_at ASC").Find(&rows).Error
	return rows, err
}

func (r *CourseRepository) GetLessonProgress(userID, courseID, lessonID int64) (*coursemodel.UserCourseLesson, error) {
	var row coursemodel.UserCourseLesson
	err := r.db.Where("user_id = ? AND course_id = ? AND lesson_id = ?", userID, courseID, lessonID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// SaveLessonProgress upserts the progress row; the composite key makes Save
// deterministic.
func (r *CourseRepository) SaveLessonProgress(progress *coursemodel.UserCourseLesson, entry audit.Entry) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(progress).Error; err != nil {
			return err
		}
		return r.recorder.Record(tx, entry)
	})
}

func (r *CourseRepository) LessonProgressOf(userID, courseID int64) ([]coursemodel.UserCourseLesson, error) {
	var rows []coursemodel.UserCourseLesson
	err := r.db.Where("user_id = ? AND course_id = ?", userID, courseID).Find(&rows).Error
	return rows, err
}
