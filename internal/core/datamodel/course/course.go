package course

import "time"

type Course struct {
	ID      int64  `gorm:"column:course_id;primaryKey"`
	Name    string `gorm:"column:name;uniqueIndex;not null"`
	Summary string `gorm:"column:summary;not null"`
	Content string `gorm:"column:content;not null"`
}

func (Course) TableName() string { return "courses" }

type Lesson struct {
	ID      int64  `gorm:"column:lesson_id;primaryKey"`
	Name    string `gorm:"column:name;index;not null"`
	Index   int    `gorm:"column:index"`
	Content string `gorm:"column:content;not null"`
}

func (Lesson) TableName() string { return "lessons" }

type CourseLesson struct {
	CourseID   int64     `gorm:"column:course_id;primaryKey"`
	LessonID   int64     `gorm:"column:lesson_id;primaryKey"`
	Index      int       `gorm:"column:index"`
	AssignedAt time.Time `gorm:"column:assigned_at;default:now()"`
	AssignedBy int64     `gorm:"column:assigned_by_id;not null"`
}

func (CourseLesson) TableName() string { return "course_lessons" }

// UserCourse is the enrollment record: one row per user per course.
type UserCourse struct {
	UserID      int64      `gorm:"column:user_id;primaryKey"`
	CourseID    int64      `gorm:"column:course_id;primaryKey"`
	AssignedAt  time.Time  `gorm:"column:assigned_at;default:now()"`
	AssignedBy  int64      `gorm:"column:assigned_by_id;not null"`
	IsCompleted bool       `gorm:"column:is_completed;default:false"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
}

func (UserCourse) TableName() string { return "user_courses" }

// UserCourseLesson tracks fine-grained per-lesson progress inside an
// enrollment.
type UserCourseLesson struct {
	UserID          int64      `gorm:"column:user_id;primaryKey"`
	CourseID        int64      `gorm:"column:course_id;primaryKey"`
	LessonID        int64      `gorm:"column:lesson_id;primaryKey"`
	FirstAccessedAt *time.Time `gorm:"column:first_accessed_at"`
	LastAccessedAt  *time.Time `gorm:"column:last_accessed_at"`
	OpenedAt        *time.Time `gorm:"column:opened_at"`
	ClosedAt        *time.Time `gorm:"column:closed_at"`
	IsAccessed      bool       `gorm:"column:is_accessed;default:false"`
	IsCompleted     bool       `gorm:"column:is_completed;default:false"`
	IsSkipped       bool       `gorm:"column:is_skipped;default:false"`
	CompletedAt     *time.Time `gorm:"column:completed_at"`
	SkippedAt       *time.Time `gorm:"column:skipped_at"`
}

func (UserCourseLesson) TableName() string { return "user_course_lessons" }
