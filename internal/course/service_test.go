package course_test

import (
	"context"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openlearn/learning-management/internal"
	"github.com/openlearn/learning-management/internal/audit"
	coursemodel "github.com/openlearn/learning-management/internal/core/datamodel/course"
	"github.com/openlearn/learning-management/internal/core/events"
	"github.com/openlearn/learning-management/internal/course"
)

type enrollmentKey struct{ userID, courseID int64 }
type progressKey struct{ userID, courseID, lessonID int64 }
type linkKey struct{ courseID, lessonID int64 }

type mockCourseRepo struct {
	nextCourseID int64
	nextLessonID int64
	courses      map[int64]*coursemodel.Course
	byName       map[string]*coursemodel.Course
	lessons      map[int64]*coursemodel.Lesson
	links        map[linkKey]*coursemodel.CourseLesson
	users        map[int64]bool
	enrollments  map[enrollmentKey]*coursemodel.UserCourse
	progress     map[progressKey]*coursemodel.UserCourseLesson
	entries      []audit.Entry

	duplicateOnEnroll bool
}

func newMockCourseRepo() *mockCourseRepo {
	return &mockCourseRepo{
		nextCourseID: 1,
		nextLessonID: 1,
		courses:      map[int64]*coursemodel.Course{},
		byName:       map[string]*coursemodel.Course{},
		lessons:      map[int64]*coursemodel.Lesson{},
		links:        map[linkKey]*coursemodel.CourseLesson{},
		users:        map[int64]bool{},
		enrollments:  map[enrollmentKey]*coursemodel.UserCourse{},
		progress:     map[progressKey]*coursemodel.UserCourseLesson{},
	}
}

func (m *mockCourseRepo) GetByID(courseID int64) (*coursemodel.Course, error) {
	return m.courses[courseID], nil
}

func (m *mockCourseRepo) GetByName(name string) (*coursemodel.Course, error) {
	return m.byName[name], nil
}

func (m *mockCourseRepo) List(limit, offset int) ([]coursemodel.Course, error) {
	out := make([]coursemodel.Course, 0, len(m.courses))
	for _, c := range m.courses {
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockCourseRepo) Create(row *coursemodel.Course, entry audit.Entry) error {
	if m.byName[row.Name] != nil {
		return course.ErrDuplicate
	}
	row.ID = m.nextCourseID
	m.nextCourseID++
	m.courses[row.ID] = row
	m.byName[row.Name] = row
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockCourseRepo) Update(row *coursemodel.Course, entry audit.Entry) error {
	m.courses[row.ID] = row
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockCourseRepo) EnrolledCount(courseID int64) (int64, error) {
	var count int64
	for k := range m.enrollments {
		if k.courseID == courseID {
			count++
		}
	}
	return count, nil
}

func (m *mockCourseRepo) GetLessonByID(lessonID int64) (*coursemodel.Lesson, error) {
	return m.lessons[lessonID], nil
}

func (m *mockCourseRepo) CreateLesson(row *coursemodel.Lesson, entry audit.Entry) error {
	row.ID = m.nextLessonID
	m.nextLessonID++
	m.lessons[row.ID] = row
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockCourseRepo) LessonsOf(courseID int64) ([]coursemodel.Lesson, error) {
	out := make([]coursemodel.Lesson, 0)
	for k, link := range m.links {
		if k.courseID == courseID {
			if l := m.lessons[link.LessonID]; l != nil {
				out = append(out, *l)
			}
		}
	}
	return out, nil
}

func (m *mockCourseRepo) GetCourseLesson(courseID, lessonID int64) (*coursemodel.CourseLesson, error) {
	return m.links[linkKey{courseID, lessonID}], nil
}

func (m *mockCourseRepo) CreateCourseLesson(link *coursemodel.CourseLesson, entry audit.Entry) error {
	key := linkKey{link.CourseID, link.LessonID}
	if m.links[key] != nil {
		return course.ErrDuplicate
	}
	m.links[key] = link
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockCourseRepo) UserExists(userID int64) (bool, error) {
	return m.users[userID], nil
}

func (m *mockCourseRepo) GetEnrollment(userID, courseID int64) (*coursemodel.UserCourse, error) {
	return m.enrollments[enrollmentKey{userID, courseID}], nil
}

func (m *mockCourseRepo) CreateEnrollment(enrollment *coursemodel.UserCourse, entry audit.Entry) error {
	key := enrollmentKey{enrollment.UserID, enrollment.CourseID}
	if m.duplicateOnEnroll || m.enrollments[key] != nil {
		return course.ErrDuplicate
	}
	m.enrollments[key] = enrollment
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockCourseRepo) UpdateEnrollment(enrollment *coursemodel.UserCourse, entry audit.Entry) error {
	m.enrollments[enrollmentKey{enrollment.UserID, enrollment.CourseID}] = enrollment
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockCourseRepo) EnrollmentsOf(userID int64) ([]coursemodel.UserCourse, error) {
	out := make([]coursemodel.UserCourse, 0)
	for k, e := range m.enrollments {
		if k.userID == userID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *mockCourseRepo) GetLessonProgress(userID, courseID, lessonID int64) (*coursemodel.UserCourseLesson, error) {
	return m.progress[progressKey{userID, courseID, lessonID}], nil
}

func (m *mockCourseRepo) SaveLessonProgress(progress *coursemodel.UserCourseLesson, entry audit.Entry) error {
	m.progress[progressKey{progress.UserID, progress.CourseID, progress.LessonID}] = progress
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockCourseRepo) LessonProgressOf(userID, courseID int64) ([]coursemodel.UserCourseLesson, error) {
	out := make([]coursemodel.UserCourseLesson, 0)
	for k, p := range m.progress {
		if k.userID == userID && k.courseID == courseID {
			out = append(out, *p)
		}
	}
	return out, nil
}

type capturingPublisher struct {
	published []events.Event
}

func (p *capturingPublisher) Publish(_ context.Context, event events.Event) error {
	p.published = append(p.published, event)
	return nil
}

var _ = Describe("Course Service", func() {
	var (
		repo      *mockCourseRepo
		publisher *capturingPublisher
		service   *course.Service
	)

	BeforeEach(func() {
		repo = newMockCourseRepo()
		publisher = &capturingPublisher{}
		service = course.NewService(repo, publisher, nil, slog.Default())
	})

	Describe("CreateCourse", func() {
		It("creates a catalog entry with a zero enrolled count", func() {
			view, err := service.CreateCourse(1, course.CreateCourseDTO{Name: "Go Basics", Summary: "s", Content: "c"})
			Expect(err).NotTo(HaveOccurred())
			Expect(view.Name).To(Equal("Go Basics"))
			Expect(view.EnrolledCount).To(Equal(int64(0)))
		})

		It("conflicts on a duplicate name", func() {
			_, err := service.CreateCourse(1, course.CreateCourseDTO{Name: "Go Basics", Summary: "s", Content: "c"})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.CreateCourse(1, course.CreateCourseDTO{Name: "Go Basics", Summary: "x", Content: "y"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeConflict))
		})
	})

	Describe("Enroll", func() {
		var courseID int64

		BeforeEach(func() {
			view, err := service.CreateCourse(1, course.CreateCourseDTO{Name: "Go Basics", Summary: "s", Content: "c"})
			Expect(err).NotTo(HaveOccurred())
			courseID = view.ID
			repo.users[42] = true
		})

		It("creates a stamped enrollment and publishes an event", func() {
			Expect(service.Enroll(9, courseID, course.EnrollDTO{UserID: 42})).To(Succeed())

			enrollment := repo.enrollments[enrollmentKey{42, courseID}]
			Expect(enrollment).NotTo(BeNil())
			Expect(enrollment.AssignedBy).To(Equal(int64(9)))
			Expect(enrollment.AssignedAt).NotTo(BeZero())

			Expect(publisher.published).To(HaveLen(1))
			Expect(publisher.published[0].EventType()).To(Equal(events.CourseEnrolledEvent))
		})

		It("reports a repeat enrollment as already assigned", func() {
			Expect(service.Enroll(9, courseID, course.EnrollDTO{UserID: 42})).To(Succeed())

			err := service.Enroll(9, courseID, course.EnrollDTO{UserID: 42})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeConflict))
			Expect(appErr.Message).To(Equal("This course is already assigned to this user."))

			count, _ := repo.EnrolledCount(courseID)
			Expect(count).To(Equal(int64(1)))
		})

		It("maps a lost check-and-insert race to the same outcome", func() {
			repo.duplicateOnEnroll = true
			err := service.Enroll(9, courseID, course.EnrollDTO{UserID: 42})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeConflict))
		})

		It("rejects an unknown user", func() {
			err := service.Enroll(9, courseID, course.EnrollDTO{UserID: 404})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeNotFound))
			Expect(publisher.published).To(BeEmpty())
		})

		It("rejects an unknown course", func() {
			err := service.Enroll(9, 404, course.EnrollDTO{UserID: 42})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeNotFound))
		})
	})

	Describe("Lesson progress", func() {
		var (
			courseID int64
			lessonID int64
		)

		BeforeEach(func() {
			view, err := service.CreateCourse(1, course.CreateCourseDTO{Name: "Go Basics", Summary: "s", Content: "c"})
			Expect(err).NotTo(HaveOccurred())
			courseID = view.ID

			lesson, err := service.CreateLesson(1, course.CreateLessonDTO{Name: "Variables", Index: 1, Content: "c"})
			Expect(err).NotTo(HaveOccurred())
			lessonID = lesson.ID

			Expect(service.AssignLesson(1, courseID, course.AssignLessonDTO{LessonID: lessonID, Index: 1})).To(Succeed())

			repo.users[42] = true
			Expect(service.Enroll(9, courseID, course.EnrollDTO{UserID: 42})).To(Succeed())
		})

		It("stamps first access on open", func() {
			view, err := service.OpenLesson(42, courseID, lessonID)
			Expect(err).NotTo(HaveOccurred())
			Expect(view.IsAccessed).To(BeTrue())
			Expect(view.OpenedAt).NotTo(BeNil())

			stored := repo.progress[progressKey{42, courseID, lessonID}]
			Expect(stored.FirstAccessedAt).NotTo(BeNil())
		})

		It("refuses progress for a user who is not enrolled", func() {
			_, err := service.OpenLesson(7, courseID, lessonID)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeNotFound))
		})

		It("clears a skip when the lesson is completed", func() {
			_, err := service.SkipLesson(42, courseID, lessonID)
			Expect(err).NotTo(HaveOccurred())

			view, err := service.CompleteLesson(42, courseID, lessonID)
			Expect(err).NotTo(HaveOccurred())
			Expect(view.IsCompleted).To(BeTrue())
			Expect(view.IsSkipped).To(BeFalse())
		})

		It("refuses to skip a completed lesson", func() {
			_, err := service.CompleteLesson(42, courseID, lessonID)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.SkipLesson(42, courseID, lessonID)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})
	})

	Describe("CompleteCourse", func() {
		var (
			courseID int64
			lessonID int64
		)

		BeforeEach(func() {
			view, err := service.CreateCourse(1, course.CreateCourseDTO{Name: "Go Basics", Summary: "s", Content: "c"})
			Expect(err).NotTo(HaveOccurred())
			courseID = view.ID

			lesson, err := service.CreateLesson(1, course.CreateLessonDTO{Name: "Variables", Index: 1, Content: "c"})
			Expect(err).NotTo(HaveOccurred())
			lessonID = lesson.ID
			Expect(service.AssignLesson(1, courseID, course.AssignLessonDTO{LessonID: lessonID, Index: 1})).To(Succeed())

			repo.users[42] = true
			Expect(service.Enroll(9, courseID, course.EnrollDTO{UserID: 42})).To(Succeed())
		})

		It("refuses while lessons are outstanding", func() {
			_, err := service.CompleteCourse(42, courseID)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("closes the enrollment once every lesson is done", func() {
			_, err := service.CompleteLesson(42, courseID, lessonID)
			Expect(err).NotTo(HaveOccurred())

			view, err := service.CompleteCourse(42, courseID)
			Expect(err).NotTo(HaveOccurred())
			Expect(view.IsCompleted).To(BeTrue())
			Expect(view.CompletedAt).NotTo(BeNil())

			Expect(publisher.published[len(publisher.published)-1].EventType()).To(Equal(events.CourseCompletedEvent))
		})

		It("is idempotent for an already completed enrollment", func() {
			_, err := service.CompleteLesson(42, courseID, lessonID)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.CompleteCourse(42, courseID)
			Expect(err).NotTo(HaveOccurred())

			view, err := service.CompleteCourse(42, courseID)
			Expect(err).NotTo(HaveOccurred())
			Expect(view.IsCompleted).To(BeTrue())
		})
	})

	Describe("Dashboard", func() {
		It("sums open close intervals into learning hours", func() {
			view, err := service.CreateCourse(1, course.CreateCourseDTO{Name: "Go Basics", Summary: "s", Content: "c"})
			Expect(err).NotTo(HaveOccurred())
			repo.users[42] = true
			Expect(service.Enroll(9, view.ID, course.EnrollDTO{UserID: 42})).To(Succeed())

			opened := time.Now().Add(-90 * time.Minute)
			closed := time.Now().Add(-30 * time.Minute)
			repo.progress[progressKey{42, view.ID, 1}] = &coursemodel.UserCourseLesson{
				UserID: 42, CourseID: view.ID, LessonID: 1,
				OpenedAt: &opened, ClosedAt: &closed,
			}

			dashboard, err := service.Dashboard(42)
			Expect(err).NotTo(HaveOccurred())
			Expect(dashboard.CourseCount).To(Equal(1))
			Expect(dashboard.LearningHours).To(BeNumerically("~", 1.0, 0.01))
		})
	})
})
