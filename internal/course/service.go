package course

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openlearn/learning-management/internal"
	"github.com/openlearn/learning-management/internal/audit"
	coursemodel "github.com/openlearn/learning-management/internal/core/datamodel/course"
	"github.com/openlearn/learning-management/internal/core/events"
)

// EventPublisher fans out post-commit notifications. Publishing is best
// effort; failures never affect the committed write.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// AttemptCounter reports a user's assessment attempt totals for the
// dashboard. The assessment service satisfies this.
type AttemptCounter interface {
	AttemptCounts(userID int64) (total, started, completed int, err error)
}

// Service handles course catalog, enrollment and progress business logic.
type Service struct {
	repo      Repository
	publisher EventPublisher
	attempts  AttemptCounter
	logger    *slog.Logger
}

func NewService(repo Repository, publisher EventPublisher, attempts AttemptCounter, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		attempts:  attempts,
		logger:    logger,
	}
}

// CreateCourse adds a catalog entry; course names are unique.
func (s *Service) CreateCourse(actorID int64, dto CreateCourseDTO) (*View, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByName(dto.Name)
	if err != nil {
		return nil, internal.NewInternalError("could not create course", err)
	}
	if existing != nil {
		return nil, internal.NewConflictError(
			fmt.Sprintf("Course %q already exists.", dto.Name),
			internal.ErrCodeDuplicateName)
	}

	row := &coursemodel.Course{
		Name:    dto.Name,
		Summary: dto.Summary,
		Content: dto.Content,
	}
	entry := audit.Entry{
		ActorID:     &actorID,
		TableName:   coursemodel.Course{}.TableName(),
		Flag:        audit.InsertFlag,
		ChangedData: changedJSON(map[string]any{"name": dto.Name}),
	}

	if err := s.repo.Create(row, entry); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, internal.NewConflictError(
				fmt.Sprintf("Course %q already exists.", dto.Name),
				internal.ErrCodeDuplicateName)
		}
		s.logger.Error("failed to create course", "name", dto.Name, "error", err)
		return nil, internal.NewInternalError("could not create course", err)
	}

	return s.withEnrolledCount(row)
}

func (s *Service) GetCourse(courseID int64) (*View, error) {
	row, err := s.repo.GetByID(courseID)
	if err != nil {
		return nil, internal.NewInternalError("could not load course", err)
	}
	if row == nil {
		return nil, internal.NewNotFoundError("Course not found.", internal.ErrCodeCourseNotFound)
	}
	return s.withEnrolledCount(row)
}

// GetCourseByName resolves a catalog entry by its unique name.
func (s *Service) GetCourseByName(name string) (*View, error) {
	row, err := s.repo.GetByName(name)
	if err != nil {
		return nil, internal.NewInternalError("could not load course", err)
	}
	if row == nil {
		return nil, internal.NewNotFoundError("Course not found.", internal.ErrCodeCourseNotFound)
	}
	return s.withEnrolledCount(row)
}

func (s *Service) ListCourses(limit, offset int) ([]View, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.repo.List(limit, offset)
	if err != nil {
		return nil, internal.NewInternalError("could not list courses", err)
	}

	views := make([]View, 0, len(rows))
	for i := range rows {
		v, err := s.withEnrolledCount(&rows[i])
		if err != nil {
			return nil, err
		}
		views = append(views, *v)
	}
	return views, nil
}

// CreateLesson adds a lesson to the catalog. Lessons exist independently and
// are linked into courses with AssignLesson.
func (s *Service) CreateLesson(actorID int64, dto CreateLessonDTO) (*LessonView, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeInvalidName)
	}

	row := &coursemodel.Lesson{
		Name:    dto.Name,
		Index:   dto.Index,
		Content: dto.Content,
	}
	entry := audit.Entry{
		ActorID:     &actorID,
		TableName:   coursemodel.Lesson{}.TableName(),
		Flag:        audit.InsertFlag,
		ChangedData: changedJSON(map[string]any{"name": dto.Name}),
	}

	if err := s.repo.CreateLesson(row, entry); err != nil {
		s.logger.Error("failed to create lesson", "name", dto.Name, "error", err)
		return nil, internal.NewInternalError("could not create lesson", err)
	}

	return &LessonView{ID: row.ID, Name: row.Name, Index: row.Index, Content: row.Content}, nil
}

func (s *Service) Lessons(courseID int64) ([]LessonView, error) {
	row, err := s.repo.GetByID(courseID)
	if err != nil {
		return nil, internal.NewInternalError("could not load course", err)
	}
	if row == nil {
		return nil, internal.NewNotFoundError("Course not found.", internal.ErrCodeCourseNotFound)
	}

	lessons, err := s.repo.LessonsOf(courseID)
	if err != nil {
		return nil, internal.NewInternalError("could not load lessons", err)
	}

	views := make([]LessonView, 0, len(lessons))
	for _, l := range lessons {
		views = append(views, LessonView{ID: l.ID, Name: l.Name, Index: l.Index})
	}
	return views, nil
}

// AssignLesson links a lesson into a course. Both entities must exist; an
// existing link is reported as already assigned without touching it.
func (s *Service) AssignLesson(actorID, courseID int64, dto AssignLessonDTO) error {
	if err := dto.Validate(); err != nil {
		return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	courseRow, err := s.repo.GetByID(courseID)
	if err != nil {
		return internal.NewInternalError("could not assign lesson", err)
	}
	if courseRow == nil {
		return internal.NewNotFoundError("Course not found.", internal.ErrCodeCourseNotFound)
	}

	lessonRow, err := s.repo.GetLessonByID(dto.LessonID)
	if err != nil {
		return internal.NewInternalError("could not assign lesson", err)
	}
	if lessonRow == nil {
		return internal.NewNotFoundError("Lesson not found.", internal.ErrCodeLessonNotFound)
	}

	existing, err := s.repo.GetCourseLesson(courseID, dto.LessonID)
	if err != nil {
		return internal.NewInternalError("could not assign lesson", err)
	}
	if existing != nil {
		return internal.NewConflictError("This lesson is already assigned to this course.", internal.ErrCodeAlreadyAssigned)
	}

	link := &coursemodel.CourseLesson{
		CourseID:   courseID,
		LessonID:   dto.LessonID,
		Index:      dto.Index,
		AssignedAt: time.Now().UTC(),
		AssignedBy: actorID,
	}
	entry := audit.Entry{
		ActorID:     &actorID,
		TableName:   coursemodel.CourseLesson{}.TableName(),
		ObjectID:    audit.NewObjectID(courseID, dto.LessonID),
		Flag:        audit.InsertFlag,
		ChangedData: changedJSON(map[string]any{"index": dto.Index}),
	}

	if err := s.repo.CreateCourseLesson(link, entry); err != nil {
		if errors.Is(err, ErrDuplicate) {
			// lost the race to a concurrent assignment, same outcome
			return internal.NewConflictError("This lesson is already assigned to this course.", internal.ErrCodeAlreadyAssigned)
		}
		s.logger.Error("failed to assign lesson", "course_id", courseID, "lesson_id", dto.LessonID, "error", err)
		return internal.NewInternalError("could not assign lesson", err)
	}
	return nil
}

// Enroll assigns a user to a course following the assignment protocol: both
// entities verified, composite-key check for idempotency, stamped insert in
// one transaction, store constraint as the final arbiter.
func (s *Service) Enroll(actorID, courseID int64, dto EnrollDTO) error {
	if err := dto.Validate(); err != nil {
		return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	courseRow, err := s.repo.GetByID(courseID)
	if err != nil {
		return internal.NewInternalError("could not enroll user", err)
	}
	if courseRow == nil {
		return internal.NewNotFoundError("Course not found.", internal.ErrCodeCourseNotFound)
	}

	exists, err := s.repo.UserExists(dto.UserID)
	if err != nil {
		return internal.NewInternalError("could not enroll user", err)
	}
	if !exists {
		return internal.NewNotFoundError("User not found.", internal.ErrCodeUserNotFound)
	}

	existing, err := s.repo.GetEnrollment(dto.UserID, courseID)
	if err != nil {
		return internal.NewInternalError("could not enroll user", err)
	}
	if existing != nil {
		return internal.NewConflictError("This course is already assigned to this user.", internal.ErrCodeAlreadyAssigned)
	}

	enrollment := &coursemodel.UserCourse{
		UserID:     dto.UserID,
		CourseID:   courseID,
		AssignedAt: time.Now().UTC(),
		AssignedBy: actorID,
	}
	entry := audit.Entry{
		ActorID:     &actorID,
		TableName:   coursemodel.UserCourse{}.TableName(),
		ObjectID:    audit.NewObjectID(dto.UserID, courseID),
		Flag:        audit.InsertFlag,
		ChangedData: changedJSON(map[string]any{"course": courseRow.Name}),
	}

	if err := s.repo.CreateEnrollment(enrollment, entry); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return internal.NewConflictError("This course is already assigned to this user.", internal.ErrCodeAlreadyAssigned)
		}
		s.logger.Error("failed to enroll user", "user_id", dto.UserID, "course_id", courseID, "error", err)
		return internal.NewInternalError("could not enroll user", err)
	}

	s.publish(events.NewCourseEnrolledEvent(dto.UserID, courseID, courseRow.Name, actorID))
	return nil
}

func (s *Service) Enrollments(userID int64) ([]EnrollmentView, error) {
	rows, err := s.repo.EnrollmentsOf(userID)
	if err != nil {
		return nil, internal.NewInternalError("could not load enrollments", err)
	}
	views := make([]EnrollmentView, 0, len(rows))
	for _, r := range rows {
		views = append(views, toEnrollmentView(r))
	}
	return views, nil
}

// OpenLesson stamps first and last access when an enrolled user opens a
// lesson; the progress row is created on first access.
func (s *Service) OpenLesson(userID, courseID, lessonID int64) (*LessonProgressView, error) {
	progress, err := s.lessonProgress(userID, courseID, lessonID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if progress.FirstAccessedAt == nil {
		progress.FirstAccessedAt = &now
	}
	progress.LastAccessedAt = &now
	progress.OpenedAt = &now
	progress.ClosedAt = nil
	progress.IsAccessed = true

	entry := audit.Entry{
		ActorID:     &userID,
		TableName:   coursemodel.UserCourseLesson{}.TableName(),
		ObjectID:    audit.NewObjectID(userID, courseID, lessonID),
		Flag:        audit.UpdateFlag,
		ChangedData: changedJSON(map[string]any{"opened": true}),
	}
	if err := s.repo.SaveLessonProgress(progress, entry); err != nil {
		return nil, internal.NewInternalError("could not record lesson access", err)
	}
	return toProgressView(progress), nil
}

// CloseLesson stamps the close time; the open/close interval feeds the
// learning hours metric.
func (s *Service) CloseLesson(userID, courseID, lessonID int64) (*LessonProgressView, error) {
	progress, err := s.lessonProgress(userID, courseID, lessonID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	progress.LastAccessedAt = &now
	progress.ClosedAt = &now

	entry := audit.Entry{
		ActorID:     &userID,
		TableName:   coursemodel.UserCourseLesson{}.TableName(),
		ObjectID:    audit.NewObjectID(userID, courseID, lessonID),
		Flag:        audit.UpdateFlag,
		ChangedData: changedJSON(map[string]any{"closed": true}),
	}
	if err := s.repo.SaveLessonProgress(progress, entry); err != nil {
		return nil, internal.NewInternalError("could not record lesson close", err)
	}
	return toProgressView(progress), nil
}

// CompleteLesson marks the lesson done; completing clears a previous skip.
func (s *Service) CompleteLesson(userID, courseID, lessonID int64) (*LessonProgressView, error) {
	progress, err := s.lessonProgress(userID, courseID, lessonID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	progress.IsCompleted = true
	progress.CompletedAt = &now
	progress.IsSkipped = false
	progress.SkippedAt = nil
	progress.LastAccessedAt = &now

	entry := audit.Entry{
		ActorID:     &userID,
		TableName:   coursemodel.UserCourseLesson{}.TableName(),
		ObjectID:    audit.NewObjectID(userID, courseID, lessonID),
		Flag:        audit.UpdateFlag,
		ChangedData: changedJSON(map[string]any{"completed": true}),
	}
	if err := s.repo.SaveLessonProgress(progress, entry); err != nil {
		return nil, internal.NewInternalError("could not record lesson completion", err)
	}
	return toProgressView(progress), nil
}

// SkipLesson marks the lesson skipped unless it is already completed.
func (s *Service) SkipLesson(userID, courseID, lessonID int64) (*LessonProgressView, error) {
	progress, err := s.lessonProgress(userID, courseID, lessonID)
	if err != nil {
		return nil, err
	}
	if progress.IsCompleted {
		return nil, internal.NewValidationError("A completed lesson cannot be skipped.", internal.ErrCodeValidationFailed)
	}

	now := time.Now().UTC()
	progress.IsSkipped = true
	progress.SkippedAt = &now
	progress.LastAccessedAt = &now

	entry := audit.Entry{
		ActorID:     &userID,
		TableName:   coursemodel.UserCourseLesson{}.TableName(),
		ObjectID:    audit.NewObjectID(userID, courseID, lessonID),
		Flag:        audit.UpdateFlag,
		ChangedData: changedJSON(map[string]any{"skipped": true}),
	}
	if err := s.repo.SaveLessonProgress(progress, entry); err != nil {
		return nil, internal.NewInternalError("could not record lesson skip", err)
	}
	return toProgressView(progress), nil
}

// CompleteCourse closes the enrollment once every assigned lesson is either
// completed or skipped.
func (s *Service) CompleteCourse(userID, courseID int64) (*EnrollmentView, error) {
	enrollment, err := s.repo.GetEnrollment(userID, courseID)
	if err != nil {
		return nil, internal.NewInternalError("could not complete course", err)
	}
	if enrollment == nil {
		return nil, internal.NewNotFoundError("You are not enrolled in this course.", internal.ErrCodeEnrollmentNotFound)
	}
	if enrollment.IsCompleted {
		view := toEnrollmentView(*enrollment)
		return &view, nil
	}

	lessons, err := s.repo.LessonsOf(courseID)
	if err != nil {
		return nil, internal.NewInternalError("could not complete course", err)
	}
	progress, err := s.repo.LessonProgressOf(userID, courseID)
	if err != nil {
		return nil, internal.NewInternalError("could not complete course", err)
	}

	done := map[int64]bool{}
	for _, p := range progress {
		if p.IsCompleted || p.IsSkipped {
			done[p.LessonID] = true
		}
	}
	for _, l := range lessons {
		if !done[l.ID] {
			return nil, internal.NewValidationError("All lessons must be completed or skipped first.", internal.ErrCodeValidationFailed)
		}
	}

	now := time.Now().UTC()
	enrollment.IsCompleted = true
	enrollment.CompletedAt = &now

	entry := audit.Entry{
		ActorID:     &userID,
		TableName:   coursemodel.UserCourse{}.TableName(),
		ObjectID:    audit.NewObjectID(userID, courseID),
		Flag:        audit.UpdateFlag,
		ChangedData: changedJSON(map[string]any{"is_completed": true}),
	}
	if err := s.repo.UpdateEnrollment(enrollment, entry); err != nil {
		return nil, internal.NewInternalError("could not complete course", err)
	}

	if courseRow, err := s.repo.GetByID(courseID); err == nil && courseRow != nil {
		s.publish(events.NewCourseCompletedEvent(userID, courseID, courseRow.Name))
	}

	view := toEnrollmentView(*enrollment)
	return &view, nil
}

// Dashboard aggregates the user's landing page metrics. Learning hours sum
// the open/close intervals of every lesson progress row.
func (s *Service) Dashboard(userID int64) (*DashboardView, error) {
	enrollments, err := s.repo.EnrollmentsOf(userID)
	if err != nil {
		return nil, internal.NewInternalError("could not load dashboard", err)
	}

	view := &DashboardView{CourseCount: len(enrollments)}
	var learning time.Duration
	for _, e := range enrollments {
		if e.IsCompleted {
			view.CompletedCourses++
		}
		progress, err := s.repo.LessonProgressOf(userID, e.CourseID)
		if err != nil {
			return nil, internal.NewInternalError("could not load dashboard", err)
		}
		for _, p := range progress {
			if p.OpenedAt != nil && p.ClosedAt != nil && p.ClosedAt.After(*p.OpenedAt) {
				learning += p.ClosedAt.Sub(*p.OpenedAt)
			}
		}
	}
	view.LearningHours = learning.Hours()

	if s.attempts != nil {
		total, started, completed, err := s.attempts.AttemptCounts(userID)
		if err != nil {
			return nil, internal.NewInternalError("could not load dashboard", err)
		}
		view.AssessmentCount = total
		view.StartedCount = started
		view.CompletedAttempts = completed
	}

	return view, nil
}

func (s *Service) LessonProgress(userID, courseID int64) ([]LessonProgressView, error) {
	enrollment, err := s.repo.GetEnrollment(userID, courseID)
	if err != nil {
		return nil, internal.NewInternalError("could not load progress", err)
	}
	if enrollment == nil {
		return nil, internal.NewNotFoundError("You are not enrolled in this course.", internal.ErrCodeEnrollmentNotFound)
	}

	rows, err := s.repo.LessonProgressOf(userID, courseID)
	if err != nil {
		return nil, internal.NewInternalError("could not load progress", err)
	}
	views := make([]LessonProgressView, 0, len(rows))
	for i := range rows {
		views = append(views, *toProgressView(&rows[i]))
	}
	return views, nil
}

// lessonProgress validates the enrollment and lesson link, then loads or
// initializes the progress row.
func (s *Service) lessonProgress(userID, courseID, lessonID int64) (*coursemodel.UserCourseLesson, error) {
	enrollment, err := s.repo.GetEnrollment(userID, courseID)
	if err != nil {
		return nil, internal.NewInternalError("could not load progress", err)
	}
	if enrollment == nil {
		return nil, internal.NewNotFoundError("You are not enrolled in this course.", internal.ErrCodeEnrollmentNotFound)
	}

	link, err := s.repo.GetCourseLesson(courseID, lessonID)
	if err != nil {
		return nil, internal.NewInternalError("could not load progress", err)
	}
	if link == nil {
		return nil, internal.NewNotFoundError("Lesson not found.", internal.ErrCodeLessonNotFound)
	}

	progress, err := s.repo.GetLessonProgress(userID, courseID, lessonID)
	if err != nil {
		return nil, internal.NewInternalError("could not load progress", err)
	}
	if progress == nil {
		progress = &coursemodel.UserCourseLesson{
			UserID:   userID,
			CourseID: courseID,
			LessonID: lessonID,
		}
	}
	return progress, nil
}

func (s *Service) withEnrolledCount(row *coursemodel.Course) (*View, error) {
	count, err := s.repo.EnrolledCount(row.ID)
	if err != nil {
		return nil, internal.NewInternalError("could not load course", err)
	}
	return &View{
		ID:            row.ID,
		Name:          row.Name,
		Summary:       row.Summary,
		Content:       row.Content,
		EnrolledCount: count,
	}, nil
}

func (s *Service) publish(event events.BaseEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(context.Background(), event); err != nil {
		s.logger.Warn("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}

func toEnrollmentView(row coursemodel.UserCourse) EnrollmentView {
	v := EnrollmentView{
		UserID:      row.UserID,
		CourseID:    row.CourseID,
		AssignedAt:  row.AssignedAt.Format(time.RFC3339),
		IsCompleted: row.IsCompleted,
	}
	if row.CompletedAt != nil {
		s := row.CompletedAt.Format(time.RFC3339)
		v.CompletedAt = &s
	}
	return v
}

func toProgressView(row *coursemodel.UserCourseLesson) *LessonProgressView {
	v := &LessonProgressView{
		LessonID:    row.LessonID,
		IsAccessed:  row.IsAccessed,
		IsCompleted: row.IsCompleted,
		IsSkipped:   row.IsSkipped,
	}
	if row.OpenedAt != nil {
		s := row.OpenedAt.Format(time.RFC3339)
		v.OpenedAt = &s
	}
	if row.ClosedAt != nil {
		s := row.ClosedAt.Format(time.RFC3339)
		v.ClosedAt = &s
	}
	return v
}

func changedJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
