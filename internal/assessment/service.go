package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/openlearn/learning-management/internal"
	"github.com/openlearn/learning-management/internal/audit"
	assessmentmodel "github.com/openlearn/learning-management/internal/core/datamodel/assessment"
	"github.com/openlearn/learning-management/internal/core/events"
)

// EventPublisher fans out post-commit notifications, best effort.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Service handles the assessment catalog and attempt lifecycle.
type Service struct {
	repo      Repository
	publisher EventPublisher
	logger    *slog.Logger
}

func NewService(repo Repository, publisher EventPublisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *Service) CreateAssessment(actorID int64, dto CreateAssessmentDTO) (*View, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeInvalidName)
	}

	row := &assessmentmodel.Assessment{
		Name:              dto.Name,
		Summary:           dto.Summary,
		DurationInMinutes: dto.DurationInMinutes,
	}
	if row.Summary == "" {
		row.Summary = "N/A"
	}
	entry := audit.Entry{
		ActorID:     &actorID,
		TableName:   assessmentmodel.Assessment{}.TableName(),
		Flag:        audit.InsertFlag,
		ChangedData: changedJSON(map[string]any{"name": dto.Name}),
	}

	if err := s.repo.Create(row, entry); err != nil {
		s.logger.Error("failed to create assessment", "name", dto.Name, "error", err)
		return nil, internal.NewInternalError("could not create assessment", err)
	}
	return toView(row), nil
}

func (s *Service) GetAssessment(assessmentID int64) (*View, error) {
	row, err := s.repo.GetByID(assessmentID)
	if err != nil {
		return nil, internal.NewInternalError("could not load assessment", err)
	}
	if row == nil {
		return nil, internal.NewNotFoundError("Assessment not found.", internal.ErrCodeAssessmentNotFound)
	}
	return toView(row), nil
}

func (s *Service) ListAssessments(limit, offset int) ([]View, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.repo.List(limit, offset)
	if err != nil {
		return nil, internal.NewInternalError("could not list assessments", err)
	}
	views := make([]View, 0, len(rows))
	for i := range rows {
		views = append(views, *toView(&rows[i]))
	}
	return views, nil
}

func (s *Service) CreateQuestion(actorID int64, dto CreateQuestionDTO) (*QuestionView, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	row := &assessmentmodel.Question{Question: dto.Question, Type: dto.Type}
	entry := audit.Entry{
		ActorID:     &actorID,
		TableName:   assessmentmodel.Question{}.TableName(),
		Flag:        audit.InsertFlag,
		ChangedData: changedJSON(map[string]any{"type": dto.Type}),
	}

	if err := s.repo.CreateQuestion(row, entry); err != nil {
		s.logger.Error("failed to create question", "error", err)
		return nil, internal.NewInternalError("could not create question", err)
	}
	return &QuestionView{ID: row.ID, Question: row.Question, Type: row.Type}, nil
}

func (s *Service) AddChoice(actorID, questionID int64, dto CreateChoiceDTO) (*ChoiceView, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	question, err := s.repo.GetQuestionByID(questionID)
	if err != nil {
		return nil, internal.NewInternalError("could not add choice", err)
	}
	if question == nil {
		return nil, internal.NewNotFoundError("Question not found.", internal.ErrCodeQuestionNotFound)
	}

	row := &assessmentmodel.Choice{Choice: dto.Choice, QuestionID: questionID}
	entry := audit.Entry{
		ActorID:     &actorID,
		TableName:   assessmentmodel.Choice{}.TableName(),
		Flag:        audit.InsertFlag,
		ChangedData: changedJSON(map[string]any{"question_id": questionID}),
	}

	if err := s.repo.CreateChoice(row, entry); err != nil {
		return nil, internal.NewInternalError("could not add choice", err)
	}
	return &ChoiceView{ID: row.ID, Choice: row.Choice}, nil
}

// SetAnswer records the correct answer of a question. A question has at most
// one answer; the unique constraint is the final arbiter.
func (s *Service) SetAnswer(actorID, questionID int64, dto SetAnswerDTO) error {
	if err := dto.Validate(); err != nil {
		return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	question, err := s.repo.GetQuestionByID(questionID)
	if err != nil {
		return internal.NewInternalError("could not set answer", err)
	}
	if question == nil {
		return internal.NewNotFoundError("Question not found.", internal.ErrCodeQuestionNotFound)
	}

	existing, err := s.repo.GetAnswer(questionID)
	if err != nil {
		return internal.NewInternalError("could not set answer", err)
	}
	if existing != nil {
		return internal.NewConflictError("This question already has an answer.", internal.ErrCodeDuplicateAnswer)
	}

	row := &assessmentmodel.Answer{Answer: dto.Answer, QuestionID: questionID}
	entry := audit.Entry{
		ActorID:     &actorID,
		TableName:   assessmentmodel.Answer{}.TableName(),
		Flag:        audit.InsertFlag,
		ChangedData: changedJSON(map[string]any{"question_id": questionID}),
	}

	if err := s.repo.CreateAnswer(row, entry); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return internal.NewConflictError("This question already has an answer.", internal.ErrCodeDuplicateAnswer)
		}
		return internal.NewInternalError("could not set answer", err)
	}
	return nil
}

// AssignQuestion links a question into an assessment following the
// assignment protocol.
func (s *Service) AssignQuestion(actorID, assessmentID int64, dto AssignQuestionDTO) error {
	if err := dto.Validate(); err != nil {
		return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	assessment, err := s.repo.GetByID(assessmentID)
	if err != nil {
		return internal.NewInternalError("could not assign question", err)
	}
	if assessment == nil {
		return internal.NewNotFoundError("Assessment not found.", internal.ErrCodeAssessmentNotFound)
	}

	question, err := s.repo.GetQuestionByID(dto.QuestionID)
	if err != nil {
		return internal.NewInternalError("could not assign question", err)
	}
	if question == nil {
		return internal.NewNotFoundError("Question not found.", internal.ErrCodeQuestionNotFound)
	}

	existing, err := s.repo.GetAssessmentQuestion(assessmentID, dto.QuestionID)
	if err != nil {
		return internal.NewInternalError("could not assign question", err)
	}
	if existing != nil {
		return internal.NewConflictError("This question is already assigned to this assessment.", internal.ErrCodeAlreadyAssigned)
	}

	link := &assessmentmodel.AssessmentQuestion{
		AssessmentID: assessmentID,
		QuestionID:   dto.QuestionID,
		AssignedAt:   time.Now().UTC(),
		AssignedBy:   actorID,
	}
	entry := audit.Entry{
		ActorID:   &actorID,
		TableName: assessmentmodel.AssessmentQuestion{}.TableName(),
		ObjectID:  audit.NewObjectID(assessmentID, dto.QuestionID),
		Flag:      audit.InsertFlag,
	}

	if err := s.repo.CreateAssessmentQuestion(link, entry); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return internal.NewConflictError("This question is already assigned to this assessment.", internal.ErrCodeAlreadyAssigned)
		}
		return internal.NewInternalError("could not assign question", err)
	}
	return nil
}

// Questions returns the assessment's questions with their choices.
func (s *Service) Questions(assessmentID int64) ([]QuestionView, error) {
	assessment, err := s.repo.GetByID(assessmentID)
	if err != nil {
		return nil, internal.NewInternalError("could not load questions", err)
	}
	if assessment == nil {
		return nil, internal.NewNotFoundError("Assessment not found.", internal.ErrCodeAssessmentNotFound)
	}

	rows, err := s.repo.QuestionsOf(assessmentID)
	if err != nil {
		return nil, internal.NewInternalError("could not load questions", err)
	}

	views := make([]QuestionView, 0, len(rows))
	for _, q := range rows {
		view := QuestionView{ID: q.ID, Question: q.Question, Type: q.Type}
		choices, err := s.repo.ChoicesOf(q.ID)
		if err != nil {
			return nil, internal.NewInternalError("could not load questions", err)
		}
		for _, c := range choices {
			view.Choices = append(view.Choices, ChoiceView{ID: c.ID, Choice: c.Choice})
		}
		views = append(views, view)
	}
	return views, nil
}

// AssignToCourse links the assessment to a course.
func (s *Service) AssignToCourse(actorID, assessmentID int64, dto AssignCourseDTO) error {
	if err := dto.Validate(); err != nil {
		return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	assessment, err := s.repo.GetByID(assessmentID)
	if err != nil {
		return internal.NewInternalError("could not assign assessment", err)
	}
	if assessment == nil {
		return internal.NewNotFoundError("Assessment not found.", internal.ErrCodeAssessmentNotFound)
	}

	exists, err := s.repo.CourseExists(dto.CourseID)
	if err != nil {
		return internal.NewInternalError("could not assign assessment", err)
	}
	if !exists {
		return internal.NewNotFoundError("Course not found.", internal.ErrCodeCourseNotFound)
	}

	existing, err := s.repo.GetCourseAssessment(dto.CourseID, assessmentID)
	if err != nil {
		return internal.NewInternalError("could not assign assessment", err)
	}
	if existing != nil {
		return internal.NewConflictError("This assessment is already assigned to this course.", internal.ErrCodeAlreadyAssigned)
	}

	link := &assessmentmodel.CourseAssessment{
		CourseID:     dto.CourseID,
		AssessmentID: assessmentID,
		AssignedAt:   time.Now().UTC(),
		AssignedBy:   actorID,
	}
	entry := audit.Entry{
		ActorID:   &actorID,
		TableName: assessmentmodel.CourseAssessment{}.TableName(),
		ObjectID:  audit.NewObjectID(dto.CourseID, assessmentID),
		Flag:      audit.InsertFlag,
	}

	if err := s.repo.CreateCourseAssessment(link, entry); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return internal.NewConflictError("This assessment is already assigned to this course.", internal.ErrCodeAlreadyAssigned)
		}
		return internal.NewInternalError("could not assign assessment", err)
	}
	return nil
}

// AssignUser creates the attempt record for a user.
func (s *Service) AssignUser(actorID, assessmentID int64, dto AssignUserDTO) error {
	if err := dto.Validate(); err != nil {
		return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	assessment, err := s.repo.GetByID(assessmentID)
	if err != nil {
		return internal.NewInternalError("could not assign assessment", err)
	}
	if assessment == nil {
		return internal.NewNotFoundError("Assessment not found.", internal.ErrCodeAssessmentNotFound)
	}

	exists, err := s.repo.UserExists(dto.UserID)
	if err != nil {
		return internal.NewInternalError("could not assign assessment", err)
	}
	if !exists {
		return internal.NewNotFoundError("User not found.", internal.ErrCodeUserNotFound)
	}

	existing, err := s.repo.GetAttempt(dto.UserID, assessmentID)
	if err != nil {
		return internal.NewInternalError("could not assign assessment", err)
	}
	if existing != nil {
		return internal.NewConflictError("This assessment is already assigned to this user.", internal.ErrCodeAlreadyAssigned)
	}

	attempt := &assessmentmodel.UserAssessment{
		UserID:       dto.UserID,
		AssessmentID: assessmentID,
		AssignedAt:   time.Now().UTC(),
		AssignedBy:   actorID,
	}
	entry := audit.Entry{
		ActorID:   &actorID,
		TableName: assessmentmodel.UserAssessment{}.TableName(),
		ObjectID:  audit.NewObjectID(dto.UserID, assessmentID),
		Flag:      audit.InsertFlag,
	}

	if err := s.repo.CreateAttempt(attempt, entry); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return internal.NewConflictError("This assessment is already assigned to this user.", internal.ErrCodeAlreadyAssigned)
		}
		return internal.NewInternalError("could not assign assessment", err)
	}

	s.publish(events.NewAssessmentAssignedEvent(dto.UserID, assessmentID, assessment.Name, actorID))
	return nil
}

// StartAttempt stamps the start of an assigned attempt. Resuming from hold
// reuses the original start stamp.
func (s *Service) StartAttempt(userID, assessmentID int64) (*AttemptView, error) {
	attempt, err := s.attempt(userID, assessmentID)
	if err != nil {
		return nil, err
	}
	if attempt.IsCompleted {
		return nil, internal.NewValidationError("This assessment is already completed.", internal.ErrCodeValidationFailed)
	}

	now := time.Now().UTC()
	if !attempt.IsStarted {
		attempt.IsStarted = true
		attempt.StartedAt = &now
	}
	attempt.IsOnHold = false

	entry := audit.Entry{
		ActorID:     &userID,
		TableName:   assessmentmodel.UserAssessment{}.TableName(),
		ObjectID:    audit.NewObjectID(userID, assessmentID),
		Flag:        audit.UpdateFlag,
		ChangedData: changedJSON(map[string]any{"is_started": true}),
	}
	if err := s.repo.UpdateAttempt(attempt, entry); err != nil {
		return nil, internal.NewInternalError("could not start assessment", err)
	}
	view := toAttemptView(attempt)
	return &view, nil
}

// HoldAttempt pauses a started attempt.
func (s *Service) HoldAttempt(userID, assessmentID int64) (*AttemptView, error) {
	attempt, err := s.attempt(userID, assessmentID)
	if err != nil {
		return nil, err
	}
	if !attempt.IsStarted || attempt.IsCompleted {
		return nil, internal.NewValidationError("Only a started assessment can be put on hold.", internal.ErrCodeValidationFailed)
	}

	attempt.IsOnHold = true
	entry := audit.Entry{
		ActorID:     &userID,
		TableName:   assessmentmodel.UserAssessment{}.TableName(),
		ObjectID:    audit.NewObjectID(userID, assessmentID),
		Flag:        audit.UpdateFlag,
		ChangedData: changedJSON(map[string]any{"is_on_hold": true}),
	}
	if err := s.repo.UpdateAttempt(attempt, entry); err != nil {
		return nil, internal.NewInternalError("could not hold assessment", err)
	}
	view := toAttemptView(attempt)
	return &view, nil
}

// CompleteAttempt finishes a started attempt and publishes the completion.
func (s *Service) CompleteAttempt(userID, assessmentID int64) (*AttemptView, error) {
	attempt, err := s.attempt(userID, assessmentID)
	if err != nil {
		return nil, err
	}
	if !attempt.IsStarted {
		return nil, internal.NewValidationError("This assessment has not been started.", internal.ErrCodeValidationFailed)
	}
	if attempt.IsCompleted {
		view := toAttemptView(attempt)
		return &view, nil
	}

	now := time.Now().UTC()
	attempt.IsCompleted = true
	attempt.IsOnHold = false
	attempt.CompletedAt = &now

	entry := audit.Entry{
		ActorID:     &userID,
		TableName:   assessmentmodel.UserAssessment{}.TableName(),
		ObjectID:    audit.NewObjectID(userID, assessmentID),
		Flag:        audit.UpdateFlag,
		ChangedData: changedJSON(map[string]any{"is_completed": true}),
	}
	if err := s.repo.UpdateAttempt(attempt, entry); err != nil {
		return nil, internal.NewInternalError("could not complete assessment", err)
	}

	if row, err := s.repo.GetByID(assessmentID); err == nil && row != nil {
		s.publish(events.NewAssessmentCompletedEvent(userID, assessmentID, row.Name))
	}

	view := toAttemptView(attempt)
	return &view, nil
}

// OpenQuestion stamps the per-question state when the taker opens it.
func (s *Service) OpenQuestion(userID, assessmentID, questionID int64) (*QuestionStateView, error) {
	state, err := s.questionState(userID, assessmentID, questionID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	state.OpenedAt = &now
	state.ClosedAt = nil

	entry := audit.Entry{
		ActorID:     &userID,
		TableName:   assessmentmodel.UserAssessmentQuestion{}.TableName(),
		ObjectID:    audit.NewObjectID(userID, assessmentID, questionID),
		Flag:        audit.UpdateFlag,
		ChangedData: changedJSON(map[string]any{"opened": true}),
	}
	if err := s.repo.SaveQuestionState(state, entry); err != nil {
		return nil, internal.NewInternalError("could not record question access", err)
	}
	return toStateView(state), nil
}

// CompleteQuestion marks a question answered; completing clears a skip.
func (s *Service) CompleteQuestion(userID, assessmentID, questionID int64) (*QuestionStateView, error) {
	state, err := s.questionState(userID, assessmentID, questionID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	state.IsCompleted = true
	state.CompletedAt = &now
	state.IsSkipped = false
	state.SkippedAt = nil
	state.ClosedAt = &now

	entry := audit.Entry{
		ActorID:     &userID,
		TableName:   assessmentmodel.UserAssessmentQuestion{}.TableName(),
		ObjectID:    audit.NewObjectID(userID, assessmentID, questionID),
		Flag:        audit.UpdateFlag,
		ChangedData: changedJSON(map[string]any{"completed": true}),
	}
	if err := s.repo.SaveQuestionState(state, entry); err != nil {
		return nil, internal.NewInternalError("could not record question completion", err)
	}
	return toStateView(state), nil
}

// SkipQuestion marks a question skipped unless it is already answered.
func (s *Service) SkipQuestion(userID, assessmentID, questionID int64) (*QuestionStateView, error) {
	state, err := s.questionState(userID, assessmentID, questionID)
	if err != nil {
		return nil, err
	}
	if state.IsCompleted {
		return nil, internal.NewValidationError("An answered question cannot be skipped.", internal.ErrCodeValidationFailed)
	}

	now := time.Now().UTC()
	state.IsSkipped = true
	state.SkippedAt = &now
	state.ClosedAt = &now

	entry := audit.Entry{
		ActorID:     &userID,
		TableName:   assessmentmodel.UserAssessmentQuestion{}.TableName(),
		ObjectID:    audit.NewObjectID(userID, assessmentID, questionID),
		Flag:        audit.UpdateFlag,
		ChangedData: changedJSON(map[string]any{"skipped": true}),
	}
	if err := s.repo.SaveQuestionState(state, entry); err != nil {
		return nil, internal.NewInternalError("could not record question skip", err)
	}
	return toStateView(state), nil
}

// Evaluate summarizes a completed attempt for an evaluator.
func (s *Service) Evaluate(userID, assessmentID int64) (*EvaluationView, error) {
	attempt, err := s.repo.GetAttempt(userID, assessmentID)
	if err != nil {
		return nil, internal.NewInternalError("could not evaluate assessment", err)
	}
	if attempt == nil {
		return nil, internal.NewNotFoundError("This assessment is not assigned to this user.", internal.ErrCodeAssessmentNotFound)
	}

	questions, err := s.repo.QuestionsOf(assessmentID)
	if err != nil {
		return nil, internal.NewInternalError("could not evaluate assessment", err)
	}
	states, err := s.repo.QuestionStatesOf(userID, assessmentID)
	if err != nil {
		return nil, internal.NewInternalError("could not evaluate assessment", err)
	}

	view := &EvaluationView{
		UserID:       userID,
		AssessmentID: assessmentID,
		TotalCount:   len(questions),
	}
	touched := map[int64]bool{}
	for i := range states {
		sv := toStateView(&states[i])
		touched[states[i].QuestionID] = true
		switch {
		case states[i].IsCompleted:
			view.CompletedList = append(view.CompletedList, *sv)
		case states[i].IsSkipped:
			view.SkippedList = append(view.SkippedList, *sv)
		default:
			view.OpenCount++
		}
	}
	for _, q := range questions {
		if !touched[q.ID] {
			view.OpenCount++
		}
	}
	return view, nil
}

// AttemptCounts reports totals for the dashboard.
func (s *Service) AttemptCounts(userID int64) (total, started, completed int, err error) {
	attempts, err := s.repo.AttemptsOf(userID)
	if err != nil {
		return 0, 0, 0, err
	}
	for _, a := range attempts {
		total++
		if a.IsStarted {
			started++
		}
		if a.IsCompleted {
			completed++
		}
	}
	return total, started, completed, nil
}

func (s *Service) Attempts(userID int64) ([]AttemptView, error) {
	rows, err := s.repo.AttemptsOf(userID)
	if err != nil {
		return nil, internal.NewInternalError("could not load attempts", err)
	}
	views := make([]AttemptView, 0, len(rows))
	for i := range rows {
		views = append(views, toAttemptView(&rows[i]))
	}
	return views, nil
}

func (s *Service) attempt(userID, assessmentID int64) (*assessmentmodel.UserAssessment, error) {
	attempt, err := s.repo.GetAttempt(userID, assessmentID)
	if err != nil {
		return nil, internal.NewInternalError("could not load assessment", err)
	}
	if attempt == nil {
		return nil, internal.NewNotFoundError("This assessment is not assigned to you.", internal.ErrCodeAssessmentNotFound)
	}
	return attempt, nil
}

// questionState validates attempt and question link, then loads or
// initializes the per-question state.
func (s *Service) questionState(userID, assessmentID, questionID int64) (*assessmentmodel.UserAssessmentQuestion, error) {
	attempt, err := s.attempt(userID, assessmentID)
	if err != nil {
		return nil, err
	}
	if !attempt.IsStarted || attempt.IsCompleted || attempt.IsOnHold {
		return nil, internal.NewValidationError("This assessment is not in progress.", internal.ErrCodeValidationFailed)
	}

	link, err := s.repo.GetAssessmentQuestion(assessmentID, questionID)
	if err != nil {
		return nil, internal.NewInternalError("could not load question", err)
	}
	if link == nil {
		return nil, internal.NewNotFoundError("Question not found.", internal.ErrCodeQuestionNotFound)
	}

	state, err := s.repo.GetQuestionState(userID, assessmentID, questionID)
	if err != nil {
		return nil, internal.NewInternalError("could not load question", err)
	}
	if state == nil {
		state = &assessmentmodel.UserAssessmentQuestion{
			UserID:       userID,
			AssessmentID: assessmentID,
			QuestionID:   questionID,
		}
	}
	return state, nil
}

func (s *Service) publish(event events.BaseEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(context.Background(), event); err != nil {
		s.logger.Warn("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}

func toView(row *assessmentmodel.Assessment) *View {
	return &View{
		ID:                row.ID,
		Name:              row.Name,
		Summary:           row.Summary,
		DurationInMinutes: row.DurationInMinutes,
	}
}

func toAttemptView(row *assessmentmodel.UserAssessment) AttemptView {
	v := AttemptView{
		UserID:       row.UserID,
		AssessmentID: row.AssessmentID,
		IsStarted:    row.IsStarted,
		IsCompleted:  row.IsCompleted,
		IsOnHold:     row.IsOnHold,
	}
	if row.StartedAt != nil {
		s := row.StartedAt.Format(time.RFC3339)
		v.StartedAt = &s
	}
	if row.CompletedAt != nil {
		s := row.CompletedAt.Format(time.RFC3339)
		v.CompletedAt = &s
	}
	return v
}

func toStateView(row *assessmentmodel.UserAssessmentQuestion) *QuestionStateView {
	v := &QuestionStateView{
		QuestionID:  row.QuestionID,
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
