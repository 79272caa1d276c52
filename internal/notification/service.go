package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openlearn/learning-management/internal"
	notificationmodel "github.com/openlearn/learning-management/internal/core/datamodel/notification"
	"github.com/openlearn/learning-management/internal/core/events"
)

// Subscriber registers event handlers; satisfied by events.EventBus.
type Subscriber interface {
	Subscribe(eventType string, handler events.Handler)
}

// Service turns domain events into in-app notifications and serves the
// user's inbox.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Register subscribes the service to every notification-producing event.
func (s *Service) Register(bus Subscriber) {
	bus.Subscribe(events.UserRegisteredEvent, s.onUserRegistered)
	bus.Subscribe(events.CourseEnrolledEvent, s.onCourseEnrolled)
	bus.Subscribe(events.CourseCompletedEvent, s.onCourseCompleted)
	bus.Subscribe(events.AssessmentAssignedEvent, s.onAssessmentAssigned)
	bus.Subscribe(events.AssessmentCompletedEvent, s.onAssessmentCompleted)
}

func (s *Service) Notifications(userID int64, unreadOnly bool) ([]View, error) {
	rows, err := s.repo.ListByUser(userID, unreadOnly)
	if err != nil {
		return nil, internal.NewInternalError("could not load notifications", err)
	}
	views := make([]View, 0, len(rows))
	for i := range rows {
		views = append(views, toView(&rows[i]))
	}
	return views, nil
}

// MarkRead stamps a notification as read. Only the addressee can read it;
// anyone else gets a not-found, never a hint that the row exists.
func (s *Service) MarkRead(userID, notificationID int64) (*View, error) {
	row, err := s.repo.GetByID(notificationID)
	if err != nil {
		return nil, internal.NewInternalError("could not load notification", err)
	}
	if row == nil || row.UserID != userID {
		return nil, internal.NewNotFoundError("Notification not found.", internal.ErrCodeNotificationNotFound)
	}

	if !row.IsRead {
		now := time.Now().UTC()
		row.IsRead = true
		row.ReadAt = &now
		if err := s.repo.MarkRead(row); err != nil {
			return nil, internal.NewInternalError("could not update notification", err)
		}
	}
	view := toView(row)
	return &view, nil
}

func (s *Service) onUserRegistered(_ context.Context, event events.Event) error {
	userID, ok := payloadID(event, "user_id")
	if !ok {
		return fmt.Errorf("malformed %s payload", event.EventType())
	}
	return s.store(userID,
		"Welcome to the learning platform",
		"Your account has been created. Change your password after the first login.")
}

func (s *Service) onCourseEnrolled(_ context.Context, event events.Event) error {
	userID, ok := payloadID(event, "user_id")
	if !ok {
		return fmt.Errorf("malformed %s payload", event.EventType())
	}
	return s.store(userID,
		"You have been enrolled in a course",
		fmt.Sprintf("You have been enrolled in %q.", payloadString(event, "course_name")))
}

func (s *Service) onCourseCompleted(_ context.Context, event events.Event) error {
	userID, ok := payloadID(event, "user_id")
	if !ok {
		return fmt.Errorf("malformed %s payload", event.EventType())
	}
	return s.store(userID,
		"Course completed",
		fmt.Sprintf("Congratulations, you have completed %q.", payloadString(event, "course_name")))
}

func (s *Service) onAssessmentAssigned(_ context.Context, event events.Event) error {
	userID, ok := payloadID(event, "user_id")
	if !ok {
		return fmt.Errorf("malformed %s payload", event.EventType())
	}
	return s.store(userID,
		"You have been assigned an assessment",
		fmt.Sprintf("The assessment %q is waiting for you.", payloadString(event, "assessment_name")))
}

func (s *Service) onAssessmentCompleted(_ context.Context, event events.Event) error {
	userID, ok := payloadID(event, "user_id")
	if !ok {
		return fmt.Errorf("malformed %s payload", event.EventType())
	}
	return s.store(userID,
		"Assessment completed",
		fmt.Sprintf("Your answers for %q have been submitted for evaluation.", payloadString(event, "assessment_name")))
}

func (s *Service) store(userID int64, subject, body string) error {
	row := &notificationmodel.Notification{
		UserID:    userID,
		Subject:   subject,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(row); err != nil {
		s.logger.Error("failed to store notification", "user_id", userID, "subject", subject, "error", err)
		return err
	}
	return nil
}

// payloadID reads an int64 out of the event payload. Values survive a JSON
// round trip as float64, so both representations are accepted.
func payloadID(event events.Event, key string) (int64, bool) {
	data, ok := event.Payload().(map[string]interface{})
	if !ok {
		return 0, false
	}
	switch v := data[key].(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

func payloadString(event events.Event, key string) string {
	data, ok := event.Payload().(map[string]interface{})
	if !ok {
		return ""
	}
	s, _ := data[key].(string)
	return s
}

func toView(row *notificationmodel.Notification) View {
	v := View{
		ID:        row.ID,
		Subject:   row.Subject,
		Body:      row.Body,
		CreatedAt: row.CreatedAt.Format(time.RFC3339),
		IsRead:    row.IsRead,
	}
	if row.ReadAt != nil {
		s := row.ReadAt.Format(time.RFC3339)
		v.ReadAt = &s
	}
	return v
}
