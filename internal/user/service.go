package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openlearn/learning-management/internal"
	"github.com/openlearn/learning-management/internal/audit"
	"github.com/openlearn/learning-management/internal/core/datamodel/identity"
	"github.com/openlearn/learning-management/internal/core/events"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// PasswordHasher hashes initial passwords for registered accounts. The auth
// service satisfies this.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
}

// EventPublisher fans out post-commit notifications, best effort.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Service handles user management business logic.
type Service struct {
	repo            Repository
	hasher          PasswordHasher
	publisher       EventPublisher
	defaultPassword string
	logger          *slog.Logger
}

func NewService(repo Repository, hasher PasswordHasher, publisher EventPublisher, defaultPassword string, logger *slog.Logger) *Service {
	return &Service{
		repo:            repo,
		hasher:          hasher,
		publisher:       publisher,
		defaultPassword: defaultPassword,
		logger:          logger,
	}
}

// Register creates an account with the configured default password. The actor
// is stamped as registered_by and attributed in the audit trail.
func (s *Service) Register(actorID int64, dto RegisterDTO) (*View, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByUsername(dto.Username)
	if err != nil {
		s.logger.Error("failed to check username", "username", dto.Username, "error", err)
		return nil, internal.NewInternalError("could not register user", err)
	}
	if existing != nil {
		return nil, internal.NewConflictError(
			fmt.Sprintf("Username %q is already taken.", dto.Username),
			internal.ErrCodeDuplicateName)
	}

	if dto.GroupID != nil {
		ok, err := s.repo.GroupExists(*dto.GroupID)
		if err != nil {
			return nil, internal.NewInternalError("could not register user", err)
		}
		if !ok {
			return nil, internal.NewNotFoundError("Group not found.", internal.ErrCodeGroupNotFound)
		}
	}

	hash, err := s.hasher.HashPassword(s.defaultPassword)
	if err != nil {
		return nil, internal.NewInternalError("could not register user", err)
	}

	row := &identity.User{
		Username:     dto.Username,
		Fullname:     dto.Fullname,
		PasswordHash: hash,
		IsActive:     true,
		IsStaff:      dto.IsStaff,
		RegisteredAt: time.Now().UTC(),
		RegisteredBy: &actorID,
		GroupID:      dto.GroupID,
	}

	entry := audit.Entry{
		ActorID:     &actorID,
		TableName:   identity.User{}.TableName(),
		Flag:        audit.InsertFlag,
		ChangedData: mustJSON(map[string]any{"username": dto.Username, "is_staff": dto.IsStaff}),
	}

	if err := s.repo.Create(row, entry); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, internal.NewConflictError(
				fmt.Sprintf("Username %q is already taken.", dto.Username),
				internal.ErrCodeDuplicateName)
		}
		s.logger.Error("failed to create user", "username", dto.Username, "error", err)
		return nil, internal.NewInternalError("could not register user", err)
	}

	if s.publisher != nil {
		event := events.NewUserRegisteredEvent(row.ID, row.Username, actorID)
		if err := s.publisher.Publish(context.Background(), event); err != nil {
			s.logger.Warn("failed to publish event", "event_type", event.EventType(), "error", err)
		}
	}

	return toView(row), nil
}

func (s *Service) Get(userID int64) (*View, error) {
	row, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, internal.NewInternalError("could not load user", err)
	}
	if row == nil {
		return nil, internal.NewNotFoundError("User not found.", internal.ErrCodeUserNotFound)
	}
	return toView(row), nil
}

func (s *Service) List(limit, offset int) ([]View, error) {
	limit, offset = clampPage(limit, offset)
	rows, err := s.repo.List(limit, offset)
	if err != nil {
		return nil, internal.NewInternalError("could not list users", err)
	}
	return toViews(rows), nil
}

// Search filters the panel listing by a username or fullname substring.
func (s *Service) Search(query string, limit, offset int) ([]View, error) {
	limit, offset = clampPage(limit, offset)
	rows, err := s.repo.Search(query, limit, offset)
	if err != nil {
		return nil, internal.NewInternalError("could not search users", err)
	}
	return toViews(rows), nil
}

// Update applies a partial update and records it in the trail.
func (s *Service) Update(actorID, userID int64, dto UpdateDTO) (*View, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	row, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, internal.NewInternalError("could not load user", err)
	}
	if row == nil {
		return nil, internal.NewNotFoundError("User not found.", internal.ErrCodeUserNotFound)
	}

	changed := map[string]any{}
	if dto.Fullname != nil {
		row.Fullname = *dto.Fullname
		changed["fullname"] = *dto.Fullname
	}
	if dto.IsActive != nil {
		row.IsActive = *dto.IsActive
		changed["is_active"] = *dto.IsActive
	}
	if dto.IsStaff != nil {
		row.IsStaff = *dto.IsStaff
		changed["is_staff"] = *dto.IsStaff
	}
	if dto.GroupID != nil {
		ok, err := s.repo.GroupExists(*dto.GroupID)
		if err != nil {
			return nil, internal.NewInternalError("could not update user", err)
		}
		if !ok {
			return nil, internal.NewNotFoundError("Group not found.", internal.ErrCodeGroupNotFound)
		}
		row.GroupID = dto.GroupID
		changed["group_id"] = *dto.GroupID
	}
	if len(changed) == 0 {
		return toView(row), nil
	}

	entry := audit.Entry{
		ActorID:     &actorID,
		TableName:   identity.User{}.TableName(),
		ObjectID:    audit.NewObjectID(row.ID),
		Flag:        audit.UpdateFlag,
		ChangedData: mustJSON(changed),
	}

	if err := s.repo.Update(row, entry); err != nil {
		s.logger.Error("failed to update user", "user_id", userID, "error", err)
		return nil, internal.NewInternalError("could not update user", err)
	}
	return toView(row), nil
}

// AssignPermissions replaces the user's whole permission set. The previous
// grants are deleted and the new ones inserted in one transaction, each
// mutation appended to the trail.
func (s *Service) AssignPermissions(actorID, userID int64, dto AssignPermissionsDTO) error {
	if err := dto.Validate(); err != nil {
		return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	target, err := s.repo.GetByID(userID)
	if err != nil {
		return internal.NewInternalError("could not assign permissions", err)
	}
	if target == nil {
		return internal.NewNotFoundError("User not found.", internal.ErrCodeUserNotFound)
	}

	perms, err := s.repo.PermissionsByIDs(dto.PermissionIDs)
	if err != nil {
		return internal.NewInternalError("could not assign permissions", err)
	}
	if len(perms) != len(dto.PermissionIDs) {
		return internal.NewNotFoundError("Permission not found.", internal.ErrCodePermissionNotFound)
	}

	now := time.Now().UTC()
	grants := make([]identity.UserPermission, 0, len(perms))
	entries := make([]audit.Entry, 0, len(perms)+1)
	entries = append(entries, audit.Entry{
		ActorID:     &actorID,
		TableName:   identity.UserPermission{}.TableName(),
		ObjectID:    audit.NewObjectID(userID),
		Flag:        audit.DeleteFlag,
		ChangedData: mustJSON(map[string]any{"user_id": userID, "reason": "permission set replaced"}),
	})
	for _, p := range perms {
		grants = append(grants, identity.UserPermission{
			UserID:       userID,
			PermissionID: p.ID,
			AssignedAt:   now,
			AssignedBy:   actorID,
		})
		entries = append(entries, audit.Entry{
			ActorID:     &actorID,
			TableName:   identity.UserPermission{}.TableName(),
			ObjectID:    audit.NewObjectID(userID, p.ID),
			Flag:        audit.InsertFlag,
			ChangedData: mustJSON(map[string]any{"codename": p.Codename}),
		})
	}

	if err := s.repo.ReplacePermissions(userID, grants, entries); err != nil {
		s.logger.Error("failed to replace permissions", "user_id", userID, "error", err)
		return internal.NewInternalError("could not assign permissions", err)
	}
	return nil
}

// Permissions returns the user's direct grants as catalog views.
func (s *Service) Permissions(userID int64) ([]PermissionView, error) {
	target, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, internal.NewInternalError("could not load permissions", err)
	}
	if target == nil {
		return nil, internal.NewNotFoundError("User not found.", internal.ErrCodeUserNotFound)
	}

	perms, err := s.repo.PermissionsOf(userID)
	if err != nil {
		return nil, internal.NewInternalError("could not load permissions", err)
	}

	views := make([]PermissionView, 0, len(perms))
	for _, p := range perms {
		views = append(views, PermissionView{ID: p.ID, Name: p.Name, Codename: p.Codename, Flag: p.Flag})
	}
	return views, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func toView(row *identity.User) *View {
	v := &View{
		ID:           row.ID,
		Username:     row.Username,
		Fullname:     row.Fullname,
		IsActive:     row.IsActive,
		IsStaff:      row.IsStaff,
		IsSuperuser:  row.IsSuperuser,
		GroupID:      row.GroupID,
		RegisteredBy: row.RegisteredBy,
		RegisteredAt: row.RegisteredAt.Format(time.RFC3339),
	}
	if row.LastLogin != nil {
		s := row.LastLogin.Format(time.RFC3339)
		v.LastLogin = &s
	}
	return v
}

func toViews(rows []identity.User) []View {
	views := make([]View, 0, len(rows))
	for i := range rows {
		views = append(views, *toView(&rows[i]))
	}
	return views
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
