package group

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openlearn/learning-management/internal"
	"github.com/openlearn/learning-management/internal/audit"
	"github.com/openlearn/learning-management/internal/core/datamodel/identity"
)

// Service handles group management business logic.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Create(actorID int64, dto CreateDTO) (*View, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeInvalidName)
	}

	existing, err := s.repo.GetByName(dto.Name)
	if err != nil {
		return nil, internal.NewInternalError("could not create group", err)
	}
	if existing != nil {
		return nil, internal.NewConflictError(
			fmt.Sprintf("Group %q already exists.", dto.Name),
			internal.ErrCodeDuplicateName)
	}

	row := &identity.Group{
		Name:         dto.Name,
		Abbreviation: dto.Abbreviation,
		Description:  dto.Description,
	}
	if row.Description == "" {
		row.Description = "N/A"
	}

	entry := audit.Entry{
		ActorID:     &actorID,
		TableName:   identity.Group{}.TableName(),
		Flag:        audit.InsertFlag,
		ChangedData: changedJSON(map[string]any{"name": dto.Name, "abbreviation": dto.Abbreviation}),
	}

	if err := s.repo.Create(row, entry); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, internal.NewConflictError(
				fmt.Sprintf("Group %q already exists.", dto.Name),
				internal.ErrCodeDuplicateName)
		}
		s.logger.Error("failed to create group", "name", dto.Name, "error", err)
		return nil, internal.NewInternalError("could not create group", err)
	}

	return toView(row), nil
}

func (s *Service) Get(groupID int64) (*View, error) {
	row, err := s.repo.GetByID(groupID)
	if err != nil {
		return nil, internal.NewInternalError("could not load group", err)
	}
	if row == nil {
		return nil, internal.NewNotFoundError("Group not found.", internal.ErrCodeGroupNotFound)
	}
	return toView(row), nil
}

func (s *Service) List(limit, offset int) ([]View, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.repo.List(limit, offset)
	if err != nil {
		return nil, internal.NewInternalError("could not list groups", err)
	}
	views := make([]View, 0, len(rows))
	for i := range rows {
		views = append(views, *toView(&rows[i]))
	}
	return views, nil
}

func (s *Service) Update(actorID, groupID int64, dto UpdateDTO) (*View, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	row, err := s.repo.GetByID(groupID)
	if err != nil {
		return nil, internal.NewInternalError("could not load group", err)
	}
	if row == nil {
		return nil, internal.NewNotFoundError("Group not found.", internal.ErrCodeGroupNotFound)
	}

	changed := map[string]any{}
	if dto.Name != nil {
		row.Name = *dto.Name
		changed["name"] = *dto.Name
	}
	if dto.Abbreviation != nil {
		row.Abbreviation = *dto.Abbreviation
		changed["abbreviation"] = *dto.Abbreviation
	}
	if dto.Description != nil {
		row.Description = *dto.Description
		changed["description"] = *dto.Description
	}
	if len(changed) == 0 {
		return toView(row), nil
	}

	entry := audit.Entry{
		ActorID:     &actorID,
		TableName:   identity.Group{}.TableName(),
		ObjectID:    audit.NewObjectID(row.ID),
		Flag:        audit.UpdateFlag,
		ChangedData: changedJSON(changed),
	}

	if err := s.repo.Update(row, entry); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, internal.NewConflictError("Group name or abbreviation already exists.", internal.ErrCodeDuplicateName)
		}
		return nil, internal.NewInternalError("could not update group", err)
	}
	return toView(row), nil
}

func (s *Service) Members(groupID int64) ([]MemberView, error) {
	row, err := s.repo.GetByID(groupID)
	if err != nil {
		return nil, internal.NewInternalError("could not load group", err)
	}
	if row == nil {
		return nil, internal.NewNotFoundError("Group not found.", internal.ErrCodeGroupNotFound)
	}

	members, err := s.repo.Members(groupID)
	if err != nil {
		return nil, internal.NewInternalError("could not load group members", err)
	}

	views := make([]MemberView, 0, len(members))
	for _, m := range members {
		views = append(views, MemberView{ID: m.ID, Username: m.Username, Fullname: m.Fullname})
	}
	return views, nil
}

// AssignPermissions replaces the group's stored grant set. These rows are
// administrative records; access decisions read direct user grants only.
func (s *Service) AssignPermissions(actorID, groupID int64, dto AssignPermissionsDTO) error {
	if err := dto.Validate(); err != nil {
		return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	row, err := s.repo.GetByID(groupID)
	if err != nil {
		return internal.NewInternalError("could not assign permissions", err)
	}
	if row == nil {
		return internal.NewNotFoundError("Group not found.", internal.ErrCodeGroupNotFound)
	}

	perms, err := s.repo.PermissionsByIDs(dto.PermissionIDs)
	if err != nil {
		return internal.NewInternalError("could not assign permissions", err)
	}
	if len(perms) != len(dto.PermissionIDs) {
		return internal.NewNotFoundError("Permission not found.", internal.ErrCodePermissionNotFound)
	}

	now := time.Now().UTC()
	grants := make([]identity.GroupPermission, 0, len(perms))
	entries := make([]audit.Entry, 0, len(perms)+1)
	entries = append(entries, audit.Entry{
		ActorID:     &actorID,
		TableName:   identity.GroupPermission{}.TableName(),
		ObjectID:    audit.NewObjectID(groupID),
		Flag:        audit.DeleteFlag,
		ChangedData: changedJSON(map[string]any{"group_id": groupID, "reason": "permission set replaced"}),
	})
	for _, p := range perms {
		grants = append(grants, identity.GroupPermission{
			GroupID:      groupID,
			PermissionID: p.ID,
			AssignedAt:   now,
			AssignedBy:   actorID,
		})
		entries = append(entries, audit.Entry{
			ActorID:     &actorID,
			TableName:   identity.GroupPermission{}.TableName(),
			ObjectID:    audit.NewObjectID(groupID, p.ID),
			Flag:        audit.InsertFlag,
			ChangedData: changedJSON(map[string]any{"codename": p.Codename}),
		})
	}

	if err := s.repo.ReplacePermissions(groupID, grants, entries); err != nil {
		s.logger.Error("failed to replace group permissions", "group_id", groupID, "error", err)
		return internal.NewInternalError("could not assign permissions", err)
	}
	return nil
}

func toView(row *identity.Group) *View {
	return &View{
		ID:           row.ID,
		Name:         row.Name,
		Abbreviation: row.Abbreviation,
		Description:  row.Description,
	}
}

func changedJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
