package user

import (
	"errors"

	"github.com/openlearn/learning-management/internal/audit"
	"github.com/openlearn/learning-management/internal/core/datamodel/identity"
)

// ErrDuplicate is returned by the repository when a store-level uniqueness
// constraint rejects a write. Services convert it to the idempotent
// already-exists outcome.
var ErrDuplicate = errors.New("duplicate row")

// Repository defines the data access methods for users and their permission
// grants. Lookups return (nil, nil) when the row does not exist. Write methods
// append the given audit entries inside the same transaction.
type Repository interface {
	GetByID(userID int64) (*identity.User, error)
	GetByUsername(username string) (*identity.User, error)
	List(limit, offset int) ([]identity.User, error)
	Search(query string, limit, offset int) ([]identity.User, error)
	Create(user *identity.User, entry audit.Entry) error
	Update(user *identity.User, entry audit.Entry) error

	GroupExists(groupID int64) (bool, error)
	PermissionsByIDs(ids []int64) ([]identity.Permission, error)
	PermissionsOf(userID int64) ([]identity.Permission, error)
	ReplacePermissions(userID int64, grants []identity.UserPermission, entries []audit.Entry) error
}

// View is the read shape handed to transport; it never carries the hash.
type View struct {
	ID           int64   `json:"id"`
	Username     string  `json:"username"`
	Fullname     string  `json:"fullname"`
	IsActive     bool    `json:"is_active"`
	IsStaff      bool    `json:"is_staff"`
	IsSuperuser  bool    `json:"is_superuser"`
	GroupID      *int64  `json:"group_id,omitempty"`
	RegisteredBy *int64  `json:"registered_by,omitempty"`
	RegisteredAt string  `json:"registered_at"`
	LastLogin    *string `json:"last_login,omitempty"`
}

type PermissionView struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Codename string `json:"codename"`
	Flag     int    `json:"flag"`
}
