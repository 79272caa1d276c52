package group

import (
	"errors"

	"github.com/openlearn/learning-management/internal/audit"
	"github.com/openlearn/learning-management/internal/core/datamodel/identity"
)

var ErrDuplicate = errors.New("duplicate row")

// Repository defines the data access methods for groups. Group permission
// grants are stored for administration only; the access gate never reads them.
type Repository interface {
	GetByID(groupID int64) (*identity.Group, error)
	GetByName(name string) (*identity.Group, error)
	List(limit, offset int) ([]identity.Group, error)
	Create(group *identity.Group, entry audit.Entry) error
	Update(group *identity.Group, entry audit.Entry) error
	Members(groupID int64) ([]identity.User, error)

	PermissionsByIDs(ids []int64) ([]identity.Permission, error)
	ReplacePermissions(groupID int64, grants []identity.GroupPermission, entries []audit.Entry) error
}

type View struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
	Description  string `json:"description"`
}

type MemberView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Fullname string `json:"fullname"`
}
