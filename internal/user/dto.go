package user

import (
	"errors"
	"strings"

	"github.com/openlearn/learning-management/internal/core/common/validation"
)

const (
	maxUsernameLength = 64
	maxFullnameLength = 128
)

// RegisterDTO represents the request payload for registering a user. The
// password is never part of the payload; new accounts start with the
// configured default password.
type RegisterDTO struct {
	Username string `json:"username"`
	Fullname string `json:"fullname"`
	IsStaff  bool   `json:"is_staff"`
	GroupID  *int64 `json:"group_id,omitempty"`
}

func (d *RegisterDTO) Normalize() {
	d.Username = strings.TrimSpace(strings.ToLower(d.Username))
	d.Fullname = strings.TrimSpace(d.Fullname)
}

// Validate validates the RegisterDTO
func (d RegisterDTO) Validate() error {
	validator := validation.NewValidator()

	validator.Field("username", d.Username).Required().NoWhitespace().MaxLength(maxUsernameLength)
	validator.Field("fullname", d.Fullname).Required().MaxLength(maxFullnameLength)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// UpdateDTO applies partial updates; nil fields are left untouched.
type UpdateDTO struct {
	Fullname *string `json:"fullname,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
	IsStaff  *bool   `json:"is_staff,omitempty"`
	GroupID  *int64  `json:"group_id,omitempty"`
}

func (d UpdateDTO) Validate() error {
	if d.Fullname == nil {
		return nil
	}
	validator := validation.NewValidator()
	validator.Field("fullname", *d.Fullname).Required().MaxLength(maxFullnameLength)
	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// AssignPermissionsDTO replaces a user's whole permission set.
type AssignPermissionsDTO struct {
	PermissionIDs []int64 `json:"permission_ids"`
}

func (d AssignPermissionsDTO) Validate() error {
	seen := map[int64]bool{}
	for _, id := range d.PermissionIDs {
		if id <= 0 {
			return errors.New("permission ids must be positive")
		}
		if seen[id] {
			return errors.New("permission ids must be unique")
		}
		seen[id] = true
	}
	return nil
}
