package group

import (
	"errors"
	"strings"
)

type CreateDTO struct {
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
	Description  string `json:"description"`
}

func (d *CreateDTO) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.Abbreviation = strings.TrimSpace(d.Abbreviation)
	d.Description = strings.TrimSpace(d.Description)
}

// Validate validates the CreateDTO
func (d CreateDTO) Validate() error {
	if d.Name == "" {
		return errors.New("name is required")
	}
	if len(d.Name) > 128 {
		return errors.New("name must not exceed 128 characters")
	}
	if d.Abbreviation == "" {
		return errors.New("abbreviation is required")
	}
	if len(d.Abbreviation) > 16 {
		return errors.New("abbreviation must not exceed 16 characters")
	}
	return nil
}

type UpdateDTO struct {
	Name         *string `json:"name,omitempty"`
	Abbreviation *string `json:"abbreviation,omitempty"`
	Description  *string `json:"description,omitempty"`
}

func (d UpdateDTO) Validate() error {
	if d.Name != nil && strings.TrimSpace(*d.Name) == "" {
		return errors.New("name is required")
	}
	if d.Abbreviation != nil && strings.TrimSpace(*d.Abbreviation) == "" {
		return errors.New("abbreviation is required")
	}
	return nil
}

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
