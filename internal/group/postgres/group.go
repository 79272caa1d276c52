package postgres

import (
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"github.com/openlearn/learning-management/internal/audit"
	"github.com/openlearn/learning-management/internal/core/datamodel/identity"
	"github.com/openlearn/learning-management/internal/group"
)

type GroupRepository struct {
	db       *gorm.DB
	recorder audit.Recorder
	logger   *slog.Logger
}

func NewGroupRepository(db *gorm.DB, recorder audit.Recorder, logger *slog.Logger) *GroupRepository {
	return &GroupRepository{db: db, recorder: recorder, logger: logger}
}

func (r *GroupRepository) GetByID(groupID int64) (*identity.Group, error) {
	var row identity.Group
	err := r.db.Where("group_id = ?", groupID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *GroupRepository) GetByName(name string) (*identity.Group, error) {
	var row identity.Group
	err := r.db.Where("name = ?", name).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *GroupRepository) List(limit, offset int) ([]identity.Group, error) {
	var rows []identity.Group
	err := r.db.Order("group_id ASC").Limit(limit).Offset(offset).Find(&rows).Error
	return rows, err
}

func (r *GroupRepository) Create(row *identity.Group, entry audit.Entry) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return group.ErrDuplicate
			}
			return err
		}
		entry.ObjectID = audit.NewObjectID(row.ID)
		return r.recorder.Record(tx, entry)
	})
}

func (r *GroupRepository) Update(row *identity.Group, entry audit.Entry) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return group.ErrDuplicate
			}
			return err
		}
		return r.recorder.Record(tx, entry)
	})
}

func (r *GroupRepository) Members(groupID int64) ([]identity.User, error) {
	var rows []identity.User
	err := r.db.Where("group_id = ?", groupID).Order("user_id ASC").Find(&rows).Error
	return rows, err
}

func (r *GroupRepository) PermissionsByIDs(ids []int64) ([]identity.Permission, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []identity.Permission
	err := r.db.Where("permission_id IN ?", ids).Find(&rows).Error
	return rows, err
}

func (r *GroupRepository) ReplacePermissions(groupID int64, grants []identity.GroupPermission, entries []audit.Entry) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", groupID).Delete(&identity.GroupPermission{}).Error; err != nil {
			return err
		}
		if len(grants) > 0 {
			if err := tx.Create(&grants).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return group.ErrDuplicate
				}
				return err
			}
		}
		for _, entry := range entries {
			if err := r.recorder.Record(tx, entry); err != nil {
				return err
			}
		}
		return nil
	})
}
