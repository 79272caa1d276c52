package postgres

import (
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/openlearn/learning-management/internal/audit"
	"github.com/openlearn/learning-management/internal/core/datamodel/identity"
	"github.com/openlearn/learning-management/internal/user"
)

// UserRepository implements user.Repository over gorm. Every write runs in a
// transaction that also appends the caller's audit entries.
type UserRepository struct {
	db       *gorm.DB
	recorder audit.Recorder
	logger   *slog.Logger
}

func NewUserRepository(db *gorm.DB, recorder audit.Recorder, logger *slog.Logger) *UserRepository {
	return &UserRepository{db: db, recorder: recorder, logger: logger}
}

func (r *UserRepository) GetByID(userID int64) (*identity.User, error) {
	var row identity.User
	err := r.db.Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *UserRepository) GetByUsername(username string) (*identity.User, error) {
	var row identity.User
	err := r.db.Where("username = ?", username).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *UserRepository) List(limit, offset int) ([]identity.User, error) {
	var rows []identity.User
	err := r.db.Order("user_id ASC").Limit(limit).Offset(offset).Find(&rows).Error
	return rows, err
}

func (r *UserRepository) Search(query string, limit, offset int) ([]identity.User, error) {
	var rows []identity.User
	pattern := fmt.Sprintf("%%%s%%", query)
	err := r.db.Where("username LIKE ? OR fullname LIKE ?", pattern, pattern).
		Order("user_id ASC").Limit(limit).Offset(offset).Find(&rows).Error
	return rows, err
}

func (r *UserRepository) Create(row *identity.User, entry audit.Entry) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return user.ErrDuplicate
			}
			return err
		}
		entry.ObjectID = audit.NewObjectID(row.ID)
		return r.recorder.Record(tx, entry)
	})
}

func (r *UserRepository) Update(row *identity.User, entry audit.Entry) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(row).Error; err != nil {
			return err
		}
		return r.recorder.Record(tx, entry)
	})
}

func (r *UserRepository) GroupExists(groupID int64) (bool, error) {
	var count int64
	err := r.db.Model(&identity.Group{}).Where("group_id = ?", groupID).Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) PermissionsByIDs(ids []int64) ([]identity.Permission, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []identity.Permission
	err := r.db.Where("permission_id IN ?", ids).Find(&rows).Error
	return rows, err
}

func (r *UserRepository) PermissionsOf(userID int64) ([]identity.Permission, error) {
	var rows []identity.Permission
	err := r.db.
		Joins("JOIN user_permissions up ON up.permission_id = permissions.permission_id").
		Where("up.user_id = ?", userID).
		Order("permissions.flag ASC").
		Find(&rows).Error
	return rows, err
}

// ReplacePermissions deletes every grant for the user and inserts the new
// set atomically, appending all audit entries in the same transaction.
func (r *UserRepository) ReplacePermissions(userID int64, grants []identity.UserPermission, entries []audit.Entry) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&identity.UserPermission{}).Error; err != nil {
			return err
		}
		if len(grants) > 0 {
			if err := tx.Create(&grants).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return user.ErrDuplicate
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
