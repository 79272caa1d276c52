package postgres

import (
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/openlearn/learning-management/internal/core/datamodel/identity"
)

// AuthRepository backs both the credential lookups of the auth service and
// the grant lookups of the access gate.
type AuthRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewAuthRepository(db *gorm.DB, logger *slog.Logger) *AuthRepository {
	return &AuthRepository{db: db, logger: logger}
}

func (r *AuthRepository) GetByUsername(username string) (*identity.User, error) {
	var user identity.User
	err := r.db.Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *AuthRepository) GetByID(userID int64) (*identity.User, error) {
	var user identity.User
	err := r.db.Where("user_id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *AuthRepository) UpdateLastLogin(userID int64, at time.Time) error {
	return r.db.Model(&identity.User{}).
		Where("user_id = ?", userID).
		Update("last_login", at).Error
}

func (r *AuthRepository) UpdatePassword(userID int64, passwordHash string) error {
	return r.db.Model(&identity.User{}).
		Where("user_id = ?", userID).
		Update("password_hash", passwordHash).Error
}

func (r *AuthRepository) GetPermissionByCodename(codename string) (*identity.Permission, error) {
	var perm identity.Permission
	err := r.db.Where("codename = ?", codename).First(&perm).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &perm, nil
}

func (r *AuthRepository) HasGrant(userID, permissionID int64) (bool, error) {
	var count int64
	err := r.db.Model(&identity.UserPermission{}).
		Where("user_id = ? AND permission_id = ?", userID, permissionID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
