package postgres

import (
	"errors"
	"log/slog"

	"gorm.io/gorm"

	notificationmodel "github.com/openlearn/learning-management/internal/core/datamodel/notification"
)

// NotificationRepository implements notification.Repository over gorm.
// Notifications are fire-and-forget rows, no audit trail.
type NotificationRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewNotificationRepository(db *gorm.DB, logger *slog.Logger) *NotificationRepository {
	return &NotificationRepository{db: db, logger: logger}
}

func (r *NotificationRepository) Create(row *notificationmodel.Notification) error {
	return r.db.Create(row).Error
}

func (r *NotificationRepository) GetByID(notificationID int64) (*notificationmodel.Notification, error) {
	var row notificationmodel.Notification
	err := r.db.Where("notification_id = ?", notificationID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *NotificationRepository) ListByUser(userID int64, unreadOnly bool) ([]notificationmodel.Notification, error) {
	query := r.db.Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	var rows []notificationmodel.Notification
	err := query.Order("created_at DESC").Find(&rows).Error
	return rows, err
}

func (r *NotificationRepository) MarkRead(row *notificationmodel.Notification) error {
	return r.db.Model(&notificationmodel.Notification{}).
		Where("notification_id = ?", row.ID).
		Updates(map[string]interface{}{
			"is_read": row.IsRead,
			"read_at": row.ReadAt,
		}).Error
}
