package notification

import (
	notificationmodel "github.com/openlearn/learning-management/internal/core/datamodel/notification"
)

// Repository defines the data access methods for notifications. GetByID
// returns (nil, nil) when the row does not exist.
type Repository interface {
	Create(row *notificationmodel.Notification) error
	GetByID(notificationID int64) (*notificationmodel.Notification, error)
	ListByUser(userID int64, unreadOnly bool) ([]notificationmodel.Notification, error)
	MarkRead(row *notificationmodel.Notification) error
}

type View struct {
	ID        int64   `json:"id"`
	Subject   string  `json:"subject"`
	Body      string  `json:"body"`
	CreatedAt string  `json:"created_at"`
	IsRead    bool    `json:"is_read"`
	ReadAt    *string `json:"read_at,omitempty"`
}
