package notification

import "time"

// Notification is an in-app mail produced by the event subscribers.
type Notification struct {
	ID        int64      `gorm:"column:notification_id;primaryKey"`
	UserID    int64      `gorm:"column:user_id;not null"`
	Subject   string     `gorm:"column:subject;not null"`
	Body      string     `gorm:"column:body;not null"`
	CreatedAt time.Time  `gorm:"column:created_at;not null"`
	IsRead    bool       `gorm:"column:is_read;default:false"`
	ReadAt    *time.Time `gorm:"column:read_at"`
}

func (Notification) TableName() string { return "notifications" }
