package audit

import "time"

// AuditLog is an append-only record of a mutation. UserID is null when the
// write happened without an authenticated principal (system actor). The gorm
// naming strategy maps the struct to audit_logs; an explicit TableName method
// would collide with the column field.
type AuditLog struct {
	ID            int64     `gorm:"column:audit_log_id;primaryKey"`
	UserID        *int64    `gorm:"column:user_id"`
	Timestamp     time.Time `gorm:"column:timestamp;not null"`
	ObjectID      string    `gorm:"column:object_id"`
	Flag          int       `gorm:"column:flag;not null"`
	TableName     string    `gorm:"column:table_name;not null"`
	ChangedData   string    `gorm:"column:changed_data"`
	Justification string    `gorm:"column:justification;default:N/A"`
}
