package postgres

import (
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/openlearn/learning-management/internal/audit"
	auditDatamodel "github.com/openlearn/learning-management/internal/core/datamodel/audit"
)

// AuditRepository persists audit entries through whatever gorm handle the
// caller provides, usually the transaction wrapping the mutation itself.
type AuditRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewAuditRepository(db *gorm.DB, logger *slog.Logger) *AuditRepository {
	return &AuditRepository{db: db, logger: logger}
}

func (r *AuditRepository) Record(tx *gorm.DB, entry audit.Entry) error {
	if tx == nil {
		tx = r.db
	}

	changed := entry.ChangedData
	if changed == "" {
		changed = "{}"
	}
	justification := entry.Justification
	if justification == "" {
		justification = "N/A"
	}

	row := &auditDatamodel.AuditLog{
		UserID:        entry.ActorID,
		Timestamp:     time.Now().UTC(),
		ObjectID:      entry.ObjectID.String(),
		Flag:          entry.Flag,
		TableName:     entry.TableName,
		ChangedData:   changed,
		Justification: justification,
	}

	if err := tx.Create(row).Error; err != nil {
		r.logger.Error("failed to append audit log",
			"table", entry.TableName,
			"object_id", entry.ObjectID.String(),
			"flag", entry.Flag,
			"error", err)
		return err
	}
	return nil
}

// ByTable returns the trail for one table, newest first. Used by the admin
// panel listing.
func (r *AuditRepository) ByTable(table string, limit int) ([]*auditDatamodel.AuditLog, error) {
	var logs []*auditDatamodel.AuditLog
	err := r.db.Where("table_name = ?", table).
		Order("timestamp DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
