package audit

import "gorm.io/gorm"

// Recorder appends audit rows. Record runs against the transaction handle of
// the mutation it documents so that audit and mutation commit or roll back
// together. Implementations must never fail a write because the actor is
// unknown; a nil actor is recorded as the system actor.
type Recorder interface {
	Record(tx *gorm.DB, entry Entry) error
}

// NopRecorder discards entries. Used by service tests that do not exercise
// the trail.
type NopRecorder struct{}

func (NopRecorder) Record(_ *gorm.DB, _ Entry) error { return nil }
