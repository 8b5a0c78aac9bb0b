package models

import (
	"time"

	"github.com/courseworks/fulfillment-backend/pkg/enums"
)

// ProcessingRecord is the dedup claim for one provider event. A row in
// `in_progress` is a lease held by a worker; a row in `done` means every side
// effect for the event has committed exactly once.
type ProcessingRecord struct {
	EventID     string                   `gorm:"column:event_id;primaryKey"`
	Status      enums.ProcessingStatus   `gorm:"column:status;not null"`
	Outcome     *enums.ProcessingOutcome `gorm:"column:outcome"`
	ClaimedAt   time.Time                `gorm:"column:claimed_at;not null"`
	ProcessedAt *time.Time               `gorm:"column:processed_at"`
}
