package fulfillment

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/courseworks/fulfillment-backend/pkg/db"
	"github.com/courseworks/fulfillment-backend/pkg/db/models"
	"github.com/courseworks/fulfillment-backend/pkg/enums"
)

// ClaimStatus reports the result of attempting to claim an event for
// processing.
type ClaimStatus string

const (
	// ClaimAcquired means this worker owns the event and must process it.
	ClaimAcquired ClaimStatus = "acquired"
	// ClaimAlreadyProcessed means a previous delivery completed the event.
	ClaimAlreadyProcessed ClaimStatus = "already_processed"
	// ClaimInFlight means another worker holds a live claim on the event.
	ClaimInFlight ClaimStatus = "in_flight"
)

// ClaimRepository manages durable processing claims keyed by event id.
type ClaimRepository interface {
	WithTx(tx *gorm.DB) ClaimRepository
	TryClaim(ctx context.Context, eventID string, lease time.Duration, now time.Time) (ClaimStatus, error)
	Finalize(ctx context.Context, eventID string, outcome enums.ProcessingOutcome, now time.Time) error
	Release(ctx context.Context, eventID string) error
	Get(ctx context.Context, eventID string) (*models.ProcessingRecord, error)
}

type claimRepository struct {
	db *gorm.DB
}

// NewClaimRepository returns a claim repository bound to the provided database.
func NewClaimRepository(gdb *gorm.DB) ClaimRepository {
	return &claimRepository{db: gdb}
}

func (r *claimRepository) WithTx(tx *gorm.DB) ClaimRepository {
	if tx == nil {
		return r
	}
	return &claimRepository{db: tx}
}

// TryClaim inserts an in_progress record for the event. A primary key
// collision means the event was seen before: completed records report
// AlreadyProcessed, live claims report InFlight, and claims older than the
// lease are taken over with a guarded update so only one waiter wins.
func (r *claimRepository) TryClaim(ctx context.Context, eventID string, lease time.Duration, now time.Time) (ClaimStatus, error) {
	record := models.ProcessingRecord{
		EventID:   eventID,
		Status:    enums.ProcessingStatusInProgress,
		ClaimedAt: now,
	}
	err := r.db.WithContext(ctx).Create(&record).Error
	if err == nil {
		return ClaimAcquired, nil
	}
	if !db.IsUniqueViolation(err, "") {
		return "", err
	}

	existing, err := r.Get(ctx, eventID)
	if err != nil {
		return "", err
	}
	if existing == nil {
		// Claim vanished between insert and lookup, likely a concurrent
		// Release. Treat as contended and let Stripe redeliver.
		return ClaimInFlight, nil
	}

	if existing.Status == enums.ProcessingStatusDone {
		return ClaimAlreadyProcessed, nil
	}

	if lease > 0 && now.Sub(existing.ClaimedAt) > lease {
		res := r.db.WithContext(ctx).
			Model(&models.ProcessingRecord{}).
			Where("event_id = ? AND status = ? AND claimed_at = ?",
				eventID, enums.ProcessingStatusInProgress, existing.ClaimedAt).
			Update("claimed_at", now)
		if res.Error != nil {
			return "", res.Error
		}
		if res.RowsAffected == 1 {
			return ClaimAcquired, nil
		}
	}

	return ClaimInFlight, nil
}

// Finalize marks the claim done with a terminal outcome. Callers run this
// inside the same transaction that persists fulfillment effects so the claim
// and its effects commit atomically.
func (r *claimRepository) Finalize(ctx context.Context, eventID string, outcome enums.ProcessingOutcome, now time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.ProcessingRecord{}).
		Where("event_id = ? AND status = ?", eventID, enums.ProcessingStatusInProgress).
		Updates(map[string]any{
			"status":       enums.ProcessingStatusDone,
			"outcome":      outcome,
			"processed_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("no in-progress claim to finalize")
	}
	return nil
}

// Release drops an in_progress claim after a retryable failure so the next
// delivery can claim the event again.
func (r *claimRepository) Release(ctx context.Context, eventID string) error {
	return r.db.WithContext(ctx).
		Where("event_id = ? AND status = ?", eventID, enums.ProcessingStatusInProgress).
		Delete(&models.ProcessingRecord{}).Error
}

func (r *claimRepository) Get(ctx context.Context, eventID string) (*models.ProcessingRecord, error) {
	var record models.ProcessingRecord
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}
