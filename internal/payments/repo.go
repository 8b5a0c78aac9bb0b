// Package payments persists payment records and the raw events they came
// from, and mirrors outcomes to the append-only payment log.
package payments

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/courseworks/fulfillment-backend/pkg/db/models"
)

// Repository manages persistence for payment events and payment records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateEvent(ctx context.Context, event *models.PaymentEvent) error
	CreatePayment(ctx context.Context, payment *models.Payment) error
	GetPaymentByStripeID(ctx context.Context, stripePaymentID string) (*models.Payment, error)
	GetEvent(ctx context.Context, eventID string) (*models.PaymentEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payments repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CreateEvent archives the raw event keyed by event id. Replays of an already
// archived event are a no-op.
func (r *repository) CreateEvent(ctx context.Context, event *models.PaymentEvent) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(event).Error
}

// CreatePayment inserts a payment record. A unique violation on the Stripe
// payment id surfaces to the caller, which treats it as already recorded.
func (r *repository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) GetPaymentByStripeID(ctx context.Context, stripePaymentID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("stripe_payment_id = ?", stripePaymentID).
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) GetEvent(ctx context.Context, eventID string) (*models.PaymentEvent, error) {
	var event models.PaymentEvent
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}
