package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/courseworks/fulfillment-backend/pkg/enums"
)

// Payment is the durable financial record for one payment intent outcome.
// Amounts are stored in minor currency units.
type Payment struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StripePaymentID string              `gorm:"column:stripe_payment_id;not null;uniqueIndex:ux_payments_stripe_payment_id"`
	EventID         string              `gorm:"column:event_id;not null"`
	Status          enums.PaymentStatus `gorm:"column:status;not null"`
	AmountCents     int64               `gorm:"column:amount_cents;not null"`
	Currency        string              `gorm:"column:currency;not null"`
	CustomerEmail   *string             `gorm:"column:customer_email"`
	CustomerName    *string             `gorm:"column:customer_name"`
	FailureReason   *string             `gorm:"column:failure_reason"`
	Metadata        json.RawMessage     `gorm:"column:metadata;type:jsonb"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
}
