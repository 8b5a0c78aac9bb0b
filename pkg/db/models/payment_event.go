package models

import (
	"encoding/json"
	"time"

	"github.com/courseworks/fulfillment-backend/pkg/enums"
)

// PaymentEvent is the immutable audit copy of a provider event. Rows are
// written once on receipt and never mutated; the raw payload is retained for
// replay and dispute handling.
type PaymentEvent struct {
	EventID        string          `gorm:"column:event_id;primaryKey"`
	Kind           enums.EventKind `gorm:"column:kind;not null"`
	OccurredAt     time.Time       `gorm:"column:occurred_at;not null"`
	RawPayload     json.RawMessage `gorm:"column:raw_payload;type:jsonb;not null"`
	AmountCents    int64           `gorm:"column:amount_cents;not null;default:0"`
	Currency       string          `gorm:"column:currency"`
	CustomerEmail  *string         `gorm:"column:customer_email"`
	RelatedOrderID *string         `gorm:"column:related_order_id"`
	ReceivedAt     time.Time       `gorm:"column:received_at;autoCreateTime"`
}
