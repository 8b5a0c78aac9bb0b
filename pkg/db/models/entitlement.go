package models

import (
	"time"

	"github.com/google/uuid"
)

// Entitlement grants a customer access to a product. Only the fulfillment
// orchestrator writes these, and only for a verified succeeded payment. The
// (customer, product) pair is unique so redelivered events cannot double-grant.
type Entitlement struct {
	ID                 uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerIdentifier string    `gorm:"column:customer_identifier;not null;uniqueIndex:ux_entitlements_customer_product"`
	ProductID          string    `gorm:"column:product_id;not null;uniqueIndex:ux_entitlements_customer_product"`
	SourcePaymentID    string    `gorm:"column:source_payment_id;not null"`
	GrantedAt          time.Time `gorm:"column:granted_at;not null"`
}
