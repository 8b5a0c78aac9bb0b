// Package events maps verified Stripe events onto the closed set of kinds the
// fulfillment pipeline understands and extracts the fields downstream
// processing needs.
package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/courseworks/fulfillment-backend/pkg/enums"
)

// Classified is the provider-neutral view of a verified webhook event.
type Classified struct {
	EventID       string
	Kind          enums.EventKind
	OccurredAt    time.Time
	RawPayload    json.RawMessage
	PaymentID     string
	AmountCents   int64
	Currency      string
	CustomerEmail string
	CustomerName  string
	FailureReason string
	ProductID     string
	InvoiceID     string
	Metadata      map[string]string
}

// Classify inspects a verified event and extracts the payment fields the
// pipeline acts on. Event types outside the handled set come back as
// EventKindUnhandled rather than an error so the caller can acknowledge them.
func Classify(event *stripe.Event) (*Classified, error) {
	if event == nil {
		return nil, fmt.Errorf("event is required")
	}
	if event.ID == "" {
		return nil, fmt.Errorf("event id is required")
	}

	var raw json.RawMessage
	if event.Data != nil {
		raw = event.Data.Raw
	}

	classified := &Classified{
		EventID:    event.ID,
		Kind:       enums.EventKindUnhandled,
		OccurredAt: time.Unix(event.Created, 0).UTC(),
		RawPayload: raw,
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		classified.Kind = enums.EventKindPaymentSucceeded
		if err := applyPaymentIntent(classified, raw); err != nil {
			return nil, err
		}
	case stripe.EventTypePaymentIntentPaymentFailed:
		classified.Kind = enums.EventKindPaymentFailed
		if err := applyPaymentIntent(classified, raw); err != nil {
			return nil, err
		}
	case stripe.EventTypeInvoicePaymentSucceeded:
		classified.Kind = enums.EventKindInvoicePaid
		if err := applyInvoice(classified, raw); err != nil {
			return nil, err
		}
	case stripe.EventTypeCustomerCreated:
		classified.Kind = enums.EventKindCustomerCreated
		if err := applyCustomer(classified, raw); err != nil {
			return nil, err
		}
	}

	return classified, nil
}

func applyPaymentIntent(c *Classified, raw json.RawMessage) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(raw, &intent); err != nil {
		return fmt.Errorf("decoding payment intent: %w", err)
	}
	if intent.ID == "" {
		return fmt.Errorf("payment intent id is required")
	}

	c.PaymentID = intent.ID
	c.AmountCents = intent.Amount
	c.Currency = normalizeCurrency(string(intent.Currency))
	c.CustomerEmail = strings.TrimSpace(intent.ReceiptEmail)
	if intent.Shipping != nil {
		c.CustomerName = strings.TrimSpace(intent.Shipping.Name)
	}
	if intent.LastPaymentError != nil {
		c.FailureReason = strings.TrimSpace(intent.LastPaymentError.Msg)
	}
	if len(intent.Metadata) > 0 {
		c.Metadata = intent.Metadata
		c.ProductID = strings.TrimSpace(intent.Metadata["product_id"])
	}
	return nil
}

func applyInvoice(c *Classified, raw json.RawMessage) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(raw, &invoice); err != nil {
		return fmt.Errorf("decoding invoice: %w", err)
	}
	if invoice.ID == "" {
		return fmt.Errorf("invoice id is required")
	}

	c.InvoiceID = invoice.ID
	c.PaymentID = invoice.ID
	c.AmountCents = invoice.AmountPaid
	c.Currency = normalizeCurrency(string(invoice.Currency))
	c.CustomerEmail = strings.TrimSpace(invoice.CustomerEmail)
	c.CustomerName = strings.TrimSpace(invoice.CustomerName)
	return nil
}

func applyCustomer(c *Classified, raw json.RawMessage) error {
	var customer stripe.Customer
	if err := json.Unmarshal(raw, &customer); err != nil {
		return fmt.Errorf("decoding customer: %w", err)
	}
	if customer.ID == "" {
		return fmt.Errorf("customer id is required")
	}

	c.PaymentID = customer.ID
	c.CustomerEmail = strings.TrimSpace(customer.Email)
	c.CustomerName = strings.TrimSpace(customer.Name)
	return nil
}

func normalizeCurrency(raw string) string {
	currency := strings.ToLower(strings.TrimSpace(raw))
	if currency == "" {
		return "usd"
	}
	return currency
}
