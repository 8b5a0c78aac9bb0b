package enums

// EventKind is the closed set of domain event kinds the pipeline understands.
// Provider event types outside this set classify as EventKindUnhandled.
type EventKind string

const (
	EventKindPaymentSucceeded EventKind = "payment_succeeded"
	EventKindPaymentFailed    EventKind = "payment_failed"
	EventKindInvoicePaid      EventKind = "invoice_paid"
	EventKindCustomerCreated  EventKind = "customer_created"
	EventKindUnhandled        EventKind = "unhandled"
)

var validEventKinds = []EventKind{
	EventKindPaymentSucceeded,
	EventKindPaymentFailed,
	EventKindInvoicePaid,
	EventKindCustomerCreated,
	EventKindUnhandled,
}

// String implements fmt.Stringer.
func (k EventKind) String() string {
	return string(k)
}

// IsValid reports whether the kind is part of the closed enum.
func (k EventKind) IsValid() bool {
	for _, candidate := range validEventKinds {
		if candidate == k {
			return true
		}
	}
	return false
}
