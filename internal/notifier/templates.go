package notifier

import (
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/courseworks/fulfillment-backend/pkg/money"
)

// Notification carries everything needed to compose the outbound emails for
// one processed payment event.
type Notification struct {
	PaymentID     string
	Succeeded     bool
	AmountCents   int64
	Currency      string
	CustomerEmail string
	CustomerName  string
	FailureReason string
	ProductName   string
}

func (n Notification) amount() string {
	return money.Format(n.AmountCents, n.Currency)
}

func (n Notification) displayName() string {
	if name := strings.TrimSpace(n.CustomerName); name != "" {
		return name
	}
	return "there"
}

func buildCustomerReceipt(from *mail.Email, n Notification) *mail.SGMailV3 {
	to := mail.NewEmail(n.CustomerName, n.CustomerEmail)
	subject := "Your purchase is confirmed"
	product := n.ProductName
	if product == "" {
		product = "your course"
	}

	plain := fmt.Sprintf(
		"Hi %s,\n\nThanks for your purchase. Your payment of %s for %s was received and your course access is now active.\n\nPayment reference: %s\n",
		n.displayName(), n.amount(), product, n.PaymentID,
	)
	html := fmt.Sprintf(
		"<p>Hi %s,</p><p>Thanks for your purchase. Your payment of <strong>%s</strong> for %s was received and your course access is now active.</p><p>Payment reference: %s</p>",
		n.displayName(), n.amount(), product, n.PaymentID,
	)
	return mail.NewSingleEmail(from, subject, to, plain, html)
}

func buildPaymentFailedNotice(from *mail.Email, n Notification) *mail.SGMailV3 {
	to := mail.NewEmail(n.CustomerName, n.CustomerEmail)
	subject := "Your payment could not be processed"

	reason := strings.TrimSpace(n.FailureReason)
	if reason == "" {
		reason = "The payment was declined."
	}

	plain := fmt.Sprintf(
		"Hi %s,\n\nWe could not process your payment of %s. %s\n\nPlease try again or use a different payment method.\n",
		n.displayName(), n.amount(), reason,
	)
	html := fmt.Sprintf(
		"<p>Hi %s,</p><p>We could not process your payment of <strong>%s</strong>. %s</p><p>Please try again or use a different payment method.</p>",
		n.displayName(), n.amount(), reason,
	)
	return mail.NewSingleEmail(from, subject, to, plain, html)
}

func buildAdminNotice(from *mail.Email, adminEmail, dashboardBaseURL string, n Notification) *mail.SGMailV3 {
	to := mail.NewEmail("", adminEmail)

	status := "failed"
	if n.Succeeded {
		status = "succeeded"
	}
	subject := fmt.Sprintf("Payment %s: %s %s", status, n.amount(), n.PaymentID)

	var link string
	if dashboardBaseURL != "" {
		link = strings.TrimRight(dashboardBaseURL, "/") + "/payments/" + n.PaymentID
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Payment %s\n\nAmount: %s\nPayment ID: %s\n", status, n.amount(), n.PaymentID)
	if n.CustomerEmail != "" {
		fmt.Fprintf(&b, "Customer: %s", n.CustomerEmail)
		if n.CustomerName != "" {
			fmt.Fprintf(&b, " (%s)", n.CustomerName)
		}
		b.WriteString("\n")
	}
	if n.FailureReason != "" {
		fmt.Fprintf(&b, "Reason: %s\n", n.FailureReason)
	}
	if link != "" {
		fmt.Fprintf(&b, "\nView in Stripe: %s\n", link)
	}

	plain := b.String()
	html := "<pre>" + plain + "</pre>"
	return mail.NewSingleEmail(from, subject, to, plain, html)
}
