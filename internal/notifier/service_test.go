package notifier

import (
	"context"
	"testing"
	"time"

	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/require"

	"github.com/courseworks/fulfillment-backend/pkg/config"
	pkgerrors "github.com/courseworks/fulfillment-backend/pkg/errors"
)

type stubSender struct {
	sent     []*mail.SGMailV3
	failures int
	calls    int
	err      error
}

func (s *stubSender) Send(_ context.Context, message *mail.SGMailV3) error {
	s.calls++
	if s.failures > 0 {
		s.failures--
		if s.err != nil {
			return s.err
		}
		return pkgerrors.New(pkgerrors.CodeDependency, "sendgrid unavailable")
	}
	s.sent = append(s.sent, message)
	return nil
}

func testMailConfig() config.MailConfig {
	return config.MailConfig{
		FromEmail:   "no-reply@courseworks.test",
		FromName:    "CourseWorks",
		AdminEmail:  "admin@courseworks.test",
		SendTimeout: 5 * time.Second,
		MaxAttempts: 3,
	}
}

func successNotification() Notification {
	return Notification{
		PaymentID:     "pi_123",
		Succeeded:     true,
		AmountCents:   2599,
		Currency:      "usd",
		CustomerEmail: "buyer@example.com",
		CustomerName:  "Jamie Buyer",
		ProductName:   "Complete Course Bundle",
	}
}

func TestDispatchSendsCustomerAndAdminEmails(t *testing.T) {
	sender := &stubSender{}
	svc, err := NewService(sender, testMailConfig(), "https://dashboard.stripe.com", nil, nil)
	require.NoError(t, err)

	require.NoError(t, svc.Dispatch(context.Background(), successNotification()))
	require.Len(t, sender.sent, 2)

	customer := sender.sent[0]
	require.Equal(t, "Your purchase is confirmed", customer.Subject)
	require.Contains(t, customer.Content[0].Value, "25.99 USD")
	require.Contains(t, customer.Content[0].Value, "pi_123")

	admin := sender.sent[1]
	require.Contains(t, admin.Subject, "succeeded")
	require.Contains(t, admin.Content[0].Value, "https://dashboard.stripe.com/payments/pi_123")
	require.Equal(t, "admin@courseworks.test", admin.Personalizations[0].To[0].Address)
}

func TestDispatchFailureNoticeIncludesReason(t *testing.T) {
	sender := &stubSender{}
	svc, err := NewService(sender, testMailConfig(), "", nil, nil)
	require.NoError(t, err)

	n := successNotification()
	n.Succeeded = false
	n.FailureReason = "Your card was declined."

	require.NoError(t, svc.Dispatch(context.Background(), n))
	require.Len(t, sender.sent, 2)
	require.Equal(t, "Your payment could not be processed", sender.sent[0].Subject)
	require.Contains(t, sender.sent[0].Content[0].Value, "Your card was declined.")
	require.Contains(t, sender.sent[1].Subject, "failed")
}

func TestDispatchSkipsCustomerEmailWhenUnknown(t *testing.T) {
	sender := &stubSender{}
	svc, err := NewService(sender, testMailConfig(), "", nil, nil)
	require.NoError(t, err)

	n := successNotification()
	n.CustomerEmail = ""

	require.NoError(t, svc.Dispatch(context.Background(), n))
	require.Len(t, sender.sent, 1)
	require.Contains(t, sender.sent[0].Subject, "Payment succeeded")
}

func TestDispatchRetriesTransientFailures(t *testing.T) {
	sender := &stubSender{failures: 1}
	svc, err := NewService(sender, testMailConfig(), "", nil, nil)
	require.NoError(t, err)

	n := successNotification()
	n.CustomerEmail = ""

	require.NoError(t, svc.Dispatch(context.Background(), n))
	require.Equal(t, 2, sender.calls)
	require.Len(t, sender.sent, 1)
}

func TestDispatchAggregatesExhaustedRetries(t *testing.T) {
	sender := &stubSender{failures: 10}
	svc, err := NewService(sender, testMailConfig(), "", nil, nil)
	require.NoError(t, err)

	err = svc.Dispatch(context.Background(), successNotification())
	require.Error(t, err)
	require.Contains(t, err.Error(), "customer email")
	require.Contains(t, err.Error(), "admin email")
}

func TestDispatchDoesNotRetryNonRetryableErrors(t *testing.T) {
	sender := &stubSender{failures: 1, err: pkgerrors.New(pkgerrors.CodeValidation, "bad address")}
	svc, err := NewService(sender, testMailConfig(), "", nil, nil)
	require.NoError(t, err)

	n := successNotification()
	n.CustomerEmail = ""

	err = svc.Dispatch(context.Background(), n)
	require.Error(t, err)
	require.Equal(t, 1, sender.calls)
}

func TestNewServiceRequiresSenderAndAdmin(t *testing.T) {
	_, err := NewService(nil, testMailConfig(), "", nil, nil)
	require.Error(t, err)

	cfg := testMailConfig()
	cfg.AdminEmail = ""
	_, err = NewService(&stubSender{}, cfg, "", nil, nil)
	require.Error(t, err)
}
