// Package notifier sends post-fulfillment emails. Delivery is best effort:
// failures are logged and counted, never surfaced to the webhook response.
package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"

	"github.com/courseworks/fulfillment-backend/pkg/config"
	pkgerrors "github.com/courseworks/fulfillment-backend/pkg/errors"
	"github.com/courseworks/fulfillment-backend/pkg/logger"
	"github.com/courseworks/fulfillment-backend/pkg/metrics"
)

const retryBase = 500 * time.Millisecond

// Service composes and delivers notification emails for processed events.
type Service interface {
	Dispatch(ctx context.Context, notification Notification) error
}

type service struct {
	sender           Sender
	logg             *logger.Logger
	metrics          *metrics.WebhookMetrics
	from             *mail.Email
	adminEmail       string
	dashboardBaseURL string
	maxAttempts      uint64
	sendTimeout      time.Duration
}

// NewService wires the notifier dependencies.
func NewService(sender Sender, cfg config.MailConfig, dashboardBaseURL string, logg *logger.Logger, m *metrics.WebhookMetrics) (Service, error) {
	if sender == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "mail sender required")
	}
	if cfg.AdminEmail == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "admin email required")
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &service{
		sender:           sender,
		logg:             logg,
		metrics:          m,
		from:             mail.NewEmail(cfg.FromName, cfg.FromEmail),
		adminEmail:       cfg.AdminEmail,
		dashboardBaseURL: dashboardBaseURL,
		maxAttempts:      maxAttempts,
		sendTimeout:      cfg.SendTimeout,
	}, nil
}

// Dispatch sends the customer email (when an address is known) and the admin
// notice. Each message retries independently; the returned error aggregates
// whatever still failed after retries.
func (s *service) Dispatch(ctx context.Context, notification Notification) error {
	if s.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.sendTimeout)
		defer cancel()
	}

	var errs error

	if notification.CustomerEmail != "" {
		var message *mail.SGMailV3
		if notification.Succeeded {
			message = buildCustomerReceipt(s.from, notification)
		} else {
			message = buildPaymentFailedNotice(s.from, notification)
		}
		if err := s.sendWithRetry(ctx, message); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("customer email: %w", err))
		}
	}

	admin := buildAdminNotice(s.from, s.adminEmail, s.dashboardBaseURL, notification)
	if err := s.sendWithRetry(ctx, admin); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("admin email: %w", err))
	}

	if errs != nil {
		s.metrics.IncNotifyFailure()
		if s.logg != nil {
			ctx = s.logg.WithPaymentID(ctx, notification.PaymentID)
			s.logg.Error(ctx, "notification delivery failed", errs)
		}
	}
	return errs
}

func (s *service) sendWithRetry(ctx context.Context, message *mail.SGMailV3) error {
	backoff := retry.WithMaxRetries(s.maxAttempts-1, retry.NewFibonacci(retryBase))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := s.sender.Send(ctx, message)
		if err == nil {
			return nil
		}
		if pkgerrors.IsRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
