// Package fulfillment turns verified payment events into durable effects:
// archived events, payment records, entitlements, and post-commit
// notifications. Every path is safe to replay.
package fulfillment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/courseworks/fulfillment-backend/internal/entitlements"
	"github.com/courseworks/fulfillment-backend/internal/events"
	"github.com/courseworks/fulfillment-backend/internal/notifier"
	"github.com/courseworks/fulfillment-backend/internal/payments"
	"github.com/courseworks/fulfillment-backend/internal/products"
	"github.com/courseworks/fulfillment-backend/pkg/db"
	"github.com/courseworks/fulfillment-backend/pkg/db/models"
	"github.com/courseworks/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/courseworks/fulfillment-backend/pkg/errors"
	"github.com/courseworks/fulfillment-backend/pkg/logger"
	"github.com/courseworks/fulfillment-backend/pkg/metrics"
)

// Result is the terminal state of processing one delivery.
type Result string

const (
	// ResultFulfilled means a payment was recorded and access granted.
	ResultFulfilled Result = "fulfilled"
	// ResultRecorded means the event was recorded with no access change.
	ResultRecorded Result = "recorded"
	// ResultSkipped means the event kind is outside the handled set.
	ResultSkipped Result = "skipped"
	// ResultDuplicate means a previous delivery already settled the event.
	ResultDuplicate Result = "duplicate"
)

// Options carries the tunables the orchestrator reads from configuration.
type Options struct {
	ClaimLease       time.Duration
	StoreTimeout     time.Duration
	DefaultProductID string
}

// Service processes classified payment events exactly once.
type Service interface {
	Process(ctx context.Context, classified *events.Classified) (Result, error)
}

type service struct {
	client       *db.Client
	claims       ClaimRepository
	payments     payments.Repository
	entitlements entitlements.Repository
	products     products.Repository
	access       entitlements.AccessGranter
	notify       notifier.Service
	paymentLog   *payments.FileLogger
	guard        *DuplicateGuard
	metrics      *metrics.WebhookMetrics
	logg         *logger.Logger
	opts         Options
}

// Deps bundles the orchestrator collaborators.
type Deps struct {
	Client       *db.Client
	Claims       ClaimRepository
	Payments     payments.Repository
	Entitlements entitlements.Repository
	Products     products.Repository
	Access       entitlements.AccessGranter
	Notifier     notifier.Service
	PaymentLog   *payments.FileLogger
	Guard        *DuplicateGuard
	Metrics      *metrics.WebhookMetrics
	Logger       *logger.Logger
}

// NewService wires the fulfillment orchestrator.
func NewService(deps Deps, opts Options) (Service, error) {
	if deps.Client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "database client required")
	}
	if deps.Claims == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "claim repository required")
	}
	if deps.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payments repository required")
	}
	if deps.Entitlements == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "entitlements repository required")
	}
	if deps.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "products repository required")
	}
	if opts.DefaultProductID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "default product id required")
	}
	return &service{
		client:       deps.Client,
		claims:       deps.Claims,
		payments:     deps.Payments,
		entitlements: deps.Entitlements,
		products:     deps.Products,
		access:       deps.Access,
		notify:       deps.Notifier,
		paymentLog:   deps.PaymentLog,
		guard:        deps.Guard,
		metrics:      deps.Metrics,
		logg:         deps.Logger,
		opts:         opts,
	}, nil
}

// Process claims the event, applies its effects in one transaction, and kicks
// off best-effort side channels after commit. Retryable failures release the
// claim so the provider's redelivery can try again.
func (s *service) Process(ctx context.Context, classified *events.Classified) (Result, error) {
	if classified == nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "classified event required")
	}
	if s.logg != nil {
		ctx = s.logg.WithEventID(ctx, classified.EventID)
	}
	started := time.Now()

	if s.guard != nil {
		// The guard is only ever written after a processing record commits
		// as done, so a hit is as good as the claim table saying done.
		seen, err := s.guard.Seen(ctx, classified.EventID)
		if err != nil {
			// Redis down must not block fulfillment. The claim table
			// still dedupes.
			if s.logg != nil {
				s.logg.Warn(ctx, fmt.Sprintf("duplicate guard unavailable: %v", err))
			}
		} else if seen {
			s.metrics.IncDuplicate()
			return ResultDuplicate, nil
		}
	}

	status, err := s.claims.TryClaim(ctx, classified.EventID, s.opts.ClaimLease, time.Now().UTC())
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claiming event")
	}
	switch status {
	case ClaimAlreadyProcessed:
		s.markGuard(ctx, classified.EventID)
		s.metrics.IncDuplicate()
		return ResultDuplicate, nil
	case ClaimInFlight:
		s.metrics.IncDuplicate()
		return ResultDuplicate, nil
	case ClaimAcquired:
	default:
		return "", pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unexpected claim status %q", status))
	}

	result, effects, err := s.applyEffects(ctx, classified)
	if err != nil {
		if releaseErr := s.claims.Release(ctx, classified.EventID); releaseErr != nil && s.logg != nil {
			s.logg.Error(ctx, "releasing claim", releaseErr)
		}
		return "", err
	}
	s.markGuard(ctx, classified.EventID)

	s.metrics.IncReceived(classified.Kind.String())
	s.metrics.IncOutcome(classified.Kind.String(), string(effects.outcome))
	s.metrics.ObserveDuration(classified.Kind.String(), time.Since(started))

	s.afterCommit(ctx, classified, result, effects)
	return result, nil
}

type appliedEffects struct {
	outcome      enums.ProcessingOutcome
	payment      *models.Payment
	product      *models.Product
	grantedTo    string
	notification *notifier.Notification
}

func (s *service) applyEffects(ctx context.Context, classified *events.Classified) (Result, *appliedEffects, error) {
	var (
		result  Result
		effects = &appliedEffects{}
	)

	if s.opts.StoreTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.StoreTimeout)
		defer cancel()
	}

	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		claims := s.claims.WithTx(tx)
		paymentsRepo := s.payments.WithTx(tx)

		if err := paymentsRepo.CreateEvent(ctx, buildEventRecord(classified)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "archiving event")
		}

		switch classified.Kind {
		case enums.EventKindPaymentSucceeded:
			res, err := s.fulfillPayment(ctx, tx, classified, effects)
			if err != nil {
				return err
			}
			result = res
			effects.outcome = enums.ProcessingOutcomeSucceeded

		case enums.EventKindPaymentFailed:
			if err := s.recordPayment(ctx, paymentsRepo, classified, enums.PaymentStatusFailed, effects); err != nil {
				return err
			}
			result = ResultRecorded
			effects.outcome = enums.ProcessingOutcomeFailed

		case enums.EventKindInvoicePaid:
			if err := s.recordPayment(ctx, paymentsRepo, classified, enums.PaymentStatusCompleted, effects); err != nil {
				return err
			}
			result = ResultRecorded
			effects.outcome = enums.ProcessingOutcomeSucceeded

		case enums.EventKindCustomerCreated:
			// Archive only. Account provisioning happens at first purchase.
			result = ResultRecorded
			effects.outcome = enums.ProcessingOutcomeSucceeded

		default:
			result = ResultSkipped
			effects.outcome = enums.ProcessingOutcomeSkipped
		}

		if err := claims.Finalize(ctx, classified.EventID, effects.outcome, time.Now().UTC()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finalizing claim")
		}
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	return result, effects, nil
}

func (s *service) fulfillPayment(ctx context.Context, tx *gorm.DB, classified *events.Classified, effects *appliedEffects) (Result, error) {
	paymentsRepo := s.payments.WithTx(tx)
	entitlementsRepo := s.entitlements.WithTx(tx)
	productsRepo := s.products.WithTx(tx)

	if err := s.recordPayment(ctx, paymentsRepo, classified, enums.PaymentStatusCompleted, effects); err != nil {
		return "", err
	}

	product, err := s.resolveProduct(ctx, productsRepo, classified.ProductID)
	if err != nil {
		return "", err
	}
	effects.product = product

	customer := classified.CustomerEmail
	if customer == "" {
		// No address on the intent means nothing to key access on. The
		// payment stays recorded for manual follow-up.
		if s.logg != nil {
			s.logg.Warn(ctx, "succeeded payment has no customer email, skipping entitlement")
		}
		return ResultRecorded, nil
	}

	entitlement := &models.Entitlement{
		ID:                 uuid.New(),
		CustomerIdentifier: customer,
		ProductID:          product.ID,
		SourcePaymentID:    classified.PaymentID,
		GrantedAt:          time.Now().UTC(),
	}
	if err := entitlementsRepo.Grant(ctx, entitlement); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "granting entitlement")
	}
	effects.grantedTo = customer

	return ResultFulfilled, nil
}

func (s *service) recordPayment(ctx context.Context, repo payments.Repository, classified *events.Classified, status enums.PaymentStatus, effects *appliedEffects) error {
	payment := &models.Payment{
		ID:              uuid.New(),
		StripePaymentID: classified.PaymentID,
		EventID:         classified.EventID,
		Status:          status,
		AmountCents:     classified.AmountCents,
		Currency:        classified.Currency,
		CustomerEmail:   optional(classified.CustomerEmail),
		CustomerName:    optional(classified.CustomerName),
		FailureReason:   optional(classified.FailureReason),
	}
	err := repo.CreatePayment(ctx, payment)
	if err == nil {
		effects.payment = payment
		return nil
	}
	if db.IsUniqueViolation(err, "") {
		// A different event already recorded this payment id. The record
		// exists, which is the state we wanted.
		existing, getErr := repo.GetPaymentByStripeID(ctx, classified.PaymentID)
		if getErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, getErr, "loading existing payment")
		}
		effects.payment = existing
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording payment")
}

func (s *service) resolveProduct(ctx context.Context, repo products.Repository, productID string) (*models.Product, error) {
	if productID != "" {
		product, err := repo.GetActiveByID(ctx, productID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading product")
		}
		if product != nil {
			return product, nil
		}
		if s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("unknown product %q on payment, falling back to default", productID))
		}
	}

	product, err := repo.GetActiveByID(ctx, s.opts.DefaultProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading default product")
	}
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("default product %q not found", s.opts.DefaultProductID))
	}
	return product, nil
}

// afterCommit runs the best-effort side channels. Nothing here can change the
// webhook response; the durable effects are already committed.
func (s *service) afterCommit(ctx context.Context, classified *events.Classified, result Result, effects *appliedEffects) {
	if effects.payment != nil && s.paymentLog.Enabled() {
		entry := payments.LogEntry{
			Timestamp:     time.Now().UTC(),
			Succeeded:     effects.payment.Status == enums.PaymentStatusCompleted,
			PaymentID:     effects.payment.StripePaymentID,
			AmountCents:   effects.payment.AmountCents,
			Currency:      effects.payment.Currency,
			CustomerEmail: deref(effects.payment.CustomerEmail),
			CustomerName:  deref(effects.payment.CustomerName),
		}
		if err := s.paymentLog.Append(entry); err != nil && s.logg != nil {
			s.logg.Error(ctx, "appending payment log", err)
		}
	}

	if result == ResultFulfilled && s.access != nil && effects.product != nil && effects.grantedTo != "" {
		if err := s.access.GrantAccess(ctx, effects.grantedTo, effects.product.CourseID); err != nil && s.logg != nil {
			// The entitlement row is committed. Member-area sync can be
			// replayed from it.
			s.logg.Error(ctx, "pushing member area grant", err)
		}
	}

	if s.notify != nil && effects.payment != nil &&
		(classified.Kind == enums.EventKindPaymentSucceeded || classified.Kind == enums.EventKindPaymentFailed) {
		notification := notifier.Notification{
			PaymentID:     effects.payment.StripePaymentID,
			Succeeded:     effects.payment.Status == enums.PaymentStatusCompleted,
			AmountCents:   effects.payment.AmountCents,
			Currency:      effects.payment.Currency,
			CustomerEmail: deref(effects.payment.CustomerEmail),
			CustomerName:  deref(effects.payment.CustomerName),
			FailureReason: deref(effects.payment.FailureReason),
		}
		if effects.product != nil {
			notification.ProductName = effects.product.Name
		}
		detached := context.WithoutCancel(ctx)
		go func() {
			// Dispatch applies its own timeout. Errors are logged and
			// counted inside the notifier.
			_ = s.notify.Dispatch(detached, notification)
		}()
	}
}

func buildEventRecord(classified *events.Classified) *models.PaymentEvent {
	raw := classified.RawPayload
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	return &models.PaymentEvent{
		EventID:        classified.EventID,
		Kind:           classified.Kind,
		OccurredAt:     classified.OccurredAt,
		RawPayload:     raw,
		AmountCents:    classified.AmountCents,
		Currency:       classified.Currency,
		CustomerEmail:  optional(classified.CustomerEmail),
		RelatedOrderID: optional(classified.InvoiceID),
	}
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func (s *service) markGuard(ctx context.Context, eventID string) {
	if s.guard == nil {
		return
	}
	if err := s.guard.MarkDone(ctx, eventID); err != nil && s.logg != nil {
		s.logg.Warn(ctx, fmt.Sprintf("marking duplicate guard: %v", err))
	}
}
