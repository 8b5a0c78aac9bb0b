package webhooks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/courseworks/fulfillment-backend/api/responses"
	"github.com/courseworks/fulfillment-backend/internal/events"
	"github.com/courseworks/fulfillment-backend/internal/fulfillment"
	pkgerrors "github.com/courseworks/fulfillment-backend/pkg/errors"
	"github.com/courseworks/fulfillment-backend/pkg/logger"
	"github.com/courseworks/fulfillment-backend/pkg/metrics"
	pkgstripe "github.com/courseworks/fulfillment-backend/pkg/stripe"
)

// maxPayloadBytes bounds the webhook body read. Stripe events are small.
const maxPayloadBytes = 1 << 20

type fulfillmentService interface {
	Process(ctx context.Context, classified *events.Classified) (fulfillment.Result, error)
}

type stripeClient interface {
	SigningSecret() string
}

// StripeWebhook receives signed payment events. Accepted and duplicate
// deliveries are acknowledged with 200 and a plain "OK" body, bad signatures
// get 400 so Stripe stops retrying, and retryable processing failures get a
// 5xx so Stripe redelivers.
func StripeWebhook(svc fulfillmentService, client stripeClient, tolerance time.Duration, m *metrics.WebhookMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}
		if client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stripe client unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get("Stripe-Signature")
		event, err := pkgstripe.VerifySignature(payload, sigHeader, client.SigningSecret(), tolerance, time.Now())
		if err != nil {
			m.IncSignatureRejection()
			responses.WriteError(ctx, logg, w, signatureError(err))
			return
		}

		classified, err := events.Classify(event)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed event payload"))
			return
		}

		result, err := svc.Process(ctx, classified)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			ctx = logg.WithEventID(ctx, classified.EventID)
			logg.Info(ctx, fmt.Sprintf("stripe event settled as %s", result))
		}
		responses.WriteText(w, http.StatusOK, "OK")
	}
}

// signatureError maps verifier failures onto 400s. A signature that does not
// check out is a permanently bad request, not a retryable server fault.
func signatureError(err error) error {
	switch {
	case errors.Is(err, pkgstripe.ErrMissingHeader):
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing")
	case errors.Is(err, pkgstripe.ErrMalformedHeader):
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe signature malformed")
	case errors.Is(err, pkgstripe.ErrNoMatch):
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe signature mismatch")
	case errors.Is(err, pkgstripe.ErrStale):
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe signature expired")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook payload")
	}
}
