package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/courseworks/fulfillment-backend/internal/events"
	"github.com/courseworks/fulfillment-backend/internal/fulfillment"
	"github.com/courseworks/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/courseworks/fulfillment-backend/pkg/errors"
)

const testSigningSecret = "whsec_controller_test"

type stubFulfillment struct {
	classified *events.Classified
	result     fulfillment.Result
	err        error
	calls      int
}

func (s *stubFulfillment) Process(_ context.Context, classified *events.Classified) (fulfillment.Result, error) {
	s.calls++
	s.classified = classified
	if s.err != nil {
		return "", s.err
	}
	return s.result, nil
}

type stubStripeClient struct{}

func (stubStripeClient) SigningSecret() string { return testSigningSecret }

func buildSignatureHeader(t *testing.T, payload []byte, ts int64, secret string) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func paymentSucceededPayload(eventID, paymentID string) []byte {
	return []byte(fmt.Sprintf(`{
  "id": %q,
  "type": "payment_intent.succeeded",
  "created": %d,
  "data": {
    "object": {
      "id": %q,
      "amount": 2599,
      "currency": "usd",
      "receipt_email": "buyer@example.com"
    }
  }
}`, eventID, time.Now().Unix(), paymentID))
}

func performWebhook(t *testing.T, handler http.HandlerFunc, payload []byte, header string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader(string(payload)))
	if header != "" {
		req.Header.Set("Stripe-Signature", header)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestStripeWebhookAccepted(t *testing.T) {
	svc := &stubFulfillment{result: fulfillment.ResultFulfilled}
	handler := StripeWebhook(svc, stubStripeClient{}, 5*time.Minute, nil, nil)

	payload := paymentSucceededPayload("evt_ok", "pi_ok")
	header := buildSignatureHeader(t, payload, time.Now().Unix(), testSigningSecret)

	rec := performWebhook(t, handler, payload, header)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK", rec.Body.String())
	require.Equal(t, 1, svc.calls)
	require.Equal(t, "evt_ok", svc.classified.EventID)
	require.Equal(t, enums.EventKindPaymentSucceeded, svc.classified.Kind)
	require.Equal(t, "pi_ok", svc.classified.PaymentID)
}

func TestStripeWebhookDuplicateStillOK(t *testing.T) {
	svc := &stubFulfillment{result: fulfillment.ResultDuplicate}
	handler := StripeWebhook(svc, stubStripeClient{}, 5*time.Minute, nil, nil)

	payload := paymentSucceededPayload("evt_dup", "pi_dup")
	header := buildSignatureHeader(t, payload, time.Now().Unix(), testSigningSecret)

	rec := performWebhook(t, handler, payload, header)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK", rec.Body.String())
}

func TestStripeWebhookMissingSignature(t *testing.T) {
	svc := &stubFulfillment{result: fulfillment.ResultFulfilled}
	handler := StripeWebhook(svc, stubStripeClient{}, 5*time.Minute, nil, nil)

	rec := performWebhook(t, handler, paymentSucceededPayload("evt_nosig", "pi_nosig"), "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, svc.calls)
}

func TestStripeWebhookBadSignature(t *testing.T) {
	svc := &stubFulfillment{result: fulfillment.ResultFulfilled}
	handler := StripeWebhook(svc, stubStripeClient{}, 5*time.Minute, nil, nil)

	payload := paymentSucceededPayload("evt_bad", "pi_bad")
	header := buildSignatureHeader(t, payload, time.Now().Unix(), "whsec_wrong")

	rec := performWebhook(t, handler, payload, header)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, svc.calls)
}

func TestStripeWebhookStaleTimestamp(t *testing.T) {
	svc := &stubFulfillment{result: fulfillment.ResultFulfilled}
	handler := StripeWebhook(svc, stubStripeClient{}, 5*time.Minute, nil, nil)

	payload := paymentSucceededPayload("evt_old", "pi_old")
	header := buildSignatureHeader(t, payload, time.Now().Add(-10*time.Minute).Unix(), testSigningSecret)

	rec := performWebhook(t, handler, payload, header)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, svc.calls)
}

func TestStripeWebhookTamperedPayload(t *testing.T) {
	svc := &stubFulfillment{result: fulfillment.ResultFulfilled}
	handler := StripeWebhook(svc, stubStripeClient{}, 5*time.Minute, nil, nil)

	payload := paymentSucceededPayload("evt_tamper", "pi_tamper")
	header := buildSignatureHeader(t, payload, time.Now().Unix(), testSigningSecret)
	tampered := []byte(strings.Replace(string(payload), "2599", "1", 1))

	rec := performWebhook(t, handler, tampered, header)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, svc.calls)
}

func TestStripeWebhookRetryableFailureIs503(t *testing.T) {
	svc := &stubFulfillment{err: pkgerrors.New(pkgerrors.CodeDependency, "database unavailable")}
	handler := StripeWebhook(svc, stubStripeClient{}, 5*time.Minute, nil, nil)

	payload := paymentSucceededPayload("evt_down", "pi_down")
	header := buildSignatureHeader(t, payload, time.Now().Unix(), testSigningSecret)

	rec := performWebhook(t, handler, payload, header)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStripeWebhookInternalFailureIs500(t *testing.T) {
	svc := &stubFulfillment{err: pkgerrors.New(pkgerrors.CodeInternal, "boom")}
	handler := StripeWebhook(svc, stubStripeClient{}, 5*time.Minute, nil, nil)

	payload := paymentSucceededPayload("evt_boom", "pi_boom")
	header := buildSignatureHeader(t, payload, time.Now().Unix(), testSigningSecret)

	rec := performWebhook(t, handler, payload, header)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStripeWebhookUnhandledTypeAccepted(t *testing.T) {
	svc := &stubFulfillment{result: fulfillment.ResultSkipped}
	handler := StripeWebhook(svc, stubStripeClient{}, 5*time.Minute, nil, nil)

	payload := []byte(fmt.Sprintf(`{"id":"evt_misc","type":"charge.refunded","created":%d,"data":{"object":{"id":"ch_1"}}}`, time.Now().Unix()))
	header := buildSignatureHeader(t, payload, time.Now().Unix(), testSigningSecret)

	rec := performWebhook(t, handler, payload, header)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK", rec.Body.String())
	require.Equal(t, enums.EventKindUnhandled, svc.classified.Kind)
}
