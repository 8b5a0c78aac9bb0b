package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	checkoutsvc "github.com/courseworks/fulfillment-backend/internal/checkout"
	pkgerrors "github.com/courseworks/fulfillment-backend/pkg/errors"
)

type stubCheckout struct {
	params checkoutsvc.CreateParams
	intent *checkoutsvc.Intent
	err    error
}

func (s *stubCheckout) Create(_ context.Context, params checkoutsvc.CreateParams) (*checkoutsvc.Intent, error) {
	s.params = params
	if s.err != nil {
		return nil, s.err
	}
	return s.intent, nil
}

func postCheckout(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestCheckoutCreated(t *testing.T) {
	svc := &stubCheckout{intent: &checkoutsvc.Intent{
		PaymentIntentID: "pi_1",
		ClientSecret:    "pi_1_secret",
		AmountCents:     2599,
		Currency:        "usd",
		ProductID:       "course-bundle",
	}}
	handler := Checkout(svc, nil)

	rec := postCheckout(t, handler, `{"product_id":"course-bundle","customer_email":"buyer@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "course-bundle", svc.params.ProductID)
	require.Equal(t, "buyer@example.com", svc.params.CustomerEmail)

	var envelope struct {
		Data checkoutsvc.Intent `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, "pi_1_secret", envelope.Data.ClientSecret)
}

func TestCheckoutEmptyBodyUsesDefaults(t *testing.T) {
	svc := &stubCheckout{intent: &checkoutsvc.Intent{PaymentIntentID: "pi_2"}}
	handler := Checkout(svc, nil)

	rec := postCheckout(t, handler, `{}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Empty(t, svc.params.ProductID)
}

func TestCheckoutInvalidEmail(t *testing.T) {
	svc := &stubCheckout{intent: &checkoutsvc.Intent{}}
	handler := Checkout(svc, nil)

	rec := postCheckout(t, handler, `{"customer_email":"not-an-email"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutUnknownFieldRejected(t *testing.T) {
	svc := &stubCheckout{intent: &checkoutsvc.Intent{}}
	handler := Checkout(svc, nil)

	rec := postCheckout(t, handler, `{"amount_cents":1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutUnknownProduct(t *testing.T) {
	svc := &stubCheckout{err: pkgerrors.New(pkgerrors.CodeNotFound, `product "missing" not found`)}
	handler := Checkout(svc, nil)

	rec := postCheckout(t, handler, `{"product_id":"missing"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
