package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/courseworks/fulfillment-backend/pkg/db/models"
)

type stubEntitlementsReader struct {
	entitlements []models.Entitlement
	entitled     bool
	err          error

	customer  string
	productID string
}

func (s *stubEntitlementsReader) Exists(_ context.Context, customerIdentifier, productID string) (bool, error) {
	s.customer = customerIdentifier
	s.productID = productID
	if s.err != nil {
		return false, s.err
	}
	return s.entitled, nil
}

func (s *stubEntitlementsReader) ListByCustomer(_ context.Context, customerIdentifier string) ([]models.Entitlement, error) {
	s.customer = customerIdentifier
	if s.err != nil {
		return nil, s.err
	}
	return s.entitlements, nil
}

func getEntitlements(t *testing.T, handler http.HandlerFunc, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestListEntitlements(t *testing.T) {
	granted := time.Date(2025, 8, 1, 12, 30, 0, 0, time.UTC)
	reader := &stubEntitlementsReader{entitlements: []models.Entitlement{{
		CustomerIdentifier: "buyer@example.com",
		ProductID:          "course-bundle",
		SourcePaymentID:    "pi_123",
		GrantedAt:          granted,
	}}}
	handler := ListEntitlements(reader, nil)

	rec := getEntitlements(t, handler, "/api/v1/entitlements?customer_email=buyer@example.com")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "buyer@example.com", reader.customer)

	var envelope struct {
		Data []entitlementView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	require.Equal(t, "course-bundle", envelope.Data[0].ProductID)
	require.Equal(t, "pi_123", envelope.Data[0].SourcePaymentID)
	require.True(t, granted.Equal(envelope.Data[0].GrantedAt))
}

func TestListEntitlementsEmpty(t *testing.T) {
	reader := &stubEntitlementsReader{}
	handler := ListEntitlements(reader, nil)

	rec := getEntitlements(t, handler, "/api/v1/entitlements?customer_email=buyer@example.com")
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data []entitlementView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Empty(t, envelope.Data)
}

func TestListEntitlementsMissingEmail(t *testing.T) {
	reader := &stubEntitlementsReader{}
	handler := ListEntitlements(reader, nil)

	rec := getEntitlements(t, handler, "/api/v1/entitlements")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, reader.customer)
}

func TestListEntitlementsInvalidEmail(t *testing.T) {
	reader := &stubEntitlementsReader{}
	handler := ListEntitlements(reader, nil)

	rec := getEntitlements(t, handler, "/api/v1/entitlements?customer_email=not-an-email")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckEntitlement(t *testing.T) {
	reader := &stubEntitlementsReader{entitled: true}
	handler := CheckEntitlement(reader, nil)

	rec := getEntitlements(t, handler, "/api/v1/entitlements/check?customer_email=buyer@example.com&product_id=course-bundle")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "buyer@example.com", reader.customer)
	require.Equal(t, "course-bundle", reader.productID)

	var envelope struct {
		Data entitlementCheckView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.True(t, envelope.Data.Entitled)
}

func TestCheckEntitlementMissingProduct(t *testing.T) {
	reader := &stubEntitlementsReader{}
	handler := CheckEntitlement(reader, nil)

	rec := getEntitlements(t, handler, "/api/v1/entitlements/check?customer_email=buyer@example.com")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckEntitlementStoreError(t *testing.T) {
	reader := &stubEntitlementsReader{err: errors.New("connection refused")}
	handler := CheckEntitlement(reader, nil)

	rec := getEntitlements(t, handler, "/api/v1/entitlements/check?customer_email=buyer@example.com&product_id=course-bundle")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
