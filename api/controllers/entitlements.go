package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/courseworks/fulfillment-backend/api/responses"
	"github.com/courseworks/fulfillment-backend/api/validators"
	"github.com/courseworks/fulfillment-backend/pkg/db/models"
	pkgerrors "github.com/courseworks/fulfillment-backend/pkg/errors"
	"github.com/courseworks/fulfillment-backend/pkg/logger"
)

// EntitlementsReader is the read surface the member area queries against.
type EntitlementsReader interface {
	Exists(ctx context.Context, customerIdentifier, productID string) (bool, error)
	ListByCustomer(ctx context.Context, customerIdentifier string) ([]models.Entitlement, error)
}

type entitlementView struct {
	ProductID       string    `json:"product_id"`
	SourcePaymentID string    `json:"source_payment_id"`
	GrantedAt       time.Time `json:"granted_at"`
}

type entitlementCheckView struct {
	Entitled bool `json:"entitled"`
}

// ListEntitlements returns every grant held by a customer.
func ListEntitlements(reader EntitlementsReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reader == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "entitlements store unavailable"))
			return
		}

		customer, err := customerEmailParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entitlements, err := reader.ListByCustomer(r.Context(), customer)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing entitlements"))
			return
		}

		views := make([]entitlementView, 0, len(entitlements))
		for _, entitlement := range entitlements {
			views = append(views, entitlementView{
				ProductID:       entitlement.ProductID,
				SourcePaymentID: entitlement.SourcePaymentID,
				GrantedAt:       entitlement.GrantedAt,
			})
		}
		responses.WriteSuccess(w, views)
	}
}

// CheckEntitlement reports whether a customer holds a grant for one product.
func CheckEntitlement(reader EntitlementsReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reader == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "entitlements store unavailable"))
			return
		}

		customer, err := customerEmailParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID := r.URL.Query().Get("product_id")
		if productID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required"))
			return
		}

		entitled, err := reader.Exists(r.Context(), customer, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking entitlement"))
			return
		}
		responses.WriteSuccess(w, entitlementCheckView{Entitled: entitled})
	}
}

func customerEmailParam(r *http.Request) (string, error) {
	customer := r.URL.Query().Get("customer_email")
	if err := validators.ValidateVar(customer, "required,email", "customer_email"); err != nil {
		return "", err
	}
	return customer, nil
}
