package controllers

import (
	"net/http"

	"github.com/courseworks/fulfillment-backend/api/responses"
	"github.com/courseworks/fulfillment-backend/api/validators"
	checkoutsvc "github.com/courseworks/fulfillment-backend/internal/checkout"
	pkgerrors "github.com/courseworks/fulfillment-backend/pkg/errors"
	"github.com/courseworks/fulfillment-backend/pkg/logger"
)

// Checkout opens a payment intent for a catalog product.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		intent, err := svc.Create(r.Context(), checkoutsvc.CreateParams{
			ProductID:     payload.ProductID,
			CustomerEmail: payload.CustomerEmail,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, intent)
	}
}

type checkoutRequest struct {
	ProductID     string `json:"product_id" validate:"omitempty,max=128"`
	CustomerEmail string `json:"customer_email" validate:"omitempty,email"`
}
