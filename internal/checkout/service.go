// Package checkout starts a purchase by creating the payment intent the
// storefront confirms client side. Fulfillment happens later, from the
// webhook, never from here.
package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/courseworks/fulfillment-backend/internal/products"
	pkgerrors "github.com/courseworks/fulfillment-backend/pkg/errors"
	"github.com/courseworks/fulfillment-backend/pkg/logger"
)

// CreateParams is the request to start a checkout.
type CreateParams struct {
	ProductID     string
	CustomerEmail string
}

// Intent is what the storefront needs to confirm the payment.
type Intent struct {
	PaymentIntentID string `json:"payment_intent_id"`
	ClientSecret    string `json:"client_secret"`
	AmountCents     int64  `json:"amount_cents"`
	Currency        string `json:"currency"`
	ProductID       string `json:"product_id"`
	ProductName     string `json:"product_name"`
}

// Service creates payment intents for catalog products.
type Service interface {
	Create(ctx context.Context, params CreateParams) (*Intent, error)
}

type service struct {
	stripe           StripePaymentClient
	products         products.Repository
	logg             *logger.Logger
	defaultProductID string
}

// NewService wires the checkout dependencies.
func NewService(stripeClient StripePaymentClient, productsRepo products.Repository, defaultProductID string, logg *logger.Logger) (Service, error) {
	if stripeClient == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "stripe client required")
	}
	if productsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "products repository required")
	}
	if defaultProductID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "default product id required")
	}
	return &service{
		stripe:           stripeClient,
		products:         productsRepo,
		logg:             logg,
		defaultProductID: defaultProductID,
	}, nil
}

// Create prices the product server side and opens a payment intent for it.
// The client never supplies an amount.
func (s *service) Create(ctx context.Context, params CreateParams) (*Intent, error) {
	productID := strings.TrimSpace(params.ProductID)
	if productID == "" {
		productID = s.defaultProductID
	}

	product, err := s.products.GetActiveByID(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading product")
	}
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %q not found", productID))
	}

	intentParams := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(product.PriceCents),
		Currency: stripe.String(product.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if email := strings.TrimSpace(params.CustomerEmail); email != "" {
		intentParams.ReceiptEmail = stripe.String(email)
	}
	intentParams.AddMetadata("product_id", product.ID)

	intent, err := s.stripe.CreateIntent(ctx, intentParams)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating payment intent")
	}

	if s.logg != nil {
		ctx = s.logg.WithPaymentID(ctx, intent.ID)
		s.logg.Info(ctx, fmt.Sprintf("checkout opened for product %s", product.ID))
	}

	return &Intent{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		AmountCents:     product.PriceCents,
		Currency:        product.Currency,
		ProductID:       product.ID,
		ProductName:     product.Name,
	}, nil
}
