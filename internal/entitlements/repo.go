// Package entitlements records course access grants and pushes them to the
// member area when one is configured.
package entitlements

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/courseworks/fulfillment-backend/pkg/db/models"
)

// Repository manages persistence for entitlements.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Grant(ctx context.Context, entitlement *models.Entitlement) error
	Exists(ctx context.Context, customerIdentifier, productID string) (bool, error)
	ListByCustomer(ctx context.Context, customerIdentifier string) ([]models.Entitlement, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an entitlements repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Grant inserts an entitlement. Re-granting the same customer/product pair is
// a no-op so replayed payments never duplicate access.
func (r *repository) Grant(ctx context.Context, entitlement *models.Entitlement) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(entitlement).Error
}

func (r *repository) Exists(ctx context.Context, customerIdentifier, productID string) (bool, error) {
	var entitlement models.Entitlement
	err := r.db.WithContext(ctx).
		Where("customer_identifier = ? AND product_id = ?", customerIdentifier, productID).
		First(&entitlement).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *repository) ListByCustomer(ctx context.Context, customerIdentifier string) ([]models.Entitlement, error) {
	var entitlements []models.Entitlement
	if err := r.db.WithContext(ctx).
		Where("customer_identifier = ?", customerIdentifier).
		Order("granted_at ASC").
		Find(&entitlements).Error; err != nil {
		return nil, err
	}
	return entitlements, nil
}
