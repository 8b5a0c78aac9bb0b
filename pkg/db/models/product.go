package models

import "time"

// Product is a sellable course offering. The ID is the slug carried in
// checkout metadata and entitlements.
type Product struct {
	ID         string    `gorm:"column:id;primaryKey"`
	Name       string    `gorm:"column:name;not null"`
	PriceCents int64     `gorm:"column:price_cents;not null"`
	Currency   string    `gorm:"column:currency;not null;default:'usd'"`
	CourseID   string    `gorm:"column:course_id;not null"`
	Active     bool      `gorm:"column:active;not null;default:true"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
