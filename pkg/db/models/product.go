package models

import "time"

// Product carries the catalog data the engine needs: a base price and an
// optional variant definition. Backend-registered products use 24-hex ids;
// anything else is treated as local-only by order creation.
type Product struct {
	ID             string             `gorm:"column:id;primaryKey" json:"id"`
	Title          string             `gorm:"column:title;not null" json:"title"`
	VendorID       string             `gorm:"column:vendor_id;not null" json:"vendor_id"`
	BasePriceCents int64              `gorm:"column:base_price_cents;not null" json:"base_price_cents"`
	Variant        *VariantDefinition `gorm:"column:variant;type:jsonb;serializer:json" json:"variant,omitempty"`
	IsActive       bool               `gorm:"column:is_active;not null" json:"is_active"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
