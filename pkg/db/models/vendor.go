package models

import (
	"time"

	"github.com/dcastellanos/storefront-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Vendor is a row in the vendor directory. CommissionRate is a percentage
// (e.g. 12.5 means 12.5%).
type Vendor struct {
	ID             string             `gorm:"column:id;primaryKey" json:"id"`
	Name           string             `gorm:"column:name;not null" json:"name"`
	CommissionRate decimal.Decimal    `gorm:"column:commission_rate;type:numeric(5,2);not null" json:"commission_rate"`
	Status         enums.VendorStatus `gorm:"column:status;type:text;not null;default:'active'" json:"status"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
