package models

import (
	"time"

	"github.com/dcastellanos/storefront-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// CommissionRecord is the platform's cut of one vendor group, created when
// an order is composed and mutated only by the paid transition.
// CommissionCents + VendorEarningsCents always equals SubtotalCents.
type CommissionRecord struct {
	ID                  string                 `json:"id"`
	OrderID             string                 `json:"order_id"`
	VendorID            string                 `json:"vendor_id"`
	VendorName          string                 `json:"vendor_name"`
	SubtotalCents       int64                  `json:"subtotal_cents"`
	CommissionRate      decimal.Decimal        `json:"commission_rate"`
	CommissionCents     int64                  `json:"commission_cents"`
	VendorEarningsCents int64                  `json:"vendor_earnings_cents"`
	Status              enums.CommissionStatus `json:"status"`
	CreatedAt           time.Time              `json:"created_at"`
	PaidAt              *time.Time             `json:"paid_at,omitempty"`
}

// SettlementRecord is created exactly once, as a side effect of a
// commission's paid transition, and is immutable thereafter.
type SettlementRecord struct {
	ID            string    `json:"id"`
	CommissionID  string    `json:"commission_id"`
	VendorID      string    `json:"vendor_id"`
	VendorName    string    `json:"vendor_name"`
	AmountCents   int64     `json:"amount_cents"`
	PaymentMethod string    `json:"payment_method"`
	TransactionID *string   `json:"transaction_id,omitempty"`
	Note          string    `json:"note,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
