package models

import (
	"time"

	"github.com/dcastellanos/storefront-backend/pkg/enums"
	"github.com/dcastellanos/storefront-backend/pkg/types"
)

// CartLineItem is a variant-resolved line, tagged with its vendor. Created by
// the storefront and read-only from composition onward.
type CartLineItem struct {
	ProductID      string            `json:"product_id"`
	Title          string            `json:"title,omitempty"`
	UnitPriceCents int64             `json:"unit_price_cents"`
	Quantity       int               `json:"quantity"`
	VendorID       string            `json:"vendor_id"`
	VendorName     string            `json:"vendor_name"`
	Variant        map[string]string `json:"variant,omitempty"`
}

// LineSubtotalCents returns price times quantity for the line.
func (i CartLineItem) LineSubtotalCents() int64 {
	return i.UnitPriceCents * int64(i.Quantity)
}

// VendorGroup is the partition of an order's items belonging to one vendor,
// with its own prorated charges. SubtotalCents is always computed from the
// group's items, never copied from the order total.
type VendorGroup struct {
	VendorID      string         `json:"vendor_id"`
	VendorName    string         `json:"vendor_name"`
	Items         []CartLineItem `json:"items"`
	SubtotalCents int64          `json:"subtotal_cents"`
	ShippingCents int64          `json:"shipping_cents"`
	TaxCents      int64          `json:"tax_cents"`
	DiscountCents int64          `json:"discount_cents"`
}

// ReturnRequest records a buyer's return intent on a delivered order.
type ReturnRequest struct {
	Reason      string    `json:"reason"`
	VendorID    string    `json:"vendor_id,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// Order is the persisted aggregate produced by composition or fetched from
// the authoritative backend. Identity is ID; the ledger never holds two
// entries with the same id.
type Order struct {
	ID                string                `json:"id"`
	UserID            *string               `json:"user_id,omitempty"`
	Status            enums.OrderStatus     `json:"status"`
	Provenance        enums.OrderProvenance `json:"provenance"`
	Items             []CartLineItem        `json:"items"`
	VendorGroups      []VendorGroup         `json:"vendor_groups"`
	ShippingAddress   *types.Address        `json:"shipping_address,omitempty"`
	PaymentMethod     string                `json:"payment_method,omitempty"`
	SubtotalCents     int64                 `json:"subtotal_cents"`
	ShippingCents     int64                 `json:"shipping_cents"`
	TaxCents          int64                 `json:"tax_cents"`
	DiscountCents     int64                 `json:"discount_cents"`
	TotalCents        int64                 `json:"total_cents"`
	CouponCode        *string               `json:"coupon_code,omitempty"`
	TrackingNumber    string                `json:"tracking_number,omitempty"`
	EstimatedDelivery *time.Time            `json:"estimated_delivery,omitempty"`
	ReturnRequest     *ReturnRequest        `json:"return_request,omitempty"`
	CreatedAt         time.Time             `json:"created_at"`
}

// IsLocal reports whether the order was composed locally and has not been
// confirmed by the backend.
func (o *Order) IsLocal() bool {
	return o.Provenance == enums.OrderProvenanceLocal
}

// GroupForVendor returns the vendor group matching the id, or nil.
func (o *Order) GroupForVendor(vendorID string) *VendorGroup {
	for i := range o.VendorGroups {
		if o.VendorGroups[i].VendorID == vendorID {
			return &o.VendorGroups[i]
		}
	}
	return nil
}
