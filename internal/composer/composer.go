// Package composer turns a flat cart into a vendor-partitioned order
// aggregate. Grouping and totals follow one rule set: group subtotals are
// always recomputed from the group's own items, shipping splits evenly
// across vendor groups, and tax/discount prorate by subtotal share.
package composer

import (
	"github.com/dcastellanos/storefront-backend/pkg/db/models"
	pkgerrors "github.com/dcastellanos/storefront-backend/pkg/errors"
	"github.com/dcastellanos/storefront-backend/pkg/types"
	"github.com/shopspring/decimal"
)

// Items without a vendor fall into this bucket; an explicit policy, not a
// failure.
const (
	DefaultVendorID   = "1"
	DefaultVendorName = "Unknown Vendor"
)

// Input carries the flat cart plus order-level charges.
type Input struct {
	Items           []models.CartLineItem
	ShippingCents   int64
	TaxCents        int64
	DiscountCents   int64
	ShippingAddress *types.Address
	PaymentMethod   string
	CouponCode      *string
	UserID          *string
}

// Compose validates the cart and produces an Order aggregate ready for the
// ledger: the original flat item list for display plus vendor groups with
// prorated charges. Id, status, and provenance are assigned by the caller.
func Compose(in Input) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart must contain at least one item")
	}
	if in.ShippingCents < 0 || in.TaxCents < 0 || in.DiscountCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order charges must be non-negative")
	}
	for _, item := range in.Items {
		if item.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be at least 1")
		}
		if item.UnitPriceCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line price cannot be negative")
		}
	}

	groups := groupByVendor(in.Items)

	var totalSubtotal int64
	for i := range groups {
		totalSubtotal += groups[i].SubtotalCents
	}

	prorateShipping(groups, in.ShippingCents)
	prorateByShare(groups, totalSubtotal, in.TaxCents, func(g *models.VendorGroup, v int64) { g.TaxCents = v })
	prorateByShare(groups, totalSubtotal, in.DiscountCents, func(g *models.VendorGroup, v int64) { g.DiscountCents = v })

	items := make([]models.CartLineItem, len(in.Items))
	copy(items, in.Items)

	order := &models.Order{
		UserID:          in.UserID,
		Items:           items,
		VendorGroups:    groups,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		CouponCode:      in.CouponCode,
		SubtotalCents:   totalSubtotal,
		ShippingCents:   in.ShippingCents,
		TaxCents:        in.TaxCents,
		DiscountCents:   in.DiscountCents,
		TotalCents:      totalSubtotal + in.ShippingCents + in.TaxCents - in.DiscountCents,
	}
	return order, nil
}

// groupByVendor partitions items in first-seen vendor order and computes each
// group's subtotal from its own items.
func groupByVendor(items []models.CartLineItem) []models.VendorGroup {
	index := map[string]int{}
	var groups []models.VendorGroup

	for _, item := range items {
		vendorID := item.VendorID
		vendorName := item.VendorName
		if vendorID == "" {
			vendorID = DefaultVendorID
		}
		if vendorName == "" {
			vendorName = DefaultVendorName
		}

		pos, ok := index[vendorID]
		if !ok {
			pos = len(groups)
			index[vendorID] = pos
			groups = append(groups, models.VendorGroup{
				VendorID:   vendorID,
				VendorName: vendorName,
			})
		}
		groups[pos].Items = append(groups[pos].Items, item)
		groups[pos].SubtotalCents += item.LineSubtotalCents()
	}
	return groups
}

// prorateShipping divides shipping evenly across groups; the leading groups
// absorb the remainder cents so the column sums exactly.
func prorateShipping(groups []models.VendorGroup, shippingCents int64) {
	n := int64(len(groups))
	if n == 0 {
		return
	}
	per := shippingCents / n
	rem := shippingCents % n
	for i := range groups {
		groups[i].ShippingCents = per
		if int64(i) < rem {
			groups[i].ShippingCents++
		}
	}
}

// prorateByShare allocates total proportionally to each group's subtotal
// share; the final group receives the residual so rounding never loses a
// cent. A zero total subtotal prorates nothing.
func prorateByShare(groups []models.VendorGroup, totalSubtotal, total int64, assign func(*models.VendorGroup, int64)) {
	if len(groups) == 0 {
		return
	}
	if totalSubtotal == 0 || total == 0 {
		for i := range groups {
			assign(&groups[i], 0)
		}
		return
	}

	totalDec := decimal.NewFromInt(total)
	subtotalDec := decimal.NewFromInt(totalSubtotal)

	var allocated int64
	for i := range groups {
		if i == len(groups)-1 {
			assign(&groups[i], total-allocated)
			break
		}
		share := decimal.NewFromInt(groups[i].SubtotalCents).Div(subtotalDec)
		part := totalDec.Mul(share).Round(0).IntPart()
		assign(&groups[i], part)
		allocated += part
	}
}
