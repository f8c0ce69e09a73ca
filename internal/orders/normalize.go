package orders

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/dcastellanos/storefront-backend/pkg/db/models"
	"github.com/dcastellanos/storefront-backend/pkg/enums"
	pkgerrors "github.com/dcastellanos/storefront-backend/pkg/errors"
	"github.com/dcastellanos/storefront-backend/pkg/types"
)

// The backend is loose about field names: ids arrive as `_id` or `id`,
// vendors as nested objects or flat ids, money as cents ints or dollar
// floats. Everything is normalized into the canonical Order shape on read,
// before it is merged into the ledger.

// normalizeOrder decodes a backend order document into a canonical Order.
func normalizeOrder(raw json.RawMessage) (*models.Order, error) {
	doc, err := decodeDoc(raw)
	if err != nil {
		return nil, err
	}
	// Some endpoints nest the order under an "order" key.
	if nested, ok := doc["order"].(map[string]any); ok {
		doc = nested
	}

	id := firstString(doc, "id", "_id", "order_id", "orderId")
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "backend order document has no id")
	}

	order := &models.Order{
		ID:             id,
		Provenance:     enums.OrderProvenanceRemote,
		Status:         normalizeStatus(firstString(doc, "status", "order_status")),
		PaymentMethod:  firstString(doc, "payment_method", "paymentMethod"),
		TrackingNumber: firstString(doc, "tracking_number", "trackingNumber"),
		SubtotalCents:  centsField(doc, "subtotal_cents", "subtotal"),
		ShippingCents:  centsField(doc, "shipping_cents", "shipping"),
		TaxCents:       centsField(doc, "tax_cents", "tax"),
		DiscountCents:  centsField(doc, "discount_cents", "discount"),
		TotalCents:     centsField(doc, "total_cents", "total"),
		CreatedAt:      timeField(doc, "created_at", "createdAt"),
	}
	if user := firstString(doc, "user_id", "userId", "user"); user != "" {
		order.UserID = &user
	}
	if coupon := firstString(doc, "coupon_code", "couponCode", "coupon"); coupon != "" {
		order.CouponCode = &coupon
	}
	if eta := timeField(doc, "estimated_delivery", "estimatedDelivery"); !eta.IsZero() {
		order.EstimatedDelivery = &eta
	}
	if addr, ok := doc["shipping_address"].(map[string]any); ok {
		order.ShippingAddress = normalizeAddress(addr)
	} else if addr, ok := doc["shippingAddress"].(map[string]any); ok {
		order.ShippingAddress = normalizeAddress(addr)
	}

	order.Items = normalizeItems(doc)
	order.VendorGroups = normalizeGroups(doc, order.Items)

	if order.SubtotalCents == 0 {
		for i := range order.VendorGroups {
			order.SubtotalCents += order.VendorGroups[i].SubtotalCents
		}
	}
	// Backend-computed totals are carried verbatim when present; only a
	// missing total is reconstructed from the formula.
	if order.TotalCents == 0 {
		order.TotalCents = order.SubtotalCents + order.ShippingCents + order.TaxCents - order.DiscountCents
	}
	return order, nil
}

// extractOrderID pulls the created order's id out of a create response,
// which may be a bare id string, an id document, or a full order document.
func extractOrderID(raw json.RawMessage) (string, error) {
	var direct string
	if err := json.Unmarshal(raw, &direct); err == nil && direct != "" {
		return direct, nil
	}

	doc, err := decodeDoc(raw)
	if err != nil {
		return "", err
	}
	if nested, ok := doc["order"].(map[string]any); ok {
		doc = nested
	}
	if id := firstString(doc, "id", "_id", "order_id", "orderId"); id != "" {
		return id, nil
	}
	return "", pkgerrors.New(pkgerrors.CodeDependency, "backend create response has no order id")
}

func decodeDoc(raw json.RawMessage) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode backend order document")
	}
	return doc, nil
}

func normalizeItems(doc map[string]any) []models.CartLineItem {
	rawItems, ok := doc["items"].([]any)
	if !ok {
		if rawItems, ok = doc["products"].([]any); !ok {
			rawItems, _ = doc["line_items"].([]any)
		}
	}
	return normalizeItemList(rawItems)
}

func normalizeItemList(rawItems []any) []models.CartLineItem {
	items := make([]models.CartLineItem, 0, len(rawItems))
	for _, entry := range rawItems {
		line, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		item := models.CartLineItem{
			ProductID:      firstString(line, "product_id", "productId"),
			Title:          firstString(line, "title", "name"),
			UnitPriceCents: centsField(line, "unit_price_cents", "price"),
			Quantity:       int(numberField(line, "quantity", "qty")),
			VendorID:       firstString(line, "vendor_id", "vendorId"),
			VendorName:     firstString(line, "vendor_name", "vendorName"),
		}
		// The product may be a flat id or a nested document carrying the
		// display fields and the vendor.
		switch product := line["product"].(type) {
		case string:
			if item.ProductID == "" {
				item.ProductID = product
			}
		case map[string]any:
			if item.ProductID == "" {
				item.ProductID = firstString(product, "id", "_id")
			}
			if item.Title == "" {
				item.Title = firstString(product, "title", "name")
			}
			if item.UnitPriceCents == 0 {
				item.UnitPriceCents = centsField(product, "price_cents", "price")
			}
			fillVendor(&item, product["vendor"])
			fillVendor(&item, product["brand"])
		}
		fillVendor(&item, line["vendor"])
		if item.Quantity < 1 {
			item.Quantity = 1
		}
		if variant, ok := line["variant"].(map[string]any); ok {
			item.Variant = make(map[string]string, len(variant))
			for axis, value := range variant {
				if s, ok := value.(string); ok {
					item.Variant[axis] = s
				}
			}
		}
		items = append(items, item)
	}
	return items
}

func fillVendor(item *models.CartLineItem, raw any) {
	vendor, ok := raw.(map[string]any)
	if !ok {
		return
	}
	if item.VendorID == "" {
		item.VendorID = firstString(vendor, "id", "_id")
	}
	if item.VendorName == "" {
		item.VendorName = firstString(vendor, "name", "title")
	}
}

// normalizeGroups reads the backend's vendor groups when present, otherwise
// rebuilds the partition from the flat items. Rebuilt groups carry computed
// subtotals but no prorated charges; the backend totals stay authoritative.
func normalizeGroups(doc map[string]any, items []models.CartLineItem) []models.VendorGroup {
	rawGroups, ok := doc["vendor_groups"].([]any)
	if !ok {
		rawGroups, ok = doc["vendorGroups"].([]any)
	}
	if ok {
		groups := make([]models.VendorGroup, 0, len(rawGroups))
		for _, entry := range rawGroups {
			g, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			group := models.VendorGroup{
				VendorID:      firstString(g, "vendor_id", "vendorId"),
				VendorName:    firstString(g, "vendor_name", "vendorName"),
				SubtotalCents: centsField(g, "subtotal_cents", "subtotal"),
				ShippingCents: centsField(g, "shipping_cents", "shipping"),
				TaxCents:      centsField(g, "tax_cents", "tax"),
				DiscountCents: centsField(g, "discount_cents", "discount"),
			}
			if vendor, ok := g["vendor"].(map[string]any); ok {
				if group.VendorID == "" {
					group.VendorID = firstString(vendor, "id", "_id")
				}
				if group.VendorName == "" {
					group.VendorName = firstString(vendor, "name")
				}
			}
			if groupItems, ok := g["items"].([]any); ok {
				group.Items = normalizeItemList(groupItems)
				if group.SubtotalCents == 0 {
					for _, item := range group.Items {
						group.SubtotalCents += item.LineSubtotalCents()
					}
				}
			}
			groups = append(groups, group)
		}
		return groups
	}

	index := map[string]int{}
	var groups []models.VendorGroup
	for _, item := range items {
		i, ok := index[item.VendorID]
		if !ok {
			groups = append(groups, models.VendorGroup{
				VendorID:   item.VendorID,
				VendorName: item.VendorName,
			})
			i = len(groups) - 1
			index[item.VendorID] = i
		}
		groups[i].Items = append(groups[i].Items, item)
		groups[i].SubtotalCents += item.LineSubtotalCents()
	}
	return groups
}

func normalizeAddress(doc map[string]any) *types.Address {
	addr := &types.Address{
		Line1:      firstString(doc, "line1", "address1", "street"),
		City:       firstString(doc, "city"),
		State:      firstString(doc, "state", "province"),
		PostalCode: firstString(doc, "postal_code", "postalCode", "zip"),
		Country:    firstString(doc, "country"),
	}
	if line2 := firstString(doc, "line2", "address2"); line2 != "" {
		addr.Line2 = &line2
	}
	return addr
}

func normalizeStatus(raw string) enums.OrderStatus {
	status, err := enums.ParseOrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil {
		return enums.OrderStatusPending
	}
	return status
}

func firstString(doc map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := doc[key].(string); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func numberField(doc map[string]any, keys ...string) float64 {
	for _, key := range keys {
		if value, ok := doc[key].(float64); ok {
			return value
		}
	}
	return 0
}

// centsField prefers an explicit cents integer field and falls back to a
// dollar amount, rounding half-up to a cent.
func centsField(doc map[string]any, centsKey, dollarKey string) int64 {
	if value, ok := doc[centsKey].(float64); ok {
		return int64(value)
	}
	if value, ok := doc[dollarKey].(float64); ok {
		return int64(math.Round(value * 100))
	}
	return 0
}

func timeField(doc map[string]any, keys ...string) time.Time {
	for _, key := range keys {
		value, ok := doc[key].(string)
		if !ok {
			continue
		}
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, value); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}
