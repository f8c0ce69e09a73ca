package orders

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dcastellanos/storefront-backend/pkg/enums"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeOrder_fieldNameVariants(t *testing.T) {
	raw := json.RawMessage(`{
		"_id": "64a1f0b2c3d4e5f60718293a",
		"status": "SHIPPED",
		"userId": "user-9",
		"trackingNumber": "TRK-42",
		"subtotal": 129.97,
		"shipping": 5.0,
		"tax": 10.4,
		"discount": 0,
		"total": 145.37,
		"createdAt": "2026-05-30T08:00:00Z",
		"items": [
			{"product_id": "p1", "title": "Mug", "price": 24.99, "qty": 2,
				"vendor_id": "1", "vendor_name": "Vendor One"},
			{"product": {"_id": "p2", "name": "Poster", "price": 79.99,
				"brand": {"_id": "2", "name": "Vendor Two"}}, "quantity": 1}
		]
	}`)

	order, err := normalizeOrder(raw)
	require.NoError(t, err)

	assert.Equal(t, "64a1f0b2c3d4e5f60718293a", order.ID)
	assert.Equal(t, enums.OrderProvenanceRemote, order.Provenance)
	assert.Equal(t, enums.OrderStatusShipped, order.Status)
	require.NotNil(t, order.UserID)
	assert.Equal(t, "user-9", *order.UserID)
	assert.Equal(t, "TRK-42", order.TrackingNumber)
	assert.Equal(t, int64(12997), order.SubtotalCents)
	assert.Equal(t, int64(500), order.ShippingCents)
	assert.Equal(t, int64(1040), order.TaxCents)
	assert.Equal(t, int64(14537), order.TotalCents)
	assert.Equal(t, time.Date(2026, 5, 30, 8, 0, 0, 0, time.UTC), order.CreatedAt)

	require.Len(t, order.Items, 2)
	assert.Equal(t, "p1", order.Items[0].ProductID)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, "p2", order.Items[1].ProductID)
	assert.Equal(t, "Poster", order.Items[1].Title)
	assert.Equal(t, "2", order.Items[1].VendorID)
	assert.Equal(t, "Vendor Two", order.Items[1].VendorName)
	assert.Equal(t, int64(7999), order.Items[1].UnitPriceCents)
}

func TestNormalizeOrder_rebuildsMissingVendorGroups(t *testing.T) {
	raw := json.RawMessage(`{
		"id": "ord-7",
		"status": "delivered",
		"items": [
			{"product_id": "a", "price": 10.0, "quantity": 1, "vendor_id": "1", "vendor_name": "One"},
			{"product_id": "b", "price": 30.0, "quantity": 1, "vendor_id": "2", "vendor_name": "Two"},
			{"product_id": "c", "price": 5.0, "quantity": 2, "vendor_id": "1", "vendor_name": "One"}
		]
	}`)

	order, err := normalizeOrder(raw)
	require.NoError(t, err)

	require.Len(t, order.VendorGroups, 2)
	assert.Equal(t, "1", order.VendorGroups[0].VendorID)
	assert.Equal(t, int64(2000), order.VendorGroups[0].SubtotalCents)
	assert.Len(t, order.VendorGroups[0].Items, 2)
	assert.Equal(t, "2", order.VendorGroups[1].VendorID)
	assert.Equal(t, int64(3000), order.VendorGroups[1].SubtotalCents)

	// Missing order totals are reconstructed from the groups.
	assert.Equal(t, int64(5000), order.SubtotalCents)
	assert.Equal(t, int64(5000), order.TotalCents)
}

func TestNormalizeOrder_explicitVendorGroups(t *testing.T) {
	raw := json.RawMessage(`{
		"id": "ord-8",
		"status": "processing",
		"vendorGroups": [
			{"vendor": {"_id": "3", "name": "Three"}, "subtotal": 40.0, "shipping": 2.5,
				"items": [{"product_id": "x", "price": 20.0, "quantity": 2, "vendor_id": "3"}]},
			{"vendor_id": "4", "vendor_name": "Four", "subtotal_cents": 1500, "tax_cents": 120}
		],
		"total_cents": 5870
	}`)

	order, err := normalizeOrder(raw)
	require.NoError(t, err)

	require.Len(t, order.VendorGroups, 2)
	assert.Equal(t, "3", order.VendorGroups[0].VendorID)
	assert.Equal(t, "Three", order.VendorGroups[0].VendorName)
	assert.Equal(t, int64(4000), order.VendorGroups[0].SubtotalCents)
	assert.Equal(t, int64(250), order.VendorGroups[0].ShippingCents)
	require.Len(t, order.VendorGroups[0].Items, 1)
	assert.Equal(t, int64(1500), order.VendorGroups[1].SubtotalCents)
	assert.Equal(t, int64(120), order.VendorGroups[1].TaxCents)

	// The backend-computed total is carried verbatim.
	assert.Equal(t, int64(5870), order.TotalCents)
}

func TestNormalizeOrder_unknownStatusDefaultsToPending(t *testing.T) {
	order, err := normalizeOrder(json.RawMessage(`{"id": "ord-9", "status": "weird"}`))
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
}

func TestNormalizeOrder_missingID(t *testing.T) {
	_, err := normalizeOrder(json.RawMessage(`{"status": "pending"}`))
	require.Error(t, err)
}

func TestNormalizeOrder_nestedOrderKey(t *testing.T) {
	order, err := normalizeOrder(json.RawMessage(`{"order": {"_id": "ord-10", "status": "pending"}}`))
	require.NoError(t, err)
	assert.Equal(t, "ord-10", order.ID)
}

func TestExtractOrderID(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"bare string", `"ord-1"`, "ord-1"},
		{"id field", `{"id": "ord-2"}`, "ord-2"},
		{"mongo id", `{"_id": "ord-3"}`, "ord-3"},
		{"nested order", `{"order": {"_id": "ord-4"}}`, "ord-4"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := extractOrderID(json.RawMessage(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := extractOrderID(json.RawMessage(`{"message": "created"}`))
	require.Error(t, err)
}
