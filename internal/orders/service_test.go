package orders

import (
	"context"
	"encoding/json"
	"io"
	"net/url"
	"strings"
	"testing"

	"github.com/dcastellanos/storefront-backend/internal/composer"
	"github.com/dcastellanos/storefront-backend/pkg/db/models"
	"github.com/dcastellanos/storefront-backend/pkg/enums"
	pkgerrors "github.com/dcastellanos/storefront-backend/pkg/errors"
	"github.com/dcastellanos/storefront-backend/pkg/kvstore"
	"github.com/dcastellanos/storefront-backend/pkg/logger"
	"github.com/dcastellanos/storefront-backend/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const backendProductID = "64a1f0b2c3d4e5f60718293a"

type fakeClient struct {
	getResponses  map[string]json.RawMessage
	postResponses map[string]json.RawMessage
	patchResponse json.RawMessage

	getErr   error
	postErr  error
	patchErr error

	getCalls   map[string]int
	postCalls  []string
	patchCalls []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		getResponses:  map[string]json.RawMessage{},
		postResponses: map[string]json.RawMessage{},
		getCalls:      map[string]int{},
	}
}

func (f *fakeClient) Get(_ context.Context, path string, _ url.Values) (json.RawMessage, error) {
	f.getCalls[path]++
	if f.getErr != nil {
		return nil, f.getErr
	}
	if resp, ok := f.getResponses[path]; ok {
		return resp, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func (f *fakeClient) Post(_ context.Context, path string, _ any) (json.RawMessage, error) {
	f.postCalls = append(f.postCalls, path)
	if f.postErr != nil {
		return nil, f.postErr
	}
	if resp, ok := f.postResponses[path]; ok {
		return resp, nil
	}
	return json.RawMessage(`{}`), nil
}

func (f *fakeClient) Patch(_ context.Context, path string, _ any) (json.RawMessage, error) {
	f.patchCalls = append(f.patchCalls, path)
	if f.patchErr != nil {
		return nil, f.patchErr
	}
	if f.patchResponse != nil {
		return f.patchResponse, nil
	}
	return json.RawMessage(`{}`), nil
}

type fakeRecorder struct {
	recorded map[string][]models.VendorGroup
	err      error
}

func (f *fakeRecorder) Record(_ context.Context, orderID string, groups []models.VendorGroup) ([]models.CommissionRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.recorded == nil {
		f.recorded = map[string][]models.VendorGroup{}
	}
	f.recorded[orderID] = groups
	return nil, nil
}

func newLedger(t *testing.T, client *fakeClient, recorder *fakeRecorder, store kvstore.Store) *Service {
	t.Helper()

	if store == nil {
		store = kvstore.NewMemory()
	}
	logg := logger.New(logger.Options{ServiceName: "orders-test", Output: io.Discard})
	svc, err := NewService(context.Background(), client, recorder, store, logg, nil, 10)
	require.NoError(t, err)
	return svc
}

func localCart() composer.Input {
	return composer.Input{
		Items: []models.CartLineItem{
			{ProductID: "local-1", UnitPriceCents: 2499, Quantity: 2, VendorID: "1", VendorName: "Vendor One"},
			{ProductID: "local-2", UnitPriceCents: 7999, Quantity: 1, VendorID: "2", VendorName: "Vendor Two"},
		},
		ShippingCents: 500,
		TaxCents:      1040,
		PaymentMethod: "card",
	}
}

func createLocalOrder(t *testing.T, svc *Service) *models.Order {
	t.Helper()

	order, err := svc.Create(context.Background(), localCart())
	require.NoError(t, err)
	return order
}

func TestCreate_localOptimisticOrder(t *testing.T) {
	client := newFakeClient()
	recorder := &fakeRecorder{}
	store := kvstore.NewMemory()
	svc := newLedger(t, client, recorder, store)

	order := createLocalOrder(t, svc)

	assert.True(t, strings.HasPrefix(order.ID, "ord_"))
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, enums.OrderProvenanceLocal, order.Provenance)
	assert.NotEmpty(t, order.TrackingNumber)
	assert.NotNil(t, order.EstimatedDelivery)
	assert.Equal(t, int64(12997), order.SubtotalCents)
	assert.Equal(t, order.SubtotalCents+order.ShippingCents+order.TaxCents-order.DiscountCents, order.TotalCents)

	// Commissions were emitted for each vendor group.
	require.Contains(t, recorder.recorded, order.ID)
	assert.Len(t, recorder.recorded[order.ID], 2)

	// No backend traffic for a local order.
	assert.Empty(t, client.postCalls)

	// The ledger survives a restart through the KV checkpoint.
	rehydrated := newLedger(t, newFakeClient(), &fakeRecorder{}, store)
	got, err := rehydrated.FetchByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
}

func TestCreate_commissionFailureRollsBackOrder(t *testing.T) {
	client := newFakeClient()
	recorder := &fakeRecorder{err: pkgerrors.New(pkgerrors.CodeInternal, "commission ledger unavailable")}
	store := kvstore.NewMemory()
	svc := newLedger(t, client, recorder, store)

	_, err := svc.Create(context.Background(), localCart())
	require.Error(t, err)

	// Neither the order nor its commissions were persisted.
	list, listErr := svc.List(context.Background(), nil, pagination.Params{})
	require.NoError(t, listErr)
	assert.Empty(t, list.Orders)

	var persisted []models.Order
	loadErr := store.Load(context.Background(), kvstore.KeyOrders, &persisted)
	if loadErr == nil {
		assert.Empty(t, persisted)
	}
}

func TestCreate_remoteOrder(t *testing.T) {
	client := newFakeClient()
	client.postResponses["/user/orders"] = json.RawMessage(`{"_id":"` + backendProductID + `"}`)
	client.getResponses["/user/orders/"+backendProductID] = json.RawMessage(`{
		"_id": "` + backendProductID + `",
		"status": "processing",
		"items": [
			{"product": {"_id": "` + backendProductID + `", "title": "Widget", "price": 24.99,
				"vendor": {"_id": "2", "name": "Acme"}}, "quantity": 2}
		],
		"shipping": 5.0,
		"tax": 0,
		"total": 54.98,
		"created_at": "2026-06-01T12:00:00Z"
	}`)
	recorder := &fakeRecorder{}
	svc := newLedger(t, client, recorder, nil)

	order, err := svc.Create(context.Background(), composer.Input{
		Items: []models.CartLineItem{
			{ProductID: backendProductID, UnitPriceCents: 2499, Quantity: 2, VendorID: "2", VendorName: "Acme"},
		},
		ShippingCents: 500,
		PaymentMethod: "card",
	})
	require.NoError(t, err)

	assert.Equal(t, backendProductID, order.ID)
	assert.Equal(t, enums.OrderProvenanceRemote, order.Provenance)
	assert.Equal(t, enums.OrderStatusProcessing, order.Status)
	assert.Equal(t, int64(5498), order.TotalCents)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Acme", order.Items[0].VendorName)
	assert.Equal(t, int64(2499), order.Items[0].UnitPriceCents)

	// Remote orders never record local commissions.
	assert.Empty(t, recorder.recorded)
}

func TestCreate_remoteFailurePropagates(t *testing.T) {
	client := newFakeClient()
	client.postErr = pkgerrors.New(pkgerrors.CodeDependency, "backend unavailable")
	svc := newLedger(t, client, &fakeRecorder{}, nil)

	_, err := svc.Create(context.Background(), composer.Input{
		Items: []models.CartLineItem{
			{ProductID: backendProductID, UnitPriceCents: 1000, Quantity: 1, VendorID: "2"},
		},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	list, listErr := svc.List(context.Background(), nil, pagination.Params{})
	require.NoError(t, listErr)
	assert.Empty(t, list.Orders)
}

func TestFetchByID_cachesRemoteRead(t *testing.T) {
	client := newFakeClient()
	client.getResponses["/user/orders/"+backendProductID] = json.RawMessage(`{
		"_id": "` + backendProductID + `", "status": "shipped", "total_cents": 1000,
		"created_at": "2026-06-01T12:00:00Z"
	}`)
	svc := newLedger(t, client, &fakeRecorder{}, nil)

	first, err := svc.FetchByID(context.Background(), backendProductID)
	require.NoError(t, err)
	second, err := svc.FetchByID(context.Background(), backendProductID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, client.getCalls["/user/orders/"+backendProductID])
}

func TestFetchByID_unknownOrder(t *testing.T) {
	svc := newLedger(t, newFakeClient(), &fakeRecorder{}, nil)

	_, err := svc.FetchByID(context.Background(), "missing-order")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCancel_pendingSucceeds(t *testing.T) {
	svc := newLedger(t, newFakeClient(), &fakeRecorder{}, nil)
	order := createLocalOrder(t, svc)

	cancelled, err := svc.Cancel(context.Background(), order.ID, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
}

func TestCancel_deliveredFails(t *testing.T) {
	svc := newLedger(t, newFakeClient(), &fakeRecorder{}, nil)
	order := createLocalOrder(t, svc)

	_, err := svc.UpdateStatus(context.Background(), order.ID, enums.OrderStatusDelivered)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), order.ID, "too late")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Contains(t, err.Error(), "delivered")
}

func TestCancel_remoteCancelFailureLeavesStateUntouched(t *testing.T) {
	client := newFakeClient()
	client.getResponses["/user/orders/"+backendProductID] = json.RawMessage(`{
		"_id": "` + backendProductID + `", "status": "pending",
		"created_at": "2026-06-01T12:00:00Z"
	}`)
	client.patchErr = pkgerrors.New(pkgerrors.CodeDependency, "backend unavailable")
	svc := newLedger(t, client, &fakeRecorder{}, nil)

	_, err := svc.FetchByID(context.Background(), backendProductID)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), backendProductID, "please")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	got, err := svc.FetchByID(context.Background(), backendProductID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, got.Status)
}

func TestCancel_remoteOrderIssuesBackendCancelFirst(t *testing.T) {
	client := newFakeClient()
	client.getResponses["/user/orders/"+backendProductID] = json.RawMessage(`{
		"_id": "` + backendProductID + `", "status": "processing",
		"created_at": "2026-06-01T12:00:00Z"
	}`)
	svc := newLedger(t, client, &fakeRecorder{}, nil)

	_, err := svc.FetchByID(context.Background(), backendProductID)
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), backendProductID, "duplicate order")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, []string{"/user/orders/" + backendProductID + "/cancel"}, client.patchCalls)
}

func TestRequestReturn_deliveredOnly(t *testing.T) {
	svc := newLedger(t, newFakeClient(), &fakeRecorder{}, nil)
	order := createLocalOrder(t, svc)

	_, err := svc.UpdateStatus(context.Background(), order.ID, enums.OrderStatusShipped)
	require.NoError(t, err)

	_, err = svc.RequestReturn(context.Background(), order.ID, "item arrived damaged", nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestRequestReturn_multiVendorRequiresVendorID(t *testing.T) {
	svc := newLedger(t, newFakeClient(), &fakeRecorder{}, nil)
	order := createLocalOrder(t, svc)

	_, err := svc.UpdateStatus(context.Background(), order.ID, enums.OrderStatusDelivered)
	require.NoError(t, err)

	_, err = svc.RequestReturn(context.Background(), order.ID, "item arrived damaged", nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	wrong := "999"
	_, err = svc.RequestReturn(context.Background(), order.ID, "item arrived damaged", &wrong)
	require.Error(t, err)

	vendor := "2"
	updated, err := svc.RequestReturn(context.Background(), order.ID, "item arrived damaged", &vendor)
	require.NoError(t, err)
	require.NotNil(t, updated.ReturnRequest)
	assert.Equal(t, "2", updated.ReturnRequest.VendorID)
	assert.Equal(t, "item arrived damaged", updated.ReturnRequest.Reason)
}

func TestRequestReturn_reasonTooShort(t *testing.T) {
	svc := newLedger(t, newFakeClient(), &fakeRecorder{}, nil)
	order := createLocalOrder(t, svc)

	_, err := svc.UpdateStatus(context.Background(), order.ID, enums.OrderStatusDelivered)
	require.NoError(t, err)

	_, err = svc.RequestReturn(context.Background(), order.ID, "bad", nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestTrack_reducedShape(t *testing.T) {
	svc := newLedger(t, newFakeClient(), &fakeRecorder{}, nil)
	order := createLocalOrder(t, svc)

	view, err := svc.Track(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, view.OrderID)
	assert.Equal(t, order.TrackingNumber, view.TrackingNumber)
	assert.Equal(t, order.TotalCents, view.TotalCents)
}

func TestTrack_unknownIDUsesPublicEndpoint(t *testing.T) {
	client := newFakeClient()
	client.getResponses["/orders/track/"+backendProductID] = json.RawMessage(`{
		"_id": "` + backendProductID + `", "status": "shipped",
		"tracking_number": "TRK-1", "total": 10.0,
		"created_at": "2026-06-01T12:00:00Z"
	}`)
	svc := newLedger(t, client, &fakeRecorder{}, nil)

	view, err := svc.Track(context.Background(), backendProductID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusShipped, view.Status)
	assert.Equal(t, "TRK-1", view.TrackingNumber)
	assert.Equal(t, int64(1000), view.TotalCents)

	// Public tracking reads are not merged into the ledger.
	list, err := svc.List(context.Background(), nil, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, list.Orders)
}

func TestList_paginationAndUserScope(t *testing.T) {
	svc := newLedger(t, newFakeClient(), &fakeRecorder{}, nil)

	user := "user-1"
	for i := 0; i < 3; i++ {
		in := localCart()
		in.UserID = &user
		_, err := svc.Create(context.Background(), in)
		require.NoError(t, err)
	}
	_, err := svc.Create(context.Background(), localCart())
	require.NoError(t, err)

	page, err := svc.List(context.Background(), &user, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	require.NotEmpty(t, page.NextCursor)

	rest, err := svc.List(context.Background(), &user, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Orders, 1)
	assert.Empty(t, rest.NextCursor)

	for _, order := range append(page.Orders, rest.Orders...) {
		require.NotNil(t, order.UserID)
		assert.Equal(t, user, *order.UserID)
	}

	all, err := svc.List(context.Background(), nil, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, all.Orders, 4)
}

func TestUpdateStatus_trustedSetterSkipsTable(t *testing.T) {
	svc := newLedger(t, newFakeClient(), &fakeRecorder{}, nil)
	order := createLocalOrder(t, svc)

	// Fulfillment tooling can jump straight to delivered.
	updated, err := svc.UpdateStatus(context.Background(), order.ID, enums.OrderStatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, updated.Status)

	_, err = svc.UpdateStatus(context.Background(), order.ID, enums.OrderStatus("bogus"))
	require.Error(t, err)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(enums.OrderStatusPending, enums.OrderStatusProcessing))
	assert.True(t, CanTransition(enums.OrderStatusPending, enums.OrderStatusCancelled))
	assert.True(t, CanTransition(enums.OrderStatusProcessing, enums.OrderStatusCancelled))
	assert.True(t, CanTransition(enums.OrderStatusShipped, enums.OrderStatusDelivered))
	assert.False(t, CanTransition(enums.OrderStatusShipped, enums.OrderStatusCancelled))
	assert.False(t, CanTransition(enums.OrderStatusDelivered, enums.OrderStatusCancelled))
	assert.False(t, CanTransition(enums.OrderStatusCancelled, enums.OrderStatusPending))
}
