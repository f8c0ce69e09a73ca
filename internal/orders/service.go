package orders

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dcastellanos/storefront-backend/internal/composer"
	"github.com/dcastellanos/storefront-backend/pkg/db/models"
	"github.com/dcastellanos/storefront-backend/pkg/enums"
	pkgerrors "github.com/dcastellanos/storefront-backend/pkg/errors"
	"github.com/dcastellanos/storefront-backend/pkg/kvstore"
	"github.com/dcastellanos/storefront-backend/pkg/logger"
	"github.com/dcastellanos/storefront-backend/pkg/metrics"
	"github.com/dcastellanos/storefront-backend/pkg/pagination"
)

const estimatedDeliveryWindow = 5 * 24 * time.Hour

// backendIDLength is the length of the hex ids the authoritative backend
// assigns to registered products. Carts made entirely of such items are
// submitted remotely; anything else composes a local optimistic order.
const backendIDLength = 24

// ResourceClient is the HTTP collaborator for the authoritative order
// backend. Satisfied by pkg/backend.Client.
type ResourceClient interface {
	Get(ctx context.Context, path string, params url.Values) (json.RawMessage, error)
	Post(ctx context.Context, path string, body any) (json.RawMessage, error)
	Patch(ctx context.Context, path string, body any) (json.RawMessage, error)
}

// CommissionRecorder creates the pending commission records for a locally
// composed order's vendor groups. Satisfied by internal/commissions.Service.
type CommissionRecorder interface {
	Record(ctx context.Context, orderID string, groups []models.VendorGroup) ([]models.CommissionRecord, error)
}

// transitions is the legal state-machine table. UpdateStatus bypasses it;
// Cancel and RequestReturn enforce their source states explicitly.
var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:    {enums.OrderStatusProcessing, enums.OrderStatusCancelled},
	enums.OrderStatusProcessing: {enums.OrderStatusShipped, enums.OrderStatusCancelled},
	enums.OrderStatusShipped:    {enums.OrderStatusDelivered},
	enums.OrderStatusDelivered:  {},
	enums.OrderStatusCancelled:  {},
}

// CanTransition reports whether the state machine permits moving from one
// status to another.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Service is the order ledger: the queryable collection of order aggregates,
// keyed by id, rehydrated from the KV store at boot and checkpointed after
// every mutation.
type Service struct {
	client      ResourceClient
	commissions CommissionRecorder
	store       kvstore.Store
	logg        *logger.Logger
	metrics     *metrics.EngineMetrics

	returnReasonMinLen int

	mu     sync.RWMutex
	byID   map[string]*models.Order
	sorted []*models.Order
}

func NewService(ctx context.Context, client ResourceClient, commissions CommissionRecorder, store kvstore.Store, logg *logger.Logger, engineMetrics *metrics.EngineMetrics, returnReasonMinLen int) (*Service, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders: resource client is required")
	}
	if commissions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders: commission recorder is required")
	}
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders: kv store is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders: logger is required")
	}
	if returnReasonMinLen < 1 {
		returnReasonMinLen = 1
	}

	s := &Service{
		client:             client,
		commissions:        commissions,
		store:              store,
		logg:               logg,
		metrics:            engineMetrics,
		returnReasonMinLen: returnReasonMinLen,
		byID:               map[string]*models.Order{},
	}
	if err := s.rehydrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) rehydrate(ctx context.Context) error {
	var persisted []models.Order
	if err := s.store.Load(ctx, kvstore.KeyOrders, &persisted); err != nil && err != kvstore.ErrNotFound {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to rehydrate order ledger")
	}
	for i := range persisted {
		order := persisted[i]
		s.upsertLocked(&order)
	}
	return nil
}

// upsertLocked merges an order into the ledger, replacing any entry with the
// same id. Caller holds the write lock (or is still single-threaded in New).
func (s *Service) upsertLocked(order *models.Order) {
	if existing, ok := s.byID[order.ID]; ok {
		for i := range s.sorted {
			if s.sorted[i] == existing {
				s.sorted[i] = order
				break
			}
		}
	} else {
		s.sorted = append(s.sorted, order)
	}
	s.byID[order.ID] = order
	sort.SliceStable(s.sorted, func(i, j int) bool {
		if s.sorted[i].CreatedAt.Equal(s.sorted[j].CreatedAt) {
			return s.sorted[i].ID > s.sorted[j].ID
		}
		return s.sorted[i].CreatedAt.After(s.sorted[j].CreatedAt)
	})
}

func (s *Service) checkpointLocked(ctx context.Context) error {
	snapshot := make([]models.Order, 0, len(s.sorted))
	for _, order := range s.sorted {
		snapshot = append(snapshot, *order)
	}
	if err := s.store.Save(ctx, kvstore.KeyOrders, snapshot); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to checkpoint order ledger")
	}
	return nil
}

// Create submits the cart. When every line carries a backend product id the
// order is created remotely and fetched back; otherwise a local optimistic
// order is composed, and its commission records are written in the same
// unit, or not at all.
func (s *Service) Create(ctx context.Context, in composer.Input) (*models.Order, error) {
	if allBackendItems(in.Items) {
		return s.createRemote(ctx, in)
	}
	return s.createLocal(ctx, in)
}

func allBackendItems(items []models.CartLineItem) bool {
	if len(items) == 0 {
		return false
	}
	for _, item := range items {
		if !isBackendID(item.ProductID) {
			return false
		}
	}
	return true
}

func isBackendID(id string) bool {
	if len(id) != backendIDLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

func (s *Service) createRemote(ctx context.Context, in composer.Input) (*models.Order, error) {
	// Validation mirrors the local path so malformed carts fail the same
	// way regardless of provenance.
	if _, err := composer.Compose(in); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"items":          in.Items,
		"shipping_cents": in.ShippingCents,
		"tax_cents":      in.TaxCents,
		"discount_cents": in.DiscountCents,
		"payment_method": in.PaymentMethod,
	}
	if in.ShippingAddress != nil {
		payload["shipping_address"] = in.ShippingAddress
	}
	if in.CouponCode != nil {
		payload["coupon_code"] = *in.CouponCode
	}

	created, err := s.client.Post(ctx, "/user/orders", payload)
	if err != nil {
		return nil, err
	}
	id, err := extractOrderID(created)
	if err != nil {
		return nil, err
	}

	// The detail fetch is a separate, retryable read; a failure here leaves
	// the ledger untouched and the caller can fetch by id later.
	detail, err := s.client.Get(ctx, "/user/orders/"+id, nil)
	if err != nil {
		return nil, err
	}
	order, err := normalizeOrder(detail)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertLocked(order)
	if err := s.checkpointLocked(ctx); err != nil {
		return nil, err
	}
	s.metrics.IncOrderComposed(string(enums.OrderProvenanceRemote))
	s.logg.Info(s.logg.WithOrderID(ctx, order.ID), "remote order created")
	return order, nil
}

func (s *Service) createLocal(ctx context.Context, in composer.Input) (*models.Order, error) {
	order, err := composer.Compose(in)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	eta := now.Add(estimatedDeliveryWindow)
	order.ID = newOrderID()
	order.Status = enums.OrderStatusPending
	order.Provenance = enums.OrderProvenanceLocal
	order.TrackingNumber = newTrackingNumber()
	order.EstimatedDelivery = &eta
	order.CreatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()

	s.upsertLocked(order)
	if err := s.checkpointLocked(ctx); err != nil {
		s.removeLocked(order.ID)
		return nil, err
	}

	// Order and commissions persist as a unit: a failed commission write
	// rolls the order back out of the ledger.
	if _, err := s.commissions.Record(ctx, order.ID, order.VendorGroups); err != nil {
		s.removeLocked(order.ID)
		if cpErr := s.checkpointLocked(ctx); cpErr != nil {
			s.logg.Error(ctx, "failed to roll back order after commission write failure", cpErr)
		}
		return nil, err
	}

	s.metrics.IncOrderComposed(string(enums.OrderProvenanceLocal))
	s.logg.Info(s.logg.WithOrderID(ctx, order.ID), "local order composed")
	return order, nil
}

func (s *Service) removeLocked(id string) {
	order, ok := s.byID[id]
	if !ok {
		return
	}
	delete(s.byID, id)
	for i := range s.sorted {
		if s.sorted[i] == order {
			s.sorted = append(s.sorted[:i], s.sorted[i+1:]...)
			break
		}
	}
}

// FetchByID returns the cached order when present, performing at most one
// remote read per id as long as the cache answers first.
func (s *Service) FetchByID(ctx context.Context, id string) (*models.Order, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	s.mu.RLock()
	cached, ok := s.byID[id]
	s.mu.RUnlock()
	if ok {
		copied := *cached
		return &copied, nil
	}

	detail, err := s.client.Get(ctx, "/user/orders/"+id, nil)
	if err != nil {
		return nil, err
	}
	order, err := normalizeOrder(detail)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertLocked(order)
	if err := s.checkpointLocked(ctx); err != nil {
		return nil, err
	}
	copied := *order
	return &copied, nil
}

// ListResult is one page of the ledger, newest first.
type ListResult struct {
	Orders     []models.Order
	NextCursor string
}

// List pages through the ledger newest first, optionally scoped to a user.
func (s *Service) List(ctx context.Context, userID *string, params pagination.Params) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := &ListResult{Orders: make([]models.Order, 0, limit)}
	for _, order := range s.sorted {
		if userID != nil && (order.UserID == nil || *order.UserID != *userID) {
			continue
		}
		if cursor != nil && !beforeCursor(order, cursor) {
			continue
		}
		if len(result.Orders) == limit {
			last := result.Orders[limit-1]
			result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
				CreatedAt: last.CreatedAt,
				ID:        last.ID,
			})
			return result, nil
		}
		result.Orders = append(result.Orders, *order)
	}
	return result, nil
}

func beforeCursor(order *models.Order, cursor *pagination.Cursor) bool {
	if order.CreatedAt.Equal(cursor.CreatedAt) {
		return order.ID < cursor.ID
	}
	return order.CreatedAt.Before(cursor.CreatedAt)
}

// TrackingView is the reduced public tracking shape: no items, no vendor
// groups, no address.
type TrackingView struct {
	OrderID           string            `json:"order_id"`
	Status            enums.OrderStatus `json:"status"`
	TrackingNumber    string            `json:"tracking_number,omitempty"`
	EstimatedDelivery *time.Time        `json:"estimated_delivery,omitempty"`
	TotalCents        int64             `json:"total_cents"`
	CreatedAt         time.Time         `json:"created_at"`
}

// Track serves the public tracking view. Unknown ids fall through to the
// backend's public tracking endpoint without being merged into the ledger.
func (s *Service) Track(ctx context.Context, id string) (*TrackingView, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	s.mu.RLock()
	cached, ok := s.byID[id]
	s.mu.RUnlock()
	if ok {
		return trackingViewOf(cached), nil
	}

	raw, err := s.client.Get(ctx, "/orders/track/"+id, nil)
	if err != nil {
		return nil, err
	}
	order, err := normalizeOrder(raw)
	if err != nil {
		return nil, err
	}
	return trackingViewOf(order), nil
}

func trackingViewOf(order *models.Order) *TrackingView {
	return &TrackingView{
		OrderID:           order.ID,
		Status:            order.Status,
		TrackingNumber:    order.TrackingNumber,
		EstimatedDelivery: order.EstimatedDelivery,
		TotalCents:        order.TotalCents,
		CreatedAt:         order.CreatedAt,
	}
}

// Cancel moves a pending or processing order to cancelled. Remote orders
// issue the backend cancel first; a failed remote cancel leaves local state
// untouched.
func (s *Service) Cancel(ctx context.Context, id, reason string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.byID[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if !CanTransition(order.Status, enums.OrderStatusCancelled) {
		return nil, transitionError(order.Status, enums.OrderStatusCancelled)
	}

	if !order.IsLocal() {
		body := map[string]any{"reason": reason}
		if _, err := s.client.Patch(ctx, "/user/orders/"+id+"/cancel", body); err != nil {
			return nil, err
		}
	}

	previous := order.Status
	order.Status = enums.OrderStatusCancelled
	if err := s.checkpointLocked(ctx); err != nil {
		order.Status = previous
		return nil, err
	}

	s.logg.Info(s.logg.WithOrderID(ctx, id), "order cancelled")
	copied := *order
	return &copied, nil
}

// RequestReturn records a return intent on a delivered order. Multi-vendor
// orders must name the vendor group the return applies to.
func (s *Service) RequestReturn(ctx context.Context, id, reason string, vendorID *string) (*models.Order, error) {
	trimmed := strings.TrimSpace(reason)
	if len(trimmed) < s.returnReasonMinLen {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("return reason must be at least %d characters", s.returnReasonMinLen))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.byID[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.Status != enums.OrderStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot request a return for a %s order, only delivered", order.Status))
	}

	request := models.ReturnRequest{Reason: trimmed, RequestedAt: time.Now().UTC()}
	if len(order.VendorGroups) > 1 {
		if vendorID == nil || strings.TrimSpace(*vendorID) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required for a multi-vendor return")
		}
		if order.GroupForVendor(*vendorID) == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id does not match any of the order's vendors")
		}
		request.VendorID = *vendorID
	} else if vendorID != nil {
		request.VendorID = *vendorID
	}

	if !order.IsLocal() {
		body := map[string]any{"reason": trimmed}
		if request.VendorID != "" {
			body["vendor_id"] = request.VendorID
		}
		if _, err := s.client.Post(ctx, "/user/orders/"+id+"/return", body); err != nil {
			return nil, err
		}
	}

	previous := order.ReturnRequest
	order.ReturnRequest = &request
	if err := s.checkpointLocked(ctx); err != nil {
		order.ReturnRequest = previous
		return nil, err
	}

	s.logg.Info(s.logg.WithOrderID(ctx, id), "return requested")
	copied := *order
	return &copied, nil
}

// UpdateStatus is the trusted-caller setter used by fulfillment tooling. It
// does not enforce the transition table; external cancel/return flows must
// go through Cancel and RequestReturn.
func (s *Service) UpdateStatus(ctx context.Context, id string, status enums.OrderStatus) (*models.Order, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", status))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.byID[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	previous := order.Status
	order.Status = status
	if err := s.checkpointLocked(ctx); err != nil {
		order.Status = previous
		return nil, err
	}
	copied := *order
	return &copied, nil
}

func transitionError(from, to enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("cannot transition order from %s to %s", from, to))
}

func newOrderID() string {
	return fmt.Sprintf("ord_%d_%s", time.Now().UnixMilli(), randomSuffix())
}

func newTrackingNumber() string {
	return fmt.Sprintf("TRK-%d-%s", time.Now().UnixMilli(), strings.ToUpper(randomSuffix()))
}

func randomSuffix() string {
	buf := make([]byte, 3)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
