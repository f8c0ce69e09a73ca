package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dcastellanos/storefront-backend/api/responses"
	"github.com/dcastellanos/storefront-backend/api/validators"
	"github.com/dcastellanos/storefront-backend/internal/composer"
	"github.com/dcastellanos/storefront-backend/internal/orders"
	"github.com/dcastellanos/storefront-backend/pkg/db/models"
	"github.com/dcastellanos/storefront-backend/pkg/enums"
	pkgerrors "github.com/dcastellanos/storefront-backend/pkg/errors"
	"github.com/dcastellanos/storefront-backend/pkg/logger"
	"github.com/dcastellanos/storefront-backend/pkg/pagination"
	"github.com/dcastellanos/storefront-backend/pkg/types"
)

type orderItemPayload struct {
	ProductID      string            `json:"product_id" validate:"required"`
	Title          string            `json:"title,omitempty"`
	UnitPriceCents int64             `json:"unit_price_cents" validate:"gte=0"`
	Quantity       int               `json:"quantity" validate:"required,min=1"`
	VendorID       string            `json:"vendor_id,omitempty"`
	VendorName     string            `json:"vendor_name,omitempty"`
	Variant        map[string]string `json:"variant,omitempty"`
}

type createOrderRequest struct {
	Items           []orderItemPayload `json:"items" validate:"required,min=1,dive"`
	ShippingCents   int64              `json:"shipping_cents" validate:"gte=0"`
	TaxCents        int64              `json:"tax_cents" validate:"gte=0"`
	DiscountCents   int64              `json:"discount_cents" validate:"gte=0"`
	ShippingAddress *types.Address     `json:"shipping_address,omitempty"`
	PaymentMethod   string             `json:"payment_method" validate:"required"`
	CouponCode      *string            `json:"coupon_code,omitempty"`
	UserID          *string            `json:"user_id,omitempty"`
}

func (req createOrderRequest) toComposerInput() composer.Input {
	items := make([]models.CartLineItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, models.CartLineItem{
			ProductID:      item.ProductID,
			Title:          item.Title,
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       item.Quantity,
			VendorID:       item.VendorID,
			VendorName:     item.VendorName,
			Variant:        item.Variant,
		})
	}
	return composer.Input{
		Items:           items,
		ShippingCents:   req.ShippingCents,
		TaxCents:        req.TaxCents,
		DiscountCents:   req.DiscountCents,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		CouponCode:      req.CouponCode,
		UserID:          req.UserID,
	}
}

func CreateOrder(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Create(r.Context(), req.toComposerInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

func ListOrders(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		var userID *string
		if raw := strings.TrimSpace(r.URL.Query().Get("user_id")); raw != "" {
			userID = &raw
		}

		list, err := svc.List(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"orders":      list.Orders,
			"next_cursor": list.NextCursor,
		})
	}
}

func OrderDetail(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "orderId"))
		order, err := svc.FetchByID(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type cancelOrderRequest struct {
	Reason string `json:"reason,omitempty"`
}

func CancelOrder(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "orderId"))

		var req cancelOrderRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		order, err := svc.Cancel(r.Context(), id, req.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type returnOrderRequest struct {
	Reason   string  `json:"reason" validate:"required"`
	VendorID *string `json:"vendor_id,omitempty"`
}

func ReturnOrder(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "orderId"))

		var req returnOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.RequestReturn(r.Context(), id, req.Reason, req.VendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func TrackOrder(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "orderId"))
		view, err := svc.Track(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

type updateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateOrderStatus is the fulfillment-side setter. It is mounted under the
// admin tree only; buyer cancel/return flows use their dedicated endpoints.
func UpdateOrderStatus(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "orderId"))

		var req updateOrderStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status"))
			return
		}

		order, err := svc.UpdateStatus(r.Context(), id, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
