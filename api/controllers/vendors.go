package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/dcastellanos/storefront-backend/api/responses"
	"github.com/dcastellanos/storefront-backend/api/validators"
	"github.com/dcastellanos/storefront-backend/internal/vendors"
	"github.com/dcastellanos/storefront-backend/pkg/db/models"
	"github.com/dcastellanos/storefront-backend/pkg/enums"
	"github.com/dcastellanos/storefront-backend/pkg/logger"
)

func ListVendors(svc *vendors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"vendors": list})
	}
}

func VendorDetail(svc *vendors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID := strings.TrimSpace(chi.URLParam(r, "vendorId"))

		info, err := svc.Get(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, info)
	}
}

type upsertVendorRequest struct {
	Name           string  `json:"name" validate:"required"`
	CommissionRate float64 `json:"commission_rate" validate:"gte=0,max=100"`
	Status         string  `json:"status,omitempty"`
}

func UpsertVendor(svc *vendors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID := strings.TrimSpace(chi.URLParam(r, "vendorId"))

		var req upsertVendorRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vendor := &models.Vendor{
			ID:             vendorID,
			Name:           req.Name,
			CommissionRate: decimal.NewFromFloat(req.CommissionRate),
			Status:         enums.VendorStatus(strings.ToLower(req.Status)),
		}
		if err := svc.Save(r.Context(), vendor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, vendor)
	}
}
