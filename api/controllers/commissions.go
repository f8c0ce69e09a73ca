package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dcastellanos/storefront-backend/api/responses"
	"github.com/dcastellanos/storefront-backend/api/validators"
	"github.com/dcastellanos/storefront-backend/internal/commissions"
	"github.com/dcastellanos/storefront-backend/pkg/enums"
	pkgerrors "github.com/dcastellanos/storefront-backend/pkg/errors"
	"github.com/dcastellanos/storefront-backend/pkg/logger"
)

func VendorCommissions(svc *commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID := strings.TrimSpace(chi.URLParam(r, "vendorId"))

		var status *enums.CommissionStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParseCommissionStatus(strings.ToLower(raw))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid commission status"))
				return
			}
			status = &parsed
		}

		records, err := svc.ForVendor(vendorID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"commissions": records})
	}
}

func VendorEarnings(svc *commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID := strings.TrimSpace(chi.URLParam(r, "vendorId"))

		summary, err := svc.Summary(vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

func VendorSettlements(svc *commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID := strings.TrimSpace(chi.URLParam(r, "vendorId"))

		records, err := svc.SettlementsForVendor(vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"settlements": records})
	}
}

func PendingCommissions(svc *commissions.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]any{"commissions": svc.Pending()})
	}
}

func SettleCommission(svc *commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		commissionID := strings.TrimSpace(chi.URLParam(r, "commissionId"))

		var input commissions.SettlementInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		settlement, err := svc.MarkPaid(r.Context(), commissionID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, settlement)
	}
}
