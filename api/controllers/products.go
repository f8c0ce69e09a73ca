package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dcastellanos/storefront-backend/api/responses"
	"github.com/dcastellanos/storefront-backend/api/validators"
	"github.com/dcastellanos/storefront-backend/internal/products"
	"github.com/dcastellanos/storefront-backend/pkg/logger"
)

type quoteRequest struct {
	Selection map[string]string `json:"selection" validate:"required"`
}

// QuoteProduct resolves a variant selection against the catalog and returns
// the effective unit price, stock, and canonical signature.
func QuoteProduct(svc *products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID := strings.TrimSpace(chi.URLParam(r, "productId"))

		var req quoteRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.QuoteSelection(r.Context(), productID, req.Selection)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

func ProductDetail(svc *products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID := strings.TrimSpace(chi.URLParam(r, "productId"))

		product, err := svc.Get(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}
