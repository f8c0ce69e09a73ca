package products

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/dcastellanos/storefront-backend/internal/variants"
	"github.com/dcastellanos/storefront-backend/pkg/db/models"
	"github.com/dcastellanos/storefront-backend/pkg/errors"
	"github.com/dcastellanos/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

// Quote is the resolved price for a product under a variant selection.
type Quote struct {
	ProductID      string               `json:"productId"`
	Title          string               `json:"title"`
	VendorID       string               `json:"vendorId"`
	UnitPriceCents int64                `json:"unitPriceCents"`
	Stock          *int                 `json:"stock,omitempty"`
	Signature      string               `json:"signature,omitempty"`
	Axes           []models.VariantAxis `json:"axes,omitempty"`
}

type Service struct {
	repo Repository
	logg *logger.Logger
}

func NewService(repo Repository, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, errors.New(errors.CodeInternal, "products: repository is required")
	}
	if logg == nil {
		return nil, errors.New(errors.CodeInternal, "products: logger is required")
	}
	return &Service{repo: repo, logg: logg}, nil
}

func (s *Service) Get(ctx context.Context, productID string) (*models.Product, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, errors.New(errors.CodeValidation, "product id is required")
	}
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "product not found")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "failed to load product")
	}
	return product, nil
}

// QuoteSelection resolves the unit price and stock for the given variant
// selection. Selection keys are normalized before matching so callers can
// send display names ("Ring Size") or normalized keys ("ring_size").
func (s *Service) QuoteSelection(ctx context.Context, productID string, raw map[string]string) (*Quote, error) {
	product, err := s.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, errors.New(errors.CodeStateConflict, "product is not active")
	}

	sel := variants.Selection{}
	for axis, value := range raw {
		if strings.TrimSpace(value) == "" {
			continue
		}
		sel[variants.NormalizeAxisKey(axis)] = value
	}

	quote := &Quote{
		ProductID:      product.ID,
		Title:          product.Title,
		VendorID:       product.VendorID,
		UnitPriceCents: variants.ResolvePrice(product.Variant, sel, product.BasePriceCents),
		Stock:          variants.ResolveStock(product.Variant, sel),
		Axes:           variants.Axes(product.Variant),
	}
	if len(sel) > 0 {
		quote.Signature = variants.Signature(sel)
	}
	return quote, nil
}
