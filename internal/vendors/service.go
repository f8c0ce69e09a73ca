package vendors

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/dcastellanos/storefront-backend/pkg/db/models"
	"github.com/dcastellanos/storefront-backend/pkg/enums"
	"github.com/dcastellanos/storefront-backend/pkg/errors"
	"github.com/dcastellanos/storefront-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Info is the reduced vendor shape consumed by the commission engine.
type Info struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	CommissionRate decimal.Decimal    `json:"commissionRate"`
	Status         enums.VendorStatus `json:"status"`
}

// Service exposes vendor directory reads and writes.
type Service struct {
	repo Repository
	logg *logger.Logger
}

func NewService(repo Repository, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, errors.New(errors.CodeInternal, "vendors: repository is required")
	}
	if logg == nil {
		return nil, errors.New(errors.CodeInternal, "vendors: logger is required")
	}
	return &Service{repo: repo, logg: logg}, nil
}

// Lookup resolves a vendor by id. A missing vendor returns (nil, nil) so
// callers can apply their own default rate without branching on error codes.
func (s *Service) Lookup(ctx context.Context, vendorID string) (*Info, error) {
	if strings.TrimSpace(vendorID) == "" {
		return nil, errors.New(errors.CodeValidation, "vendor id is required")
	}

	vendor, err := s.repo.FindByID(ctx, vendorID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "failed to load vendor")
	}
	return infoFromModel(vendor), nil
}

// Get is Lookup with not-found surfaced as an error, for the API layer.
func (s *Service) Get(ctx context.Context, vendorID string) (*Info, error) {
	info, err := s.Lookup(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, errors.New(errors.CodeNotFound, "vendor not found")
	}
	return info, nil
}

func (s *Service) List(ctx context.Context) ([]Info, error) {
	vendorList, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "failed to list vendors")
	}
	out := make([]Info, 0, len(vendorList))
	for i := range vendorList {
		out = append(out, *infoFromModel(&vendorList[i]))
	}
	return out, nil
}

// Save validates and upserts a vendor record.
func (s *Service) Save(ctx context.Context, vendor *models.Vendor) error {
	if vendor == nil || strings.TrimSpace(vendor.ID) == "" {
		return errors.New(errors.CodeValidation, "vendor id is required")
	}
	if strings.TrimSpace(vendor.Name) == "" {
		return errors.New(errors.CodeValidation, "vendor name is required")
	}
	if vendor.CommissionRate.IsNegative() || vendor.CommissionRate.GreaterThan(decimal.NewFromInt(100)) {
		return errors.New(errors.CodeValidation, "commission rate must be between 0 and 100")
	}
	if vendor.Status == "" {
		vendor.Status = enums.VendorStatusActive
	}
	if !vendor.Status.IsValid() {
		return errors.New(errors.CodeValidation, "invalid vendor status")
	}
	if err := s.repo.Upsert(ctx, vendor); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "failed to save vendor")
	}
	s.logg.Info(s.logg.WithVendorID(ctx, vendor.ID), "vendor saved")
	return nil
}

func infoFromModel(vendor *models.Vendor) *Info {
	return &Info{
		ID:             vendor.ID,
		Name:           vendor.Name,
		CommissionRate: vendor.CommissionRate,
		Status:         vendor.Status,
	}
}
