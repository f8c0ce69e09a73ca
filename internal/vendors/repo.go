package vendors

import (
	"context"

	"github.com/dcastellanos/storefront-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository manages persistence for the vendor directory.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id string) (*models.Vendor, error)
	List(ctx context.Context) ([]models.Vendor, error)
	Upsert(ctx context.Context, vendor *models.Vendor) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a vendor repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id string) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *repository) List(ctx context.Context) ([]models.Vendor, error) {
	var vendorList []models.Vendor
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&vendorList).Error; err != nil {
		return nil, err
	}
	return vendorList, nil
}

func (r *repository) Upsert(ctx context.Context, vendor *models.Vendor) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "commission_rate", "status", "updated_at"}),
		}).
		Create(vendor).Error
}
