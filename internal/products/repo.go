package products

import (
	"context"

	"github.com/dcastellanos/storefront-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository manages persistence for catalog products.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id string) (*models.Product, error)
	ListByVendor(ctx context.Context, vendorID string) ([]models.Product, error)
	Upsert(ctx context.Context, product *models.Product) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) ListByVendor(ctx context.Context, vendorID string) ([]models.Product, error) {
	var productList []models.Product
	if err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND is_active = ?", vendorID, true).
		Order("id ASC").
		Find(&productList).Error; err != nil {
		return nil, err
	}
	return productList, nil
}

func (r *repository) Upsert(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "vendor_id", "base_price_cents", "variant", "is_active", "updated_at"}),
		}).
		Create(product).Error
}
