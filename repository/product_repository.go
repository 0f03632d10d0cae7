package repository

import (
	"context"

	"github.com/yashrajoria/storefront-service/models"
	"gorm.io/gorm"
)

// ProductRepository reads catalog prices. The catalog is owned elsewhere.
type ProductRepository interface {
	FindByIDs(ctx context.Context, storeID string, ids []string) ([]models.Product, error)
}

type gormProductRepository struct {
	db *gorm.DB
}

func NewGormProductRepository(db *gorm.DB) ProductRepository {
	return &gormProductRepository{db: db}
}

// FindByIDs returns the purchasable products among ids: those belonging to
// storeID and not archived.
func (r *gormProductRepository) FindByIDs(ctx context.Context, storeID string, ids []string) ([]models.Product, error) {
	var products []models.Product
	if len(ids) == 0 {
		return products, nil
	}
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND id IN ? AND is_archived = ?", storeID, ids, false).
		Find(&products).Error
	return products, err
}
