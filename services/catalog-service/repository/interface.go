package repository

import (
	"context"
	"errors"

	"github.com/dailykart/dailykart/services/catalog-service/models"
)

var ErrNotFound = errors.New("record not found")

// ProductRepo stores catalog products. FindAll returns products in creation
// order; an empty category means every category.
type ProductRepo interface {
	FindByID(ctx context.Context, id string) (*models.Product, error)
	FindAll(ctx context.Context, category models.Category) ([]models.Product, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, product *models.Product) error
	CreateMany(ctx context.Context, products []models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
}
