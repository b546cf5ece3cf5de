package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dailykart/dailykart/services/storefront/blob"
	"github.com/dailykart/dailykart/services/storefront/models"
)

// Client is the contract of the catalog backend. The storefront owns no
// product or admin identity data; everything goes through this interface.
type Client interface {
	ListAllProducts(ctx context.Context) ([]models.Product, error)
	ListProductsByCategory(ctx context.Context, category models.Category) ([]models.Product, error)
	GetProduct(ctx context.Context, id string) (models.Product, error)
	GetProductImage(ctx context.Context, id string) (blob.Ref, error)
	CreateProduct(ctx context.Context, token string, input models.ProductInput) (models.Product, error)
	UpdateProduct(ctx context.Context, token, id string, input models.ProductInput) (models.Product, error)
	DeleteProduct(ctx context.Context, token, id string) error
	LoginAdmin(ctx context.Context, username, password string) (string, error)
	IsAdminSessionValid(ctx context.Context, token string) (bool, error)
}

var ErrNotFound = errors.New("not found")

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream error: status=%d body=%s", e.StatusCode, e.Body)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// IsUnauthorized reports a 401 or 403 from the backend.
func IsUnauthorized(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden
	}
	return false
}
