package catalog

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	apperrors "github.com/dailykart/dailykart/services/common/errors"
	"github.com/dailykart/dailykart/services/storefront/adminsession"
	"github.com/dailykart/dailykart/services/storefront/backend"
	"github.com/dailykart/dailykart/services/storefront/blob"
	"github.com/dailykart/dailykart/services/storefront/models"
	"go.uber.org/zap"
)

// MsgUnavailable is shown whenever the catalog cannot be loaded.
const MsgUnavailable = "Unable to connect to the system. Please refresh the page."

const scopeAll = "all"

// Backend is the read side of the backend contract.
type Backend interface {
	ListAllProducts(ctx context.Context) ([]models.Product, error)
	ListProductsByCategory(ctx context.Context, category models.Category) ([]models.Product, error)
	GetProduct(ctx context.Context, id string) (models.Product, error)
	GetProductImage(ctx context.Context, id string) (blob.Ref, error)
}

type Service struct {
	backend  Backend
	cache    Cache
	maxTries uint
	interval time.Duration
}

type Option func(*Service)

// WithRetry overrides the total number of attempts and the first backoff interval.
func WithRetry(maxTries uint, initial time.Duration) Option {
	return func(s *Service) {
		s.maxTries = maxTries
		s.interval = initial
	}
}

func NewService(b Backend, cache Cache, opts ...Option) *Service {
	if cache == nil {
		cache = NewMemoryCache(DefaultCacheTTL)
	}
	s := &Service{backend: b, cache: cache, maxTries: 3, interval: 200 * time.Millisecond}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListProducts returns the whole catalog in backend order.
func (s *Service) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.list(ctx, scopeAll, s.backend.ListAllProducts)
}

// ListByCategory asks the backend for one category.
func (s *Service) ListByCategory(ctx context.Context, category models.Category) ([]models.Product, error) {
	return s.list(ctx, string(category), func(ctx context.Context) ([]models.Product, error) {
		return s.backend.ListProductsByCategory(ctx, category)
	})
}

func (s *Service) GetProduct(ctx context.Context, id string) (models.Product, error) {
	p, err := s.backend.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return models.Product{}, apperrors.New(http.StatusNotFound, "Product not found", err)
		}
		zap.L().Error("Failed to fetch product", zap.String("product_id", id), zap.Error(err))
		return models.Product{}, apperrors.New(http.StatusServiceUnavailable, MsgUnavailable, err)
	}
	return p, nil
}

// ProductImage resolves the image reference of one product.
func (s *Service) ProductImage(ctx context.Context, id string) (blob.Ref, error) {
	ref, err := s.backend.GetProductImage(ctx, id)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return blob.Ref{}, apperrors.New(http.StatusNotFound, "Product not found", err)
		}
		return blob.Ref{}, apperrors.New(http.StatusServiceUnavailable, MsgUnavailable, err)
	}
	return ref, nil
}

// Invalidate drops every cached listing.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Invalidate(ctx)
}

func (s *Service) list(ctx context.Context, scope string, fetch func(context.Context) ([]models.Product, error)) ([]models.Product, error) {
	products, version, ok := s.cache.Get(ctx, scope)
	if ok {
		return products, nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.interval
	products, err := backoff.Retry(ctx, func() ([]models.Product, error) {
		products, err := fetch(ctx)
		if err != nil && !Retryable(err) {
			return nil, backoff.Permanent(err)
		}
		return products, err
	},
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(s.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			zap.L().Warn("Catalog query failed, retrying", zap.String("scope", scope), zap.Duration("backoff", next), zap.Error(err))
		}),
	)
	if err != nil {
		zap.L().Error("Failed to load catalog", zap.String("scope", scope), zap.Error(err))
		return nil, apperrors.New(http.StatusServiceUnavailable, MsgUnavailable, err)
	}

	s.cache.SetAsync(scope, version, products)
	return products, nil
}

// Retryable is true for connectivity failures and 5xx answers.
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *backend.StatusError
	if errors.As(err, &se) && se.StatusCode >= http.StatusInternalServerError {
		return true
	}
	return adminsession.IsTransient(err)
}
