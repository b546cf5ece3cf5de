package products

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	awspkg "github.com/dailykart/dailykart/pkg/aws"
	apperrors "github.com/dailykart/dailykart/services/common/errors"
	"github.com/dailykart/dailykart/services/storefront/adminsession"
	"github.com/dailykart/dailykart/services/storefront/backend"
	"github.com/dailykart/dailykart/services/storefront/blob"
	"github.com/dailykart/dailykart/services/storefront/images"
	"github.com/dailykart/dailykart/services/storefront/models"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	MsgCreated = "Product created successfully"
	MsgUpdated = "Product updated successfully"
	MsgDeleted = "Product deleted successfully"

	KindValidation   = "VALIDATION_ERROR"
	KindUnauthorized = "UNAUTHORIZED"
)

// ErrAdminRequired is behind every mutation refused for lack of an admin session.
var ErrAdminRequired = errors.New("admin login required")

// Backend is the write side of the backend contract.
type Backend interface {
	CreateProduct(ctx context.Context, token string, input models.ProductInput) (models.Product, error)
	UpdateProduct(ctx context.Context, token, id string, input models.ProductInput) (models.Product, error)
	DeleteProduct(ctx context.Context, token, id string) error
}

type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Form is the admin product dialog. Upload takes precedence over ImageURL.
type Form struct {
	Name     string         `form:"name" json:"name" validate:"required"`
	Category string         `form:"category" json:"category" validate:"required,oneof=food grocery"`
	Price    string         `form:"price" json:"price" validate:"required"`
	ImageURL string         `form:"imageUrl" json:"imageUrl"`
	Upload   *images.Upload `form:"-" json:"-"`
}

var fieldMessages = map[string]string{
	"Name":     "Please enter a product name",
	"Category": "Please select a category",
	"Price":    "Please enter a valid price",
}

type MutationService struct {
	backend     Backend
	store       blob.Store
	invalidator Invalidator
	metrics     *awspkg.MetricsClient
	validate    *validator.Validate
	imageOpts   images.Options
}

func NewMutationService(b Backend, store blob.Store, invalidator Invalidator, metrics *awspkg.MetricsClient) *MutationService {
	if store == nil {
		store = blob.InlineStore{}
	}
	return &MutationService{
		backend:     b,
		store:       store,
		invalidator: invalidator,
		metrics:     metrics,
		validate:    validator.New(),
		imageOpts:   images.DefaultOptions,
	}
}

func (s *MutationService) Create(ctx context.Context, token string, form Form) (models.Product, error) {
	if token == "" {
		return models.Product{}, adminRequired("create", nil)
	}
	input, err := s.input(ctx, form)
	if err != nil {
		return models.Product{}, err
	}
	p, err := s.backend.CreateProduct(ctx, token, input)
	if err != nil {
		return models.Product{}, remap("create", err)
	}
	s.done(ctx, awspkg.MetricProductsCreated, p.ID)
	return p, nil
}

func (s *MutationService) Update(ctx context.Context, token, id string, form Form) (models.Product, error) {
	if token == "" {
		return models.Product{}, adminRequired("update", nil)
	}
	input, err := s.input(ctx, form)
	if err != nil {
		return models.Product{}, err
	}
	p, err := s.backend.UpdateProduct(ctx, token, id, input)
	if err != nil {
		return models.Product{}, remap("update", err)
	}
	s.done(ctx, awspkg.MetricProductsUpdated, id)
	return p, nil
}

func (s *MutationService) Delete(ctx context.Context, token, id string) error {
	if token == "" {
		return adminRequired("delete", nil)
	}
	if err := s.backend.DeleteProduct(ctx, token, id); err != nil {
		return remap("delete", err)
	}
	s.done(ctx, awspkg.MetricProductsDeleted, id)
	return nil
}

// input validates the form and resolves its image. Nothing leaves the
// process until every field is valid.
func (s *MutationService) input(ctx context.Context, form Form) (models.ProductInput, error) {
	form.Name = strings.TrimSpace(form.Name)
	form.Category = strings.ToLower(strings.TrimSpace(form.Category))
	form.Price = strings.TrimSpace(form.Price)
	form.ImageURL = strings.TrimSpace(form.ImageURL)

	if err := s.validate.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return models.ProductInput{}, invalid(fieldMessages[verrs[0].Field()])
		}
		return models.ProductInput{}, invalid(err.Error())
	}
	if form.Upload == nil && form.ImageURL == "" {
		return models.ProductInput{}, invalid("Please select an image")
	}
	price, err := ParsePrice(form.Price)
	if err != nil {
		return models.ProductInput{}, invalid(fieldMessages["Price"])
	}

	ref := blob.FromURL(form.ImageURL)
	if form.Upload != nil {
		data, contentType, err := images.Process(form.Upload, s.imageOpts)
		if err != nil {
			if errors.Is(err, images.ErrInvalidType) || errors.Is(err, images.ErrTooLarge) || errors.Is(err, images.ErrDimensions) {
				return models.ProductInput{}, invalid(err.Error())
			}
			return models.ProductInput{}, apperrors.New(http.StatusUnprocessableEntity, images.ErrProcess.Error(), err).WithKind(KindValidation)
		}
		ref, err = s.store.Put(ctx, data, contentType)
		if err != nil {
			zap.L().Error("Failed to store product image", zap.Error(err))
			return models.ProductInput{}, apperrors.New(http.StatusBadGateway, "Failed to upload image", err)
		}
	}

	return models.ProductInput{
		Name:     form.Name,
		Category: models.Category(form.Category),
		Image:    ref,
		Price:    price,
	}, nil
}

func (s *MutationService) done(ctx context.Context, metric, id string) {
	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx); err != nil {
			zap.L().Error("Failed to invalidate catalog cache", zap.String("product_id", id), zap.Error(err))
		}
	}
	if s.metrics.IsEnabled() {
		_ = s.metrics.RecordCount(ctx, metric, nil)
	}
	zap.L().Info("Product mutation succeeded", zap.String("metric", metric), zap.String("product_id", id))
}

// ParsePrice reads a non-negative decimal and rounds it half away from zero.
func ParsePrice(s string) (int64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > math.MaxInt64/2 {
		return 0, fmt.Errorf("price out of range: %q", s)
	}
	return int64(math.Round(f)), nil
}

func invalid(msg string) error {
	return apperrors.New(http.StatusBadRequest, msg, nil).WithKind(KindValidation)
}

func adminRequired(op string, cause error) error {
	err := ErrAdminRequired
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrAdminRequired, cause)
	}
	return apperrors.New(http.StatusUnauthorized, fmt.Sprintf("You must be logged in as admin to %s products", op), err).WithKind(KindUnauthorized)
}

func remap(op string, err error) error {
	switch {
	case backend.IsUnauthorized(err) || strings.Contains(strings.ToLower(err.Error()), "unauthorized"):
		return adminRequired(op, err)
	case errors.Is(err, backend.ErrNotFound):
		return apperrors.New(http.StatusNotFound, "Product not found", err)
	}
	zap.L().Error("Product mutation failed", zap.String("op", op), zap.Error(err))
	if c := adminsession.Classify(err); c.Transient() {
		return apperrors.New(http.StatusServiceUnavailable, c.Message, err).WithKind(string(c.Kind))
	}
	return apperrors.New(http.StatusBadGateway, fmt.Sprintf("Failed to %s product", op), err)
}
