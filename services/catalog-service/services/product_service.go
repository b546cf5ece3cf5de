package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dailykart/dailykart/services/catalog-service/models"
	"github.com/dailykart/dailykart/services/catalog-service/repository"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrProductNotFound = errors.New("product not found")

// ValidationError reports the first invalid field of a product input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

var validationMessages = map[string]string{
	"Name":     "name is required",
	"Category": "category must be food or grocery",
	"Image":    "image is required",
	"Price":    "price must not be negative",
}

type ProductService struct {
	repo     repository.ProductRepo
	validate *validator.Validate
	now      func() time.Time
	newID    func() string
}

func NewProductService(repo repository.ProductRepo) *ProductService {
	return &ProductService{
		repo:     repo,
		validate: validator.New(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// List returns the catalog in creation order, optionally narrowed to one category.
func (s *ProductService) List(ctx context.Context, category string) ([]models.Product, error) {
	c := models.Category(strings.ToLower(strings.TrimSpace(category)))
	if c != "" && !c.Valid() {
		return nil, &ValidationError{Field: "Category", Message: validationMessages["Category"]}
	}
	return s.repo.FindAll(ctx, c)
}

func (s *ProductService) Get(ctx context.Context, id string) (*models.Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	return p, err
}

func (s *ProductService) Create(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	in, err := s.check(in)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	p := &models.Product{
		ID:        s.newID(),
		Name:      in.Name,
		Category:  in.Category,
		Image:     in.Image,
		Price:     in.Price,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	zap.L().Info("Product created", zap.String("product_id", p.ID), zap.String("category", string(p.Category)))
	return p, nil
}

// Update replaces every writable field; the id and creation time are kept.
func (s *ProductService) Update(ctx context.Context, id string, in models.ProductInput) (*models.Product, error) {
	in, err := s.check(in)
	if err != nil {
		return nil, err
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Name, p.Category, p.Image, p.Price = in.Name, in.Category, in.Image, in.Price
	p.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("update product: %w", err)
	}
	zap.L().Info("Product updated", zap.String("product_id", p.ID))
	return p, nil
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("delete product: %w", err)
	}
	zap.L().Info("Product deleted", zap.String("product_id", id))
	return nil
}

// SeedIfEmpty inserts inputs when the store holds no products. Invalid seed
// entries are skipped with a warning. Returns the number inserted.
func (s *ProductService) SeedIfEmpty(ctx context.Context, inputs []models.ProductInput) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	if n > 0 {
		return 0, nil
	}

	base := s.now().UTC()
	products := make([]models.Product, 0, len(inputs))
	for i, raw := range inputs {
		in, err := s.check(raw)
		if err != nil {
			zap.L().Warn("Skipping invalid seed product", zap.String("name", raw.Name), zap.Error(err))
			continue
		}
		// Distinct timestamps keep the seed order under creation-time sorting.
		created := base.Add(time.Duration(i) * time.Millisecond)
		products = append(products, models.Product{
			ID:        s.newID(),
			Name:      in.Name,
			Category:  in.Category,
			Image:     in.Image,
			Price:     in.Price,
			CreatedAt: created,
			UpdatedAt: created,
		})
	}
	if len(products) == 0 {
		return 0, nil
	}
	if err := s.repo.CreateMany(ctx, products); err != nil {
		return 0, fmt.Errorf("seed products: %w", err)
	}
	return len(products), nil
}

func (s *ProductService) check(in models.ProductInput) (models.ProductInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Image = strings.TrimSpace(in.Image)
	in.Category = models.Category(strings.ToLower(strings.TrimSpace(string(in.Category))))

	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			field := verrs[0].Field()
			return in, &ValidationError{Field: field, Message: validationMessages[field]}
		}
		return in, err
	}
	return in, nil
}
