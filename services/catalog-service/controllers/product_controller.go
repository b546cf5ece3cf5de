package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/dailykart/dailykart/services/catalog-service/models"
	"github.com/dailykart/dailykart/services/catalog-service/services"
	"github.com/dailykart/dailykart/services/common/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ProductServicer is the product use-case layer the controller depends on.
type ProductServicer interface {
	List(ctx context.Context, category string) ([]models.Product, error)
	Get(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, in models.ProductInput) (*models.Product, error)
	Update(ctx context.Context, id string, in models.ProductInput) (*models.Product, error)
	Delete(ctx context.Context, id string) error
}

type ProductController struct {
	service ProductServicer
}

func NewProductController(service ProductServicer) *ProductController {
	return &ProductController{service: service}
}

// GetProducts lists the catalog, optionally filtered with ?category=.
func (pc *ProductController) GetProducts(c *gin.Context) {
	products, err := pc.service.List(c.Request.Context(), c.Query("category"))
	if err != nil {
		handleServiceError(c, err, "Failed to fetch products")
		return
	}
	c.JSON(http.StatusOK, products)
}

func (pc *ProductController) GetProductByID(c *gin.Context) {
	p, err := pc.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err, "Failed to fetch product")
		return
	}
	c.JSON(http.StatusOK, p)
}

func (pc *ProductController) GetProductImage(c *gin.Context) {
	p, err := pc.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err, "Failed to fetch product")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": p.Image})
}

func (pc *ProductController) CreateProduct(c *gin.Context) {
	var in models.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}
	p, err := pc.service.Create(c.Request.Context(), in)
	if err != nil {
		handleServiceError(c, err, "Failed to create product")
		return
	}
	logger.FromContext(c).Info("Admin created product", zap.String("admin", adminName(c)), zap.String("product_id", p.ID))
	c.JSON(http.StatusCreated, p)
}

func (pc *ProductController) UpdateProduct(c *gin.Context) {
	var in models.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}
	p, err := pc.service.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		handleServiceError(c, err, "Failed to update product")
		return
	}
	c.JSON(http.StatusOK, p)
}

func (pc *ProductController) DeleteProduct(c *gin.Context) {
	if err := pc.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleServiceError(c, err, "Failed to delete product")
		return
	}
	c.Status(http.StatusNoContent)
}

// handleServiceError maps service errors to HTTP responses.
func handleServiceError(c *gin.Context, err error, fallback string) {
	var verr *services.ValidationError
	switch {
	case errors.Is(err, services.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message})
	default:
		logger.FromContext(c).Error("Service error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

func adminName(c *gin.Context) string {
	return c.GetString(AdminContextKey)
}
