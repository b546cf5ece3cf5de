package routes

import (
	"net/http"

	"github.com/dailykart/dailykart/services/catalog-service/controllers"
	"github.com/dailykart/dailykart/services/catalog-service/middleware"
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, products *controllers.ProductController, admin *controllers.AdminController, tokens middleware.TokenValidator) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "catalog-service"})
	})

	productRoutes := r.Group("/products")
	{
		productRoutes.GET("", products.GetProducts)
		productRoutes.GET("/:id", products.GetProductByID)
		productRoutes.GET("/:id/image", products.GetProductImage)
	}

	protected := r.Group("/products")
	protected.Use(middleware.RequireAdmin(tokens))
	{
		protected.POST("", products.CreateProduct)
		protected.PUT("/:id", products.UpdateProduct)
		protected.DELETE("/:id", products.DeleteProduct)
	}

	adminRoutes := r.Group("/admin")
	{
		adminRoutes.POST("/login", admin.Login)
		adminRoutes.POST("/session/validate", admin.ValidateSession)
	}
}
