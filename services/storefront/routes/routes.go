package routes

import (
	"net/http"

	"github.com/dailykart/dailykart/services/storefront/adminsession"
	"github.com/dailykart/dailykart/services/storefront/controllers"
	"github.com/dailykart/dailykart/services/storefront/middleware"
	"github.com/dailykart/dailykart/services/storefront/views"
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, sessions *adminsession.Manager, store *controllers.StorefrontController, admin *controllers.AdminController, api *controllers.APIController) {
	r.GET("/health", store.Health)
	r.StaticFS("/static", http.FS(views.Static()))

	// Shopper pages
	r.GET("/", store.Home)
	r.GET("/products", store.Products)
	r.GET("/products/:id", store.ProductDetail)
	r.GET("/products/:id/order", store.ProductOrder)

	r.GET("/cart", store.Cart)
	r.POST("/cart/items", store.AddToCart)
	r.POST("/cart/items/:id/increment", store.IncrementItem)
	r.POST("/cart/items/:id/decrement", store.DecrementItem)
	r.POST("/cart/items/:id/remove", store.RemoveItem)
	r.POST("/cart/items/:id/quantity", store.UpdateQuantity)
	r.POST("/cart/clear", store.ClearCart)

	r.GET("/checkout", store.CheckoutPage)
	r.POST("/checkout", store.Checkout)

	// Admin pages
	r.GET("/admin", admin.Index)
	r.GET("/admin/login", admin.LoginPage)
	r.POST("/admin/login", admin.Login)
	r.POST("/admin/logout", admin.Logout)

	guarded := r.Group("/admin")
	guarded.Use(middleware.AdminGuard(sessions, middleware.RedirectToLogin))
	{
		guarded.GET("/dashboard", admin.Dashboard)
		guarded.POST("/products", admin.CreateProduct)
		guarded.POST("/products/:id", admin.UpdateProduct)
		guarded.POST("/products/:id/delete", admin.DeleteProduct)
	}

	// JSON mirror
	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/products", api.ListProducts)
		apiGroup.GET("/products/:id", api.GetProduct)
		apiGroup.GET("/products/:id/image", api.ProductImage)

		apiGroup.GET("/cart", api.GetCart)
		apiGroup.POST("/cart/items", api.AddItem)
		apiGroup.PATCH("/cart/items/:id", api.UpdateItem)
		apiGroup.DELETE("/cart/items/:id", api.RemoveItem)
		apiGroup.DELETE("/cart", api.ClearCart)
		apiGroup.POST("/checkout", api.Checkout)

		apiGroup.POST("/admin/login", api.Login)
		apiGroup.GET("/admin/session", api.Session)
		apiGroup.POST("/admin/logout", api.Logout)
	}

	apiAdmin := apiGroup.Group("/admin/products")
	apiAdmin.Use(middleware.AdminGuard(sessions, middleware.RespondJSON))
	{
		apiAdmin.POST("", api.CreateProduct)
		apiAdmin.PUT("/:id", api.UpdateProduct)
		apiAdmin.DELETE("/:id", api.DeleteProduct)
	}
}
