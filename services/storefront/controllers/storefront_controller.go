package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	awspkg "github.com/dailykart/dailykart/pkg/aws"
	"github.com/dailykart/dailykart/services/common/logger"
	"github.com/dailykart/dailykart/services/storefront/catalog"
	"github.com/dailykart/dailykart/services/storefront/models"
	"github.com/dailykart/dailykart/services/storefront/whatsapp"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StorefrontController serves the shopper pages: catalog, cart and checkout.
type StorefrontController struct {
	Catalog  *catalog.Service
	WhatsApp whatsapp.Builder
	Metrics  *awspkg.MetricsClient
}

func NewStorefrontController(cat *catalog.Service, wa whatsapp.Builder, metrics *awspkg.MetricsClient) *StorefrontController {
	return &StorefrontController{Catalog: cat, WhatsApp: wa, Metrics: metrics}
}

func (sc *StorefrontController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "storefront"})
}

// Home renders the food and grocery sections.
func (sc *StorefrontController) Home(c *gin.Context) {
	data := gin.H{"Title": "Home"}
	products, err := sc.Catalog.ListProducts(c.Request.Context())
	if err != nil {
		data["Error"] = messageOf(err)
	}
	data["Food"], data["Grocery"] = catalog.Sections(products)
	render(c, http.StatusOK, "home.html", data)
}

// Products renders the catalog filtered by ?category=, "all" by default.
func (sc *StorefrontController) Products(c *gin.Context) {
	filter := strings.ToLower(strings.TrimSpace(c.DefaultQuery("category", catalog.FilterAll)))
	data := gin.H{"Title": "Products", "Category": filter}

	products, err := sc.Catalog.ListProducts(c.Request.Context())
	if err != nil {
		data["Error"] = messageOf(err)
	}
	data["Products"] = catalog.FilterByCategory(products, filter)
	render(c, http.StatusOK, "products.html", data)
}

func (sc *StorefrontController) ProductDetail(c *gin.Context) {
	p, err := sc.Catalog.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		renderError(c, err)
		return
	}
	render(c, http.StatusOK, "product.html", gin.H{"Title": p.Name, "Product": p})
}

// ProductOrder sends the shopper to WhatsApp with a single product enquiry.
func (sc *StorefrontController) ProductOrder(c *gin.Context) {
	p, err := sc.Catalog.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		renderError(c, err)
		return
	}
	redirect(c, sc.WhatsApp.ProductOrderURL(p.Name, p.Price))
}

func (sc *StorefrontController) Cart(c *gin.Context) {
	store := cartFor(c)
	render(c, http.StatusOK, "cart.html", gin.H{
		"Title":     "Cart",
		"Items":     store.Items(),
		"Subtotal":  store.Subtotal(),
		"CartCount": store.ItemCount(),
	})
}

// AddToCart snapshots the product as the backend currently reports it.
func (sc *StorefrontController) AddToCart(c *gin.Context) {
	next := localPath(c.PostForm("next"), "/cart")
	p, err := sc.Catalog.GetProduct(c.Request.Context(), c.PostForm("productId"))
	if err != nil {
		flash(c, flashError, messageOf(err))
		redirect(c, next)
		return
	}
	cartFor(c).AddItem(c.Request.Context(), p.CartItem())
	flash(c, flashSuccess, "Added to cart")
	redirect(c, next)
}

func (sc *StorefrontController) IncrementItem(c *gin.Context) {
	cartFor(c).IncrementQuantity(c.Request.Context(), c.Param("id"))
	redirect(c, "/cart")
}

func (sc *StorefrontController) DecrementItem(c *gin.Context) {
	cartFor(c).DecrementQuantity(c.Request.Context(), c.Param("id"))
	redirect(c, "/cart")
}

func (sc *StorefrontController) RemoveItem(c *gin.Context) {
	cartFor(c).RemoveItem(c.Request.Context(), c.Param("id"))
	flash(c, flashSuccess, "Removed from cart")
	redirect(c, "/cart")
}

// UpdateQuantity ignores values that are not whole numbers of at least 1.
func (sc *StorefrontController) UpdateQuantity(c *gin.Context) {
	if n, err := strconv.Atoi(strings.TrimSpace(c.PostForm("quantity"))); err == nil {
		cartFor(c).UpdateQuantity(c.Request.Context(), c.Param("id"), n)
	}
	redirect(c, "/cart")
}

func (sc *StorefrontController) ClearCart(c *gin.Context) {
	cartFor(c).ClearCart(c.Request.Context())
	flash(c, flashSuccess, "Cart cleared")
	redirect(c, "/cart")
}

func (sc *StorefrontController) CheckoutPage(c *gin.Context) {
	store := cartFor(c)
	if store.IsEmpty() {
		redirect(c, "/cart")
		return
	}
	render(c, http.StatusOK, "checkout.html", gin.H{
		"Title":     "Checkout",
		"Items":     store.Items(),
		"Subtotal":  store.Subtotal(),
		"CartCount": store.ItemCount(),
		"Customer":  whatsapp.Customer{},
	})
}

// Checkout validates the delivery details, empties the cart and hands the
// order to WhatsApp. No order is recorded anywhere.
func (sc *StorefrontController) Checkout(c *gin.Context) {
	store := cartFor(c)
	if store.IsEmpty() {
		redirect(c, "/cart")
		return
	}

	customer := whatsapp.Customer{
		Name:    c.PostForm("customerName"),
		Mobile:  c.PostForm("mobileNumber"),
		Address: c.PostForm("deliveryAddress"),
	}
	if err := customer.Validate(); err != nil {
		render(c, http.StatusBadRequest, "checkout.html", gin.H{
			"Title":     "Checkout",
			"Items":     store.Items(),
			"Subtotal":  store.Subtotal(),
			"CartCount": store.ItemCount(),
			"Customer":  customer,
			"Error":     err.Error(),
		})
		return
	}

	link := sc.placeOrder(c, store, customer.Trimmed())
	flash(c, flashSuccess, "WhatsApp opened! Please send the message to confirm your order.")
	redirect(c, link)
}

type orderCart interface {
	Items() []models.CartItem
	Subtotal() int64
	ClearCart(ctx context.Context)
}

func (sc *StorefrontController) placeOrder(c *gin.Context, store orderCart, customer whatsapp.Customer) string {
	ctx := c.Request.Context()
	link := sc.WhatsApp.CartOrderURL(customer, store.Items())
	logger.FromContext(c).Info("Checkout handed to WhatsApp",
		zap.Int("items", len(store.Items())),
		zap.Int64("total", store.Subtotal()),
	)
	store.ClearCart(ctx)
	if sc.Metrics.IsEnabled() {
		_ = sc.Metrics.RecordCount(ctx, awspkg.MetricCartCheckouts, nil)
	}
	return link
}

var errEmptyCart = errors.New("Your cart is empty")
