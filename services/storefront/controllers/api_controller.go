package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	awspkg "github.com/dailykart/dailykart/pkg/aws"
	apperrors "github.com/dailykart/dailykart/services/common/errors"
	"github.com/dailykart/dailykart/services/storefront/adminsession"
	"github.com/dailykart/dailykart/services/storefront/cart"
	"github.com/dailykart/dailykart/services/storefront/catalog"
	"github.com/dailykart/dailykart/services/storefront/middleware"
	"github.com/dailykart/dailykart/services/storefront/models"
	"github.com/dailykart/dailykart/services/storefront/products"
	"github.com/dailykart/dailykart/services/storefront/session"
	"github.com/dailykart/dailykart/services/storefront/whatsapp"
	"github.com/gin-gonic/gin"
)

// APIController is the JSON mirror of the HTML pages. Errors are attached
// with c.Error and rendered by errors.ErrorMiddleware.
type APIController struct {
	Store *StorefrontController
	Admin *AdminController
}

func NewAPIController(store *StorefrontController, admin *AdminController) *APIController {
	return &APIController{Store: store, Admin: admin}
}

type cartResponse struct {
	Items     []models.CartItem `json:"items"`
	ItemCount int               `json:"itemCount"`
	Subtotal  int64             `json:"subtotal"`
}

func cartJSON(s *cart.Store) cartResponse {
	return cartResponse{Items: s.Items(), ItemCount: s.ItemCount(), Subtotal: s.Subtotal()}
}

// ListProducts answers ?category=food|grocery from the backend's category
// query and everything else from the full catalog.
func (api *APIController) ListProducts(c *gin.Context) {
	ctx := c.Request.Context()
	filter := strings.ToLower(strings.TrimSpace(c.DefaultQuery("category", catalog.FilterAll)))

	var (
		list []models.Product
		err  error
	)
	if category, ok := models.ParseCategory(filter); ok {
		list, err = api.Store.Catalog.ListByCategory(ctx, category)
	} else {
		list, err = api.Store.Catalog.ListProducts(ctx)
		list = catalog.FilterByCategory(list, filter)
	}
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": list})
}

func (api *APIController) GetProduct(c *gin.Context) {
	p, err := api.Store.Catalog.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (api *APIController) ProductImage(c *gin.Context) {
	ref, err := api.Store.Catalog.ProductImage(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": ref.DirectURL()})
}

func (api *APIController) GetCart(c *gin.Context) {
	c.JSON(http.StatusOK, cartJSON(cartFor(c)))
}

type addItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

func (api *APIController) AddItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(invalidRequest(err))
		return
	}
	p, err := api.Store.Catalog.GetProduct(c.Request.Context(), req.ProductID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	store := cartFor(c)
	store.AddItem(c.Request.Context(), p.CartItem())
	c.JSON(http.StatusOK, cartJSON(store))
}

type updateItemRequest struct {
	Quantity *int   `json:"quantity"`
	Op       string `json:"op" binding:"omitempty,oneof=increment decrement"`
}

// UpdateItem sets an exact quantity or steps it with op.
func (api *APIController) UpdateItem(c *gin.Context) {
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(invalidRequest(err))
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")
	store := cartFor(c)
	switch {
	case req.Op == "increment":
		store.IncrementQuantity(ctx, id)
	case req.Op == "decrement":
		store.DecrementQuantity(ctx, id)
	case req.Quantity != nil:
		store.UpdateQuantity(ctx, id, *req.Quantity)
	default:
		_ = c.Error(invalidMessage("quantity or op is required"))
		return
	}
	c.JSON(http.StatusOK, cartJSON(store))
}

func (api *APIController) RemoveItem(c *gin.Context) {
	store := cartFor(c)
	store.RemoveItem(c.Request.Context(), c.Param("id"))
	c.JSON(http.StatusOK, cartJSON(store))
}

func (api *APIController) ClearCart(c *gin.Context) {
	store := cartFor(c)
	store.ClearCart(c.Request.Context())
	c.JSON(http.StatusOK, cartJSON(store))
}

func (api *APIController) Checkout(c *gin.Context) {
	var customer whatsapp.Customer
	if err := c.ShouldBindJSON(&customer); err != nil {
		_ = c.Error(invalidRequest(err))
		return
	}
	store := cartFor(c)
	if store.IsEmpty() {
		_ = c.Error(invalidMessage(errEmptyCart.Error()))
		return
	}
	if err := customer.Validate(); err != nil {
		_ = c.Error(apperrors.New(http.StatusBadRequest, err.Error(), err).WithKind(products.KindValidation))
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": api.Store.placeOrder(c, store, customer.Trimmed())})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	State               adminsession.State `json:"state"`
	Fetched             bool               `json:"fetched"`
	Authenticated       bool               `json:"authenticated"`
	ShouldRedirect      bool               `json:"shouldRedirectToLogin"`
	ConnectivityWarning string             `json:"connectivityWarning,omitempty"`
}

func sessionJSON(status adminsession.Status) sessionResponse {
	return sessionResponse{
		State:               status.State,
		Fetched:             status.Fetched,
		Authenticated:       status.IsAuthenticated(),
		ShouldRedirect:      status.ShouldRedirectToLogin(),
		ConnectivityWarning: connectivityWarning(status),
	}
}

func (api *APIController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(invalidRequest(err))
		return
	}
	admin := api.Admin.Sessions.For(session.FromContext(c))
	if _, err := admin.Login(c.Request.Context(), req.Username, req.Password); err != nil {
		api.Admin.record(c, awspkg.MetricAdminLoginFailures)
		code := loginStatusCode(err)
		c.AbortWithStatusJSON(code, apperrors.New(code, messageOf(err), err).WithKind(loginKind(err)))
		return
	}
	api.Admin.record(c, awspkg.MetricAdminLogins)
	c.JSON(http.StatusOK, sessionJSON(admin.Status()))
}

func (api *APIController) Session(c *gin.Context) {
	status := api.Admin.Sessions.For(session.FromContext(c)).ValidateSession(c.Request.Context())
	c.JSON(http.StatusOK, sessionJSON(status))
}

func (api *APIController) Logout(c *gin.Context) {
	admin := api.Admin.Sessions.For(session.FromContext(c))
	admin.Logout(c.Request.Context())
	c.JSON(http.StatusOK, sessionJSON(admin.Status()))
}

type productRequest struct {
	Name     string      `json:"name"`
	Category string      `json:"category"`
	Price    json.Number `json:"price"`
	ImageURL string      `json:"imageUrl"`
}

// bindAPIProductForm accepts JSON or the multipart form used by the HTML dialog.
func bindAPIProductForm(c *gin.Context) (products.Form, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		return bindProductForm(c)
	}
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return products.Form{}, invalidRequest(err)
	}
	return products.Form{Name: req.Name, Category: req.Category, Price: req.Price.String(), ImageURL: req.ImageURL}, nil
}

func (api *APIController) CreateProduct(c *gin.Context) {
	admin, _ := middleware.Admin(c)
	ctx := c.Request.Context()
	form, err := bindAPIProductForm(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	token, _ := admin.Token(ctx)
	p, err := api.Admin.Mutations.Create(ctx, token, form)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": products.MsgCreated, "product": p})
}

func (api *APIController) UpdateProduct(c *gin.Context) {
	admin, _ := middleware.Admin(c)
	ctx := c.Request.Context()
	form, err := bindAPIProductForm(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	token, _ := admin.Token(ctx)
	p, err := api.Admin.Mutations.Update(ctx, token, c.Param("id"), form)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": products.MsgUpdated, "product": p})
}

func (api *APIController) DeleteProduct(c *gin.Context) {
	admin, _ := middleware.Admin(c)
	ctx := c.Request.Context()
	token, _ := admin.Token(ctx)
	if err := api.Admin.Mutations.Delete(ctx, token, c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": products.MsgDeleted})
}

func loginKind(err error) string {
	var classified *adminsession.Error
	if errors.As(err, &classified) {
		return string(classified.Kind)
	}
	return products.KindValidation
}
