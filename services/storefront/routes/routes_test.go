package routes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	apperrors "github.com/dailykart/dailykart/services/common/errors"
	"github.com/dailykart/dailykart/services/storefront/adminsession"
	"github.com/dailykart/dailykart/services/storefront/backend"
	"github.com/dailykart/dailykart/services/storefront/blob"
	"github.com/dailykart/dailykart/services/storefront/catalog"
	"github.com/dailykart/dailykart/services/storefront/controllers"
	"github.com/dailykart/dailykart/services/storefront/models"
	"github.com/dailykart/dailykart/services/storefront/products"
	"github.com/dailykart/dailykart/services/storefront/session"
	"github.com/dailykart/dailykart/services/storefront/views"
	"github.com/dailykart/dailykart/services/storefront/whatsapp"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("dial tcp 127.0.0.1:8081: connect: connection refused")

// fakeBackend is an in-memory catalog-service.
type fakeBackend struct {
	mu       sync.Mutex
	products []models.Product
	down     bool
	nextID   int
}

const validToken = "admin-token"

func newFakeBackend() *fakeBackend {
	return &fakeBackend{products: []models.Product{
		{ID: "f1", Name: "Samosa", Category: models.CategoryFood, Price: 20, Image: blob.FromURL("https://cdn.example.com/f1.jpg")},
		{ID: "g1", Name: "Basmati Rice", Category: models.CategoryGrocery, Price: 350},
		{ID: "f2", Name: "Veg Thali", Category: models.CategoryFood, Price: 150},
	}}
}

func (f *fakeBackend) setDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

func (f *fakeBackend) ListAllProducts(context.Context) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil, errDown
	}
	return append([]models.Product(nil), f.products...), nil
}

func (f *fakeBackend) ListProductsByCategory(ctx context.Context, category models.Category) ([]models.Product, error) {
	all, err := f.ListAllProducts(ctx)
	return catalog.FilterByCategory(all, string(category)), err
}

func (f *fakeBackend) GetProduct(_ context.Context, id string) (models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return models.Product{}, errDown
	}
	for _, p := range f.products {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Product{}, &backend.StatusError{StatusCode: http.StatusNotFound, Body: `{"error":"product not found"}`}
}

func (f *fakeBackend) GetProductImage(ctx context.Context, id string) (blob.Ref, error) {
	p, err := f.GetProduct(ctx, id)
	return p.Image, err
}

func (f *fakeBackend) authorize(token string) error {
	if f.down {
		return errDown
	}
	if token != validToken {
		return &backend.StatusError{StatusCode: http.StatusUnauthorized, Body: `{"error":"Unauthorized"}`}
	}
	return nil
}

func (f *fakeBackend) CreateProduct(_ context.Context, token string, in models.ProductInput) (models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.authorize(token); err != nil {
		return models.Product{}, err
	}
	f.nextID++
	p := models.Product{ID: fmt.Sprintf("n%d", f.nextID), Name: in.Name, Category: in.Category, Image: in.Image, Price: in.Price}
	f.products = append(f.products, p)
	return p, nil
}

func (f *fakeBackend) UpdateProduct(_ context.Context, token, id string, in models.ProductInput) (models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.authorize(token); err != nil {
		return models.Product{}, err
	}
	for i, p := range f.products {
		if p.ID == id {
			f.products[i] = models.Product{ID: id, Name: in.Name, Category: in.Category, Image: in.Image, Price: in.Price}
			return f.products[i], nil
		}
	}
	return models.Product{}, &backend.StatusError{StatusCode: http.StatusNotFound}
}

func (f *fakeBackend) DeleteProduct(_ context.Context, token, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.authorize(token); err != nil {
		return err
	}
	for i, p := range f.products {
		if p.ID == id {
			f.products = append(f.products[:i], f.products[i+1:]...)
			return nil
		}
	}
	return &backend.StatusError{StatusCode: http.StatusNotFound}
}

func (f *fakeBackend) LoginAdmin(_ context.Context, username, password string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return "", errDown
	}
	if username == "admin" && password == "secret" {
		return validToken, nil
	}
	return "", &backend.StatusError{StatusCode: http.StatusUnauthorized, Body: `{"error":"Invalid credentials"}`}
}

func (f *fakeBackend) IsAdminSessionValid(_ context.Context, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return false, errDown
	}
	return token == validToken, nil
}

func newRouter(t *testing.T, fb *fakeBackend) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cat := catalog.NewService(fb, catalog.NewMemoryCache(time.Minute), catalog.WithRetry(1, time.Millisecond))
	sessions := adminsession.NewManager(fb, cat, time.Nanosecond)
	mutations := products.NewMutationService(fb, blob.InlineStore{}, cat, nil)
	storeCtrl := controllers.NewStorefrontController(cat, whatsapp.NewBuilder(""), nil)
	adminCtrl := controllers.NewAdminController(sessions, cat, mutations, nil)
	apiCtrl := controllers.NewAPIController(storeCtrl, adminCtrl)

	tmpl, err := views.Templates()
	require.NoError(t, err)

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.Use(session.Middleware(session.NewMemoryStorage(), session.CookieOptions{}), apperrors.ErrorMiddleware())
	RegisterRoutes(r, sessions, storeCtrl, adminCtrl, apiCtrl)
	return r
}

// browser replays the session cookie like a real client would.
type browser struct {
	t       *testing.T
	r       *gin.Engine
	cookies []*http.Cookie
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	b.r.ServeHTTP(w, req)
	if set := w.Result().Cookies(); len(set) > 0 {
		b.cookies = set
	}
	return w
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) sendJSON(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return b.do(req)
}

func newBrowser(t *testing.T, r *gin.Engine) *browser {
	return &browser{t: t, r: r}
}

func TestHealth(t *testing.T) {
	b := newBrowser(t, newRouter(t, newFakeBackend()))

	w := b.get("/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","service":"storefront"}`, w.Body.String())
}

func TestHomeShowsBothSections(t *testing.T) {
	b := newBrowser(t, newRouter(t, newFakeBackend()))

	w := b.get("/")

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Samosa")
	assert.Contains(t, body, "Basmati Rice")
	assert.Contains(t, body, "Veg Thali")
	assert.NotEmpty(t, b.cookies)
}

func TestHomeShowsConnectivityError(t *testing.T) {
	fb := newFakeBackend()
	fb.setDown(true)
	b := newBrowser(t, newRouter(t, fb))

	w := b.get("/")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), catalog.MsgUnavailable)
}

func TestProductsCategoryFilter(t *testing.T) {
	b := newBrowser(t, newRouter(t, newFakeBackend()))

	w := b.get("/products?category=grocery")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Basmati Rice")
	assert.NotContains(t, w.Body.String(), "Samosa")
}

func TestProductDetailNotFound(t *testing.T) {
	b := newBrowser(t, newRouter(t, newFakeBackend()))

	w := b.get("/products/missing")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductOrderRedirectsToWhatsApp(t *testing.T) {
	b := newBrowser(t, newRouter(t, newFakeBackend()))

	w := b.get("/products/f1/order")

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, whatsapp.NewBuilder("").ProductOrderURL("Samosa", 20), w.Header().Get("Location"))
}

func TestCartFlow(t *testing.T) {
	b := newBrowser(t, newRouter(t, newFakeBackend()))

	w := b.postForm("/cart/items", url.Values{"productId": {"f1"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/cart", w.Header().Get("Location"))
	b.postForm("/cart/items", url.Values{"productId": {"f1"}})
	b.postForm("/cart/items", url.Values{"productId": {"g1"}})

	w = b.get("/cart")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Added to cart")
	assert.Contains(t, w.Body.String(), "Subtotal: ₹390")

	b.postForm("/cart/items/f1/decrement", nil)
	b.postForm("/cart/items/f1/decrement", nil)
	b.postForm("/cart/items/g1/quantity", url.Values{"quantity": {"0"}})
	b.postForm("/cart/items/g1/increment", nil)

	w = b.get("/api/cart")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"items":[
			{"id":"f1","name":"Samosa","price":20,"imageUrl":"https://cdn.example.com/f1.jpg","quantity":1},
			{"id":"g1","name":"Basmati Rice","price":350,"imageUrl":"","quantity":2}
		],
		"itemCount":3,
		"subtotal":720
	}`, w.Body.String())

	b.postForm("/cart/items/f1/remove", nil)
	b.postForm("/cart/clear", nil)
	w = b.get("/api/cart")
	assert.JSONEq(t, `{"items":[],"itemCount":0,"subtotal":0}`, w.Body.String())
}

func TestAddUnknownProductFlashesError(t *testing.T) {
	b := newBrowser(t, newRouter(t, newFakeBackend()))

	w := b.postForm("/cart/items", url.Values{"productId": {"nope"}, "next": {"//evil.example.com"}})

	assert.Equal(t, "/cart", w.Header().Get("Location"))
	assert.Contains(t, b.get("/cart").Body.String(), "Product not found")
}

func TestCheckout(t *testing.T) {
	b := newBrowser(t, newRouter(t, newFakeBackend()))

	// Empty cart goes back to the cart page.
	w := b.get("/checkout")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/cart", w.Header().Get("Location"))

	b.postForm("/cart/items", url.Values{"productId": {"f2"}})
	w = b.get("/checkout")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Veg Thali")

	w = b.postForm("/checkout", url.Values{"customerName": {"Asha"}, "mobileNumber": {" "}, "deliveryAddress": {"Agra"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Please enter your mobile number")
	assert.Contains(t, w.Body.String(), `value="Asha"`)

	w = b.postForm("/checkout", url.Values{"customerName": {"Asha"}, "mobileNumber": {"98765"}, "deliveryAddress": {"Agra"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	location := w.Header().Get("Location")
	assert.True(t, strings.HasPrefix(location, "https://wa.me/919897743469?text="), location)
	assert.Contains(t, location, "Veg%20Thali")

	w = b.get("/api/cart")
	assert.JSONEq(t, `{"items":[],"itemCount":0,"subtotal":0}`, w.Body.String())
}

func TestAPICheckout(t *testing.T) {
	b := newBrowser(t, newRouter(t, newFakeBackend()))

	w := b.sendJSON(http.MethodPost, "/api/checkout", `{"customerName":"Asha","mobileNumber":"1","deliveryAddress":"Agra"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	b.sendJSON(http.MethodPost, "/api/cart/items", `{"productId":"g1"}`)
	w = b.sendJSON(http.MethodPost, "/api/checkout", `{"customerName":"","mobileNumber":"1","deliveryAddress":"Agra"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Please enter your name")

	w = b.sendJSON(http.MethodPost, "/api/checkout", `{"customerName":"Asha","mobileNumber":"1","deliveryAddress":"Agra"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"url":"https://wa.me/919897743469?text=`)
}

func TestAPICartQuantityIsCapped(t *testing.T) {
	// Arrange
	b := newBrowser(t, newRouter(t, newFakeBackend()))
	b.sendJSON(http.MethodPost, "/api/cart/items", `{"productId":"g1"}`)

	// Act
	w := b.sendJSON(http.MethodPatch, "/api/cart/items/g1", `{"quantity":900000000000000000}`)

	// Assert
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"itemCount":999`)
	assert.Contains(t, w.Body.String(), `"subtotal":349650`)

	w = b.sendJSON(http.MethodPost, "/api/checkout", `{"customerName":"Asha","mobileNumber":"1","deliveryAddress":"Agra"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "349650")
}

func TestAPIProductsByCategory(t *testing.T) {
	b := newBrowser(t, newRouter(t, newFakeBackend()))

	w := b.get("/api/products?category=food")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Samosa")
	assert.NotContains(t, w.Body.String(), "Basmati")

	w = b.get("/api/products/f1/image")
	assert.JSONEq(t, `{"url":"https://cdn.example.com/f1.jpg"}`, w.Body.String())
}

func TestDashboardRequiresLogin(t *testing.T) {
	b := newBrowser(t, newRouter(t, newFakeBackend()))

	w := b.get("/admin/dashboard")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/admin/login", w.Header().Get("Location"))

	w = b.get("/admin")
	assert.Equal(t, "/admin/login", w.Header().Get("Location"))

	w = b.sendJSON(http.MethodPost, "/api/admin/products", `{"name":"X","category":"food","price":1,"imageUrl":"https://x/y.jpg"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminLogin(t *testing.T) {
	b := newBrowser(t, newRouter(t, newFakeBackend()))

	w := b.postForm("/admin/login", url.Values{"username": {"admin"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid username or password")

	w = b.postForm("/admin/login", url.Values{"username": {""}, "password": {""}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = b.postForm("/admin/login", url.Values{"username": {" admin "}, "password": {"secret"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/admin/dashboard", w.Header().Get("Location"))

	w = b.get("/admin/dashboard")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Login successful")
	assert.Contains(t, w.Body.String(), "Veg Thali")

	w = b.postForm("/admin/logout", nil)
	assert.Equal(t, "/admin/login", w.Header().Get("Location"))
	w = b.get("/admin/dashboard")
	assert.Equal(t, http.StatusSeeOther, w.Code)
}

func TestConnectivityIssueKeepsAdminOnDashboard(t *testing.T) {
	fb := newFakeBackend()
	b := newBrowser(t, newRouter(t, fb))
	b.postForm("/admin/login", url.Values{"username": {"admin"}, "password": {"secret"}})

	fb.setDown(true)
	w := b.get("/admin/dashboard")

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, adminsession.MsgConnectivityIssue)
	assert.Contains(t, body, catalog.MsgUnavailable)

	fb.setDown(false)
	w = b.get("/api/admin/session")
	assert.Contains(t, w.Body.String(), `"state":"authenticated"`)
}

func TestLoginDuringOutage(t *testing.T) {
	fb := newFakeBackend()
	fb.setDown(true)
	b := newBrowser(t, newRouter(t, fb))

	w := b.postForm("/admin/login", url.Values{"username": {"admin"}, "password": {"secret"}})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), adminsession.MsgConnectivityIssue)
}

func TestAdminProductCRUD(t *testing.T) {
	fb := newFakeBackend()
	b := newBrowser(t, newRouter(t, fb))
	w := b.sendJSON(http.MethodPost, "/api/admin/login", `{"username":"admin","password":"secret"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":true`)

	// Warm the cache so invalidation is observable.
	b.get("/api/products")

	w = b.sendJSON(http.MethodPost, "/api/admin/products", `{"name":"Masala Dosa","category":"food","price":89.5,"imageUrl":"https://cdn.example.com/dosa.jpg"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), products.MsgCreated)
	assert.Contains(t, w.Body.String(), `"price":90`)

	w = b.get("/api/products")
	assert.Contains(t, w.Body.String(), "Masala Dosa")

	w = b.sendJSON(http.MethodPost, "/api/admin/products", `{"name":"No Image","category":"food","price":10}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Please select an image")

	w = b.postForm("/admin/products/f1", url.Values{
		"name": {"Samosa (2 pcs)"}, "category": {"food"}, "price": {"25"}, "imageUrl": {"https://cdn.example.com/f1.jpg"},
	})
	assert.Equal(t, "/admin/dashboard", w.Header().Get("Location"))
	w = b.get("/admin/dashboard")
	assert.Contains(t, w.Body.String(), products.MsgUpdated)
	assert.Contains(t, w.Body.String(), "Samosa (2 pcs)")

	w = b.postForm("/admin/products/g1/delete", nil)
	assert.Equal(t, "/admin/dashboard", w.Header().Get("Location"))
	w = b.get("/admin/dashboard")
	assert.Contains(t, w.Body.String(), products.MsgDeleted)
	assert.NotContains(t, w.Body.String(), "Basmati Rice")

	w = b.sendJSON(http.MethodDelete, "/api/admin/products/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
