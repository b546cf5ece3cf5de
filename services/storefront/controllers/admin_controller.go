package controllers

import (
	"errors"
	"net/http"

	awspkg "github.com/dailykart/dailykart/pkg/aws"
	"github.com/dailykart/dailykart/services/storefront/adminsession"
	"github.com/dailykart/dailykart/services/storefront/catalog"
	"github.com/dailykart/dailykart/services/storefront/images"
	"github.com/dailykart/dailykart/services/storefront/middleware"
	"github.com/dailykart/dailykart/services/storefront/products"
	"github.com/dailykart/dailykart/services/storefront/session"
	"github.com/gin-gonic/gin"
)

// AdminController serves the admin login and product management pages.
type AdminController struct {
	Sessions  *adminsession.Manager
	Catalog   *catalog.Service
	Mutations *products.MutationService
	Metrics   *awspkg.MetricsClient
}

func NewAdminController(sessions *adminsession.Manager, cat *catalog.Service, mutations *products.MutationService, metrics *awspkg.MetricsClient) *AdminController {
	return &AdminController{Sessions: sessions, Catalog: cat, Mutations: mutations, Metrics: metrics}
}

// Index routes /admin to the dashboard or the login page.
func (ac *AdminController) Index(c *gin.Context) {
	status := ac.Sessions.For(session.FromContext(c)).ValidateSession(c.Request.Context())
	if status.ShouldRedirectToLogin() {
		redirect(c, middleware.LoginPath)
		return
	}
	redirect(c, "/admin/dashboard")
}

func (ac *AdminController) LoginPage(c *gin.Context) {
	status := ac.Sessions.For(session.FromContext(c)).ValidateSession(c.Request.Context())
	if status.IsAuthenticated() {
		redirect(c, "/admin/dashboard")
		return
	}
	render(c, http.StatusOK, "admin_login.html", gin.H{
		"Title":               "Admin login",
		"Username":            "",
		"ConnectivityWarning": connectivityWarning(status),
	})
}

func (ac *AdminController) Login(c *gin.Context) {
	ctx := c.Request.Context()
	admin := ac.Sessions.For(session.FromContext(c))
	username := c.PostForm("username")

	status, err := admin.Login(ctx, username, c.PostForm("password"))
	if err != nil {
		ac.record(c, awspkg.MetricAdminLoginFailures)
		render(c, loginStatusCode(err), "admin_login.html", gin.H{
			"Title":               "Admin login",
			"Username":            username,
			"Error":               messageOf(err),
			"ConnectivityWarning": connectivityWarning(status),
		})
		return
	}
	ac.record(c, awspkg.MetricAdminLogins)
	flash(c, flashSuccess, "Login successful")
	redirect(c, "/admin/dashboard")
}

func (ac *AdminController) Logout(c *gin.Context) {
	ac.Sessions.For(session.FromContext(c)).Logout(c.Request.Context())
	flash(c, flashSuccess, "Logged out")
	redirect(c, middleware.LoginPath)
}

// Dashboard lists every product for editing. Requires AdminGuard.
func (ac *AdminController) Dashboard(c *gin.Context) {
	_, status := middleware.Admin(c)
	data := gin.H{
		"Title":               "Admin dashboard",
		"ConnectivityWarning": connectivityWarning(status),
	}
	list, err := ac.Catalog.ListProducts(c.Request.Context())
	if err != nil {
		data["Error"] = messageOf(err)
	}
	data["Products"] = list
	render(c, http.StatusOK, "admin_dashboard.html", data)
}

func (ac *AdminController) CreateProduct(c *gin.Context) {
	admin, _ := middleware.Admin(c)
	ctx := c.Request.Context()
	form, err := bindProductForm(c)
	if err == nil {
		token, _ := admin.Token(ctx)
		_, err = ac.Mutations.Create(ctx, token, form)
	}
	ac.finish(c, err, products.MsgCreated)
}

func (ac *AdminController) UpdateProduct(c *gin.Context) {
	admin, _ := middleware.Admin(c)
	ctx := c.Request.Context()
	form, err := bindProductForm(c)
	if err == nil {
		token, _ := admin.Token(ctx)
		_, err = ac.Mutations.Update(ctx, token, c.Param("id"), form)
	}
	ac.finish(c, err, products.MsgUpdated)
}

func (ac *AdminController) DeleteProduct(c *gin.Context) {
	admin, _ := middleware.Admin(c)
	ctx := c.Request.Context()
	token, _ := admin.Token(ctx)
	ac.finish(c, ac.Mutations.Delete(ctx, token, c.Param("id")), products.MsgDeleted)
}

func (ac *AdminController) finish(c *gin.Context, err error, success string) {
	if err != nil {
		flash(c, flashError, messageOf(err))
	} else {
		flash(c, flashSuccess, success)
	}
	redirect(c, "/admin/dashboard")
}

func (ac *AdminController) record(c *gin.Context, metric string) {
	if ac.Metrics.IsEnabled() {
		_ = ac.Metrics.RecordCount(c.Request.Context(), metric, nil)
	}
}

// bindProductForm reads the product dialog, including an optional image file.
func bindProductForm(c *gin.Context) (products.Form, error) {
	var form products.Form
	if err := c.ShouldBind(&form); err != nil {
		return form, invalidRequest(err)
	}
	fh, err := c.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return form, nil
	case err != nil:
		// Requests without a multipart body carry no file.
		if errors.Is(err, http.ErrNotMultipart) {
			return form, nil
		}
		return form, invalidRequest(err)
	}
	up, err := images.ReadUpload(fh)
	if err != nil {
		if errors.Is(err, images.ErrTooLarge) {
			return form, invalidMessage(err.Error())
		}
		return form, invalidRequest(err)
	}
	form.Upload = up
	return form, nil
}

func connectivityWarning(status adminsession.Status) string {
	if !status.ShowConnectivityWarning() {
		return ""
	}
	if status.Err != nil {
		return status.Err.Message
	}
	return adminsession.MsgConnectivityIssue
}

func loginStatusCode(err error) int {
	if errors.Is(err, adminsession.ErrMissingCredentials) {
		return http.StatusBadRequest
	}
	var classified *adminsession.Error
	if errors.As(err, &classified) {
		switch classified.Kind {
		case adminsession.KindInvalidCredentials:
			return http.StatusUnauthorized
		case adminsession.KindConnectivityIssue:
			return http.StatusServiceUnavailable
		}
	}
	return http.StatusInternalServerError
}
