package middleware

import (
	"net/http"

	apperrors "github.com/dailykart/dailykart/services/common/errors"
	"github.com/dailykart/dailykart/services/storefront/adminsession"
	"github.com/dailykart/dailykart/services/storefront/session"
	"github.com/gin-gonic/gin"
)

const (
	adminKey       = "dailykart.admin"
	adminStatusKey = "dailykart.admin_status"
)

// Mode selects how AdminGuard refuses a request.
type Mode int

const (
	// RedirectToLogin answers 303 to the login page.
	RedirectToLogin Mode = iota
	// RespondJSON answers 401 with an error body.
	RespondJSON
)

// LoginPath is where HTML requests are sent when no admin session exists.
const LoginPath = "/admin/login"

// AdminGuard validates the admin session before guarded handlers run. It
// refuses only once the check finished and the answer is "logged out"; while
// the backend is unreachable the request continues with a warning status.
func AdminGuard(mgr *adminsession.Manager, mode Mode) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin := mgr.For(session.FromContext(c))
		status := admin.ValidateSession(c.Request.Context())
		c.Set(adminKey, admin)
		c.Set(adminStatusKey, status)

		if status.ShouldRedirectToLogin() {
			if mode == RespondJSON {
				appErr := apperrors.ErrUnauthorized.Wrap(nil)
				appErr.Message = "admin login required"
				c.AbortWithStatusJSON(http.StatusUnauthorized, appErr)
				return
			}
			c.Redirect(http.StatusSeeOther, LoginPath)
			c.Abort()
			return
		}
		c.Next()
	}
}

// Admin returns the admin session bound by AdminGuard.
func Admin(c *gin.Context) (*adminsession.Session, adminsession.Status) {
	admin, _ := c.MustGet(adminKey).(*adminsession.Session)
	status, _ := c.MustGet(adminStatusKey).(adminsession.Status)
	return admin, status
}
