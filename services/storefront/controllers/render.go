package controllers

import (
	"errors"
	"net/http"
	"strings"

	apperrors "github.com/dailykart/dailykart/services/common/errors"
	"github.com/dailykart/dailykart/services/storefront/adminsession"
	"github.com/dailykart/dailykart/services/storefront/cart"
	"github.com/dailykart/dailykart/services/storefront/session"
	"github.com/gin-gonic/gin"
)

const (
	flashSuccess = "success"
	flashError   = "error"
)

// render adds the layout fields (pending flash, cart badge) and writes the page.
func render(c *gin.Context, status int, name string, data gin.H) {
	ctx := c.Request.Context()
	sess := session.FromContext(c)
	if data == nil {
		data = gin.H{}
	}
	if f, ok := sess.PopFlash(ctx); ok {
		data["Flash"] = f
	}
	if _, ok := data["CartCount"]; !ok {
		data["CartCount"] = cart.Load(ctx, sess).ItemCount()
	}
	c.HTML(status, name, data)
}

func renderError(c *gin.Context, err error) {
	status, msg := http.StatusInternalServerError, adminsession.MsgUnexpectedError
	if appErr, ok := apperrors.As(err); ok {
		status, msg = appErr.Code, appErr.Message
	}
	title := "Something went wrong"
	if status == http.StatusNotFound {
		title = "Not found"
	}
	render(c, status, "error.html", gin.H{"Title": title, "Error": msg})
}

func redirect(c *gin.Context, location string) {
	c.Redirect(http.StatusSeeOther, location)
}

func flash(c *gin.Context, level, msg string) {
	session.FromContext(c).AddFlash(c.Request.Context(), level, msg)
}

func cartFor(c *gin.Context) *cart.Store {
	return cart.Load(c.Request.Context(), session.FromContext(c))
}

// messageOf is the user facing text of err.
func messageOf(err error) string {
	if appErr, ok := apperrors.As(err); ok {
		return appErr.Message
	}
	var classified *adminsession.Error
	if errors.As(err, &classified) {
		return classified.Message
	}
	return err.Error()
}

// localPath keeps redirects on this site.
func localPath(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	return next
}

func invalidRequest(err error) error {
	return apperrors.ErrInvalidInput.Wrap(err)
}

func invalidMessage(msg string) error {
	return apperrors.New(http.StatusBadRequest, msg, nil)
}
