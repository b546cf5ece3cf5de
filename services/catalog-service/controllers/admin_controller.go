package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dailykart/dailykart/services/catalog-service/services"
	"github.com/dailykart/dailykart/services/common/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminContextKey holds the authenticated admin's username.
const AdminContextKey = "admin"

type AuthServicer interface {
	Login(ctx context.Context, username, password string) (string, error)
	ValidateSession(ctx context.Context, token string) bool
}

type AdminController struct {
	auth AuthServicer
}

func NewAdminController(auth AuthServicer) *AdminController {
	return &AdminController{auth: auth}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ValidateRequest struct {
	Token string `json:"token"`
}

func (ac *AdminController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}
	token, err := ac.auth.Login(c.Request.Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		logger.FromContext(c).Error("Admin login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// ValidateSession answers {valid} for any token; only a malformed body is an error.
func (ac *AdminController) ValidateSession(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": req.Token != "" && ac.auth.ValidateSession(c.Request.Context(), req.Token)})
}
