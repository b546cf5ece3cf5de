package middleware

import (
	"net/http"

	"github.com/dailykart/dailykart/services/catalog-service/controllers"
	"github.com/dailykart/dailykart/services/common/auth"
	"github.com/gin-gonic/gin"
)

type TokenValidator interface {
	Validate(token string) (string, error)
}

// RequireAdmin accepts only requests carrying a valid admin bearer token.
func RequireAdmin(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := auth.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		username, err := tokens.Validate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Set(controllers.AdminContextKey, username)
		c.Next()
	}
}
