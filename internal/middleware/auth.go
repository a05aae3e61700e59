package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"inventory-service/internal/auth"
)

const identityKey = "identity"

// TokenParser valida un bearer token y devuelve la identidad
type TokenParser interface {
	Parse(token string) (auth.Identity, error)
}

// JWTAuth exige Authorization: Bearer <token>
func JWTAuth(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Authorization requerido",
				"error":   "missing bearer token",
			})
			return
		}

		who, err := tokens.Parse(strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Token inválido",
				"error":   err.Error(),
			})
			return
		}

		c.Set(identityKey, who)
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), who))
		c.Next()
	}
}

// RequireRole corta con 403 si la identidad no tiene ninguno de los roles
func RequireRole(roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !auth.HasAnyRole(Identity(c), roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Permisos insuficientes",
				"error":   "forbidden",
			})
			return
		}
		c.Next()
	}
}

// Identity identidad del request; Anonymous si no pasó por JWTAuth
func Identity(c *gin.Context) auth.Identity {
	if v, ok := c.Get(identityKey); ok {
		if who, ok := v.(auth.Identity); ok {
			return who
		}
	}
	return auth.Anonymous
}
