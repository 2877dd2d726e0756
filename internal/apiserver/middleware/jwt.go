package middleware

import (
	"net/http"
	"strings"

	"github.com/amoylab/contentd/internal/auth/jwt"
	"github.com/amoylab/contentd/internal/common/errorx"
	"github.com/gin-gonic/gin"
)

// ClaimsKey is the gin context key holding *jwt.Claims
const ClaimsKey = "claims"

// JWTAuthMiddleware requires a valid Bearer token. A nil service disables
// the check so deployments without a secret keep the routes open.
func JWTAuthMiddleware(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if jwtService == nil {
			c.Next()
			return
		}

		parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			unauthorized(c, "missing bearer token")
			return
		}

		claims, err := jwtService.ValidateToken(parts[1])
		if err != nil {
			unauthorized(c, err.Error())
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

func unauthorized(c *gin.Context, reason string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": errorx.ErrUnauthorized.WithDetail("reason", reason),
	})
}
