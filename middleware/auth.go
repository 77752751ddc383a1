package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"

	"slotify/config"
	"slotify/utils"
)

// TenantAuthMiddleware validates the tenant-scoped admin token and puts the
// tenant id in the request context. Tokens are HS256 with a tenant_id claim.
func TenantAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			unauthorized(c, "Missing or invalid Authorization header")
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(config.AppConfig.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			unauthorized(c, "Invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			unauthorized(c, "Invalid token claims")
			return
		}
		tenantID, ok := claims["tenant_id"].(float64)
		if !ok || tenantID <= 0 {
			unauthorized(c, "Token has no tenant scope")
			return
		}

		c.Set("tenant_id", int64(tenantID))
		c.Next()
	}
}

func unauthorized(c *gin.Context, detail string) {
	utils.JSONProblem(c, http.StatusUnauthorized, "unauthorized", detail)
	c.Abort()
}
