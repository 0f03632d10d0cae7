package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/yashrajoria/storefront-service/config"
)

const (
	AdminIDKey = "adminID"
	roleAdmin  = "admin"
)

// AdminClaims are issued by the platform's auth service.
type AdminClaims struct {
	Role    string `json:"role"`
	StoreID string `json:"store_id"`
	jwt.RegisteredClaims
}

// AdminAuth admits HS256 bearer tokens with the admin role whose store_id
// matches the :storeId route parameter.
func AdminAuth(secret config.Secret) gin.HandlerFunc {
	key := secret.Reveal()
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token is required"})
			return
		}
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format"})
			return
		}

		var claims AdminClaims
		token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), &claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			if len(key) == 0 {
				return nil, errors.New("jwt secret not configured")
			}
			return key, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		if claims.Role != roleAdmin || claims.StoreID == "" || claims.StoreID != c.Param("storeId") {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}

		c.Set(AdminIDKey, claims.Subject)
		c.Next()
	}
}

func GetAdminID(c *gin.Context) string {
	return c.GetString(AdminIDKey)
}
