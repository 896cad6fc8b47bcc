package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Lllllllleong/bookletflow/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the booklet owner in the subject.
type Claims struct {
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// Auth requires a valid bearer token and exposes its subject as the owner id.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err == nil && claims.Subject == "" {
			err = errors.New("token has no subject")
		}
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(string(logger.OwnerIDKey), claims.Subject)
		c.Set("username", claims.Username)
		c.Request = c.Request.WithContext(logger.WithValue(c.Request.Context(), logger.OwnerIDKey, claims.Subject))
		c.Next()
	}
}

func GetOwnerID(c *gin.Context) string {
	return c.GetString(string(logger.OwnerIDKey))
}

func GetUsername(c *gin.Context) string {
	return c.GetString("username")
}
