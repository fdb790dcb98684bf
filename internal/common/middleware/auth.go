// Package middleware holds the gin middleware stack shared by all routes.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hostledger/service-rental/internal/common/auth"
	"github.com/hostledger/service-rental/internal/common/response"
)

const (
	contextUserID    = "user_id"
	contextUserEmail = "user_email"
)

// AuthMiddleware requires a valid bearer token and stores the owner ID on the context.
func AuthMiddleware(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			response.Unauthorized(c, "missing bearer token")
			return
		}

		claims, err := jwtManager.ValidateToken(token)
		if err != nil {
			response.Unauthorized(c, err.Error())
			return
		}
		ownerID, err := claims.OwnerID()
		if err != nil {
			response.Unauthorized(c, "invalid token subject")
			return
		}

		c.Set(contextUserID, ownerID)
		c.Set(contextUserEmail, claims.Email)
		c.Next()
	}
}

// SetUserID stores id as the authenticated owner. Used by tests that bypass token parsing.
func SetUserID(c *gin.Context, id uuid.UUID) {
	c.Set(contextUserID, id)
}

// GetUserID returns the authenticated owner ID.
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(contextUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
