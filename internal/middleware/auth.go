package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/sitetrack/internal/auth"
)

// Context keys for the claims AuthMiddleware stores on gin.Context.
const (
	ContextKeyActorID = "actor_id"
	ContextKeyOwnerID = "owner_id"
	ContextKeyEmail   = "email"
)

// AuthMiddleware rejects requests without a valid "Bearer <jwt>" header
// and stores the token's claims for the handlers.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing authorization header",
			})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid authorization format, expected: Bearer <token>",
			})
			return
		}

		claims, err := auth.ParseToken(parts[1], secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or expired token",
			})
			return
		}

		c.Set(ContextKeyActorID, claims.ActorID)
		c.Set(ContextKeyOwnerID, claims.OwnerID)
		c.Set(ContextKeyEmail, claims.Email)

		c.Next()
	}
}

// The getters return zero values when the key is missing, which no
// owner-scoped query will ever match.

func GetActorID(c *gin.Context) uuid.UUID {
	return getUUID(c, ContextKeyActorID)
}

func GetOwnerID(c *gin.Context) uuid.UUID {
	return getUUID(c, ContextKeyOwnerID)
}

func GetEmail(c *gin.Context) string {
	return c.GetString(ContextKeyEmail)
}

func getUUID(c *gin.Context, key string) uuid.UUID {
	val, exists := c.Get(key)
	if !exists {
		return uuid.Nil
	}
	id, ok := val.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}
