package middlewares

import (
	"context"
	"net/http"
	"strings"
	"time"

	"safasajha-be/models"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Context keys set by AuthMiddleware.
const (
	UserIDKey   = "user_id"
	RoleKey     = "role"
	UserNameKey = "user_name"
)

const AuthCookie = "auth_token"

type tokenParser interface {
	ParseToken(token string) (string, error)
}

type userLookup interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// AuthMiddleware resolves the bearer token (header, auth_token cookie or token query) to an
// active account.
func AuthMiddleware(users userLookup, tokens tokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := tokenFromRequest(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "No token, authorization denied"})
			return
		}

		userID, err := tokens.ParseToken(tokenString)
		if err != nil {
			log.WithError(err).Debug("token validation failed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token is not valid"})
			return
		}
		id, err := primitive.ObjectIDFromHex(userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token is not valid"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		user, err := users.FindByID(ctx, id)
		if err != nil || !user.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token is not valid"})
			return
		}

		c.Set(UserIDKey, user.ID.Hex())
		c.Set(RoleKey, user.Role)
		c.Set(UserNameKey, user.Name)
		c.Next()
	}
}

// AdminOnly must run after AuthMiddleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if role, _ := c.Get(RoleKey); role != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Access denied. Admin only."})
			return
		}
		c.Next()
	}
}

func tokenFromRequest(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := c.Cookie(AuthCookie); err == nil && cookie != "" {
		return cookie
	}
	return c.Query("token")
}
