package middleware

import (
	"context"                         // Context for the user lookup
	"finance_tracker/internal/domain" // Importing domain models
	"net/http"                        // HTTP status codes
	"strings"                         // String manipulation

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Context keys set by JWTAuthMiddleware
const (
	UserIDKey = "userID"
	UserKey   = "user"
)

// TokenVerifier resolves a bearer token to the user ID it was issued for
type TokenVerifier interface {
	Verify(token string) (uint, error)
}

// UserFinder loads the user a token points at
type UserFinder interface {
	FindByID(ctx context.Context, id uint) (*domain.User, error)
}

// JWTAuthMiddleware validates bearer tokens and stores the caller's identity in the context.
// Every failure produces the same 401 so callers cannot tell which check rejected them.
func JWTAuthMiddleware(tokens TokenVerifier, users UserFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization") // Get Authorization header
		tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || strings.TrimSpace(tokenStr) == "" {
			unauthorized(c)
			return
		}
		userID, err := tokens.Verify(strings.TrimSpace(tokenStr)) // Check signature and expiry
		if err != nil {
			logrus.WithFields(logrus.Fields{"path": c.FullPath(), "error": err.Error()}).Debug("Rejected bearer token")
			unauthorized(c)
			return
		}
		user, err := users.FindByID(c.Request.Context(), userID) // The subject must still exist
		if err != nil {
			logrus.WithFields(logrus.Fields{"user_id": userID, "error": err.Error()}).Debug("Token subject not found")
			unauthorized(c)
			return
		}
		c.Set(UserIDKey, user.ID) // Store userID in context
		c.Set(UserKey, user)
		c.Next() // Proceed to the next handler
	}
}

func unauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Could not validate credentials"})
}
