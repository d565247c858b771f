package api

import (
	"context"                             // Context for store calls
	"finance_tracker/internal/domain"     // Importing domain models
	"finance_tracker/internal/middleware" // Context keys
	"finance_tracker/internal/utils"      // Utility functions
	"net/http"                            // HTTP status codes
	"time"                                // Time durations

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// CredentialStore registers and verifies users
type CredentialStore interface {
	Register(ctx context.Context, email, password string) (*domain.User, error)
	Verify(ctx context.Context, email, password string) (*domain.User, error)
}

// TokenIssuer signs bearer tokens for a user ID
type TokenIssuer interface {
	Issue(userID uint) (string, error)
}

// Request struct for registration
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,max=255"`   // Email must be provided
	Password string `json:"password" binding:"required,max=72"` // Byte length is checked again by the store
}

// Request struct for login, sent as an OAuth2 password form
type LoginRequest struct {
	Username string `form:"username" json:"username" binding:"required"` // The user's email
	Password string `form:"password" json:"password" binding:"required"`
}

// Response struct for authentication
type TokenResponse struct {
	AccessToken string `json:"access_token"` // JWT token
	TokenType   string `json:"token_type"`   // Always "bearer"
}

// RegisterHandler creates a user and returns a token for it
func RegisterHandler(users CredentialStore, tokens TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			invalidRequest(c, err)
			return
		}
		user, err := users.Register(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			writeError(c, err, "User not found")
			return
		}
		logrus.WithFields(logrus.Fields{"user_id": user.ID}).Info("User registered")
		issueToken(c, tokens, user.ID)
	}
}

// LoginHandler authenticates a user and returns a JWT token
func LoginHandler(users CredentialStore, tokens TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Form or JSON, picked by Content-Type
		if err := c.ShouldBind(&req); err != nil {
			invalidRequest(c, err)
			return
		}
		user, err := users.Verify(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			writeError(c, err, "User not found")
			return
		}
		issueToken(c, tokens, user.ID)
	}
}

func issueToken(c *gin.Context, tokens TokenIssuer, userID uint) {
	token, err := tokens.Issue(userID)
	if err != nil {
		logrus.WithFields(logrus.Fields{"user_id": userID, "error": err.Error()}).Error("Failed to generate token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// MeHandler returns the authenticated user's public profile
func MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get(middleware.UserKey)
		user, _ := v.(*domain.User)
		if !ok || user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Could not validate credentials"})
			return
		}
		c.JSON(http.StatusOK, user.Profile())
	}
}

// CachedUsers puts a redis read-through cache in front of user lookups done by the auth middleware.
// Users are never modified through the API, so entries only expire.
type CachedUsers struct {
	Users middleware.UserFinder
	Redis *redis.Client
	TTL   time.Duration
}

func (u CachedUsers) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	key := utils.ProfileCacheKey(id)
	var cached domain.User
	found, err := utils.GetCache(ctx, u.Redis, key, &cached)
	if err != nil {
		logrus.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Warn("Profile cache read failed")
	}
	if err == nil && found {
		return &cached, nil
	}
	user, err := u.Users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	_ = utils.SetCache(ctx, u.Redis, key, user, u.TTL) // The hash is not serialized
	return user, nil
}
