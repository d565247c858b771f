package api

import (
	"finance_tracker/internal/middleware" // Custom package for middleware
	"net/http"                            // HTTP status codes
	"time"                                // Time durations

	"github.com/gin-contrib/cors"   // CORS middleware for Gin
	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Decimal JSON encoding
	"gorm.io/gorm"                  // GORM ORM library
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true // Amounts go over the wire as JSON numbers
}

// UserService registers, verifies and resolves users
type UserService interface {
	CredentialStore
	middleware.UserFinder
}

// TokenService issues and verifies bearer tokens
type TokenService interface {
	TokenIssuer
	middleware.TokenVerifier
}

// Deps carries everything the HTTP layer needs; nothing is read from package globals
type Deps struct {
	DB          *gorm.DB // Used by the health check only
	Users       UserService
	Ledger      TransactionStore
	Budgets     BudgetStore
	Analytics   Aggregator
	Tokens      TokenService
	Redis       *redis.Client // Optional, nil disables caching
	CacheTTL    time.Duration
	CORSOrigins []string
}

// NewRouter builds the Gin engine with all routes registered
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     d.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/healthz", HealthHandler(d.DB))

	// Auth routes
	r.POST("/auth/register", RegisterHandler(d.Users, d.Tokens)) // Registration endpoint
	r.POST("/auth/token", LoginHandler(d.Users, d.Tokens))       // Login endpoint

	// Everything else requires a bearer token
	users := CachedUsers{Users: d.Users, Redis: d.Redis, TTL: d.CacheTTL}
	authed := r.Group("/")
	authed.Use(middleware.JWTAuthMiddleware(d.Tokens, users))

	authed.GET("/me", MeHandler())

	authed.POST("/transactions", CreateTransactionHandler(d.Ledger, d.Redis))
	authed.GET("/transactions", ListTransactionsHandler(d.Ledger, d.Redis, d.CacheTTL))
	authed.PUT("/transactions/:id", UpdateTransactionHandler(d.Ledger, d.Redis))
	authed.DELETE("/transactions/:id", DeleteTransactionHandler(d.Ledger, d.Redis))
	authed.PATCH("/transactions/:id/pay", MarkPaidHandler(d.Ledger, d.Redis))

	authed.GET("/summary", SummaryHandler(d.Analytics))
	authed.GET("/analytics/overview", OverviewHandler(d.Analytics))
	authed.GET("/analytics/categories", CategoriesHandler(d.Analytics))
	authed.GET("/analytics/monthly", MonthlyHandler(d.Analytics))

	authed.POST("/budgets", CreateBudgetHandler(d.Budgets, d.Redis))
	authed.GET("/budgets", ListBudgetsHandler(d.Budgets, d.Redis, d.CacheTTL))
	authed.PUT("/budgets/:id", UpdateBudgetHandler(d.Budgets, d.Redis))
	authed.DELETE("/budgets/:id", DeleteBudgetHandler(d.Budgets, d.Redis))

	return r
}

// HealthHandler reports whether the database answers a ping
func HealthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
