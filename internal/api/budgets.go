package api

import (
	"context"                         // Context for store calls
	"finance_tracker/internal/domain" // Importing domain models
	"finance_tracker/internal/utils"  // Utility functions
	"net/http"                        // HTTP status codes
	"time"                            // Time durations

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Decimal amounts
	"github.com/sirupsen/logrus"    // Logging library
)

const budgetNotFound = "Budget not found"

// BudgetStore is the owner-scoped budget register
type BudgetStore interface {
	Create(ctx context.Context, userID uint, in domain.BudgetInput) (*domain.Budget, error)
	List(ctx context.Context, userID uint) ([]domain.Budget, error)
	Update(ctx context.Context, userID, id uint, in domain.BudgetInput) (*domain.Budget, error)
	Delete(ctx context.Context, userID, id uint) error
}

// BudgetRequest is the body of create and replace requests
type BudgetRequest struct {
	Category string           `json:"category" binding:"required"`
	Amount   *decimal.Decimal `json:"amount" binding:"required"`
	Period   string           `json:"period" binding:"required"` // YYYY-MM
}

func bindBudget(c *gin.Context) (domain.BudgetInput, bool) {
	var req BudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return domain.BudgetInput{}, false
	}
	return domain.BudgetInput{Category: req.Category, Amount: *req.Amount, Period: req.Period}, true
}

func CreateBudgetHandler(budgets BudgetStore, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Could not validate credentials"})
			return
		}
		in, ok := bindBudget(c)
		if !ok {
			return
		}
		b, err := budgets.Create(c.Request.Context(), userID, in)
		if err != nil {
			writeError(c, err, budgetNotFound)
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id":   userID,
			"budget_id": b.ID,
			"category":  b.Category,
			"period":    b.Period,
		}).Info("Budget created")
		invalidate(c, rdb, utils.BudgetCacheKey(userID))
		c.JSON(http.StatusOK, b)
	}
}

func ListBudgetsHandler(budgets BudgetStore, rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Could not validate credentials"})
			return
		}
		ctx := c.Request.Context()
		cacheKey := utils.BudgetCacheKey(userID)
		var cached []domain.Budget
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		if err != nil {
			logrus.WithFields(logrus.Fields{"key": cacheKey, "error": err.Error()}).Warn("Budget cache read failed")
		}
		if err == nil && found {
			c.Header("X-Cache", "HIT")
			c.JSON(http.StatusOK, cached)
			return
		}
		list, err := budgets.List(ctx, userID)
		if err != nil {
			writeError(c, err, budgetNotFound)
			return
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, list, ttl)
		c.Header("X-Cache", "MISS")
		c.JSON(http.StatusOK, list)
	}
}

func UpdateBudgetHandler(budgets BudgetStore, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Could not validate credentials"})
			return
		}
		id, ok := pathID(c)
		if !ok {
			return
		}
		in, ok := bindBudget(c)
		if !ok {
			return
		}
		b, err := budgets.Update(c.Request.Context(), userID, id, in)
		if err != nil {
			writeError(c, err, budgetNotFound)
			return
		}
		invalidate(c, rdb, utils.BudgetCacheKey(userID))
		c.JSON(http.StatusOK, b)
	}
}

func DeleteBudgetHandler(budgets BudgetStore, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Could not validate credentials"})
			return
		}
		id, ok := pathID(c)
		if !ok {
			return
		}
		if err := budgets.Delete(c.Request.Context(), userID, id); err != nil {
			writeError(c, err, budgetNotFound)
			return
		}
		logrus.WithFields(logrus.Fields{"user_id": userID, "budget_id": id}).Info("Budget deleted")
		invalidate(c, rdb, utils.BudgetCacheKey(userID))
		c.JSON(http.StatusOK, gin.H{"deleted": true})
	}
}
