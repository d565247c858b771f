package api

import (
	"context"                         // Context for store calls
	"errors"                          // Error construction
	"finance_tracker/internal/domain" // Importing domain models
	"finance_tracker/internal/utils"  // Utility functions
	"net/http"                        // HTTP status codes
	"time"                            // Date parsing and TTLs

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Decimal amounts
	"github.com/sirupsen/logrus"    // Logging library
)

const transactionNotFound = "Transaction not found"

// TransactionStore is the owner-scoped transaction ledger
type TransactionStore interface {
	Create(ctx context.Context, userID uint, in domain.TransactionInput) (*domain.Transaction, error)
	List(ctx context.Context, userID uint) ([]domain.Transaction, error)
	Update(ctx context.Context, userID, id uint, in domain.TransactionInput) (*domain.Transaction, error)
	Delete(ctx context.Context, userID, id uint) error
	MarkPaid(ctx context.Context, userID, id uint) (*domain.Transaction, error)
}

// TransactionRequest is the body of create and replace requests
type TransactionRequest struct {
	Description      string           `json:"description" binding:"required"`                // Free text
	Amount           *decimal.Decimal `json:"amount" binding:"required"`                     // Non-negative amount
	Kind             domain.Kind      `json:"kind" binding:"omitempty,oneof=income expense"` // Defaults to expense
	Category         *string          `json:"category"`                                      // Optional category
	Date             *string          `json:"date"`                                          // RFC3339 or YYYY-MM-DD
	InstallmentTotal *int             `json:"installment_total" binding:"omitempty,min=1"`   // Informational
	InstallmentIndex *int             `json:"installment_index" binding:"omitempty,min=1"`   // Informational
}

// dateLayouts are tried in order when parsing a request date
var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.New("date must be RFC3339 or YYYY-MM-DD")
}

func (r TransactionRequest) toInput() (domain.TransactionInput, error) {
	in := domain.TransactionInput{
		Description:      r.Description,
		Amount:           *r.Amount,
		Kind:             r.Kind,
		Category:         r.Category,
		InstallmentTotal: r.InstallmentTotal,
		InstallmentIndex: r.InstallmentIndex,
	}
	if in.Kind == "" {
		in.Kind = domain.KindExpense
	}
	if r.Date != nil {
		d, err := parseDate(*r.Date)
		if err != nil {
			return in, err
		}
		in.Date = &d
	}
	return in, nil
}

// bindTransaction binds and converts the request body, answering 422 on failure
func bindTransaction(c *gin.Context) (domain.TransactionInput, bool) {
	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return domain.TransactionInput{}, false
	}
	in, err := req.toInput()
	if err != nil {
		invalidRequest(c, err)
		return domain.TransactionInput{}, false
	}
	return in, true
}

// CreateTransactionHandler records a new transaction for the caller
func CreateTransactionHandler(ledger TransactionStore, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Could not validate credentials"})
			return
		}
		in, ok := bindTransaction(c)
		if !ok {
			return
		}
		t, err := ledger.Create(c.Request.Context(), userID, in)
		if err != nil {
			writeError(c, err, transactionNotFound)
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id":        userID,
			"transaction_id": t.ID,
			"kind":           t.Kind,
			"amount":         t.Amount.String(),
		}).Info("Transaction created")
		invalidate(c, rdb, utils.LedgerCacheKey(userID))
		c.JSON(http.StatusOK, t)
	}
}

// ListTransactionsHandler returns the caller's ledger, newest first
func ListTransactionsHandler(ledger TransactionStore, rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Could not validate credentials"})
			return
		}
		ctx := c.Request.Context()
		cacheKey := utils.LedgerCacheKey(userID)
		var cached []domain.Transaction
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached) // Try to get from cache
		if err != nil {
			logrus.WithFields(logrus.Fields{"key": cacheKey, "error": err.Error()}).Warn("Ledger cache read failed")
		}
		if err == nil && found {
			c.Header("X-Cache", "HIT")
			c.JSON(http.StatusOK, cached)
			return
		}
		txs, err := ledger.List(ctx, userID)
		if err != nil {
			writeError(c, err, transactionNotFound)
			return
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, txs, ttl) // Cache the ledger until the next write or TTL
		c.Header("X-Cache", "MISS")
		c.JSON(http.StatusOK, txs)
	}
}

// UpdateTransactionHandler replaces an owned transaction
func UpdateTransactionHandler(ledger TransactionStore, rdb *redis.Client) gin.HandlerFunc {
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
		in, ok := bindTransaction(c)
		if !ok {
			return
		}
		t, err := ledger.Update(c.Request.Context(), userID, id, in)
		if err != nil {
			writeError(c, err, transactionNotFound)
			return
		}
		logrus.WithFields(logrus.Fields{"user_id": userID, "transaction_id": id}).Info("Transaction updated")
		invalidate(c, rdb, utils.LedgerCacheKey(userID))
		c.JSON(http.StatusOK, t)
	}
}

// DeleteTransactionHandler removes an owned transaction
func DeleteTransactionHandler(ledger TransactionStore, rdb *redis.Client) gin.HandlerFunc {
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
		if err := ledger.Delete(c.Request.Context(), userID, id); err != nil {
			writeError(c, err, transactionNotFound)
			return
		}
		logrus.WithFields(logrus.Fields{"user_id": userID, "transaction_id": id}).Info("Transaction deleted")
		invalidate(c, rdb, utils.LedgerCacheKey(userID))
		c.JSON(http.StatusOK, gin.H{"deleted": true})
	}
}

// MarkPaidHandler flips the paid flag of an owned transaction
func MarkPaidHandler(ledger TransactionStore, rdb *redis.Client) gin.HandlerFunc {
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
		t, err := ledger.MarkPaid(c.Request.Context(), userID, id)
		if err != nil {
			writeError(c, err, transactionNotFound)
			return
		}
		invalidate(c, rdb, utils.LedgerCacheKey(userID))
		c.JSON(http.StatusOK, t)
	}
}

// invalidate drops a cached read after a write; failures only leave a stale entry until its TTL
func invalidate(c *gin.Context, rdb *redis.Client, key string) {
	if err := utils.DeleteCache(c.Request.Context(), rdb, key); err != nil {
		logrus.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Warn("Failed to invalidate cache")
	}
}
