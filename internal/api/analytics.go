package api

import (
	"context"                            // Context for engine calls
	"finance_tracker/internal/analytics" // Aggregation engine
	"net/http"                           // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework
)

// Aggregator computes read-only views over the caller's ledger
type Aggregator interface {
	Summary(ctx context.Context, userID uint) (analytics.Totals, error)
	Overview(ctx context.Context, userID uint) (analytics.Overview, error)
	ByCategory(ctx context.Context, userID uint) (map[string]analytics.Bucket, error)
	ByMonth(ctx context.Context, userID uint) (map[string]analytics.Bucket, error)
}

// aggregateHandler adapts one aggregation to a handler; results are never cached
func aggregateHandler[T any](compute func(ctx context.Context, userID uint) (T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Could not validate credentials"})
			return
		}
		out, err := compute(c.Request.Context(), userID)
		if err != nil {
			writeError(c, err, "Not found")
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func SummaryHandler(agg Aggregator) gin.HandlerFunc    { return aggregateHandler(agg.Summary) }
func OverviewHandler(agg Aggregator) gin.HandlerFunc   { return aggregateHandler(agg.Overview) }
func CategoriesHandler(agg Aggregator) gin.HandlerFunc { return aggregateHandler(agg.ByCategory) }
func MonthlyHandler(agg Aggregator) gin.HandlerFunc    { return aggregateHandler(agg.ByMonth) }
