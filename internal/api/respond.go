package api

import (
	"errors"                              // Error classification
	"finance_tracker/internal/domain"     // Importing domain models
	"finance_tracker/internal/middleware" // Context keys
	"net/http"                            // HTTP status codes
	"strconv"                             // Path parameter parsing

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// validationErrors are rejected with 422 and their message is safe to return
var validationErrors = []error{
	domain.ErrInvalidKind,
	domain.ErrNegativeAmount,
	domain.ErrAmountPrecision,
	domain.ErrPasswordTooLong,
	domain.ErrEmptyDesc,
	domain.ErrEmptyCategory,
	domain.ErrInvalidPeriod,
	domain.ErrInvalidInstalls,
}

// writeError maps a core error onto the HTTP error taxonomy
func writeError(c *gin.Context, err error, notFound string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
	case errors.Is(err, domain.ErrDuplicateEmail):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email already registered"})
	case errors.Is(err, domain.ErrBadCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Incorrect username or password"})
	case isValidation(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		logrus.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"error":  err.Error(),
		}).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func isValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// invalidRequest answers a payload that failed binding
func invalidRequest(c *gin.Context, err error) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid request", "details": err.Error()})
}

// currentUserID returns the identity set by the JWT middleware
func currentUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(middleware.UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// pathID parses the :id route parameter
func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil || id == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return uint(id), true
}
