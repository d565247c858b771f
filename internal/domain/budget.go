package domain

import (
	"strings" // Whitespace trimming
	"time"    // Period parsing

	"github.com/shopspring/decimal" // Decimal amounts
)

// PeriodLayout is the year-month layout used for budget periods and monthly buckets
const PeriodLayout = "2006-01"

// Budget Model
type Budget struct {
	ID        uint            `gorm:"primaryKey" json:"id"`                         // Primary key
	UserID    uint            `gorm:"not null;index" json:"user_id"`                // Owner
	Category  string          `gorm:"type:varchar(255);not null" json:"category"`   // Category label
	Amount    decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`    // Planned amount
	Period    string          `gorm:"type:varchar(7);not null;index" json:"period"` // YYYY-MM
	CreatedAt time.Time       `json:"created_at"`                                   // Creation timestamp
}

// BudgetInput is the caller-supplied part of a budget
type BudgetInput struct {
	Category string
	Amount   decimal.Decimal
	Period   string
}

// Validate checks the budget before it is stored
func (in BudgetInput) Validate() error {
	if strings.TrimSpace(in.Category) == "" {
		return ErrEmptyCategory
	}
	if err := validateAmount(in.Amount); err != nil {
		return err
	}
	// Period must be a real year-month, e.g. "2025-12"
	if _, err := time.Parse(PeriodLayout, in.Period); err != nil {
		return ErrInvalidPeriod
	}
	return nil
}

// Apply replaces every mutable field of b with the input
func (b *Budget) Apply(in BudgetInput) {
	b.Category = strings.TrimSpace(in.Category) // Labels are stored trimmed
	b.Amount = in.Amount
	b.Period = in.Period
}
