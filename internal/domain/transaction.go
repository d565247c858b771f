package domain

import (
	"strings" // Whitespace trimming
	"time"    // Booking dates

	"github.com/shopspring/decimal" // Decimal amounts
)

// AmountPlaces is the number of decimal places an amount column holds
const AmountPlaces = 2

// Kind tells income and expense entries apart
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// Valid reports whether k is one of the two accepted kinds
func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

// Transaction Model
type Transaction struct {
	ID               uint            `gorm:"primaryKey" json:"id"`                                     // Primary key
	UserID           uint            `gorm:"not null;index:idx_transactions_user_date" json:"user_id"` // Owner
	Description      string          `gorm:"not null" json:"description"`                              // Free text
	Amount           decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`                // Non-negative amount
	Kind             Kind            `gorm:"type:varchar(16);not null" json:"kind"`                    // income or expense
	Category         *string         `gorm:"type:varchar(255)" json:"category"`                        // Optional category label
	Date             time.Time       `gorm:"not null;index:idx_transactions_user_date" json:"date"`    // Booking date, UTC
	Paid             bool            `gorm:"column:is_paid;not null" json:"is_paid"`                   // Paid flag
	InstallmentTotal *int            `json:"installment_total"`                                        // Informational only
	InstallmentIndex *int            `json:"installment_index"`                                        // Informational only
}

// TransactionInput is the caller-supplied part of a transaction, used for both create and replace
type TransactionInput struct {
	Description      string
	Amount           decimal.Decimal
	Kind             Kind
	Category         *string
	Date             *time.Time // nil means "now" on create and "keep" on replace
	InstallmentTotal *int
	InstallmentIndex *int
}

// Validate checks the invariants the store relies on
func (in TransactionInput) Validate() error {
	// Description must carry text
	if strings.TrimSpace(in.Description) == "" {
		return ErrEmptyDesc
	}
	if err := validateAmount(in.Amount); err != nil {
		return err
	}
	// Only the two known kinds are summed
	if !in.Kind.Valid() {
		return ErrInvalidKind
	}
	if (in.InstallmentTotal != nil && *in.InstallmentTotal < 1) || (in.InstallmentIndex != nil && *in.InstallmentIndex < 1) {
		return ErrInvalidInstalls
	}
	return nil
}

// validateAmount rejects negative amounts and amounts the decimal(18,2) column would round
func validateAmount(a decimal.Decimal) error {
	if a.IsNegative() {
		return ErrNegativeAmount
	}
	if !a.Equal(a.Round(AmountPlaces)) {
		return ErrAmountPrecision // "10.000" is fine, "10.001" is not
	}
	return nil
}

// Apply replaces every mutable field of t with the input. The paid flag is never touched.
func (t *Transaction) Apply(in TransactionInput) {
	t.Description = in.Description
	t.Amount = in.Amount
	t.Kind = in.Kind
	t.Category = NormalizeCategory(in.Category) // Blank labels become NULL
	t.InstallmentTotal = in.InstallmentTotal
	t.InstallmentIndex = in.InstallmentIndex
	if in.Date != nil {
		t.Date = in.Date.UTC() // Stored in UTC so month keys and ordering agree across drivers
	}
}

// NormalizeCategory trims the label and maps blank labels to nil
func NormalizeCategory(c *string) *string {
	if c == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*c)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
