package analytics

import (
	"context"                         // Context for ledger reads
	"finance_tracker/internal/domain" // Importing domain models

	"github.com/shopspring/decimal" // Decimal sums
)

// Uncategorized is the bucket for transactions without a category
const Uncategorized = "uncategorized"

// Totals is the ledger-wide income/expense summary
type Totals struct {
	TotalIncome  decimal.Decimal `json:"total_income"`  // Sum of income amounts
	TotalExpense decimal.Decimal `json:"total_expense"` // Sum of expense amounts
	Balance      decimal.Decimal `json:"balance"`       // Income minus expense
}

// Bucket holds the sums for one month or one category
type Bucket struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// Overview combines the totals with the monthly buckets
type Overview struct {
	Totals  Totals            `json:"totals"`  // Same as Summary
	Monthly map[string]Bucket `json:"monthly"` // Keyed by YYYY-MM
}

// LedgerReader is the read side of the transaction ledger
type LedgerReader interface {
	List(ctx context.Context, userID uint) ([]domain.Transaction, error)
}

// Engine runs the aggregations over the ledger of a single user.
// Every call re-reads the full ledger and recomputes; nothing is cached between calls.
type Engine struct {
	ledger LedgerReader
}

func NewEngine(ledger LedgerReader) *Engine {
	return &Engine{ledger: ledger}
}

func (e *Engine) Summary(ctx context.Context, userID uint) (Totals, error) {
	txs, err := e.ledger.List(ctx, userID)
	if err != nil {
		return Totals{}, err
	}
	return Summarize(txs), nil
}

func (e *Engine) Overview(ctx context.Context, userID uint) (Overview, error) {
	txs, err := e.ledger.List(ctx, userID)
	if err != nil {
		return Overview{}, err
	}
	return Overview{Totals: Summarize(txs), Monthly: ByMonth(txs)}, nil
}

func (e *Engine) ByCategory(ctx context.Context, userID uint) (map[string]Bucket, error) {
	txs, err := e.ledger.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ByCategory(txs), nil
}

func (e *Engine) ByMonth(ctx context.Context, userID uint) (map[string]Bucket, error) {
	txs, err := e.ledger.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ByMonth(txs), nil
}

// Summarize sums income and expense over txs. An empty ledger yields zeros.
func Summarize(txs []domain.Transaction) Totals {
	var b Bucket
	for _, t := range txs {
		b.add(t) // Unknown kinds add nothing
	}
	return Totals{TotalIncome: b.Income, TotalExpense: b.Expense, Balance: b.Income.Sub(b.Expense)}
}

// ByMonth buckets txs by the UTC year-month of their date
func ByMonth(txs []domain.Transaction) map[string]Bucket {
	return bucketBy(txs, func(t domain.Transaction) string {
		return t.Date.UTC().Format(domain.PeriodLayout)
	})
}

// ByCategory buckets txs by category label
func ByCategory(txs []domain.Transaction) map[string]Bucket {
	return bucketBy(txs, func(t domain.Transaction) string {
		if c := domain.NormalizeCategory(t.Category); c != nil {
			return *c
		}
		return Uncategorized
	})
}

func bucketBy(txs []domain.Transaction, key func(domain.Transaction) string) map[string]Bucket {
	out := make(map[string]Bucket)
	for _, t := range txs {
		if !t.Kind.Valid() {
			continue // no bucket for rows that would not be summed
		}
		k := key(t)
		b := out[k] // Zero bucket on first sight
		b.add(t)
		out[k] = b
	}
	return out
}

// add folds one transaction into the bucket; unknown kinds contribute nothing
func (b *Bucket) add(t domain.Transaction) {
	switch t.Kind {
	case domain.KindIncome:
		b.Income = b.Income.Add(t.Amount)
	case domain.KindExpense:
		b.Expense = b.Expense.Add(t.Amount)
	}
}
