package store

import (
	"context"                         // Context for queries
	"errors"                          // Error comparison
	"finance_tracker/internal/domain" // Importing domain models
	"fmt"                             // Error wrapping
	"time"                            // Default booking date

	"gorm.io/gorm" // GORM ORM library
)

// Ledger stores transactions. Every method is scoped to the owner passed in.
type Ledger struct {
	db  *gorm.DB
	now func() time.Time
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// Create persists a new unpaid transaction. Date defaults to the current time.
func (l *Ledger) Create(ctx context.Context, userID uint, in domain.TransactionInput) (*domain.Transaction, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	t := domain.Transaction{UserID: userID, Date: l.now().UTC()} // New transactions start unpaid
	t.Apply(in)
	if err := l.db.WithContext(ctx).Create(&t).Error; err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	return &t, nil
}

// List returns the owner's whole ledger, newest first
func (l *Ledger) List(ctx context.Context, userID uint) ([]domain.Transaction, error) {
	txs := []domain.Transaction{}
	if err := l.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date desc").
		Order("id desc").
		Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// Update replaces the mutable fields of an owned transaction
func (l *Ledger) Update(ctx context.Context, userID, id uint, in domain.TransactionInput) (*domain.Transaction, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var t domain.Transaction
	// Start a transaction so the read and the write see the same row
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := findOwned(tx, userID, id, &t); err != nil {
			return err
		}
		t.Apply(in)             // Replace the caller-supplied fields
		return tx.Save(&t).Error // Save the updated transaction
	})
	if err != nil {
		return nil, wrapNotFound("update transaction", err)
	}
	return &t, nil
}

// Delete removes an owned transaction
func (l *Ledger) Delete(ctx context.Context, userID, id uint) error {
	res := l.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&domain.Transaction{})
	if res.Error != nil {
		return fmt.Errorf("delete transaction: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound // Missing or owned by someone else
	}
	return nil
}

// MarkPaid sets the paid flag and nothing else. Marking a paid transaction again is a no-op.
func (l *Ledger) MarkPaid(ctx context.Context, userID, id uint) (*domain.Transaction, error) {
	var t domain.Transaction
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := findOwned(tx, userID, id, &t); err != nil {
			return err
		}
		if t.Paid {
			return nil // Already paid, nothing to write
		}
		if err := tx.Model(&t).Update("is_paid", true).Error; err != nil {
			return err
		}
		t.Paid = true
		return nil
	})
	if err != nil {
		return nil, wrapNotFound("mark transaction paid", err)
	}
	return &t, nil
}

// findOwned loads the record with the given id only when userID owns it
func findOwned(tx *gorm.DB, userID, id uint, dest any) error {
	err := tx.Where("id = ? AND user_id = ?", id, userID).First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

func wrapNotFound(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
