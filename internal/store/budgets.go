package store

import (
	"context"                         // Context for queries
	"finance_tracker/internal/domain" // Importing domain models
	"fmt"                             // Error wrapping

	"gorm.io/gorm" // GORM ORM library
)

// Budgets stores planned amounts per category and period, scoped to the owner
type Budgets struct {
	db *gorm.DB
}

func NewBudgets(db *gorm.DB) *Budgets {
	return &Budgets{db: db}
}

func (s *Budgets) Create(ctx context.Context, userID uint, in domain.BudgetInput) (*domain.Budget, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	b := domain.Budget{UserID: userID}
	b.Apply(in)
	if err := s.db.WithContext(ctx).Create(&b).Error; err != nil {
		return nil, fmt.Errorf("create budget: %w", err)
	}
	return &b, nil
}

// List returns the owner's budgets, latest period first
func (s *Budgets) List(ctx context.Context, userID uint) ([]domain.Budget, error) {
	budgets := []domain.Budget{}
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("period desc").
		Order("id desc").
		Find(&budgets).Error; err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return budgets, nil
}

func (s *Budgets) Update(ctx context.Context, userID, id uint, in domain.BudgetInput) (*domain.Budget, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var b domain.Budget
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := findOwned(tx, userID, id, &b); err != nil {
			return err
		}
		b.Apply(in)
		return tx.Save(&b).Error // Save the updated budget
	})
	if err != nil {
		return nil, wrapNotFound("update budget", err)
	}
	return &b, nil
}

func (s *Budgets) Delete(ctx context.Context, userID, id uint) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&domain.Budget{})
	if res.Error != nil {
		return fmt.Errorf("delete budget: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound // Missing or owned by someone else
	}
	return nil
}
