package store

import (
	"context"                         // Context for queries
	"errors"                          // Error comparison
	"finance_tracker/internal/domain" // Importing domain models
	"fmt"                             // Error wrapping

	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// maxPasswordBytes is the longest input bcrypt accepts
const maxPasswordBytes = 72

// Users is the credential store
type Users struct {
	db *gorm.DB
}

func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

// Register persists a new user with a bcrypt hash of password.
// It fails with domain.ErrDuplicateEmail when the email is taken.
func (s *Users) Register(ctx context.Context, email, password string) (*domain.User, error) {
	// bcrypt counts bytes, so a short multi-byte password can still be too long
	if len(password) > maxPasswordBytes {
		return nil, domain.ErrPasswordTooLong
	}
	taken, err := s.emailTaken(s.db.WithContext(ctx), email) // Check if email is already registered
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, domain.ErrDuplicateEmail
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost) // Hash the password
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{Email: email, PasswordHash: string(hash)}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		// Lost a race against a concurrent registration: the unique index rejected the row
		if taken, lookupErr := s.emailTaken(s.db.WithContext(ctx), email); lookupErr == nil && taken {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

// Verify returns the user when password matches the stored hash.
// Unknown emails and wrong passwords both yield domain.ErrBadCredentials.
func (s *Users) Verify(ctx context.Context, email, password string) (*domain.User, error) {
	var user domain.User // Find user by email
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrBadCredentials
	} else if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	// Compare the provided password with the stored hashed password
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrBadCredentials
	}
	return &user, nil
}

// FindByID loads the user a verified token points at
func (s *Users) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("find user %d: %w", id, err)
	}
	return &user, nil
}

func (s *Users) emailTaken(tx *gorm.DB, email string) (bool, error) {
	var count int64
	if err := tx.Model(&domain.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return count > 0, nil
}
