// Package accounts provides database operations for the account directory.
//
// # Usage
//
//	repo := accounts.NewRepository(db)
//	account, err := repo.GetByUsername("admin")
package accounts

import (
	"errors"

	"gorm.io/gorm"

	"github.com/mrlokans/checkoutdesk/internal/entities"
)

// ErrUsernameTaken is returned by Create for a duplicate username.
var ErrUsernameTaken = errors.New("username already exists")

// Repository handles all account database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new accounts repository. db may be a transaction.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts account unless its username is already registered.
func (r *Repository) Create(account *entities.Account) error {
	var count int64
	if err := r.db.Model(&entities.Account{}).Where("username = ?", account.Username).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrUsernameTaken
	}
	return r.insert(account)
}

// insert relies on the unique index, which also catches a concurrent
// registration that passed the count check.
func (r *Repository) insert(account *entities.Account) error {
	err := r.db.Create(account).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrUsernameTaken
	}
	return err
}

// GetByUsername retrieves an account, returning gorm.ErrRecordNotFound
// when there is none.
func (r *Repository) GetByUsername(username string) (*entities.Account, error) {
	var account entities.Account
	err := r.db.Where("username = ?", username).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Count returns the number of registered accounts.
func (r *Repository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Account{}).Count(&count).Error
	return count, err
}

// CountByRole returns the number of accounts holding role.
func (r *Repository) CountByRole(role entities.UserRole) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Account{}).Where("role = ?", role).Count(&count).Error
	return count, err
}
