package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mrlokans/checkoutdesk/internal/circulation"
	"github.com/mrlokans/checkoutdesk/internal/config"
	"github.com/mrlokans/checkoutdesk/internal/entities"
)

const maxUsernameLength = 100

var (
	ErrUsernameRequired = circulation.Validation("username is required")
	ErrUsernameTooLong  = circulation.Validation("username must be at most %d characters", maxUsernameLength)
	ErrUsernameInvalid  = circulation.Validation("username must not contain whitespace")
	ErrEmailInvalid     = circulation.Validation("invalid email format")
	ErrInvalidRole      = circulation.Validation("invalid role")
	ErrSetupComplete    = errors.New("initial setup already completed")
)

// Service handles registration and credential checks on top of the
// circulation store's account directory.
type Service struct {
	store   circulation.Store
	config  config.Auth
	setupMu sync.Mutex
}

// NewService creates a new authentication service.
func NewService(store circulation.Store, cfg config.Auth) *Service {
	return &Service{
		store:  store,
		config: cfg,
	}
}

// Register creates a regular account.
func (s *Service) Register(ctx context.Context, username, password, email string) (*entities.Account, error) {
	return s.CreateAccount(ctx, username, password, email, entities.UserRoleRegular)
}

// CreateAccount validates the input and stores a new account with a hashed password.
func (s *Service) CreateAccount(ctx context.Context, username, password, email string, role entities.UserRole) (*entities.Account, error) {
	account, err := s.newAccount(username, password, email, role)
	if err != nil {
		return nil, err
	}
	err = s.store.Update(ctx, func(tx circulation.Tx) error {
		return tx.CreateAccount(account)
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// SetupLibrarian creates the first account as a librarian. It fails with
// ErrSetupComplete once any account exists.
func (s *Service) SetupLibrarian(ctx context.Context, username, password, email string) (*entities.Account, error) {
	s.setupMu.Lock()
	defer s.setupMu.Unlock()

	account, err := s.newAccount(username, password, email, entities.UserRoleLibrarian)
	if err != nil {
		return nil, err
	}
	err = s.store.Update(ctx, func(tx circulation.Tx) error {
		count, err := tx.CountAccounts()
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrSetupComplete
		}
		return tx.CreateAccount(account)
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (s *Service) newAccount(username, password, email string, role entities.UserRole) (*entities.Account, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" {
		return nil, ErrUsernameRequired
	}
	if len(username) > maxUsernameLength {
		return nil, ErrUsernameTooLong
	}
	if strings.ContainsAny(username, " \t\r\n") {
		return nil, ErrUsernameInvalid
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}
	if email != "" && !strings.Contains(email, "@") {
		return nil, ErrEmailInvalid
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	hash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	return &entities.Account{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}, nil
}

// Authenticate validates credentials and returns the account. Unknown
// usernames and wrong passwords are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*entities.Account, error) {
	account, err := s.GetAccount(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, circulation.ErrAccountNotFound) {
			return nil, circulation.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := CheckPassword(password, account.PasswordHash); err != nil {
		return nil, err
	}
	return account, nil
}

// GetAccount retrieves an account by username.
func (s *Service) GetAccount(ctx context.Context, username string) (*entities.Account, error) {
	var account *entities.Account
	err := s.store.View(ctx, func(tx circulation.Tx) error {
		var err error
		account, err = tx.GetAccount(username)
		return err
	})
	return account, err
}

// HasAccounts returns true if any account exists.
func (s *Service) HasAccounts(ctx context.Context) (bool, error) {
	var count int64
	err := s.store.View(ctx, func(tx circulation.Tx) error {
		var err error
		count, err = tx.CountAccounts()
		return err
	})
	return count > 0, err
}
