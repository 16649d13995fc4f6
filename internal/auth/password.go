package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/receiptsplit/internal/models"
)

var (
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrWeakPassword         = errors.New("password must be at least 8 characters")
	ErrEmailExists          = errors.New("email already registered")
	ErrMissingDisplayName   = errors.New("display name is required")
	ErrInvalidPaymentMethod = errors.New("payment method must be bank_transfer or e_wallet")
)

// UserStorage defines the interface for user persistence operations.
// This allows the authenticator to be independent of the storage implementation.
type UserStorage interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// PasswordAuthenticator implements password-based authentication using bcrypt.
type PasswordAuthenticator struct {
	storage UserStorage
	cost    int
}

// NewPasswordAuthenticator creates a new password-based authenticator.
func NewPasswordAuthenticator(storage UserStorage) *PasswordAuthenticator {
	return &PasswordAuthenticator{
		storage: storage,
		cost:    bcrypt.DefaultCost,
	}
}

// WithCost overrides the bcrypt cost; tests use bcrypt.MinCost.
func (a *PasswordAuthenticator) WithCost(cost int) *PasswordAuthenticator {
	a.cost = cost
	return a
}

// ValidateCredential checks if the password meets minimum requirements.
func (a *PasswordAuthenticator) ValidateCredential(credential string) error {
	if len(credential) < 8 {
		return ErrWeakPassword
	}
	return nil
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new user account with a hashed password.
func (a *PasswordAuthenticator) Register(ctx context.Context, reg Registration) (*models.User, error) {
	if err := a.ValidateCredential(reg.Password); err != nil {
		return nil, err
	}
	displayName := strings.TrimSpace(reg.DisplayName)
	if displayName == "" {
		return nil, ErrMissingDisplayName
	}
	switch reg.PaymentMethod {
	case models.PaymentMethodNone, models.PaymentMethodBankTransfer, models.PaymentMethodEWallet:
	default:
		return nil, ErrInvalidPaymentMethod
	}

	email := NormalizeEmail(reg.Email)
	existingUser, err := a.storage.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if existingUser != nil {
		return nil, ErrEmailExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(reg.Password), a.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.NewUser(email, displayName, string(hashedPassword))
	user.Phone = strings.TrimSpace(reg.Phone)
	user.PaymentMethod = reg.PaymentMethod
	user.BankName = reg.BankName
	user.PaymentAccount = reg.PaymentAccount
	user.AccountHolder = reg.AccountHolder

	if err := a.storage.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Authenticate verifies the email and password, returning the user if valid.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, email, credential string) (*models.User, error) {
	user, err := a.storage.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil || user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(credential)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}
