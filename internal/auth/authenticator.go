package auth

import (
	"context"

	"github.com/mmynk/receiptsplit/internal/models"
)

// Registration carries everything needed to open an account. Phone and the
// payment fields are optional; they let participants pay the user back.
type Registration struct {
	Email          string
	DisplayName    string
	Password       string
	Phone          string
	PaymentMethod  models.PaymentMethod
	BankName       string
	PaymentAccount string
	AccountHolder  string
}

// Authenticator defines the interface for authentication implementations.
// This abstraction allows swapping between different auth methods (password, OAuth, etc.)
// without changing the service layer code.
type Authenticator interface {
	// Register creates a new user account.
	// Returns the created user or an error if registration fails.
	Register(ctx context.Context, reg Registration) (*models.User, error)

	// Authenticate verifies the user's credentials and returns the user if successful.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks if the credential meets the implementation's requirements.
	ValidateCredential(credential string) error
}
