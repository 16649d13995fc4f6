package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMethod describes how a lender wants to be paid back.
type PaymentMethod string

const (
	PaymentMethodNone         PaymentMethod = ""
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodEWallet      PaymentMethod = "e_wallet"
)

// User represents a registered user account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Email is the user's login (unique).
	Email string

	// DisplayName is shown to other participants.
	DisplayName string

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	// Phone is the raw phone number as entered; normalized only when building
	// WhatsApp links.
	Phone string

	// Payment details shown to participants who owe this user money.
	PaymentMethod  PaymentMethod
	BankName       string
	PaymentAccount string
	AccountHolder  string

	// CreatedAt and UpdatedAt are Unix timestamps.
	CreatedAt int64
	UpdatedAt int64
}

// NewUser builds a user with a fresh ID and timestamps.
func NewUser(email, displayName, passwordHash string) *User {
	now := time.Now().Unix()
	return &User{
		ID:           uuid.New().String(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
