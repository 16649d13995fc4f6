package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/receiptsplit/internal/models"
)

type memUsers struct {
	byEmail map[string]*models.User
}

func (m *memUsers) CreateUser(_ context.Context, u *models.User) error {
	m.byEmail[u.Email] = u
	return nil
}

func (m *memUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	return m.byEmail[email], nil
}

func (m *memUsers) GetUserByID(_ context.Context, id string) (*models.User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func newAuthenticator() *PasswordAuthenticator {
	return NewPasswordAuthenticator(&memUsers{byEmail: map[string]*models.User{}}).WithCost(bcrypt.MinCost)
}

func TestPasswordAuthenticator(t *testing.T) {
	ctx := context.Background()
	a := newAuthenticator()

	user, err := a.Register(ctx, Registration{
		Email:         "  Rina@Example.com ",
		DisplayName:   "Rina",
		Password:      "s3cret-pass",
		Phone:         "0812 3456 789",
		PaymentMethod: models.PaymentMethodEWallet,
		BankName:      "GoPay",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.Email != "rina@example.com" {
		t.Errorf("email not normalized: %q", user.Email)
	}
	if user.PasswordHash == "s3cret-pass" {
		t.Error("password stored in plain text")
	}

	tests := []struct {
		name    string
		reg     Registration
		wantErr error
	}{
		{"duplicate email", Registration{Email: "rina@example.com", DisplayName: "R", Password: "long-enough"}, ErrEmailExists},
		{"weak password", Registration{Email: "x@example.com", DisplayName: "X", Password: "short"}, ErrWeakPassword},
		{"missing name", Registration{Email: "y@example.com", DisplayName: " ", Password: "long-enough"}, ErrMissingDisplayName},
		{"bad payment method", Registration{Email: "z@example.com", DisplayName: "Z", Password: "long-enough", PaymentMethod: "cash"}, ErrInvalidPaymentMethod},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := a.Register(ctx, tt.reg); !errors.Is(err, tt.wantErr) {
				t.Errorf("Register() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := a.Authenticate(ctx, "RINA@example.com", "s3cret-pass"); err != nil {
		t.Errorf("Authenticate failed: %v", err)
	}
	if _, err := a.Authenticate(ctx, "rina@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := a.Authenticate(ctx, "nobody@example.com", "whatever1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestJWTManager(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	user := &models.User{ID: "user-1", Email: "a@example.com", DisplayName: "A"}

	token, err := m.Generate(user)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.UserID != "user-1" || claims.Email != "a@example.com" || claims.Issuer != Issuer {
		t.Errorf("unexpected claims: %+v", claims)
	}

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTManager("other-secret", time.Hour)
		if _, err := other.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		later := NewJWTManager("test-secret", time.Hour)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		if _, err := later.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := m.Validate("not-a-token"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})
}
