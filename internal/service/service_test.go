package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/mmynk/receiptsplit/internal/middleware"
	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/storage/sqlite"
	"github.com/mmynk/receiptsplit/pkg/api"
)

// testUserHeader carries the caller identity in tests instead of a JWT.
const testUserHeader = "X-Test-User"

// testAuthInterceptor returns a Connect interceptor that sets the user named
// in testUserHeader as the authenticated caller.
func testAuthInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if id := req.Header().Get(testUserHeader); id != "" {
				ctx = middleware.WithUser(ctx, id, id+"@example.com")
			}
			return next(ctx, req)
		}
	}
}

// as builds a request sent by userID.
func as[T any](userID string, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	if userID != "" {
		req.Header().Set(testUserHeader, userID)
	}
	return req
}

func newTestStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "receiptsplit-service-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// seedUsers registers the people used across the receipt tests.
func seedUsers(t *testing.T, store *sqlite.SQLiteStore) {
	t.Helper()

	users := []*models.User{
		{ID: "sari", Email: "sari@example.com", DisplayName: "Sari", Phone: "0812-3456-789",
			PaymentMethod: models.PaymentMethodBankTransfer, BankName: "BCA", PaymentAccount: "1234567890", AccountHolder: "Sari W"},
		{ID: "budi", Email: "budi@example.com", DisplayName: "Budi"},
		{ID: "adi", Email: "adi@example.com", DisplayName: "Adi", Phone: "+62 811 000 111"},
		{ID: "stranger", Email: "stranger@example.com", DisplayName: "Stranger"},
	}
	for _, u := range users {
		if err := store.CreateUser(context.Background(), u); err != nil {
			t.Fatalf("failed to seed user %s: %v", u.ID, err)
		}
	}
}

// setupTestServer creates a test server with a temp SQLite database, seeded
// users and the ReceiptService.
func setupTestServer(t *testing.T) (api.ReceiptServiceClient, *prometheus.Registry) {
	t.Helper()

	store := newTestStore(t)
	seedUsers(t, store)

	reg := prometheus.NewRegistry()
	svc := NewReceiptService(store, ReceiptOptions{
		Currency:    "IDR",
		CountryCode: "62",
		Places:      2,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:     middleware.NewMetrics(reg),
	})
	path, handler := api.NewReceiptServiceHandler(svc, connect.WithInterceptors(testAuthInterceptor()))

	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return api.NewReceiptServiceClient(http.DefaultClient, server.URL), reg
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertAmount(t *testing.T, label string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Errorf("%s: expected %s, got %s", label, want, got)
	}
}

func assertCode(t *testing.T, err error, want connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	if got := connect.CodeOf(err); got != want {
		t.Errorf("expected code %v, got %v (%v)", want, got, err)
	}
}

func splitFor(t *testing.T, splits []*api.BillSplit, participantID string) *api.BillSplit {
	t.Helper()
	for _, s := range splits {
		if s.ParticipantID == participantID {
			return s
		}
	}
	t.Fatalf("no split for %s", participantID)
	return nil
}
