package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mmynk/receiptsplit/internal/auth"
	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/pkg/api"
)

type ping struct {
	Caller string `json:"caller"`
}

const (
	privateProcedure = "/test.v1.Test/Private"
	publicProcedure  = "/test.v1.Test/Public"
)

func setupTestServer(t *testing.T, jwt *auth.JWTManager, metrics *Metrics) string {
	t.Helper()

	echo := func(ctx context.Context, _ *connect.Request[ping]) (*connect.Response[ping], error) {
		return connect.NewResponse(&ping{Caller: GetUserID(ctx)}), nil
	}
	opts := []connect.HandlerOption{
		api.WithJSON(),
		connect.WithInterceptors(
			metrics.Interceptor(),
			RequireAuth(jwt, map[string]bool{publicProcedure: true}),
			LoggingInterceptor(slog.New(slog.NewTextHandler(io.Discard, nil))),
		),
	}

	mux := http.NewServeMux()
	mux.Handle(privateProcedure, connect.NewUnaryHandler(privateProcedure, echo, opts...))
	mux.Handle(publicProcedure, connect.NewUnaryHandler(publicProcedure, echo, opts...))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server.URL
}

func call(t *testing.T, baseURL, procedure, token string) (*connect.Response[ping], error) {
	t.Helper()
	client := connect.NewClient[ping, ping](http.DefaultClient, baseURL+procedure, api.WithJSON())
	req := connect.NewRequest(&ping{})
	if token != "" {
		req.Header().Set("Authorization", token)
	}
	return client.CallUnary(context.Background(), req)
}

func TestRequireAuth(t *testing.T) {
	jwt := auth.NewJWTManager("secret", time.Hour)
	metrics := NewMetrics(prometheus.NewRegistry())
	url := setupTestServer(t, jwt, metrics)

	token, err := jwt.Generate(&models.User{ID: "u-1", Email: "u@example.com"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	resp, err := call(t, url, privateProcedure, "Bearer "+token)
	if err != nil {
		t.Fatalf("authorized call failed: %v", err)
	}
	if resp.Msg.Caller != "u-1" {
		t.Errorf("caller = %q, want u-1", resp.Msg.Caller)
	}

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic " + token},
		{"bad token", "Bearer nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := call(t, url, privateProcedure, tt.header)
			if connect.CodeOf(err) != connect.CodeUnauthenticated {
				t.Errorf("expected Unauthenticated, got %v", err)
			}
		})
	}

	t.Run("public procedure without token", func(t *testing.T) {
		resp, err := call(t, url, publicProcedure, "")
		if err != nil {
			t.Fatalf("public call failed: %v", err)
		}
		if resp.Msg.Caller != "" {
			t.Errorf("caller = %q, want empty", resp.Msg.Caller)
		}
	})

	t.Run("public procedure with token", func(t *testing.T) {
		resp, err := call(t, url, publicProcedure, "bearer "+token)
		if err != nil {
			t.Fatalf("public call failed: %v", err)
		}
		if resp.Msg.Caller != "u-1" {
			t.Errorf("caller = %q, want u-1", resp.Msg.Caller)
		}
	})

	if got := testutil.ToFloat64(metrics.requests.WithLabelValues(privateProcedure, "ok")); got != 1 {
		t.Errorf("ok counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.requests.WithLabelValues(privateProcedure, connect.CodeUnauthenticated.String())); got != 3 {
		t.Errorf("unauthenticated counter = %v, want 3", got)
	}
}

func TestRecordSplitCommit(t *testing.T) {
	var nilMetrics *Metrics
	nilMetrics.RecordSplitCommit("saved") // must not panic

	m := NewMetrics(prometheus.NewRegistry())
	m.RecordSplitCommit("invalid")
	m.RecordSplitCommit("invalid")
	if got := testutil.ToFloat64(m.splitCommits.WithLabelValues("invalid")); got != 2 {
		t.Errorf("invalid commits = %v, want 2", got)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer", "", false},
		{"Token abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := bearerToken(tt.header)
		if got != tt.want || ok != tt.ok {
			t.Errorf("bearerToken(%q) = (%q, %v), want (%q, %v)", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}
