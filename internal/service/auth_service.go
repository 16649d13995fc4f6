package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"connectrpc.com/connect"
	"github.com/go-playground/validator/v10"

	"github.com/mmynk/receiptsplit/internal/auth"
	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/storage"
	"github.com/mmynk/receiptsplit/pkg/api"
)

// AuthService implements the AuthService RPC interface.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	users         storage.Store
	validate      *validator.Validate
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, users storage.Store, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		users:         users,
		validate:      validator.New(),
		logger:        logger,
	}
}

// Register creates a new user account.
func (s *AuthService) Register(ctx context.Context, req *connect.Request[api.RegisterRequest]) (*connect.Response[api.RegisterResponse], error) {
	s.logger.Info("Register request", "email", req.Msg.Email)

	if err := s.validate.Var(strings.TrimSpace(req.Msg.Email), "required,email"); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid email address"))
	}

	user, err := s.authenticator.Register(ctx, auth.Registration{
		Email:          req.Msg.Email,
		DisplayName:    req.Msg.DisplayName,
		Password:       req.Msg.Password,
		Phone:          req.Msg.Phone,
		PaymentMethod:  models.PaymentMethod(req.Msg.PaymentMethod),
		BankName:       req.Msg.BankName,
		PaymentAccount: req.Msg.PaymentAccount,
		AccountHolder:  req.Msg.AccountHolder,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailExists):
			s.logger.Warn("Registration rejected", "email", req.Msg.Email, "error", err)
			return nil, connect.NewError(connect.CodeAlreadyExists, err)
		case errors.Is(err, auth.ErrWeakPassword),
			errors.Is(err, auth.ErrMissingDisplayName),
			errors.Is(err, auth.ErrInvalidPaymentMethod):
			s.logger.Warn("Registration rejected", "email", req.Msg.Email, "error", err)
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		s.logger.Error("Registration failed", "email", req.Msg.Email, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("User registered successfully", "user_id", user.ID, "email", user.Email)
	return connect.NewResponse(&api.RegisterResponse{
		User:  toAPIUser(user),
		Token: token,
	}), nil
}

// Login authenticates a user and returns a JWT token.
func (s *AuthService) Login(ctx context.Context, req *connect.Request[api.LoginRequest]) (*connect.Response[api.LoginResponse], error) {
	s.logger.Info("Login request", "email", req.Msg.Email)

	if req.Msg.Email == "" || req.Msg.Password == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, auth.ErrInvalidCredentials)
	}

	user, err := s.authenticator.Authenticate(ctx, req.Msg.Email, req.Msg.Password)
	if err != nil {
		s.logger.Warn("Login failed", "email", req.Msg.Email, "error", err)
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidCredentials)
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("User logged in successfully", "user_id", user.ID, "email", user.Email)
	return connect.NewResponse(&api.LoginResponse{
		User:  toAPIUser(user),
		Token: token,
	}), nil
}

// GetCurrentUser returns the authenticated user's profile.
func (s *AuthService) GetCurrentUser(ctx context.Context, req *connect.Request[api.GetCurrentUserRequest]) (*connect.Response[api.GetCurrentUserResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, storeError(s.logger, "GetUserByID", err)
	}
	if user == nil {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("user %s not found", userID))
	}
	return connect.NewResponse(&api.GetCurrentUserResponse{User: toAPIUser(user)}), nil
}

// ListUsers returns everyone who can be added to a receipt.
func (s *AuthService) ListUsers(ctx context.Context, req *connect.Request[api.ListUsersRequest]) (*connect.Response[api.ListUsersResponse], error) {
	if _, err := callerID(ctx); err != nil {
		return nil, err
	}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, storeError(s.logger, "ListUsers", err)
	}

	out := make([]*api.User, len(users))
	for i, u := range users {
		out[i] = toAPIUser(u)
	}
	return connect.NewResponse(&api.ListUsersResponse{Users: out}), nil
}
