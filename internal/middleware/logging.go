package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// LoggingInterceptor returns a Connect interceptor that logs every RPC call.
// It logs the procedure name, user ID, duration, and any error codes/messages.
// Client errors (invalid argument, not found, ...) log at WARN; anything that
// is not a *connect.Error or has code internal/unknown logs at ERROR.
func LoggingInterceptor(logger *slog.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure
			userID := GetUserID(ctx) // empty unless installed after RequireAuth

			resp, err := next(ctx, req)

			duration := time.Since(start).Milliseconds()
			if err == nil {
				logger.Info("RPC ok",
					"procedure", procedure,
					"user_id", userID,
					"duration_ms", duration,
				)
				return resp, nil
			}

			var connectErr *connect.Error
			if errors.As(err, &connectErr) && !isServerFault(connectErr.Code()) {
				logger.Warn("RPC error",
					"procedure", procedure,
					"code", connectErr.Code(),
					"error", connectErr.Message(),
					"user_id", userID,
					"duration_ms", duration,
				)
			} else {
				logger.Error("RPC error",
					"procedure", procedure,
					"code", connect.CodeOf(err),
					"error", err,
					"user_id", userID,
					"duration_ms", duration,
				)
			}
			return resp, err
		}
	}
}

func isServerFault(code connect.Code) bool {
	switch code {
	case connect.CodeInternal, connect.CodeUnknown, connect.CodeDataLoss, connect.CodeUnavailable:
		return true
	}
	return false
}
