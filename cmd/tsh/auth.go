package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nixpig/tsh/internal/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// authUnaryInterceptor only lets a request through if the role in the client
// certificate grants the permission the method needs.
func authUnaryInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if err := authorise(ctx, info.FullMethod, logger); err != nil {
			return nil, err
		}

		return handler(ctx, req)
	}
}

func authorise(ctx context.Context, method string, logger *slog.Logger) error {
	id, err := auth.Authorise(ctx, method)
	if errors.Is(err, auth.ErrNoIdentity) {
		logger.Warn("failed to get client identity", "err", err)
		return status.Error(codes.Unauthenticated, "not authenticated")
	}

	if err != nil {
		logger.Warn(
			"failed to authorise client",
			"cn", id.Name,
			"role", id.Role,
			"method", method,
			"err", err,
		)

		return status.Error(codes.PermissionDenied, "not authorised")
	}

	logger.Debug(
		"authorised client request",
		"cn", id.Name,
		"role", id.Role,
		"method", method,
	)

	return nil
}
