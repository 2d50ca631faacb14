package handler

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/privenote-server/internal/model"
)

func handleError(err error) error {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		return status.Error(codes.InvalidArgument, verr.Error())
	case errors.Is(err, model.ErrNotFound):
		return status.Error(codes.NotFound, "note not found")
	case errors.Is(err, model.ErrExpired):
		return status.Error(codes.FailedPrecondition, "note has expired")
	case errors.Is(err, model.ErrAttemptsExhausted):
		return status.Error(codes.ResourceExhausted, "maximum access attempts exceeded")
	case errors.Is(err, model.ErrForbidden):
		return status.Error(codes.PermissionDenied, "forbidden")
	case errors.Is(err, model.ErrStorage):
		return status.Error(codes.Unavailable, "service temporarily unavailable")
	default:
		return status.Error(codes.Internal, "internal server error")
	}
}
