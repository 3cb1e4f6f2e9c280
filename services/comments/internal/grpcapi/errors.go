package grpcapi

import (
	"errors"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/example/devtube/services/comments/internal/domain"
)

const errorDomain = "comments"

// retryDelay is the back-off hint attached to Unavailable statuses.
const retryDelay = time.Second

func errWithInfo(c codes.Code, reason, msg string) error {
	st := status.New(c, msg)
	st2, err := st.WithDetails(&errdetails.ErrorInfo{Reason: reason, Domain: errorDomain})
	if err != nil {
		return st.Err()
	}
	return st2.Err()
}

func errInvalidArgument(reason, msg string, fieldViolations map[string]string) error {
	st := status.New(codes.InvalidArgument, msg)
	info := &errdetails.ErrorInfo{Reason: reason, Domain: errorDomain}

	bad := &errdetails.BadRequest{}
	for field, desc := range fieldViolations {
		bad.FieldViolations = append(bad.FieldViolations, &errdetails.BadRequest_FieldViolation{Field: field, Description: desc})
	}

	st2, err := st.WithDetails(info, bad)
	if err != nil {
		return st.Err()
	}
	return st2.Err()
}

func errUnavailable(msg string) error {
	st := status.New(codes.Unavailable, msg)
	info := &errdetails.ErrorInfo{Reason: "RETRYABLE", Domain: errorDomain}
	retry := &errdetails.RetryInfo{RetryDelay: durationpb.New(retryDelay)}
	st2, err := st.WithDetails(info, retry)
	if err != nil {
		return st.Err()
	}
	return st2.Err()
}

// toStatus maps service errors onto gRPC statuses. ErrParentDeleted is
// tested before ErrInvalidParent because it wraps it.
func toStatus(err error) error {
	var verr *domain.ValidationError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &verr):
		return errInvalidArgument("VALIDATION_FAILED", verr.Error(), map[string]string{verr.Field: verr.Reason})
	case errors.Is(err, domain.ErrValidation):
		return errInvalidArgument("VALIDATION_FAILED", err.Error(), nil)
	case errors.Is(err, domain.ErrParentDeleted):
		return errWithInfo(codes.FailedPrecondition, "PARENT_DELETED", "parent comment is being deleted")
	case errors.Is(err, domain.ErrInvalidParent):
		return errInvalidArgument("INVALID_PARENT", "parent comment does not exist on this video",
			map[string]string{"parent_id": "must reference a comment on the same video"})
	case errors.Is(err, domain.ErrNotFound):
		return errWithInfo(codes.NotFound, "NOT_FOUND", "not found")
	case errors.Is(err, domain.ErrPermissionDenied):
		return errWithInfo(codes.PermissionDenied, "FORBIDDEN", "permission denied")
	case errors.Is(err, domain.ErrUnauthenticated):
		return errWithInfo(codes.Unauthenticated, "UNAUTHENTICATED", "authentication required")
	case errors.Is(err, domain.ErrUnavailable), errors.Is(err, domain.ErrReactionConflict):
		return errUnavailable("temporarily unavailable, retry")
	default:
		return errWithInfo(codes.Internal, "INTERNAL", "internal error")
	}
}
