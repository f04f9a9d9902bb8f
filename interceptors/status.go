package interceptors

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"milorg-admin/apperr"
)

// Status converts an application error into a gRPC status error carrying
// the error code as its message prefix.
func Status(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	e := apperr.From(err)
	return status.Errorf(codeFor(e), "%s: %s", e.Code, e.Message)
}

func codeFor(e *apperr.Error) codes.Code {
	switch e.Kind {
	case apperr.KindAuthentication:
		return codes.Unauthenticated
	case apperr.KindAuthorization:
		return codes.PermissionDenied
	case apperr.KindValidation:
		return codes.InvalidArgument
	case apperr.KindNetwork:
		if e.Code == apperr.CodeRateLimited {
			return codes.ResourceExhausted
		}
		return codes.Unavailable
	case apperr.KindBusinessLogic:
		switch e.Code {
		case apperr.CodeNotFound:
			return codes.NotFound
		case apperr.CodeDuplicateAcronym, apperr.CodeDuplicateEntry:
			return codes.AlreadyExists
		default:
			return codes.FailedPrecondition
		}
	default:
		return codes.Internal
	}
}
