package errors

import (
	"net/http"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const errorDomain = "chat-gate"

// MapToGRPCError converts a service error into a gRPC status. Internal causes
// never leave the process: the caller only sees a generic message.
func MapToGRPCError(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if !As(err, &e) {
		return status.Error(codes.Internal, "internal error")
	}

	code := grpcCode(e.Kind)
	if e.Kind == KindInternal {
		return status.Error(code, "internal error")
	}

	st := status.New(code, e.Message)
	if len(e.Meta) == 0 {
		return st.Err()
	}
	detailed, detailErr := st.WithDetails(&errdetails.ErrorInfo{
		Reason:   e.Kind.String(),
		Domain:   errorDomain,
		Metadata: e.Meta,
	})
	if detailErr != nil {
		return st.Err()
	}
	return detailed.Err()
}

func grpcCode(kind Kind) codes.Code {
	switch kind {
	case KindValidation:
		return codes.InvalidArgument
	case KindAuthorization:
		return codes.PermissionDenied
	case KindNotFound:
		return codes.NotFound
	case KindConflict:
		return codes.AlreadyExists
	case KindUnauthenticated:
		return codes.Unauthenticated
	default:
		return codes.Internal
	}
}

// HTTPStatus maps an error to the status code of the HTTP-style contract.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// ConflictMeta extracts the reconciliation metadata from a gRPC error built by
// MapToGRPCError. It returns nil when the status carries none.
func ConflictMeta(err error) map[string]string {
	st, ok := status.FromError(err)
	if !ok {
		return nil
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok {
			return info.GetMetadata()
		}
	}
	return nil
}
