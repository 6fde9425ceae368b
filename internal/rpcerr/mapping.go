package rpcerr

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// grpcCode is the exhaustive Kind -> gRPC-Web numeric status code
// table (spec §6), expressed against google.golang.org/grpc/codes so
// the wire constant and the well-known gRPC vocabulary never drift
// apart.
var grpcCode = map[Kind]codes.Code{
	Canceled:           codes.Canceled,
	Unknown:            codes.Unknown,
	InvalidArgument:    codes.InvalidArgument,
	NotFound:           codes.NotFound,
	AlreadyExists:      codes.AlreadyExists,
	PermissionDenied:   codes.PermissionDenied,
	ResourceExhausted:  codes.ResourceExhausted,
	FailedPrecondition: codes.FailedPrecondition,
	Unimplemented:      codes.Unimplemented,
	Internal:           codes.Internal,
	Unavailable:        codes.Unavailable,
	Unauthenticated:    codes.Unauthenticated,
}

var kindFromGRPCCode = func() map[codes.Code]Kind {
	m := make(map[codes.Code]Kind, len(grpcCode))
	for k, c := range grpcCode {
		m[c] = k
	}
	return m
}()

// GRPCCode returns the numeric grpc-status code for k. Kinds with no
// canonical gRPC assignment (there are none in this closed set) would
// fall back to codes.Unknown.
func (k Kind) GRPCCode() codes.Code {
	if c, ok := grpcCode[k]; ok {
		return c
	}
	return codes.Unknown
}

// KindFromGRPCCode maps a numeric grpc-status code back to a Kind.
// An unrecognized code maps to Unknown.
func KindFromGRPCCode(c codes.Code) Kind {
	if k, ok := kindFromGRPCCode[c]; ok {
		return k
	}
	return Unknown
}

// httpStatus is the exhaustive Kind -> HTTP status table (spec §6).
var httpStatus = map[Kind]int{
	Unknown:            http.StatusInternalServerError,
	Canceled:           http.StatusInternalServerError,
	Internal:           http.StatusInternalServerError,
	InvalidArgument:    http.StatusBadRequest,
	FailedPrecondition: http.StatusBadRequest,
	NotFound:           http.StatusNotFound,
	AlreadyExists:      http.StatusConflict,
	ResourceExhausted:  http.StatusTooManyRequests,
	PermissionDenied:   http.StatusForbidden,
	Unimplemented:      http.StatusNotImplemented,
	Unavailable:        http.StatusServiceUnavailable,
	Unauthenticated:    http.StatusUnauthorized,
}

// HTTPStatus returns the HTTP status code the server engine sets when
// an error occurs before any response header has been sent.
func (k Kind) HTTPStatus() int {
	if s, ok := httpStatus[k]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// KindFromHTTPStatus maps an HTTP status code observed by the client
// engine back to a Kind, per spec §6 ("unmapped HTTP status -> unknown
// kind" plus the inbound-only decodes for 413/502/504). Statuses that
// several kinds share map to one fixed kind: 400 to InvalidArgument and
// 500 to Unknown.
func KindFromHTTPStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return InvalidArgument
	case http.StatusInternalServerError:
		return Unknown
	case http.StatusBadGateway, http.StatusGatewayTimeout:
		return Unavailable
	}

	for k, s := range httpStatus {
		if s == status {
			return k
		}
	}

	return Unknown
}
