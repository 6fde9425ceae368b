package rpcerr_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"

	"github.com/grpcweb-go/rpc/internal/rpcerr"
)

func TestGRPCCodeRoundTrip(t *testing.T) {
	for _, k := range []rpcerr.Kind{
		rpcerr.Canceled, rpcerr.Unknown, rpcerr.InvalidArgument, rpcerr.NotFound,
		rpcerr.AlreadyExists, rpcerr.PermissionDenied, rpcerr.ResourceExhausted,
		rpcerr.FailedPrecondition, rpcerr.Unimplemented, rpcerr.Internal,
		rpcerr.Unavailable, rpcerr.Unauthenticated,
	} {
		code := k.GRPCCode()
		assert.Equal(t, k, rpcerr.KindFromGRPCCode(code), "kind %s", k)
	}
}

func TestGRPCCodeCanonicalAssignments(t *testing.T) {
	cases := map[rpcerr.Kind]codes.Code{
		rpcerr.Canceled:           1,
		rpcerr.Unknown:            2,
		rpcerr.InvalidArgument:    3,
		rpcerr.NotFound:           5,
		rpcerr.AlreadyExists:      6,
		rpcerr.PermissionDenied:   7,
		rpcerr.ResourceExhausted:  8,
		rpcerr.FailedPrecondition: 9,
		rpcerr.Unimplemented:      12,
		rpcerr.Internal:           13,
		rpcerr.Unavailable:        14,
		rpcerr.Unauthenticated:    16,
	}
	for k, want := range cases {
		assert.Equal(t, want, k.GRPCCode(), "kind %s", k)
	}
}

func TestHTTPStatusTable(t *testing.T) {
	cases := map[rpcerr.Kind]int{
		rpcerr.InvalidArgument:    http.StatusBadRequest,
		rpcerr.FailedPrecondition: http.StatusBadRequest,
		rpcerr.NotFound:           http.StatusNotFound,
		rpcerr.AlreadyExists:      http.StatusConflict,
		rpcerr.ResourceExhausted:  http.StatusTooManyRequests,
		rpcerr.PermissionDenied:   http.StatusForbidden,
		rpcerr.Unimplemented:      http.StatusNotImplemented,
		rpcerr.Unavailable:        http.StatusServiceUnavailable,
		rpcerr.Unauthenticated:    http.StatusUnauthorized,
	}
	for k, want := range cases {
		assert.Equal(t, want, k.HTTPStatus(), "kind %s", k)
	}
	for _, k := range []rpcerr.Kind{rpcerr.Unknown, rpcerr.Canceled, rpcerr.Internal} {
		assert.Equal(t, http.StatusInternalServerError, k.HTTPStatus(), "kind %s", k)
	}
}

func TestKindFromHTTPStatusInboundOnly(t *testing.T) {
	assert.Equal(t, rpcerr.InvalidArgument, rpcerr.KindFromHTTPStatus(http.StatusRequestEntityTooLarge))
	assert.Equal(t, rpcerr.Unavailable, rpcerr.KindFromHTTPStatus(http.StatusBadGateway))
	assert.Equal(t, rpcerr.Unavailable, rpcerr.KindFromHTTPStatus(http.StatusGatewayTimeout))
}

func TestKindFromHTTPStatusUnmappedIsUnknown(t *testing.T) {
	assert.Equal(t, rpcerr.Unknown, rpcerr.KindFromHTTPStatus(http.StatusTeapot))
	assert.Equal(t, rpcerr.Unknown, rpcerr.KindFromHTTPStatus(http.StatusMethodNotAllowed))
	assert.Equal(t, rpcerr.Unknown, rpcerr.KindFromHTTPStatus(http.StatusNotAcceptable))
}

func TestKindFromHTTPStatusForwardMapping(t *testing.T) {
	for k, status := range map[rpcerr.Kind]int{
		rpcerr.InvalidArgument:   http.StatusBadRequest,
		rpcerr.NotFound:          http.StatusNotFound,
		rpcerr.AlreadyExists:     http.StatusConflict,
		rpcerr.ResourceExhausted: http.StatusTooManyRequests,
		rpcerr.PermissionDenied:  http.StatusForbidden,
		rpcerr.Unimplemented:     http.StatusNotImplemented,
		rpcerr.Unavailable:       http.StatusServiceUnavailable,
		rpcerr.Unauthenticated:   http.StatusUnauthorized,
	} {
		assert.Equal(t, k, rpcerr.KindFromHTTPStatus(status))
	}
}
