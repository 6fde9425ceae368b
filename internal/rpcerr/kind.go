// Package rpcerr defines the RPC error taxonomy shared by the server
// and client engines, and the tables that translate between it, HTTP
// status codes, and gRPC-Web's numeric grpc-status codes.
package rpcerr

// Kind is one of the closed set of RPC error kinds shared by client
// and server reporting.
type Kind string

const (
	Unknown            Kind = "unknown"
	Canceled           Kind = "canceled"
	InvalidArgument    Kind = "invalidArgument"
	NotFound           Kind = "notFound"
	AlreadyExists      Kind = "alreadyExists"
	ResourceExhausted  Kind = "resourceExhausted"
	PermissionDenied   Kind = "permissionDenied"
	FailedPrecondition Kind = "failedPrecondition"
	Unimplemented      Kind = "unimplemented"
	Internal           Kind = "internal"
	Unavailable        Kind = "unavailable"
	Unauthenticated    Kind = "unauthenticated"
)
