// Package server implements the gRPC-Web server engine: routing,
// request/context decoding, and unary/server-stream dispatch (spec
// §4.4).
package server

import (
	"context"

	"github.com/grpcweb-go/rpc/rpcctx"
)

// UnaryHandler implements one unary method. The returned response is
// encoded and sent as the call's single message; a returned error is
// serialized per spec §4.4 "Error serialization".
type UnaryHandler func(ctx context.Context, req any, appCtx any) (any, error)

// StreamCallbacks is passed to a StreamHandler so it can signal
// readiness and emit messages (spec §4.4 "Server-stream dispatch").
type StreamCallbacks struct {
	// OnReady must be called at most once, before any OnMessage call.
	// close is invoked if the client disconnects before the handler
	// finishes.
	OnReady func(close func())
	// OnMessage may be called only after OnReady; each call writes one
	// message frame to the client.
	OnMessage func(m any) error
}

// StreamHandler implements one server-streaming method. Returning nil
// without ever calling OnReady is treated as a successful, empty
// stream (spec §9 open question, resolved: follow the source).
type StreamHandler func(ctx context.Context, req any, cb StreamCallbacks, appCtx any) error

// Handlers binds method names to their implementations. Every method
// named in the ServiceSchema passed to New must have a matching entry
// of the kind the schema declares.
type Handlers struct {
	Unary  map[string]UnaryHandler
	Stream map[string]StreamHandler
}

// ErrorInfo is passed to a ReportErrorFunc alongside the error it
// reports.
type ErrorInfo struct {
	URL string
}

// ReportErrorFunc receives the failures the engine observes (spec §4.4
// "Error capture"): request, context, codec and handler failures, and
// failed message-frame writes. A failure to write a trailer frame,
// including the error trailer, is not reported. It is always invoked
// inside a recover-guarded call: a panicking sink is logged but never
// escalated.
type ReportErrorFunc func(err error, info ErrorInfo)

// contextConnectorOrDefault returns conn, or rpcctx.NoopConnector{} if
// conn is nil.
func contextConnectorOrDefault(conn rpcctx.ServerContextConnector) rpcctx.ServerContextConnector {
	if conn == nil {
		return rpcctx.NoopConnector{}
	}
	return conn
}
