package rpcerr

import "fmt"

// ServerError is the error type handlers raise to control what
// reaches the wire. Only Kind and UnsafeMessage are ever transmitted
// to the client; InternalMessage is reported to the server's
// reportError sink but never sent (spec §7).
type ServerError struct {
	Kind            Kind
	InternalMessage string
	UnsafeMessage   string
}

func NewServerError(kind Kind, internalMessage, unsafeMessage string) *ServerError {
	return &ServerError{Kind: kind, InternalMessage: internalMessage, UnsafeMessage: unsafeMessage}
}

func (e *ServerError) Error() string {
	if e.InternalMessage != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.InternalMessage)
	}
	return string(e.Kind)
}

// ClientError is the error the client engine surfaces for a
// server-reported (or HTTP-status-derived) RPC failure.
type ClientError struct {
	Kind            Kind
	Message         string
	ResponseContext any
}

func NewClientError(kind Kind, message string, responseContext any) *ClientError {
	return &ClientError{Kind: kind, Message: message, ResponseContext: responseContext}
}

func (e *ClientError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

// ProtocolError signals a violation of the stream/unary contract
// itself (malformed trailer, zero or multiple messages on a unary
// call, unexpected frame ordering) rather than a server-reported
// status.
type ProtocolError struct {
	Message string
}

func NewProtocolError(format string, args ...any) *ProtocolError {
	return &ProtocolError{Message: fmt.Sprintf(format, args...)}
}

func (e *ProtocolError) Error() string { return "protocol error: " + e.Message }

// KindValue classifies a ProtocolError for callers that need a Kind
// instead of a typed error; it is always Internal.
func (e *ProtocolError) KindValue() Kind { return Internal }

// RequestContextError wraps a failure from
// ClientContextConnector.ProvideRequestContext.
type RequestContextError struct {
	Cause error
}

func NewRequestContextError(cause error) *RequestContextError {
	return &RequestContextError{Cause: cause}
}

func (e *RequestContextError) Error() string { return "request context error: " + e.Cause.Error() }

func (e *RequestContextError) Unwrap() error { return e.Cause }

// ErrCanceled is returned by the Unary and Collect adapters when the
// underlying stream ends with a Canceled event.
var ErrCanceled = NewClientError(Canceled, "stream canceled", nil)
