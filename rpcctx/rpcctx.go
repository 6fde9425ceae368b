// Package rpcctx defines the wire representation of call context
// (EncodedContext) and the connector interfaces the server and client
// engines consume to translate it to and from application-level
// values, plus percent-encoding helpers shared by both directions.
package rpcctx

import (
	"context"
	"net/url"
)

// EncodedContext is the wire representation of request/response
// context: a mapping from lowercase header name to a single string
// value. Both directions share this representation. Values are held
// decoded; EncodeValue and DecodeValue apply the percent-encoding when
// they are written to or read from HTTP headers.
type EncodedContext map[string]string

// Clone returns a shallow copy of ec.
func (ec EncodedContext) Clone() EncodedContext {
	out := make(EncodedContext, len(ec))
	for k, v := range ec {
		out[k] = v
	}
	return out
}

// EncodeValue percent-encodes a single header value for the wire.
func EncodeValue(v string) string {
	return url.QueryEscape(v)
}

// DecodeValue percent-decodes a single header value read from the
// wire. An undecodable value is returned unchanged rather than
// erroring, matching how header values from untrusted peers are
// tolerated elsewhere in the engine.
func DecodeValue(v string) string {
	decoded, err := url.QueryUnescape(v)
	if err != nil {
		return v
	}
	return decoded
}

// ClientContextConnector supplies the request context a client
// attaches to an outgoing call and decodes the response context a
// server attaches to its reply.
type ClientContextConnector interface {
	ProvideRequestContext(ctx context.Context) (EncodedContext, error)
	DecodeResponseContext(ctx context.Context, encoded EncodedContext) (any, error)
}

// ServerContextConnector decodes the request context a client
// attached to an incoming call and supplies the response context the
// server attaches to its reply. err is non-nil when
// ProvideResponseContext is building the context for an error
// response, letting a connector choose to omit fields on failure.
type ServerContextConnector interface {
	DecodeRequestContext(ctx context.Context, encoded EncodedContext) (any, error)
	ProvideResponseContext(ctx context.Context, err error) (EncodedContext, error)
}

// NoopConnector is the zero-configuration default: it round-trips an
// empty EncodedContext and decodes to nil, satisfying both connector
// interfaces. It is the one context-connector contract the core
// itself defines, per spec §1/§6.
type NoopConnector struct{}

func (NoopConnector) ProvideRequestContext(context.Context) (EncodedContext, error) {
	return EncodedContext{}, nil
}

func (NoopConnector) DecodeResponseContext(context.Context, EncodedContext) (any, error) {
	return nil, nil
}

func (NoopConnector) DecodeRequestContext(context.Context, EncodedContext) (any, error) {
	return nil, nil
}

func (NoopConnector) ProvideResponseContext(context.Context, error) (EncodedContext, error) {
	return EncodedContext{}, nil
}
