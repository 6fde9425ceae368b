package client

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/grpcweb-go/rpc/codec"
	"github.com/grpcweb-go/rpc/rpcctx"
)

type dialOptions struct {
	httpClient *http.Client
	codecs     *codec.Registry
	connector  rpcctx.ClientContextConnector
	logger     *zap.Logger
}

func defaultDialOptions() dialOptions {
	return dialOptions{
		httpClient: http.DefaultClient,
		codecs:     codec.NewRegistry(),
		connector:  rpcctx.NoopConnector{},
		logger:     zap.NewNop(),
	}
}

// DialOption configures a ClientConn at construction time.
type DialOption func(*dialOptions)

// WithHTTPClient replaces the http.Client used to issue calls.
func WithHTTPClient(c *http.Client) DialOption {
	return func(o *dialOptions) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithCodecRegistry replaces the default (JSON-only) codec registry.
func WithCodecRegistry(r *codec.Registry) DialOption {
	return func(o *dialOptions) { o.codecs = r }
}

// WithContextConnector sets the ClientContextConnector used to supply
// request context and decode response context.
func WithContextConnector(c rpcctx.ClientContextConnector) DialOption {
	return func(o *dialOptions) {
		if c != nil {
			o.connector = c
		}
	}
}

// WithLogger sets the structured logger used for call-level diagnostics.
func WithLogger(l *zap.Logger) DialOption {
	return func(o *dialOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

type callOptions struct {
	contentType     string
	responseContext *any
}

// CallOption configures a single call, overriding dial-level defaults.
type CallOption func(*callOptions)

// WithContentType selects a non-default codec by its wire content type
// for one call.
func WithContentType(contentType string) CallOption {
	return func(o *callOptions) { o.contentType = contentType }
}

// WithResponseContext captures the decoded response context into dst
// once the call reaches its ready state. dst is never written if the
// call fails before a response is received.
func WithResponseContext(dst *any) CallOption {
	return func(o *callOptions) { o.responseContext = dst }
}

func (c *ClientConn) applyCallOptions(opts []CallOption) callOptions {
	co := callOptions{contentType: c.opts.codecs.Default().ContentType()}
	for _, o := range opts {
		o(&co)
	}
	return co
}
