package server

import (
	"go.uber.org/zap"

	"github.com/grpcweb-go/rpc/codec"
	"github.com/grpcweb-go/rpc/rpcctx"
)

const defaultRequestLimit = 100 * 1024 // 100 KiB, spec §4.4 step 3

type options struct {
	codecs          *codec.Registry
	requestLimit    int64
	connector       rpcctx.ServerContextConnector
	reportError     ReportErrorFunc
	logger          *zap.Logger
}

func defaultOptions() options {
	return options{
		codecs:       codec.NewRegistry(),
		requestLimit: defaultRequestLimit,
		connector:    rpcctx.NoopConnector{},
		reportError:  func(error, ErrorInfo) {},
		logger:       zap.NewNop(),
	}
}

// ServerOption configures a Server at construction time.
type ServerOption func(*options)

// WithCodecRegistry replaces the default (JSON-only) codec registry.
func WithCodecRegistry(r *codec.Registry) ServerOption {
	return func(o *options) { o.codecs = r }
}

// WithRequestLimit sets the maximum request body size in bytes.
// Exceeding it yields an invalidArgument error (spec §4.4 step 3).
func WithRequestLimit(n int64) ServerOption {
	return func(o *options) { o.requestLimit = n }
}

// WithContextConnector sets the ServerContextConnector used to decode
// request context and provide response context.
func WithContextConnector(c rpcctx.ServerContextConnector) ServerOption {
	return func(o *options) { o.connector = contextConnectorOrDefault(c) }
}

// WithReportError sets the sink every failure is reported to (spec
// §4.4 "Error capture").
func WithReportError(fn ReportErrorFunc) ServerOption {
	return func(o *options) {
		if fn != nil {
			o.reportError = fn
		}
	}
}

// WithLogger sets the structured logger used for dispatch-level
// diagnostics. A nil logger is replaced with zap.NewNop().
func WithLogger(l *zap.Logger) ServerOption {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
