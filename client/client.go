// Package client implements the gRPC-Web client engine: dialing,
// request encoding, and the per-call state machine that turns one
// HTTP round trip into a stream.Stream (spec §4.5).
package client

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"

	"github.com/grpcweb-go/rpc/internal/rpcerr"
	"github.com/grpcweb-go/rpc/rpcctx"
	"github.com/grpcweb-go/rpc/stream"
)

// ErrEmptyBaseURL is returned by New when baseURL is empty.
var ErrEmptyBaseURL = errors.New("client: baseURL must not be empty")

// ClientConn is a reusable handle to one gRPC-Web server; it holds no
// per-call state and is safe for concurrent use.
type ClientConn struct {
	baseURL string
	opts    dialOptions
}

// New returns a ClientConn that issues calls against baseURL (e.g.
// "https://api.example.com").
func New(baseURL string, opts ...DialOption) (*ClientConn, error) {
	if baseURL == "" {
		return nil, ErrEmptyBaseURL
	}

	o := defaultDialOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &ClientConn{baseURL: strings.TrimRight(baseURL, "/"), opts: o}, nil
}

// call opens one stream attempt for method. newResponse allocates a
// fresh decode target for each message frame; the returned Stream is
// dormant until Start is called (spec §4.5 step 1, "initial").
func (c *ClientConn) call(ctx context.Context, method string, req any, newResponse func() any, opts []CallOption) stream.Stream {
	co := c.applyCallOptions(opts)

	runCtx, cancel := context.WithCancel(ctx)

	s := stream.NewFunc(func(core *stream.Core) {
		c.run(runCtx, core, method, req, newResponse, co)
	})
	s.Core().OnCancel(cancel)

	return s
}

func (c *ClientConn) run(ctx context.Context, core *stream.Core, method string, req any, newResponse func() any, co callOptions) {
	fail := func(err error) {
		if ctx.Err() != nil {
			// The call's context ended (Cancel, or a canceled parent
			// context): the failure is the cancellation's own effect,
			// so the stream ends Canceled rather than with err.
			core.Cancel()
			return
		}
		c.opts.logger.Debug("rpc error", zap.Error(err), zap.String("method", method))
		core.Error(err)
	}

	cd, ok := c.opts.codecs.Lookup(co.contentType)
	if !ok {
		fail(rpcerr.NewClientError(rpcerr.Internal, "client: unsupported content type "+co.contentType, nil))
		return
	}

	reqBody, err := cd.EncodeRequest(method, req)
	if err != nil {
		fail(rpcerr.NewClientError(rpcerr.InvalidArgument, err.Error(), nil))
		return
	}

	reqCtx, err := c.opts.connector.ProvideRequestContext(ctx)
	if err != nil {
		fail(rpcerr.NewRequestContextError(err))
		return
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(reqBody))
	if err != nil {
		fail(rpcerr.NewClientError(rpcerr.Internal, err.Error(), nil))
		return
	}
	httpReq.Header.Set("Content-Type", cd.ContentType())
	httpReq.Header.Set("Accept", cd.ContentType())
	httpReq.Header.Set("x-grpc-web", "1")
	for k, v := range reqCtx {
		httpReq.Header.Set(k, rpcctx.EncodeValue(v))
	}

	resp, err := c.opts.httpClient.Do(httpReq)
	if err != nil {
		fail(rpcerr.NewClientError(rpcerr.Unavailable, err.Error(), nil))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fail(errorFromHeaders(resp.StatusCode, resp.Header))
		return
	}

	respCtx := buildResponseContext(resp.Header)
	appCtx, err := c.opts.connector.DecodeResponseContext(ctx, respCtx)
	if err != nil {
		fail(rpcerr.NewClientError(rpcerr.Internal, err.Error(), nil))
		return
	}
	if co.responseContext != nil {
		*co.responseContext = appCtx
	}

	core.Ready()

	fr := newFrameReader(resp.Body)
	for {
		f, ferr := fr.next()
		if ferr != nil {
			fail(errorFromFrameFailure(ferr))
			return
		}

		if f.IsTrailer() {
			md, derr := cd.DecodeTrailer(f.Payload)
			if derr != nil {
				fail(rpcerr.NewProtocolError("malformed trailer: %v", derr))
				return
			}
			if terr := errorFromTrailer(md); terr != nil {
				fail(terr)
				return
			}
			core.Complete()
			return
		}

		target := newResponse()
		if derr := cd.DecodeMessage(method, f.Payload, target); derr != nil {
			fail(rpcerr.NewProtocolError("malformed message: %v", derr))
			return
		}
		core.Message(target)
	}
}

// reservedResponseHeaders mirrors server.reservedRequestHeaders for
// the opposite direction: transport headers excluded from the decoded
// response EncodedContext.
var reservedResponseHeaders = map[string]struct{}{
	"content-type":   {},
	"content-length": {},
	"connection":     {},
	"date":           {},
	"grpc-status":    {},
	"grpc-message":   {},
}

func buildResponseContext(h http.Header) rpcctx.EncodedContext {
	ec := make(rpcctx.EncodedContext)
	for key, values := range h {
		lower := strings.ToLower(key)
		if _, reserved := reservedResponseHeaders[lower]; reserved {
			continue
		}
		if len(values) == 0 {
			continue
		}
		ec[lower] = rpcctx.DecodeValue(values[0])
	}
	return ec
}

// errorFromHeaders translates a non-200 HTTP response (the
// error-before-headers path on the server) into a ClientError.
func errorFromHeaders(status int, h http.Header) *rpcerr.ClientError {
	kind := rpcerr.KindFromHTTPStatus(status)
	if gs := h.Get("grpc-status"); gs != "" {
		if n, err := strconv.Atoi(gs); err == nil {
			kind = rpcerr.KindFromGRPCCode(codes.Code(n))
		}
	}
	return rpcerr.NewClientError(kind, rpcctx.DecodeValue(h.Get("grpc-message")), nil)
}

// errorFromTrailer translates a trailer frame's metadata into a
// ClientError, or nil if it reports success (spec §4.4 "Error
// serialization", the headers-already-sent case).
func errorFromTrailer(md map[string]string) *rpcerr.ClientError {
	gs, ok := md["grpc-status"]
	if !ok {
		return rpcerr.NewClientError(rpcerr.Unknown, "response closed without grpc-status", nil)
	}

	n, err := strconv.Atoi(gs)
	if err != nil {
		return rpcerr.NewClientError(rpcerr.Unknown, "unparseable grpc-status "+gs, nil)
	}
	if n == 0 {
		return nil
	}

	return rpcerr.NewClientError(rpcerr.KindFromGRPCCode(codes.Code(n)), rpcctx.DecodeValue(md["grpc-message"]), nil)
}

func errorFromFrameFailure(err error) error {
	switch {
	case errors.Is(err, io.EOF):
		return rpcerr.NewClientError(rpcerr.Unavailable, "connection closed before a trailer frame was received", nil)
	case errors.Is(err, io.ErrUnexpectedEOF):
		return rpcerr.NewProtocolError("connection closed mid-frame")
	default:
		return rpcerr.NewClientError(rpcerr.Unavailable, err.Error(), nil)
	}
}
