package server

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/grpcweb-go/rpc/codec"
	"github.com/grpcweb-go/rpc/internal/frame"
	"github.com/grpcweb-go/rpc/internal/rpcerr"
	"github.com/grpcweb-go/rpc/rpcctx"
	"github.com/grpcweb-go/rpc/schema"
)

// reservedRequestHeaders are transport-level headers excluded from
// the decoded EncodedContext: they are plumbing, not call metadata.
var reservedRequestHeaders = map[string]struct{}{
	"content-type":    {},
	"accept":          {},
	"content-length":  {},
	"host":            {},
	"connection":      {},
	"user-agent":      {},
	"te":              {},
	"accept-encoding": {},
	"x-grpc-web":      {},
}

// Server is an http.Handler implementing the gRPC-Web protocol for
// one ServiceSchema.
type Server struct {
	mux    *http.ServeMux
	schema *schema.ServiceSchema
	opts   options
}

// New mounts one route per method named in sch and returns the
// resulting http.Handler. Every method the schema declares must have
// a matching handler of the kind it declares, or New returns an
// error.
func New(sch *schema.ServiceSchema, handlers Handlers, opts ...ServerOption) (*Server, error) {
	if err := sch.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	s := &Server{mux: http.NewServeMux(), schema: sch, opts: o}

	for _, m := range sch.Methods {
		switch m.Kind {
		case schema.Unary:
			h, ok := handlers.Unary[m.Name]
			if !ok {
				return nil, errors.Errorf("server: no unary handler registered for method %q", m.Name)
			}
			s.mount(m, s.unaryRoute(m, h))
		case schema.ServerStream:
			h, ok := handlers.Stream[m.Name]
			if !ok {
				return nil, errors.Errorf("server: no stream handler registered for method %q", m.Name)
			}
			s.mount(m, s.streamRoute(m, h))
		}
	}

	return s, nil
}

func (s *Server) mount(m schema.Method, fn http.HandlerFunc) {
	s.mux.HandleFunc("/"+m.Name, fn)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// call holds the per-request state shared by the unary and
// server-stream dispatch paths (spec §3 "Lifecycles": "The server's
// per-request state ... exists only for the duration of one HTTP
// exchange.").
type call struct {
	method string
	url    string
	codec  codec.Codec
	conn   rpcctx.ServerContextConnector
}

func (s *Server) beginCall(w http.ResponseWriter, r *http.Request, method string) (*call, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return nil, false
	}

	contentType := stripMediaParams(r.Header.Get("Content-Type"))
	cd, ok := s.opts.codecs.Lookup(contentType)
	if !ok {
		http.Error(w, "unsupported content type", http.StatusNotAcceptable)
		return nil, false
	}

	accept := stripMediaParams(r.Header.Get("Accept"))
	if accept != "" && accept != cd.ContentType() {
		http.Error(w, "unacceptable", http.StatusNotAcceptable)
		return nil, false
	}

	return &call{method: method, url: r.URL.Path, codec: cd, conn: s.opts.connector}, true
}

func (s *Server) readBody(r *http.Request) ([]byte, *rpcerr.ServerError) {
	limited := io.LimitReader(r.Body, s.opts.requestLimit+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, rpcerr.NewServerError(rpcerr.Internal, err.Error(), "")
	}
	if int64(len(body)) > s.opts.requestLimit {
		return nil, rpcerr.NewServerError(rpcerr.InvalidArgument, "request exceeded limit", "Request Too Large")
	}
	return body, nil
}

// stripMediaParams discards a trailing "; charset=..." parameter list
// before a content-type/accept value is matched against the registry.
func stripMediaParams(v string) string {
	if i := strings.IndexByte(v, ';'); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

func buildRequestContext(h http.Header) rpcctx.EncodedContext {
	ec := make(rpcctx.EncodedContext)
	for key, values := range h {
		lower := strings.ToLower(key)
		if _, reserved := reservedRequestHeaders[lower]; reserved {
			continue
		}
		if len(values) == 0 {
			continue
		}
		ec[lower] = rpcctx.DecodeValue(values[0])
	}
	return ec
}

func writeResponseContextHeaders(w http.ResponseWriter, ec rpcctx.EncodedContext) {
	for k, v := range ec {
		w.Header().Set(k, rpcctx.EncodeValue(v))
	}
}

func (s *Server) report(err error, url string) {
	defer func() {
		if r := recover(); r != nil {
			s.opts.logger.Error("reportError sink panicked", zap.Any("panic", r))
		}
	}()
	s.opts.logger.Debug("rpc error", zap.Error(err), zap.String("url", url))
	s.opts.reportError(err, ErrorInfo{URL: url})
}

// unaryRoute builds the http.HandlerFunc for one unary method (spec
// §4.4 "Unary dispatch").
func (s *Server) unaryRoute(m schema.Method, handler UnaryHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := s.beginCall(w, r, m.Name)
		if !ok {
			return
		}

		body, berr := s.readBody(r)
		if berr != nil {
			s.report(berr, c.url)
			s.writeErrorBeforeHeaders(w, c, berr)
			return
		}

		reqCtx := buildRequestContext(r.Header)
		appCtx, err := c.conn.DecodeRequestContext(r.Context(), reqCtx)
		if err != nil {
			serr := serverErrorForContextFailure(err)
			s.report(rpcerr.NewRequestContextError(err), c.url)
			s.writeErrorBeforeHeaders(w, c, serr)
			return
		}

		req := m.NewRequest()
		if err := c.codec.DecodeRequest(m.Name, body, req); err != nil {
			serr := rpcerr.NewServerError(rpcerr.Internal, err.Error(), "")
			s.report(errors.Wrap(err, "decode request"), c.url)
			s.writeErrorBeforeHeaders(w, c, serr)
			return
		}

		resp, err := handler(r.Context(), req, appCtx)
		if err != nil {
			serr := asServerError(err)
			s.report(err, c.url)
			s.writeErrorBeforeHeaders(w, c, serr)
			return
		}

		respCtx, err := c.conn.ProvideResponseContext(r.Context(), nil)
		if err != nil {
			s.report(err, c.url)
			respCtx = rpcctx.EncodedContext{}
		}

		w.Header().Set("Content-Type", c.codec.ContentType())
		writeResponseContextHeaders(w, respCtx)
		w.WriteHeader(http.StatusOK)

		msgBytes, err := c.codec.EncodeMessage(m.Name, resp)
		if err != nil {
			s.report(errors.Wrap(err, "encode response"), c.url)
			s.writeErrorTrailer(w, c.codec, rpcerr.Internal, "")
			return
		}
		if err := s.writeMessageFrame(w, msgBytes); err != nil {
			s.report(err, c.url)
			return
		}

		s.writeSuccessTrailer(w, c.codec)
	}
}

// streamState tracks the notReady -> ready -> end machine from spec
// §4.4 "Server-stream dispatch".
type streamState int32

const (
	streamNotReady streamState = iota
	streamReady
	streamEnd
)

func (s *Server) streamRoute(m schema.Method, handler StreamHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := s.beginCall(w, r, m.Name)
		if !ok {
			return
		}

		body, berr := s.readBody(r)
		if berr != nil {
			s.report(berr, c.url)
			s.writeErrorBeforeHeaders(w, c, berr)
			return
		}

		reqCtx := buildRequestContext(r.Header)
		appCtx, err := c.conn.DecodeRequestContext(r.Context(), reqCtx)
		if err != nil {
			serr := serverErrorForContextFailure(err)
			s.report(rpcerr.NewRequestContextError(err), c.url)
			s.writeErrorBeforeHeaders(w, c, serr)
			return
		}

		req := m.NewRequest()
		if err := c.codec.DecodeRequest(m.Name, body, req); err != nil {
			serr := rpcerr.NewServerError(rpcerr.Internal, err.Error(), "")
			s.report(errors.Wrap(err, "decode request"), c.url)
			s.writeErrorBeforeHeaders(w, c, serr)
			return
		}

		var (
			mu      sync.Mutex
			state   = streamNotReady
			closeFn func()
		)
		flusher, _ := w.(http.Flusher)

		onReady := func(close func()) {
			mu.Lock()
			defer mu.Unlock()
			if state != streamNotReady {
				return
			}
			state = streamReady
			closeFn = close

			respCtx, err := c.conn.ProvideResponseContext(r.Context(), nil)
			if err != nil {
				s.report(err, c.url)
				respCtx = rpcctx.EncodedContext{}
			}
			w.Header().Set("Content-Type", c.codec.ContentType())
			writeResponseContextHeaders(w, respCtx)
			w.WriteHeader(http.StatusOK)
			if flusher != nil {
				flusher.Flush()
			}
		}

		onMessage := func(msg any) error {
			mu.Lock()
			defer mu.Unlock()
			if state != streamReady {
				return errors.New("onMessage called outside ready state")
			}

			msgBytes, err := c.codec.EncodeMessage(m.Name, msg)
			if err != nil {
				return errors.Wrap(err, "encode message")
			}
			if err := s.writeMessageFrame(w, msgBytes); err != nil {
				return err
			}
			if flusher != nil {
				flusher.Flush()
			}
			return nil
		}

		disconnected := make(chan struct{})
		var closeOnce sync.Once
		closeDisconnected := func() { closeOnce.Do(func() { close(disconnected) }) }

		go func() {
			select {
			case <-r.Context().Done():
				mu.Lock()
				fn := closeFn
				alreadyEnded := state == streamEnd
				mu.Unlock()
				if fn != nil && !alreadyEnded {
					fn()
				}
				closeDisconnected()
			case <-disconnected:
			}
		}()

		handlerErr := handler(r.Context(), req, StreamCallbacks{OnReady: onReady, OnMessage: onMessage}, appCtx)

		mu.Lock()
		headersSent := state != streamNotReady
		state = streamEnd
		mu.Unlock()
		closeDisconnected()

		if handlerErr != nil {
			serr := asServerError(handlerErr)
			s.report(handlerErr, c.url)
			if !headersSent {
				s.writeErrorBeforeHeaders(w, c, serr)
				return
			}
			s.writeErrorTrailer(w, c.codec, serr.Kind, serr.UnsafeMessage)
			return
		}

		if !headersSent {
			// Handler resolved without ever calling OnReady: treat as
			// a successful empty stream (spec §9 open question).
			w.Header().Set("Content-Type", c.codec.ContentType())
			w.WriteHeader(http.StatusOK)
		}

		s.writeSuccessTrailer(w, c.codec)
	}
}

func asServerError(err error) *rpcerr.ServerError {
	var se *rpcerr.ServerError
	if errors.As(err, &se) {
		return se
	}
	return rpcerr.NewServerError(rpcerr.Internal, err.Error(), "")
}

// serverErrorForContextFailure classifies a ServerContextConnector
// decode failure. A connector that wants a specific Kind can return a
// *rpcerr.ServerError directly; anything else is treated as a
// malformed request, not an internal failure.
func serverErrorForContextFailure(err error) *rpcerr.ServerError {
	var se *rpcerr.ServerError
	if errors.As(err, &se) {
		return se
	}
	return rpcerr.NewServerError(rpcerr.InvalidArgument, err.Error(), "")
}

func (s *Server) writeMessageFrame(w http.ResponseWriter, payload []byte) error {
	buf, err := frame.EncodeMessage(payload)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

func (s *Server) writeTrailerFrame(w http.ResponseWriter, md map[string]string, cd codec.Codec) error {
	body, err := cd.EncodeTrailer(md)
	if err != nil {
		return err
	}
	buf, err := frame.EncodeTrailer(body)
	if err != nil {
		return err
	}
	if _, err := w.Write(buf); err != nil {
		return err
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}

func (s *Server) writeSuccessTrailer(w http.ResponseWriter, cd codec.Codec) {
	_ = s.writeTrailerFrame(w, map[string]string{"grpc-status": "0"}, cd)
}

func (s *Server) writeErrorTrailer(w http.ResponseWriter, cd codec.Codec, kind rpcerr.Kind, unsafeMsg string) {
	md := map[string]string{"grpc-status": strconv.Itoa(int(kind.GRPCCode()))}
	if unsafeMsg != "" {
		md["grpc-message"] = rpcctx.EncodeValue(unsafeMsg)
	}
	_ = s.writeTrailerFrame(w, md, cd)
}

// writeErrorBeforeHeaders implements spec §4.4 "Error serialization"
// for the not-yet-sent-headers case: HTTP status = map(kind), trailer
// metadata set as headers, body empty.
func (s *Server) writeErrorBeforeHeaders(w http.ResponseWriter, c *call, serr *rpcerr.ServerError) {
	w.Header().Set("grpc-status", strconv.Itoa(int(serr.Kind.GRPCCode())))
	if serr.UnsafeMessage != "" {
		w.Header().Set("grpc-message", rpcctx.EncodeValue(serr.UnsafeMessage))
	}
	w.WriteHeader(serr.Kind.HTTPStatus())
}
