package client

import (
	"context"

	"github.com/grpcweb-go/rpc/stream"
)

// Invoke performs one unary call and decodes its single response into
// a fresh *Resp (spec §4.3 "Unary adapter" applied to the client
// engine's stream).
func Invoke[Req, Resp any](ctx context.Context, conn *ClientConn, method string, req *Req, opts ...CallOption) (*Resp, error) {
	s := conn.call(ctx, method, req, func() any { return new(Resp) }, opts)

	v, err := stream.Unary(ctx, s)
	if err != nil {
		return nil, err
	}

	return v.(*Resp), nil
}

// NewServerStream opens a server-streaming call and returns its raw
// Stream; callers drive it directly or promote it with
// stream.Collect/stream.Transform. The stream is dormant until its
// Start method is called.
func NewServerStream[Req, Resp any](ctx context.Context, conn *ClientConn, method string, req *Req, opts ...CallOption) stream.Stream {
	return conn.call(ctx, method, req, func() any { return new(Resp) }, opts)
}

// CollectServerStream opens a server-streaming call and resolves with
// every decoded *Resp message in order (spec §4.3 "Stream-as-array
// adapter").
func CollectServerStream[Req, Resp any](ctx context.Context, conn *ClientConn, method string, req *Req, opts ...CallOption) ([]*Resp, error) {
	s := NewServerStream[Req, Resp](ctx, conn, method, req, opts...)

	values, err := stream.Collect(ctx, s)
	if err != nil {
		return nil, err
	}

	out := make([]*Resp, len(values))
	for i, v := range values {
		out[i] = v.(*Resp)
	}

	return out, nil
}
