package rpcctx_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grpcweb-go/rpc/rpcctx"
)

func TestValueRoundTrip(t *testing.T) {
	v := "hello world/special?chars=1"
	assert.Equal(t, v, rpcctx.DecodeValue(rpcctx.EncodeValue(v)))
}

func TestDecodeValueTolerant(t *testing.T) {
	// A malformed percent-escape should come back unchanged rather than error.
	assert.Equal(t, "100%", rpcctx.DecodeValue("100%"))
}

func TestNoopConnectorRoundTrips(t *testing.T) {
	var cc rpcctx.ClientContextConnector = rpcctx.NoopConnector{}
	var sc rpcctx.ServerContextConnector = rpcctx.NoopConnector{}

	encoded, err := cc.ProvideRequestContext(context.Background())
	require.NoError(t, err)
	assert.Empty(t, encoded)

	decoded, err := sc.DecodeRequestContext(context.Background(), encoded)
	require.NoError(t, err)
	assert.Nil(t, decoded)

	resp, err := sc.ProvideResponseContext(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, resp)
}
