package codec_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grpcweb-go/rpc/codec"
)

type incrementReq struct {
	Value int `json:"value"`
}

func TestJSONRoundTrip(t *testing.T) {
	in := incrementReq{Value: 42}

	b, err := codec.JSON.EncodeRequest("increment", in)
	require.NoError(t, err)

	var out incrementReq
	require.NoError(t, codec.JSON.DecodeRequest("increment", b, &out))

	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONEncodeNilRejected(t *testing.T) {
	_, err := codec.JSON.EncodeRequest("increment", nil)
	assert.ErrorIs(t, err, codec.ErrNilValue)
}

func TestJSONDecodeRejectsArray(t *testing.T) {
	var out incrementReq
	err := codec.JSON.DecodeMessage("increment", []byte(`[1,2,3]`), &out)
	assert.ErrorIs(t, err, codec.ErrNotAnObject)
}

func TestJSONDecodeRejectsScalar(t *testing.T) {
	var out incrementReq
	err := codec.JSON.DecodeMessage("increment", []byte(`42`), &out)
	assert.ErrorIs(t, err, codec.ErrNotAnObject)
}

func TestTrailerRoundTrip(t *testing.T) {
	md := map[string]string{
		"Grpc-Status":  "0",
		"X-Empty":      "",
		"X-Custom-Key": "value",
	}

	b, err := codec.JSON.EncodeTrailer(md)
	require.NoError(t, err)

	got, err := codec.JSON.DecodeTrailer(b)
	require.NoError(t, err)

	assert.Equal(t, "0", got["grpc-status"])
	assert.Equal(t, "value", got["x-custom-key"])
	_, hasEmpty := got["x-empty"]
	assert.False(t, hasEmpty, "empty-valued entries must be omitted from the wire")
}

func TestTrailerDecodeNormalizesAndTrims(t *testing.T) {
	got, err := codec.JSON.DecodeTrailer([]byte("Grpc-Status:  2 \r\nGrpc-Message: oops\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "2", got["grpc-status"])
	assert.Equal(t, "oops", got["grpc-message"])
}

func TestRegistryDefaultsToJSON(t *testing.T) {
	r := codec.NewRegistry()
	c, ok := r.Lookup("application/grpc-web+json")
	require.True(t, ok)
	assert.Equal(t, codec.JSON.ContentType(), c.ContentType())
	assert.Equal(t, codec.JSON.ContentType(), r.Default().ContentType())
}
