package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grpcweb-go/rpc/schema"
)

func TestNewValidatesMethodNames(t *testing.T) {
	_, err := schema.New("Greeter", schema.Method{Name: "SayHello", Kind: schema.Unary})
	assert.ErrorIs(t, err, schema.ErrInvalidMethodName)

	_, err = schema.New("Greeter", schema.Method{Name: "say-hello", Kind: schema.Unary})
	assert.ErrorIs(t, err, schema.ErrInvalidMethodName)
}

func TestNewRejectsDuplicateMethods(t *testing.T) {
	_, err := schema.New("Greeter",
		schema.Method{Name: "sayHello", Kind: schema.Unary},
		schema.Method{Name: "sayHello", Kind: schema.Unary},
	)
	assert.ErrorIs(t, err, schema.ErrDuplicateMethod)
}

func TestLookup(t *testing.T) {
	s, err := schema.New("Greeter",
		schema.Method{Name: "sayHello", Kind: schema.Unary},
		schema.Method{Name: "streamNumbers", Kind: schema.ServerStream},
	)
	require.NoError(t, err)

	m, ok := s.Lookup("streamNumbers")
	require.True(t, ok)
	assert.Equal(t, schema.ServerStream, m.Kind)

	_, ok = s.Lookup("missing")
	assert.False(t, ok)
}
