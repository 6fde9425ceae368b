// Package codec defines the pluggable message codec interface
// consumed by the server and client engines, and provides the default
// JSON codec.
package codec

// Codec encodes and decodes request values, message values, and
// trailer metadata for one wire content-type. Request/message shapes
// are opaque to the rest of the framework; only the codec interprets
// them.
type Codec interface {
	// ContentType is used for HTTP Accept/Content-Type negotiation.
	ContentType() string

	EncodeRequest(method string, value any) ([]byte, error)
	DecodeRequest(method string, data []byte, target any) error

	EncodeMessage(method string, value any) ([]byte, error)
	DecodeMessage(method string, data []byte, target any) error

	EncodeTrailer(metadata map[string]string) ([]byte, error)
	DecodeTrailer(data []byte) (map[string]string, error)
}

// Registry maps a content-type string to the Codec that serves it.
// Unlike the "global registries" pattern the source exhibited (spec
// §9), a Registry is always an explicit value threaded through
// server.New/client.New constructors rather than package-level state.
type Registry struct {
	codecs map[string]Codec
}

// NewRegistry returns a Registry pre-populated with the JSON codec.
func NewRegistry() *Registry {
	r := &Registry{codecs: make(map[string]Codec)}
	r.Register(JSON)
	return r
}

// Register adds or replaces the codec served for its ContentType().
func (r *Registry) Register(c Codec) {
	r.codecs[c.ContentType()] = c
}

// Lookup returns the codec registered for contentType, if any.
func (r *Registry) Lookup(contentType string) (Codec, bool) {
	c, ok := r.codecs[contentType]
	return c, ok
}

// Default returns the JSON codec, used when a caller does not select
// one explicitly.
func (r *Registry) Default() Codec {
	return JSON
}
