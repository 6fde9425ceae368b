package codec

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

const jsonContentType = "application/grpc-web+json"

// ErrNilValue is returned by EncodeRequest/EncodeMessage when value is nil.
var ErrNilValue = errors.New("codec: cannot encode a nil value")

// ErrNotAnObject is returned when decoding a request or message whose
// top-level JSON value is not an object.
var ErrNotAnObject = errors.New("codec: payload must be a JSON object")

type jsonCodec struct{}

// JSON is the default codec: UTF-8 JSON, content type
// application/grpc-web+json. All requests and messages must decode
// from a root JSON object; arrays and bare scalars are rejected.
var JSON Codec = jsonCodec{}

func (jsonCodec) ContentType() string { return jsonContentType }

func (jsonCodec) EncodeRequest(_ string, value any) ([]byte, error) {
	return encodeValue(value)
}

func (jsonCodec) DecodeRequest(_ string, data []byte, target any) error {
	return decodeObject(data, target)
}

func (jsonCodec) EncodeMessage(_ string, value any) ([]byte, error) {
	return encodeValue(value)
}

func (jsonCodec) DecodeMessage(_ string, data []byte, target any) error {
	return decodeObject(data, target)
}

func encodeValue(value any) ([]byte, error) {
	if value == nil {
		return nil, ErrNilValue
	}

	b, err := json.Marshal(value)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal value")
	}

	return b, nil
}

func decodeObject(data []byte, target any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ErrNotAnObject
	}

	if err := json.Unmarshal(data, target); err != nil {
		return errors.Wrap(err, "failed to unmarshal value")
	}

	return nil
}

// EncodeTrailer renders metadata as CRLF-joined "name: value" lines.
// Keys are treated case-insensitively (lowercased on the wire) and
// entries with an empty value are omitted. Output is sorted by key so
// encoding is deterministic.
func (jsonCodec) EncodeTrailer(metadata map[string]string) ([]byte, error) {
	keys := make([]string, 0, len(metadata))
	for k, v := range metadata {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	for _, k := range keys {
		buf.WriteString(strings.ToLower(k))
		buf.WriteString(": ")
		buf.WriteString(metadata[k])
		buf.WriteString("\r\n")
	}

	return buf.Bytes(), nil
}

// DecodeTrailer parses CRLF "name: value" lines, normalizing keys to
// lowercase and trimming values.
func (jsonCodec) DecodeTrailer(data []byte) (map[string]string, error) {
	md := make(map[string]string)

	for _, line := range strings.Split(string(data), "\r\n") {
		if line == "" {
			continue
		}

		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(line[:idx]))
		value := strings.TrimSpace(line[idx+1:])
		md[key] = value
	}

	return md, nil
}
