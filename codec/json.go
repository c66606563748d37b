package codec

import (
	"encoding/json"
)

// JSON is a Codec that serializes values with encoding/json.
// The zero value is ready to use.
type JSON[V any] struct{}

var _ Codec[struct{}] = JSON[struct{}]{}

// Encode implements Codec.Encode
func (JSON[V]) Encode(value V) ([]byte, error) {
	return json.Marshal(value)
}

// Decode implements Codec.Decode
func (JSON[V]) Decode(encoded []byte) (V, error) {
	var value V

	err := json.Unmarshal(encoded, &value)

	return value, err
}
