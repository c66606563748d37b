package codec

import (
	"github.com/vmihailenco/msgpack/v5"
)

// Msgpack is a Codec that serializes values with
// vmihailenco/msgpack. The zero value is ready to use.
// Be mindful of struct tag differences vs JSON: use
// `msgpack:"fieldName"` tags for explicit control.
type Msgpack[V any] struct{}

var _ Codec[struct{}] = Msgpack[struct{}]{}

// Encode implements Codec.Encode
func (Msgpack[V]) Encode(value V) ([]byte, error) {
	return msgpack.Marshal(value)
}

// Decode implements Codec.Decode
func (Msgpack[V]) Decode(encoded []byte) (V, error) {
	var value V

	err := msgpack.Unmarshal(encoded, &value)

	return value, err
}
