package codec

import (
	"github.com/fxamacker/cbor/v2"
)

// CBOR is a Codec that serializes values with
// fxamacker/cbor. The zero value is ready to use.
type CBOR[V any] struct{}

var _ Codec[struct{}] = CBOR[struct{}]{}

// Encode implements Codec.Encode
func (CBOR[V]) Encode(value V) ([]byte, error) {
	return cbor.Marshal(value)
}

// Decode implements Codec.Decode
func (CBOR[V]) Decode(encoded []byte) (V, error) {
	var value V

	err := cbor.Unmarshal(encoded, &value)

	return value, err
}
