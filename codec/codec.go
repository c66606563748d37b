// Package codec defines how typed keys and values are
// serialized to the byte representation stored by kv drivers.
package codec

// Codec encodes and decodes values of type V to and
// from the byte representation stored by a kv driver.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// Key encodes and decodes keys of type K. Implementations
// must be order-preserving: for any keys a and b, the encoding
// of a must compare lexicographically to the encoding of b the
// same way a compares to b. Ordered iteration, Last and the
// max-key seeding of key generators all depend on this property.
type Key[K any] interface {
	EncodeKey(K) ([]byte, error)
	DecodeKey([]byte) (K, error)
}
