package codec

import (
	"encoding/binary"
	"fmt"

	google_uuid "github.com/google/uuid"
)

// Uint64 is an order-preserving Key codec for uint64
// keys. Keys are encoded as 8 big-endian bytes so that
// byte order matches numeric order.
type Uint64 struct{}

var _ Key[uint64] = Uint64{}

// EncodeKey implements Key.EncodeKey
func (Uint64) EncodeKey(key uint64) ([]byte, error) {
	encoded := make([]byte, 8)

	binary.BigEndian.PutUint64(encoded, key)

	return encoded, nil
}

// DecodeKey implements Key.DecodeKey
func (Uint64) DecodeKey(encoded []byte) (uint64, error) {
	if len(encoded) != 8 {
		return 0, fmt.Errorf("key must be 8 bytes, got %d", len(encoded))
	}

	return binary.BigEndian.Uint64(encoded), nil
}

// String is an order-preserving Key codec for string keys.
// The empty string is not a valid key.
type String struct{}

var _ Key[string] = String{}

// EncodeKey implements Key.EncodeKey
func (String) EncodeKey(key string) ([]byte, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("key is empty")
	}

	return []byte(key), nil
}

// DecodeKey implements Key.DecodeKey
func (String) DecodeKey(encoded []byte) (string, error) {
	return string(encoded), nil
}

// Bytes is an order-preserving Key codec for byte-slice keys.
// A nil or empty slice is not a valid key.
type Bytes struct{}

var _ Key[[]byte] = Bytes{}

// EncodeKey implements Key.EncodeKey
func (Bytes) EncodeKey(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("key is nil or empty")
	}

	encoded := make([]byte, len(key))

	copy(encoded, key)

	return encoded, nil
}

// DecodeKey implements Key.DecodeKey
func (Bytes) DecodeKey(encoded []byte) ([]byte, error) {
	key := make([]byte, len(encoded))

	copy(key, encoded)

	return key, nil
}

// UUID is a Key codec for uuid.UUID keys, encoded as their
// 16 raw bytes. Byte order matches uuid.UUID comparison order,
// though UUID keys carry no meaningful ordering for consumers.
type UUID struct{}

var _ Key[google_uuid.UUID] = UUID{}

// EncodeKey implements Key.EncodeKey
func (UUID) EncodeKey(key google_uuid.UUID) ([]byte, error) {
	encoded := make([]byte, len(key))

	copy(encoded, key[:])

	return encoded, nil
}

// DecodeKey implements Key.DecodeKey
func (UUID) DecodeKey(encoded []byte) (google_uuid.UUID, error) {
	key, err := google_uuid.FromBytes(encoded)

	if err != nil {
		return google_uuid.UUID{}, fmt.Errorf("could not decode uuid key: %s", err.Error())
	}

	return key, nil
}
