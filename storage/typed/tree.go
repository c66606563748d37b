package typed

import (
	"errors"
	"fmt"

	"github.com/jrife/typedkv/codec"
	"github.com/jrife/typedkv/storage/kv"
	"github.com/jrife/typedkv/storage/kv/keys"
	"go.uber.org/zap"
)

// TreeConfig contains configuration for a tree
type TreeConfig[K, V any] struct {
	// Store is the root store containing the tree's partition
	Store kv.RootStore
	// Name identifies the partition holding the tree's contents.
	// Opening the same name on the same store yields the same tree.
	Name string
	// KeyCodec translates keys to and from their stored representation.
	// It must be order-preserving (see codec.Key).
	KeyCodec codec.Key[K]
	// ValueCodec translates values to and from their stored representation
	ValueCodec codec.Codec[V]
	// Logger is optional. If nil the global zap logger is used.
	Logger *zap.Logger
}

// Tree is a typed, sorted key-value map stored in one partition
// of a kv root store. All operations are safe for concurrent use;
// transactions within the tree are strictly serializable per the
// partition's contract.
type Tree[K, V any] struct {
	partition  kv.Partition
	keyCodec   codec.Key[K]
	valueCodec codec.Codec[V]
	logger     *zap.Logger
}

// KV is one typed key-value pair
type KV[K, V any] struct {
	Key   K
	Value V
}

// Open opens the tree stored in the named partition, creating
// the partition if it does not exist.
func Open[K, V any](config TreeConfig[K, V]) (*Tree[K, V], error) {
	if config.Store == nil {
		return nil, fmt.Errorf("store is required")
	}

	if config.Name == "" {
		return nil, fmt.Errorf("name is required")
	}

	if config.KeyCodec == nil {
		return nil, fmt.Errorf("key codec is required")
	}

	if config.ValueCodec == nil {
		return nil, fmt.Errorf("value codec is required")
	}

	logger := config.Logger

	if logger == nil {
		logger = zap.L()
	}

	logger = logger.With(zap.String("tree", config.Name))

	partition := config.Store.Partition([]byte(config.Name))

	if err := partition.Create(); err != nil {
		return nil, wrapError(fmt.Sprintf("could not create partition %s", config.Name), err)
	}

	logger.Debug("opened tree")

	return &Tree[K, V]{
		partition:  partition,
		keyCodec:   config.KeyCodec,
		valueCodec: config.ValueCodec,
		logger:     logger,
	}, nil
}

// Name returns the name of the partition holding this tree
func (tree *Tree[K, V]) Name() string {
	return string(tree.partition.Name())
}

// Get returns the value at key, or nil if the key is not present
func (tree *Tree[K, V]) Get(key K) (*V, error) {
	var value *V

	err := tree.view(func(m kv.MapReader) error {
		var err error

		value, err = tree.get(m, key)

		return err
	})

	if err != nil {
		return nil, err
	}

	return value, nil
}

// Put sets the value at key, returning the previous value at
// that key if one was set.
func (tree *Tree[K, V]) Put(key K, value V) (*V, error) {
	var previous *V

	err := tree.update(func(m kv.Map) error {
		var err error

		previous, err = tree.put(m, key, value)

		return err
	})

	if err != nil {
		return nil, err
	}

	return previous, nil
}

// Delete removes the key. It has no effect if the key
// is not present.
func (tree *Tree[K, V]) Delete(key K) error {
	return tree.update(func(m kv.Map) error {
		encodedKey, err := tree.keyCodec.EncodeKey(key)

		if err != nil {
			return fmt.Errorf("could not encode key: %s", err.Error())
		}

		return m.Delete(encodedKey)
	})
}

// First returns the least-keyed entry in the tree, or nil
// if the tree is empty.
func (tree *Tree[K, V]) First() (*KV[K, V], error) {
	return tree.edge(kv.SortOrderAsc)
}

// Last returns the greatest-keyed entry in the tree, or nil
// if the tree is empty.
func (tree *Tree[K, V]) Last() (*KV[K, V], error) {
	return tree.edge(kv.SortOrderDesc)
}

// LastKey returns the greatest key in the tree. ok is false
// if the tree is empty.
func (tree *Tree[K, V]) LastKey() (K, bool, error) {
	var key K
	var ok bool

	err := tree.view(func(m kv.MapReader) error {
		iter, err := m.Keys(keys.All(), kv.SortOrderDesc)

		if err != nil {
			return wrapError("could not create iterator", err)
		}

		if !iter.Next() {
			return iter.Error()
		}

		key, err = tree.keyCodec.DecodeKey(iter.Key())

		if err != nil {
			return fmt.Errorf("could not decode key: %s", err.Error())
		}

		ok = true

		return nil
	})

	if err != nil {
		var zero K

		return zero, false, err
	}

	return key, ok, nil
}

// Bounds restricts a Range traversal to keys k such that
// Min <= k < Max. A nil bound is unbounded.
type Bounds[K any] struct {
	Min *K
	Max *K
}

// RangeFunc is invoked by Range with each key-value pair.
// Returning false stops the traversal early. Returning an
// error stops the traversal and propagates the error.
type RangeFunc[K, V any] func(key K, value V) (bool, error)

// Range invokes fn with each entry whose key falls within
// bounds, in the given order.
func (tree *Tree[K, V]) Range(bounds Bounds[K], order kv.SortOrder, fn RangeFunc[K, V]) error {
	return tree.view(func(m kv.MapReader) error {
		keyRange, err := tree.keyRange(bounds)

		if err != nil {
			return err
		}

		iter, err := m.Keys(keyRange, order)

		if err != nil {
			return wrapError("could not create iterator", err)
		}

		for iter.Next() {
			key, err := tree.keyCodec.DecodeKey(iter.Key())

			if err != nil {
				return fmt.Errorf("could not decode key: %s", err.Error())
			}

			value, err := tree.valueCodec.Decode(iter.Value())

			if err != nil {
				return fmt.Errorf("could not decode value: %s", err.Error())
			}

			more, err := fn(key, value)

			if err != nil {
				return err
			}

			if !more {
				return nil
			}
		}

		return iter.Error()
	})
}

// Partition returns the underlying partition holding this tree
func (tree *Tree[K, V]) Partition() kv.Partition {
	return tree.partition
}

func (tree *Tree[K, V]) keyRange(bounds Bounds[K]) (keys.Range, error) {
	keyRange := keys.All()

	if bounds.Min != nil {
		encoded, err := tree.keyCodec.EncodeKey(*bounds.Min)

		if err != nil {
			return keys.Range{}, fmt.Errorf("could not encode key: %s", err.Error())
		}

		keyRange = keyRange.Gte(encoded)
	}

	if bounds.Max != nil {
		encoded, err := tree.keyCodec.EncodeKey(*bounds.Max)

		if err != nil {
			return keys.Range{}, fmt.Errorf("could not encode key: %s", err.Error())
		}

		keyRange = keyRange.Lt(encoded)
	}

	return keyRange, nil
}

func (tree *Tree[K, V]) edge(order kv.SortOrder) (*KV[K, V], error) {
	var result *KV[K, V]

	err := tree.view(func(m kv.MapReader) error {
		iter, err := m.Keys(keys.All(), order)

		if err != nil {
			return wrapError("could not create iterator", err)
		}

		if !iter.Next() {
			return iter.Error()
		}

		key, err := tree.keyCodec.DecodeKey(iter.Key())

		if err != nil {
			return fmt.Errorf("could not decode key: %s", err.Error())
		}

		value, err := tree.valueCodec.Decode(iter.Value())

		if err != nil {
			return fmt.Errorf("could not decode value: %s", err.Error())
		}

		result = &KV[K, V]{Key: key, Value: value}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return result, nil
}

func (tree *Tree[K, V]) get(m kv.MapReader, key K) (*V, error) {
	encodedKey, err := tree.keyCodec.EncodeKey(key)

	if err != nil {
		return nil, fmt.Errorf("could not encode key: %s", err.Error())
	}

	raw, err := m.Get(encodedKey)

	if err != nil {
		return nil, wrapError("could not get key", err)
	}

	if raw == nil {
		return nil, nil
	}

	value, err := tree.valueCodec.Decode(raw)

	if err != nil {
		return nil, fmt.Errorf("could not decode value: %s", err.Error())
	}

	return &value, nil
}

func (tree *Tree[K, V]) put(m kv.Map, key K, value V) (*V, error) {
	encodedKey, err := tree.keyCodec.EncodeKey(key)

	if err != nil {
		return nil, fmt.Errorf("could not encode key: %s", err.Error())
	}

	encodedValue, err := tree.valueCodec.Encode(value)

	if err != nil {
		return nil, fmt.Errorf("could not encode value: %s", err.Error())
	}

	raw, err := m.Get(encodedKey)

	if err != nil {
		return nil, wrapError("could not get key", err)
	}

	var previous *V

	if raw != nil {
		decoded, err := tree.valueCodec.Decode(raw)

		if err != nil {
			return nil, fmt.Errorf("could not decode value: %s", err.Error())
		}

		previous = &decoded
	}

	if err := m.Put(encodedKey, encodedValue); err != nil {
		return nil, wrapError("could not put key", err)
	}

	return previous, nil
}

func (tree *Tree[K, V]) view(fn func(m kv.MapReader) error) error {
	transaction, err := tree.partition.Begin(false)

	if err != nil {
		return wrapError("could not begin transaction", err)
	}

	defer transaction.Rollback()

	return fn(transaction)
}

func (tree *Tree[K, V]) update(fn func(m kv.Map) error) error {
	transaction, err := tree.partition.Begin(true)

	if err != nil {
		return wrapError("could not begin transaction", err)
	}

	defer transaction.Rollback()

	if err := fn(transaction); err != nil {
		return err
	}

	if err := transaction.Commit(); err != nil {
		return wrapError("could not commit transaction", err)
	}

	return nil
}

// wrapError adds context to driver errors while letting the
// kv sentinels pass through unmodified so callers can match
// on them.
func wrapError(wrap string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, kv.ErrClosed):
		fallthrough
	case errors.Is(err, kv.ErrNoSuchPartition):
		fallthrough
	case errors.Is(err, kv.ErrConflict):
		return err
	}

	return fmt.Errorf("%s: %s", wrap, err.Error())
}
