package keygen

import (
	"fmt"

	"github.com/jrife/typedkv/codec"
	"github.com/jrife/typedkv/storage/kv"
	"github.com/jrife/typedkv/storage/typed"
	"go.uber.org/zap"
)

// Config contains configuration for a key-generating tree
type Config[K, V any] struct {
	// Store is the root store containing the tree's partition
	Store kv.RootStore
	// Name identifies the partition holding the tree's contents
	Name string
	// Generator mints this tree's keys. The tree takes sole
	// ownership of the instance; it must not be shared with
	// another tree.
	Generator Generator[K]
	// KeyCodec translates keys to and from their stored
	// representation. It must be order-preserving: the
	// generator's seed scan reads the greatest encoded key.
	KeyCodec codec.Key[K]
	// ValueCodec translates values to and from their stored representation
	ValueCodec codec.Codec[V]
	// Logger is optional. If nil the global zap logger is used.
	Logger *zap.Logger
}

// Tree is a typed tree whose keys are minted by a Generator.
// The full typed tree surface is available through the embedded
// tree; Insert, InsertFunc and NextKey draw fresh keys from the
// generator.
//
// The promoted Put writes at an explicit key, bypassing key
// generation. The tree does not check explicit keys against the
// generator's sequence: writing a key the generator has not yet
// minted will be silently overwritten once the generator reaches
// it (last writer wins). Callers that need a key before
// constructing its value should mint one with NextKey, or use
// InsertFunc, rather than choosing their own.
type Tree[K, V any] struct {
	*typed.Tree[K, V]
	generator Generator[K]
}

// Open opens the tree stored in the named partition, creating
// the partition if it does not exist, and initializes the key
// generator from the tree's contents. It fails if the partition
// cannot be opened or if generator initialization fails; it
// never falls back to an unseeded generator.
func Open[K, V any](config Config[K, V]) (*Tree[K, V], error) {
	if config.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}

	tree, err := typed.Open(typed.TreeConfig[K, V]{
		Store:      config.Store,
		Name:       config.Name,
		KeyCodec:   config.KeyCodec,
		ValueCodec: config.ValueCodec,
		Logger:     config.Logger,
	})

	if err != nil {
		return nil, err
	}

	if err := config.Generator.Initialize(tree); err != nil {
		return nil, fmt.Errorf("could not initialize key generator: %s", err.Error())
	}

	return &Tree[K, V]{Tree: tree, generator: config.Generator}, nil
}

// OpenCounter opens a tree with automatically generated,
// continuously increasing uint64 keys.
func OpenCounter[V any](store kv.RootStore, name string, valueCodec codec.Codec[V]) (*Tree[uint64, V], error) {
	return Open(Config[uint64, V]{
		Store:      store,
		Name:       name,
		Generator:  NewCounter(),
		KeyCodec:   codec.Uint64{},
		ValueCodec: valueCodec,
	})
}

// Insert writes value at a freshly minted key, returning the
// key and the previous value at that key if one was set. A
// previous value can only exist if an explicit-key write
// collided with the generator's sequence.
//
// If the write fails the minted key is still consumed; it is
// never reissued.
func (tree *Tree[K, V]) Insert(value V) (K, *V, error) {
	key := tree.generator.NextKey()
	previous, err := tree.Tree.Put(key, value)

	return key, previous, err
}

// InsertFunc mints a key, invokes f with it to construct the
// value, then writes the value at that key. It exists for
// value shapes that embed their own key and can only be
// constructed once the key is known. f must be pure: it may
// be invoked before the write and must not touch the tree.
func (tree *Tree[K, V]) InsertFunc(f func(key K) V) (K, *V, error) {
	key := tree.generator.NextKey()
	previous, err := tree.Tree.Put(key, f(key))

	return key, previous, err
}

// NextKey mints a key without writing anything. The key is
// consumed: the generator will never return it again, whether
// or not the caller ever writes it.
func (tree *Tree[K, V]) NextKey() K {
	return tree.generator.NextKey()
}

// Generator returns the generator minting this tree's keys
func (tree *Tree[K, V]) Generator() Generator[K] {
	return tree.generator
}
