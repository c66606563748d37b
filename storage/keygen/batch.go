package keygen

import (
	"github.com/jrife/typedkv/storage/typed"
)

// Batch is an ordered set of pending writes whose keys are
// minted by the parent tree's generator. Keys are drawn from
// the same sequence as every other write path at the moment
// Insert is called, not when the batch is applied, so a batch
// that is built and then discarded still consumes key-space.
// A batch must only be used by one goroutine at a time.
type Batch[K, V any] struct {
	generator Generator[K]
	inner     *typed.Batch[K, V]
}

// NewBatch returns an empty batch bound to this tree's generator
func (tree *Tree[K, V]) NewBatch() *Batch[K, V] {
	return &Batch[K, V]{generator: tree.generator, inner: tree.Tree.NewBatch()}
}

// Insert queues a write of value at a freshly minted key,
// returning the key.
func (batch *Batch[K, V]) Insert(value V) (K, error) {
	key := batch.generator.NextKey()

	return key, batch.inner.Put(key, value)
}

// Remove queues a removal of an explicit key
func (batch *Batch[K, V]) Remove(key K) error {
	return batch.inner.Delete(key)
}

// Len returns the number of queued operations
func (batch *Batch[K, V]) Len() int {
	return batch.inner.Len()
}

// ApplyBatch commits all of the batch's queued operations in
// one transaction. On success all of them become visible
// together; on failure none do. A batch that is never applied
// leaves the tree untouched.
func (tree *Tree[K, V]) ApplyBatch(batch *Batch[K, V]) error {
	return tree.Tree.ApplyBatch(batch.inner)
}
