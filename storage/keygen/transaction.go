package keygen

import (
	"github.com/jrife/typedkv/storage/typed"
)

// Txn is the view of a key-generating tree inside one
// transaction attempt. The full typed transaction surface is
// available through the embedded transaction; Insert draws
// fresh keys from the tree's generator.
type Txn[K, V any] struct {
	*typed.Txn[K, V]
	generator Generator[K]
}

// Transaction runs fn against a read-write transaction with
// the same retry semantics as the typed tree: kv.ErrConflict
// rolls the attempt back and re-invokes fn, any other error
// from fn aborts and propagates verbatim.
//
// Keys minted inside fn come from the same sequence as keys
// minted anywhere else, and minting is not undone by a
// rollback: every retried attempt consumes fresh keys, so
// the keys of a committed attempt need not be contiguous.
// This key-space leak is accepted behavior, not a defect;
// monotonic keys are never required to be gapless.
func (tree *Tree[K, V]) Transaction(fn func(txn *Txn[K, V]) error) error {
	return tree.Tree.Transaction(func(txn *typed.Txn[K, V]) error {
		return fn(&Txn[K, V]{Txn: txn, generator: tree.generator})
	})
}

// Insert writes value at a freshly minted key through this
// transaction, returning the key and the previous value at
// that key if one was set. Errors from the underlying
// transaction, kv.ErrConflict in particular, must propagate
// out of the enclosing closure so the tree can retry the
// whole attempt.
func (txn *Txn[K, V]) Insert(value V) (K, *V, error) {
	key := txn.generator.NextKey()
	previous, err := txn.Txn.Put(key, value)

	return key, previous, err
}

// ApplyBatch replays a previously built batch's queued
// operations through this transaction instead of committing
// them independently.
func (txn *Txn[K, V]) ApplyBatch(batch *Batch[K, V]) error {
	return txn.Txn.ApplyBatch(batch.inner)
}
