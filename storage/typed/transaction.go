package typed

import (
	"errors"

	"github.com/jrife/typedkv/storage/kv"
	"go.uber.org/zap"
)

// Txn is the view of a tree inside one transaction attempt.
// It must only be used within the closure it was passed to
// and by one goroutine at a time.
type Txn[K, V any] struct {
	txn  kv.Transaction
	tree *Tree[K, V]
}

// Transaction runs fn against a read-write transaction and
// commits it when fn returns nil.
//
// If fn or the commit returns kv.ErrConflict the attempt is
// rolled back and fn is re-invoked against a fresh transaction
// until an attempt succeeds or fails some other way. Closures
// must therefore be prepared to run more than once and must
// propagate kv.ErrConflict from transaction operations rather
// than swallowing it.
//
// Any other error returned by fn aborts the transaction: the
// attempt is rolled back, nothing is retried and the error is
// returned to the caller verbatim.
func (tree *Tree[K, V]) Transaction(fn func(txn *Txn[K, V]) error) error {
	for {
		err := tree.attempt(fn)

		if errors.Is(err, kv.ErrConflict) {
			tree.logger.Debug("transaction conflict, retrying", zap.Error(err))

			continue
		}

		return err
	}
}

func (tree *Tree[K, V]) attempt(fn func(txn *Txn[K, V]) error) error {
	transaction, err := tree.partition.Begin(true)

	if err != nil {
		return wrapError("could not begin transaction", err)
	}

	defer transaction.Rollback()

	if err := fn(&Txn[K, V]{txn: transaction, tree: tree}); err != nil {
		return err
	}

	if err := transaction.Commit(); err != nil {
		return wrapError("could not commit transaction", err)
	}

	return nil
}

// Get returns the value at key, or nil if the key is not
// present. It observes writes made earlier in this transaction.
func (txn *Txn[K, V]) Get(key K) (*V, error) {
	return txn.tree.get(txn.txn, key)
}

// Put sets the value at key, returning the previous value at
// that key if one was set.
func (txn *Txn[K, V]) Put(key K, value V) (*V, error) {
	return txn.tree.put(txn.txn, key, value)
}

// Delete removes the key. It has no effect if the key
// is not present.
func (txn *Txn[K, V]) Delete(key K) error {
	encodedKey, err := txn.tree.keyCodec.EncodeKey(key)

	if err != nil {
		return wrapError("could not encode key", err)
	}

	return wrapError("could not delete key", txn.txn.Delete(encodedKey))
}

// ApplyBatch replays a previously built batch's queued
// operations through this transaction instead of committing
// them independently. They commit or roll back with the
// rest of the transaction.
func (txn *Txn[K, V]) ApplyBatch(batch *Batch[K, V]) error {
	return batch.replay(txn.txn)
}
