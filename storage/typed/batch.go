package typed

import (
	"fmt"

	"github.com/jrife/typedkv/storage/kv"
)

// Batch is an ordered set of pending writes that is applied
// atomically as one transaction. Keys and values are encoded
// as they are added so that codec errors surface at build
// time rather than at apply time. A batch is a write-only
// builder: it exposes no read-back of its pending contents
// and touches the store only when it is applied. A batch
// must only be used by one goroutine at a time.
type Batch[K, V any] struct {
	tree *Tree[K, V]
	ops  []batchOp
}

type batchOp struct {
	key    []byte
	value  []byte
	delete bool
}

// NewBatch returns an empty batch bound to this tree
func (tree *Tree[K, V]) NewBatch() *Batch[K, V] {
	return &Batch[K, V]{tree: tree}
}

// Put queues a write of value at key
func (batch *Batch[K, V]) Put(key K, value V) error {
	encodedKey, err := batch.tree.keyCodec.EncodeKey(key)

	if err != nil {
		return fmt.Errorf("could not encode key: %s", err.Error())
	}

	encodedValue, err := batch.tree.valueCodec.Encode(value)

	if err != nil {
		return fmt.Errorf("could not encode value: %s", err.Error())
	}

	batch.ops = append(batch.ops, batchOp{key: encodedKey, value: encodedValue})

	return nil
}

// Delete queues a removal of key
func (batch *Batch[K, V]) Delete(key K) error {
	encodedKey, err := batch.tree.keyCodec.EncodeKey(key)

	if err != nil {
		return fmt.Errorf("could not encode key: %s", err.Error())
	}

	batch.ops = append(batch.ops, batchOp{key: encodedKey, delete: true})

	return nil
}

// Len returns the number of queued operations
func (batch *Batch[K, V]) Len() int {
	return len(batch.ops)
}

// ApplyBatch commits all of the batch's queued operations in
// one transaction. On success all of them become visible
// together; on failure none do.
func (tree *Tree[K, V]) ApplyBatch(batch *Batch[K, V]) error {
	return tree.update(func(m kv.Map) error {
		return batch.replay(m)
	})
}

func (batch *Batch[K, V]) replay(updater kv.MapUpdater) error {
	for _, op := range batch.ops {
		if op.delete {
			if err := updater.Delete(op.key); err != nil {
				return wrapError("could not delete key", err)
			}

			continue
		}

		if err := updater.Put(op.key, op.value); err != nil {
			return wrapError("could not put key", err)
		}
	}

	return nil
}
