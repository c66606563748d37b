package keygen_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jrife/typedkv/codec"
	"github.com/jrife/typedkv/storage/keygen"
	"github.com/jrife/typedkv/storage/kv"
	"github.com/jrife/typedkv/storage/kv/plugins"
)

type event struct {
	ID   uint64 `cbor:"id"`
	Name string `cbor:"name"`
}

type tempStoreBuilder func(t *testing.T) kv.RootStore

func builder(plugin kv.Plugin) tempStoreBuilder {
	return func(t *testing.T) kv.RootStore {
		store, err := plugin.NewTempRootStore()

		if err != nil {
			t.Fatalf("could not build a %s store: %s", plugin.Name(), err.Error())
		}

		t.Cleanup(func() { store.Delete() })

		return store
	}
}

func openCounterTree(t *testing.T, store kv.RootStore, name string) *keygen.Tree[uint64, string] {
	tree, err := keygen.OpenCounter[string](store, name, codec.CBOR[string]{})

	if err != nil {
		t.Fatalf("could not open tree: %s", err.Error())
	}

	return tree
}

func TestTrees(t *testing.T) {
	for _, plugin := range plugins.Plugins() {
		plugin := plugin

		t.Run(plugin.Name(), func(t *testing.T) {
			testTree(builder(plugin), t)
		})
	}
}

func testTree(builder tempStoreBuilder, t *testing.T) {
	t.Run("insert-sequence", func(t *testing.T) { testInsertSequence(builder, t) })
	t.Run("reopen-seed", func(t *testing.T) { testReopenSeed(builder, t) })
	t.Run("insert-func", func(t *testing.T) { testInsertFunc(builder, t) })
	t.Run("next-key", func(t *testing.T) { testNextKey(builder, t) })
	t.Run("explicit-key", func(t *testing.T) { testExplicitKey(builder, t) })
	t.Run("batch", func(t *testing.T) { testBatch(builder, t) })
	t.Run("transaction", func(t *testing.T) { testTransaction(builder, t) })
	t.Run("concurrent-insert", func(t *testing.T) { testConcurrentInsert(builder, t) })
	t.Run("uuid", func(t *testing.T) { testUUIDTree(builder, t) })
}

func testInsertSequence(builder tempStoreBuilder, t *testing.T) {
	store := builder(t)
	tree := openCounterTree(t, store, "events")

	for i := 0; i < 5; i++ {
		value := fmt.Sprintf("value-%d", i)
		key, previous, err := tree.Insert(value)

		if err != nil {
			t.Fatalf("could not insert value: %s", err.Error())
		}

		if key != uint64(i) {
			t.Fatalf("expected key %d, got %d", i, key)
		}

		if previous != nil {
			t.Fatalf("expected no previous value, got %s", *previous)
		}
	}

	for i := 0; i < 5; i++ {
		value, err := tree.Get(uint64(i))

		if err != nil {
			t.Fatalf("could not get key: %s", err.Error())
		}

		if value == nil || *value != fmt.Sprintf("value-%d", i) {
			t.Fatalf("unexpected value at key %d: %v", i, value)
		}
	}
}

func testReopenSeed(builder tempStoreBuilder, t *testing.T) {
	store := builder(t)
	tree := openCounterTree(t, store, "events")

	for i := 0; i < 3; i++ {
		if _, _, err := tree.Insert(fmt.Sprintf("value-%d", i)); err != nil {
			t.Fatalf("could not insert value: %s", err.Error())
		}
	}

	// A fresh handle over the same partition must seed its
	// counter past every existing key
	reopened := openCounterTree(t, store, "events")

	key, _, err := reopened.Insert("value-3")

	if err != nil {
		t.Fatalf("could not insert value: %s", err.Error())
	}

	if key != 3 {
		t.Fatalf("expected key 3, got %d", key)
	}
}

func testInsertFunc(builder tempStoreBuilder, t *testing.T) {
	store := builder(t)

	tree, err := keygen.OpenCounter[event](store, "events", codec.CBOR[event]{})

	if err != nil {
		t.Fatalf("could not open tree: %s", err.Error())
	}

	key, previous, err := tree.InsertFunc(func(key uint64) event {
		return event{ID: key, Name: "created"}
	})

	if err != nil {
		t.Fatalf("could not insert value: %s", err.Error())
	}

	if previous != nil {
		t.Fatalf("expected no previous value, got %v", *previous)
	}

	// The constructor and the store write must observe the
	// exact same key
	value, err := tree.Get(key)

	if err != nil {
		t.Fatalf("could not get key: %s", err.Error())
	}

	if value == nil {
		t.Fatalf("expected a value at key %d, got none", key)
	}

	if value.ID != key {
		t.Fatalf("expected embedded key %d, got %d", key, value.ID)
	}
}

func testNextKey(builder tempStoreBuilder, t *testing.T) {
	store := builder(t)
	tree := openCounterTree(t, store, "events")

	if key := tree.NextKey(); key != 0 {
		t.Fatalf("expected key 0, got %d", key)
	}

	// The minted key is consumed whether or not it is written
	key, _, err := tree.Insert("value")

	if err != nil {
		t.Fatalf("could not insert value: %s", err.Error())
	}

	if key != 1 {
		t.Fatalf("expected key 1, got %d", key)
	}
}

func testExplicitKey(builder tempStoreBuilder, t *testing.T) {
	store := builder(t)
	tree := openCounterTree(t, store, "events")

	// An explicit-key write bypasses the generator entirely
	if _, err := tree.Put(100, "explicit"); err != nil {
		t.Fatalf("could not put key: %s", err.Error())
	}

	key, _, err := tree.Insert("generated")

	if err != nil {
		t.Fatalf("could not insert value: %s", err.Error())
	}

	if key != 0 {
		t.Fatalf("expected key 0, got %d", key)
	}

	// Reopening seeds past the explicit key, so the explicit
	// entry is never overwritten by a later generated key
	reopened := openCounterTree(t, store, "events")

	key, _, err = reopened.Insert("after-reopen")

	if err != nil {
		t.Fatalf("could not insert value: %s", err.Error())
	}

	if key != 101 {
		t.Fatalf("expected key 101, got %d", key)
	}
}

func testBatch(builder tempStoreBuilder, t *testing.T) {
	store := builder(t)
	tree := openCounterTree(t, store, "events")

	batch := tree.NewBatch()
	batchKeys := []uint64{}

	for i := 0; i < 3; i++ {
		key, err := batch.Insert(fmt.Sprintf("value-%d", i))

		if err != nil {
			t.Fatalf("could not insert into batch: %s", err.Error())
		}

		batchKeys = append(batchKeys, key)
	}

	if diff := cmp.Diff([]uint64{0, 1, 2}, batchKeys); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}

	// Building a batch must not touch the tree
	last, err := tree.Last()

	if err != nil {
		t.Fatalf("could not read last entry: %s", err.Error())
	}

	if last != nil {
		t.Fatalf("expected an empty tree, found key %d", last.Key)
	}

	if err := tree.ApplyBatch(batch); err != nil {
		t.Fatalf("could not apply batch: %s", err.Error())
	}

	for i, key := range batchKeys {
		value, err := tree.Get(key)

		if err != nil {
			t.Fatalf("could not get key: %s", err.Error())
		}

		if value == nil || *value != fmt.Sprintf("value-%d", i) {
			t.Fatalf("unexpected value at key %d: %v", key, value)
		}
	}

	// Removals queue alongside inserts and commit atomically
	second := tree.NewBatch()

	if err := second.Remove(batchKeys[0]); err != nil {
		t.Fatalf("could not remove from batch: %s", err.Error())
	}

	if _, err := second.Insert("value-3"); err != nil {
		t.Fatalf("could not insert into batch: %s", err.Error())
	}

	if err := tree.ApplyBatch(second); err != nil {
		t.Fatalf("could not apply batch: %s", err.Error())
	}

	value, err := tree.Get(batchKeys[0])

	if err != nil {
		t.Fatalf("could not get key: %s", err.Error())
	}

	if value != nil {
		t.Fatalf("expected key %d to be removed, got %s", batchKeys[0], *value)
	}

	value, err = tree.Get(3)

	if err != nil {
		t.Fatalf("could not get key: %s", err.Error())
	}

	if value == nil || *value != "value-3" {
		t.Fatalf("unexpected value at key 3: %v", value)
	}
}

func testTransaction(builder tempStoreBuilder, t *testing.T) {
	t.Run("commit", func(t *testing.T) {
		store := builder(t)
		tree := openCounterTree(t, store, "events")

		var key uint64

		err := tree.Transaction(func(txn *keygen.Txn[uint64, string]) error {
			var err error

			key, _, err = txn.Insert("value")

			return err
		})

		if err != nil {
			t.Fatalf("transaction failed: %s", err.Error())
		}

		value, err := tree.Get(key)

		if err != nil {
			t.Fatalf("could not get key: %s", err.Error())
		}

		if value == nil || *value != "value" {
			t.Fatalf("unexpected value at key %d: %v", key, value)
		}
	})

	t.Run("retry", func(t *testing.T) {
		store := builder(t)
		tree := openCounterTree(t, store, "events")

		attempts := 0
		attemptKeys := []uint64{}

		err := tree.Transaction(func(txn *keygen.Txn[uint64, string]) error {
			attempts++

			key, _, err := txn.Insert("value")

			if err != nil {
				return err
			}

			attemptKeys = append(attemptKeys, key)

			if attempts == 1 {
				return kv.ErrConflict
			}

			return nil
		})

		if err != nil {
			t.Fatalf("transaction failed: %s", err.Error())
		}

		if attempts != 2 {
			t.Fatalf("expected 2 attempts, got %d", attempts)
		}

		// The retried attempt must not reuse the key minted by
		// the failed attempt
		if attemptKeys[1] <= attemptKeys[0] {
			t.Fatalf("key %d was reused after a conflict", attemptKeys[1])
		}

		// Only the committed attempt's write is visible
		value, err := tree.Get(attemptKeys[0])

		if err != nil {
			t.Fatalf("could not get key: %s", err.Error())
		}

		if value != nil {
			t.Fatalf("found a write from a rolled back attempt at key %d", attemptKeys[0])
		}

		value, err = tree.Get(attemptKeys[1])

		if err != nil {
			t.Fatalf("could not get key: %s", err.Error())
		}

		if value == nil {
			t.Fatalf("expected a value at key %d, got none", attemptKeys[1])
		}
	})

	t.Run("abort", func(t *testing.T) {
		store := builder(t)
		tree := openCounterTree(t, store, "events")

		abort := errors.New("abort")

		err := tree.Transaction(func(txn *keygen.Txn[uint64, string]) error {
			if _, _, err := txn.Insert("value"); err != nil {
				return err
			}

			return abort
		})

		if !errors.Is(err, abort) {
			t.Fatalf("expected the abort error, got %v", err)
		}

		// An aborted transaction leaves the tree untouched
		last, err := tree.Last()

		if err != nil {
			t.Fatalf("could not read last entry: %s", err.Error())
		}

		if last != nil {
			t.Fatalf("expected an empty tree, found key %d", last.Key)
		}
	})

	t.Run("apply-batch", func(t *testing.T) {
		store := builder(t)
		tree := openCounterTree(t, store, "events")

		batch := tree.NewBatch()

		key, err := batch.Insert("batched")

		if err != nil {
			t.Fatalf("could not insert into batch: %s", err.Error())
		}

		err = tree.Transaction(func(txn *keygen.Txn[uint64, string]) error {
			if err := txn.ApplyBatch(batch); err != nil {
				return err
			}

			_, _, err := txn.Insert("direct")

			return err
		})

		if err != nil {
			t.Fatalf("transaction failed: %s", err.Error())
		}

		value, err := tree.Get(key)

		if err != nil {
			t.Fatalf("could not get key: %s", err.Error())
		}

		if value == nil || *value != "batched" {
			t.Fatalf("unexpected value at key %d: %v", key, value)
		}
	})
}

func testConcurrentInsert(builder tempStoreBuilder, t *testing.T) {
	const (
		goroutines   = 4
		perGoroutine = 25
	)

	store := builder(t)
	tree := openCounterTree(t, store, "events")

	keys := make([][]uint64, goroutines)

	var wg sync.WaitGroup

	for i := 0; i < goroutines; i++ {
		i := i

		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := 0; j < perGoroutine; j++ {
				key, _, err := tree.Insert(fmt.Sprintf("value-%d-%d", i, j))

				if err != nil {
					t.Errorf("could not insert value: %s", err.Error())

					return
				}

				keys[i] = append(keys[i], key)
			}
		}()
	}

	wg.Wait()

	if t.Failed() {
		return
	}

	seen := map[uint64]bool{}

	for _, minted := range keys {
		for _, key := range minted {
			if seen[key] {
				t.Fatalf("key %d was minted twice", key)
			}

			seen[key] = true
		}
	}

	if len(seen) != goroutines*perGoroutine {
		t.Fatalf("expected %d distinct keys, got %d", goroutines*perGoroutine, len(seen))
	}

	// Every minted key landed in the tree
	for key := range seen {
		value, err := tree.Get(key)

		if err != nil {
			t.Fatalf("could not get key: %s", err.Error())
		}

		if value == nil {
			t.Fatalf("expected a value at key %d, got none", key)
		}
	}
}

func testUUIDTree(builder tempStoreBuilder, t *testing.T) {
	store := builder(t)

	tree, err := keygen.Open(keygen.Config[uuid.UUID, string]{
		Store:      store,
		Name:       "sessions",
		Generator:  keygen.UUID{},
		KeyCodec:   codec.UUID{},
		ValueCodec: codec.CBOR[string]{},
	})

	if err != nil {
		t.Fatalf("could not open tree: %s", err.Error())
	}

	first, _, err := tree.Insert("a")

	if err != nil {
		t.Fatalf("could not insert value: %s", err.Error())
	}

	second, _, err := tree.Insert("b")

	if err != nil {
		t.Fatalf("could not insert value: %s", err.Error())
	}

	if first == second {
		t.Fatalf("generated keys must be distinct, got %s twice", first)
	}

	value, err := tree.Get(first)

	if err != nil {
		t.Fatalf("could not get key: %s", err.Error())
	}

	if value == nil || *value != "a" {
		t.Fatalf("unexpected value at key %s: %v", first, value)
	}
}
