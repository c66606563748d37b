package memory

import (
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/jrife/typedkv/storage/kv"
	"github.com/jrife/typedkv/storage/kv/keys"
)

const (
	// DriverName is the name of this storage plugin
	DriverName = "memory"
)

// Plugins returns the plugins implemented by this package
func Plugins() []kv.Plugin {
	return []kv.Plugin{
		&Plugin{},
	}
}

var _ kv.Plugin = (*Plugin)(nil)

// Plugin implements kv.Plugin for an in-memory store.
// It is meant for tests and for consumers that don't
// need durability.
type Plugin struct {
}

// Name implements kv.Plugin.Name
func (plugin *Plugin) Name() string {
	return DriverName
}

// NewRootStore implements kv.Plugin.NewRootStore
func (plugin *Plugin) NewRootStore(options kv.PluginOptions) (kv.RootStore, error) {
	return New(), nil
}

// NewTempRootStore implements kv.Plugin.NewTempRootStore
func (plugin *Plugin) NewTempRootStore() (kv.RootStore, error) {
	return New(), nil
}

func compareKeys(a, b interface{}) int {
	return bytes.Compare(a.([]byte), b.([]byte))
}

var _ kv.RootStore = (*RootStore)(nil)

// RootStore implements kv.RootStore with in-memory state.
// Each partition's contents live in a treemap that is
// replaced wholesale when a read-write transaction commits
// so that readers always observe an immutable snapshot.
type RootStore struct {
	mu         sync.Mutex
	partitions map[string]*partitionState
	closed     bool
}

type partitionState struct {
	// writer serializes read-write transactions for this partition
	writer sync.Mutex
	// current is immutable once published. Read transactions load
	// a reference to it and never observe later writes. Commits
	// publish a replacement map concurrently with reader loads, so
	// access goes through an atomic pointer.
	current atomic.Pointer[treemap.Map]
}

// New creates an empty in-memory root store
func New() *RootStore {
	return &RootStore{partitions: map[string]*partitionState{}}
}

// Close implements kv.RootStore.Close
func (store *RootStore) Close() error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if store.closed {
		return nil
	}

	store.closed = true

	// Wait for in-flight read-write transactions to finish
	for _, state := range store.partitions {
		state.writer.Lock()
		state.writer.Unlock()
	}

	store.partitions = map[string]*partitionState{}

	return nil
}

// Delete implements kv.RootStore.Delete
func (store *RootStore) Delete() error {
	return store.Close()
}

// Partitions implements kv.RootStore.Partitions
func (store *RootStore) Partitions(names keys.Range, limit int) ([][]byte, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	if store.closed {
		return nil, kv.ErrClosed
	}

	sorted := treemap.NewWith(compareKeys)

	for name := range store.partitions {
		sorted.Put([]byte(name), []byte{})
	}

	result := [][]byte{}
	iter := sorted.Iterator()

	for iter.Next() {
		name := iter.Key().([]byte)

		if names.Min != nil && bytes.Compare(name, names.Min) < 0 {
			continue
		}

		if names.Max != nil && bytes.Compare(name, names.Max) >= 0 {
			break
		}

		if limit >= 0 && len(result) >= limit {
			break
		}

		result = append(result, name)
	}

	return result, nil
}

// Partition implements kv.RootStore.Partition
func (store *RootStore) Partition(name []byte) kv.Partition {
	return &Partition{store: store, name: name}
}

var _ kv.Partition = (*Partition)(nil)

// Partition implements kv.Partition
type Partition struct {
	store *RootStore
	name  []byte
}

// Name implements kv.Partition.Name
func (partition *Partition) Name() []byte {
	return partition.name
}

// Create implements kv.Partition.Create
func (partition *Partition) Create() error {
	partition.store.mu.Lock()
	defer partition.store.mu.Unlock()

	if partition.store.closed {
		return kv.ErrClosed
	}

	if _, ok := partition.store.partitions[string(partition.name)]; !ok {
		state := &partitionState{}
		state.current.Store(treemap.NewWith(compareKeys))
		partition.store.partitions[string(partition.name)] = state
	}

	return nil
}

// Delete implements kv.Partition.Delete
func (partition *Partition) Delete() error {
	partition.store.mu.Lock()
	defer partition.store.mu.Unlock()

	if partition.store.closed {
		return kv.ErrClosed
	}

	delete(partition.store.partitions, string(partition.name))

	return nil
}

// Begin implements kv.Partition.Begin
func (partition *Partition) Begin(writable bool) (kv.Transaction, error) {
	partition.store.mu.Lock()
	state, ok := partition.store.partitions[string(partition.name)]
	closed := partition.store.closed
	partition.store.mu.Unlock()

	if closed {
		return nil, kv.ErrClosed
	}

	if !ok {
		return nil, kv.ErrNoSuchPartition
	}

	if !writable {
		return &Transaction{m: state.current.Load()}, nil
	}

	state.writer.Lock()

	return &Transaction{m: clone(state.current.Load()), state: state, writable: true}, nil
}

func clone(m *treemap.Map) *treemap.Map {
	cloned := treemap.NewWith(compareKeys)
	iter := m.Iterator()

	for iter.Next() {
		cloned.Put(iter.Key(), iter.Value())
	}

	return cloned
}

var _ kv.Transaction = (*Transaction)(nil)

// Transaction implements kv.Transaction. Read-write
// transactions mutate a private copy of the partition's
// map that is published on commit and discarded on rollback.
type Transaction struct {
	m        *treemap.Map
	state    *partitionState
	writable bool
	done     bool
}

// Put implements kv.Transaction.Put
func (transaction *Transaction) Put(key, value []byte) error {
	if err := transaction.writeCheck(key); err != nil {
		return err
	}

	if len(value) == 0 {
		return fmt.Errorf("value is nil or empty")
	}

	transaction.m.Put(dup(key), dup(value))

	return nil
}

// Delete implements kv.Transaction.Delete
func (transaction *Transaction) Delete(key []byte) error {
	if err := transaction.writeCheck(key); err != nil {
		return err
	}

	transaction.m.Remove(key)

	return nil
}

// Get implements kv.Transaction.Get
func (transaction *Transaction) Get(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("key is nil or empty")
	}

	value, ok := transaction.m.Get(key)

	if !ok {
		return nil, nil
	}

	return value.([]byte), nil
}

// Keys implements kv.Transaction.Keys
func (transaction *Transaction) Keys(r keys.Range, order kv.SortOrder) (kv.Iterator, error) {
	iter := transaction.m.Iterator()

	if order == kv.SortOrderDesc {
		iter.End()
	} else {
		iter.Begin()
	}

	return &Iterator{iter: iter, keys: r, order: order}, nil
}

// Commit implements kv.Transaction.Commit
func (transaction *Transaction) Commit() error {
	if !transaction.writable || transaction.done {
		return nil
	}

	transaction.done = true
	transaction.state.current.Store(transaction.m)
	transaction.state.writer.Unlock()

	return nil
}

// Rollback implements kv.Transaction.Rollback
func (transaction *Transaction) Rollback() error {
	if !transaction.writable || transaction.done {
		return nil
	}

	transaction.done = true
	transaction.state.writer.Unlock()

	return nil
}

func (transaction *Transaction) writeCheck(key []byte) error {
	if !transaction.writable {
		return fmt.Errorf("transaction is read-only")
	}

	if transaction.done {
		return fmt.Errorf("transaction is finished")
	}

	if len(key) == 0 {
		return fmt.Errorf("key is nil or empty")
	}

	return nil
}

func dup(b []byte) []byte {
	d := make([]byte, len(b))

	copy(d, b)

	return d
}

var _ kv.Iterator = (*Iterator)(nil)

// Iterator implements kv.Iterator for the in-memory driver
type Iterator struct {
	iter  treemap.Iterator
	keys  keys.Range
	order kv.SortOrder
}

// Next implements kv.Iterator.Next
func (iter *Iterator) Next() bool {
	hasMore := false

	if iter.order == kv.SortOrderDesc {
		for hasMore = iter.iter.Prev(); hasMore && (iter.keys.Max != nil && keys.Compare(iter.iter.Key().([]byte), iter.keys.Max) >= 0); hasMore = iter.iter.Prev() {
		}

		if !hasMore || iter.keys.Min != nil && keys.Compare(iter.iter.Key().([]byte), iter.keys.Min) < 0 {
			return false
		}
	} else {
		for hasMore = iter.iter.Next(); hasMore && (iter.keys.Min != nil && keys.Compare(iter.iter.Key().([]byte), iter.keys.Min) < 0); hasMore = iter.iter.Next() {
		}

		if !hasMore || iter.keys.Max != nil && keys.Compare(iter.iter.Key().([]byte), iter.keys.Max) >= 0 {
			return false
		}
	}

	return true
}

// Key implements kv.Iterator.Key
func (iter *Iterator) Key() []byte {
	return iter.iter.Key().([]byte)
}

// Value implements kv.Iterator.Value
func (iter *Iterator) Value() []byte {
	return iter.iter.Value().([]byte)
}

// Error implements kv.Iterator.Error
func (iter *Iterator) Error() error {
	return nil
}
