package bbolt

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jrife/typedkv/storage/kv"
	"github.com/jrife/typedkv/storage/kv/keys"
	"github.com/jrife/typedkv/utils/uuid"
	bolt "go.etcd.io/bbolt"
)

const (
	// DriverName is the name of this storage plugin
	DriverName = "bbolt"
)

// Plugins returns the plugins implemented by this package
func Plugins() []kv.Plugin {
	return []kv.Plugin{
		&Plugin{},
	}
}

var _ kv.Plugin = (*Plugin)(nil)

// Plugin implements kv.Plugin for bbolt
type Plugin struct {
}

// Name implements kv.Plugin.Name
func (plugin *Plugin) Name() string {
	return DriverName
}

// NewRootStore implements kv.Plugin.NewRootStore
func (plugin *Plugin) NewRootStore(options kv.PluginOptions) (kv.RootStore, error) {
	var config RootStoreConfig

	if path, ok := options["path"]; !ok {
		return nil, fmt.Errorf("\"path\" is required")
	} else if pathString, ok := path.(string); !ok {
		return nil, fmt.Errorf("\"path\" must be a string")
	} else {
		config.Path = pathString
	}

	store, err := New(config)

	if err != nil {
		return nil, err
	}

	return store, nil
}

// NewTempRootStore implements kv.Plugin.NewTempRootStore
func (plugin *Plugin) NewTempRootStore() (kv.RootStore, error) {
	return plugin.NewRootStore(kv.PluginOptions{
		"path": filepath.Join(os.TempDir(), fmt.Sprintf("bbolt-%s", uuid.MustUUID())),
	})
}

// RootStoreConfig contains configuration
// for a bbolt root store
type RootStoreConfig struct {
	Path string
}

var _ kv.RootStore = (*RootStore)(nil)

// RootStore implements kv.RootStore on top of a single
// bbolt database file. Each partition is a top-level
// bucket of the database.
type RootStore struct {
	db *bolt.DB
}

// New creates a bbolt root store
func New(config RootStoreConfig) (*RootStore, error) {
	db, err := bolt.Open(config.Path, 0666, nil)

	if err != nil {
		return nil, fmt.Errorf("could not open bbolt store at %s: %s", config.Path, err.Error())
	}

	return &RootStore{db: db}, nil
}

// Close implements kv.RootStore.Close
func (store *RootStore) Close() error {
	return store.db.Close()
}

// Delete implements kv.RootStore.Delete
func (store *RootStore) Delete() error {
	path := store.db.Path()

	if err := store.db.Close(); err != nil {
		return fmt.Errorf("could not close store: %s", err.Error())
	}

	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("could not remove path %s: %s", path, err.Error())
	}

	return nil
}

// Partitions implements kv.RootStore.Partitions
func (store *RootStore) Partitions(names keys.Range, limit int) ([][]byte, error) {
	result := [][]byte{}

	err := store.db.View(func(txn *bolt.Tx) error {
		cursor := txn.Cursor()

		var name []byte

		if names.Min == nil {
			name, _ = cursor.First()
		} else {
			name, _ = cursor.Seek(names.Min)
		}

		for ; name != nil; name, _ = cursor.Next() {
			if names.Max != nil && bytes.Compare(name, names.Max) >= 0 {
				break
			}

			if limit >= 0 && len(result) >= limit {
				break
			}

			result = append(result, dup(name))
		}

		return nil
	})

	if err != nil {
		return nil, wrapError("could not list partitions", err)
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
	err := partition.store.db.Update(func(txn *bolt.Tx) error {
		_, err := txn.CreateBucketIfNotExists(partition.name)

		return err
	})

	if err != nil {
		return wrapError("could not create partition", err)
	}

	return nil
}

// Delete implements kv.Partition.Delete
func (partition *Partition) Delete() error {
	err := partition.store.db.Update(func(txn *bolt.Tx) error {
		if err := txn.DeleteBucket(partition.name); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}

		return nil
	})

	if err != nil {
		return wrapError("could not delete partition", err)
	}

	return nil
}

// Begin implements kv.Partition.Begin
func (partition *Partition) Begin(writable bool) (kv.Transaction, error) {
	transaction, err := partition.store.db.Begin(writable)

	if err != nil {
		return nil, wrapError("could not begin transaction", err)
	}

	bucket := transaction.Bucket(partition.name)

	if bucket == nil {
		transaction.Rollback()

		return nil, kv.ErrNoSuchPartition
	}

	return &Transaction{transaction: transaction, bucket: bucket}, nil
}

var _ kv.Transaction = (*Transaction)(nil)

// Transaction implements kv.Transaction
type Transaction struct {
	transaction *bolt.Tx
	bucket      *bolt.Bucket
}

// Put implements kv.Transaction.Put
func (transaction *Transaction) Put(key, value []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("key is nil or empty")
	}

	if len(value) == 0 {
		return fmt.Errorf("value is nil or empty")
	}

	return transaction.bucket.Put(key, value)
}

// Get implements kv.Transaction.Get
func (transaction *Transaction) Get(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("key is nil or empty")
	}

	return transaction.bucket.Get(key), nil
}

// Delete implements kv.Transaction.Delete
func (transaction *Transaction) Delete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("key is nil or empty")
	}

	return transaction.bucket.Delete(key)
}

// Keys implements kv.Transaction.Keys
func (transaction *Transaction) Keys(r keys.Range, order kv.SortOrder) (kv.Iterator, error) {
	return &Iterator{cursor: transaction.bucket.Cursor(), keys: r, order: order}, nil
}

// Commit implements kv.Transaction.Commit
func (transaction *Transaction) Commit() error {
	return wrapError("could not commit transaction", transaction.transaction.Commit())
}

// Rollback implements kv.Transaction.Rollback
func (transaction *Transaction) Rollback() error {
	return wrapError("could not roll back transaction", transaction.transaction.Rollback())
}

var _ kv.Iterator = (*Iterator)(nil)

// Iterator implements kv.Iterator on top of a bbolt cursor
type Iterator struct {
	cursor  *bolt.Cursor
	keys    keys.Range
	order   kv.SortOrder
	key     []byte
	value   []byte
	started bool
}

// Next implements kv.Iterator.Next
func (iter *Iterator) Next() bool {
	if iter.started {
		if iter.order == kv.SortOrderDesc {
			iter.key, iter.value = iter.cursor.Prev()
		} else {
			iter.key, iter.value = iter.cursor.Next()
		}
	} else {
		iter.started = true
		iter.key, iter.value = iter.seek()
	}

	if iter.key == nil {
		iter.value = nil

		return false
	}

	if iter.order == kv.SortOrderDesc {
		if iter.keys.Min != nil && bytes.Compare(iter.key, iter.keys.Min) < 0 {
			iter.key = nil
			iter.value = nil

			return false
		}
	} else {
		if iter.keys.Max != nil && bytes.Compare(iter.key, iter.keys.Max) >= 0 {
			iter.key = nil
			iter.value = nil

			return false
		}
	}

	return true
}

func (iter *Iterator) seek() ([]byte, []byte) {
	if iter.order == kv.SortOrderDesc {
		if iter.keys.Max == nil {
			return iter.cursor.Last()
		}

		// Seek places the cursor at the first key >= Max. Max is
		// exclusive so the first key in range is the one before it.
		if key, _ := iter.cursor.Seek(iter.keys.Max); key == nil {
			return iter.cursor.Last()
		}

		return iter.cursor.Prev()
	}

	if iter.keys.Min == nil {
		return iter.cursor.First()
	}

	return iter.cursor.Seek(iter.keys.Min)
}

// Key implements kv.Iterator.Key
func (iter *Iterator) Key() []byte {
	return iter.key
}

// Value implements kv.Iterator.Value
func (iter *Iterator) Value() []byte {
	return iter.value
}

// Error implements kv.Iterator.Error
func (iter *Iterator) Error() error {
	return nil
}

func dup(b []byte) []byte {
	d := make([]byte, len(b))

	copy(d, b)

	return d
}

func wrapError(wrap string, err error) error {
	switch err {
	case bolt.ErrDatabaseNotOpen:
		return kv.ErrClosed
	case bolt.ErrTxClosed:
		return kv.ErrClosed
	case nil:
		return nil
	}

	return fmt.Errorf("%s: %s", wrap, err.Error())
}
