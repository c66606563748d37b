// Package typed provides a typed, sorted key-value tree on
// top of the kv driver interface. A tree binds one partition
// of a root store to a pair of codecs that translate keys and
// values to the partition's byte representation. Writes go
// through single-key operations, atomically applied batches,
// or transactions that retry on conflict.
package typed
