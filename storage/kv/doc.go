// Package kv provides an interface for implementing
// kv drivers that can be used to build more complex storage
// interfaces.
//
// A kv plugin is a factory for root store instances. A root store
// contains zero or more named partitions. Partitions operate
// independently from each other: there are no ordering or consistency
// guarantees for transactions spawned from different partitions.
// Within a partition transactions are strictly serializable.
//
//	Root Store
//	  - Partition 1
//	    - key1: abc
//	    - key2: def
//	  - Partition 2
//	    - keyN: aaa
//	    - keyM: xyz
//	  - Partition 3
//
// Rather than defining a flat interface that allows a user to perform
// transactions over a single list of key-value pairs, partitioning was
// pushed down to this layer to enable the kv drivers to make more
// intelligent decisions on how to concurrently run transactions across
// different partitions and to more accurately model the use cases of
// the layers above this.
package kv
