package keygen

// Source is the view of a tree's persisted state available
// to a Generator during initialization.
type Source[K any] interface {
	// LastKey returns the greatest key currently stored.
	// ok is false if there are no keys.
	LastKey() (K, bool, error)
}

// Generator mints keys for a tree. Exactly one generator
// instance exists per open tree; batches and transactions
// derived from the tree borrow that instance so that every
// write path draws keys from the same sequence. Generator
// state is never cloned.
type Generator[K any] interface {
	// Initialize seeds the generator's state from the tree's
	// persisted contents. It is called once, when the tree is
	// opened, before any call to NextKey. If it returns an
	// error the tree cannot be opened: proceeding with an
	// unseeded generator could mint keys that collide with
	// existing entries.
	Initialize(source Source[K]) error
	// NextKey returns a key distinct from every key this
	// instance has returned before. It must be safe to call
	// from multiple goroutines without external synchronization
	// and must not block. Keys are consumed by the act of
	// calling NextKey: a minted key is never returned to the
	// generator, even if the write it was minted for fails.
	NextKey() K
}
