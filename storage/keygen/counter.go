package keygen

import (
	"fmt"
	"math"
	"sync/atomic"
)

var _ Generator[uint64] = (*Counter)(nil)

// Counter is a Generator producing strictly increasing uint64
// keys: 0, 1, 2, ... seeded from the greatest key already in
// the tree. NextKey is a single atomic fetch-and-increment, so
// concurrent callers never observe the same key. No ordering
// with unrelated memory is needed, the counter's own
// monotonicity is the only guarantee.
//
// Keys are not guaranteed to be contiguous: keys minted for
// writes that fail, or inside transaction attempts that are
// retried, are consumed and never reissued.
type Counter struct {
	next atomic.Uint64
}

// NewCounter returns an unseeded Counter. It must be
// initialized before use.
func NewCounter() *Counter {
	return &Counter{}
}

// Initialize implements Generator.Initialize. The counter is
// seeded to one past the greatest stored key, or to 0 if the
// tree is empty. If the greatest stored key is the maximum
// uint64 the key space is exhausted and Initialize returns an
// error rather than wrapping around to keys that are in use.
func (counter *Counter) Initialize(source Source[uint64]) error {
	last, ok, err := source.LastKey()

	if err != nil {
		return fmt.Errorf("could not read last key: %s", err.Error())
	}

	if ok {
		if last == math.MaxUint64 {
			return fmt.Errorf("key space is exhausted: last key is %d", last)
		}

		counter.next.Store(last + 1)
	}

	return nil
}

// NextKey implements Generator.NextKey
func (counter *Counter) NextKey() uint64 {
	return counter.next.Add(1) - 1
}
