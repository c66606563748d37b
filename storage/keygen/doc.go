// Package keygen provides typed trees whose keys are minted
// automatically by a pluggable key generator.
//
// A generator is initialized from the tree's persisted contents
// when the tree is opened and hands out keys on demand from then
// on. The tree, its batches and its transactions all borrow the
// same generator instance, so keys minted on any write path come
// from one sequence and never collide, across concurrent writers
// and across process restarts.
//
// The Counter generator produces increasing uint64 keys seeded
// from the greatest key already stored:
//
//	store := memory.New()
//	tree, err := keygen.OpenCounter[string](store, "events", codec.CBOR[string]{})
//	if err != nil {
//		return err
//	}
//
//	first, _, _ := tree.Insert("a") // 0
//	second, _, _ := tree.Insert("b") // 1
package keygen
