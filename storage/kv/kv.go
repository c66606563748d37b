package kv

// SortOrder describes the order in which an iterator
// walks keys
type SortOrder int

const (
	// SortOrderAsc sorts keys in increasing order
	SortOrderAsc SortOrder = iota
	// SortOrderDesc sorts keys in decreasing order
	SortOrderDesc
)
