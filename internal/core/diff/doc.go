// Package diff computes the change between two consecutive partition
// snapshots.
//
// Compute produces a Delta listing, per new partition, the nodes whose
// label changed. Relabel is an optional pass that swaps two partition
// labels in the new snapshot when that makes the delta strictly smaller,
// which pays off for algorithms that flip the names of two groups
// wholesale.
package diff
