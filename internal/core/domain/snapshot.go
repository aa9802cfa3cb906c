package domain

import (
	"fmt"
	"strconv"
)

const (
	// MaxLabel is the largest partition label accepted from textual input.
	// The two values above it mirror the reserved wire sentinels and are
	// never valid labels.
	MaxLabel = 253

	// MaxNodes is the largest snapshot length the wire format can address.
	// Node ids run from 0 to MaxNodes-1; 0xFFFE and 0xFFFF are sentinels.
	MaxNodes = 0xFFFE
)

// Snapshot is one complete node to partition assignment. The index is the
// node id and the value is its partition label.
//
// A snapshot grows by zero extension: reading a node past the end yields
// label 0 and writing one extends the slice with zeros.
type Snapshot []int

// Len returns the number of nodes in the snapshot.
func (s Snapshot) Len() int {
	return len(s)
}

// At returns the label of node, or 0 when node is past the end.
func (s Snapshot) At(node int) int {
	if node < 0 || node >= len(s) {
		return 0
	}
	return s[node]
}

// Set assigns label to node, zero-extending the snapshot as needed.
func (s *Snapshot) Set(node, label int) {
	if node >= len(*s) {
		s.Grow(node + 1)
	}
	(*s)[node] = label
}

// Grow zero-extends the snapshot to at least n nodes.
func (s *Snapshot) Grow(n int) {
	if n <= len(*s) {
		return
	}
	if n <= cap(*s) {
		old := len(*s)
		*s = (*s)[:n]
		clear((*s)[old:])
		return
	}
	grown := make(Snapshot, n, max(n, 2*cap(*s)))
	copy(grown, *s)
	*s = grown
}

// Clone returns an independent copy.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	copy(out, s)
	return out
}

// Equal reports whether both snapshots assign the same labels to the same
// nodes. Lengths must match.
func (s Snapshot) Equal(other Snapshot) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Swap returns a copy in which labels a and b trade places. Every other
// label is left untouched.
func (s Snapshot) Swap(a, b int) Snapshot {
	out := make(Snapshot, len(s))
	for i, label := range s {
		switch label {
		case a:
			out[i] = b
		case b:
			out[i] = a
		default:
			out[i] = label
		}
	}
	return out
}

// Canonical renumbers labels in order of first appearance, so two snapshots
// describing the same grouping of nodes compare equal regardless of which
// numbers the groups carry.
func (s Snapshot) Canonical() Snapshot {
	out := make(Snapshot, len(s))
	seen := make(map[int]int)
	for i, label := range s {
		id, ok := seen[label]
		if !ok {
			id = len(seen)
			seen[label] = id
		}
		out[i] = id
	}
	return out
}

// Validate checks that every label is in [0, MaxLabel] and that the
// snapshot fits the wire format.
func (s Snapshot) Validate() error {
	if len(s) > MaxNodes {
		return ErrTooManyNodes.WithDetails(fmt.Sprintf("%d nodes, limit %d", len(s), MaxNodes))
	}
	for node, label := range s {
		if label < 0 || label > MaxLabel {
			return ErrLabelOutOfRange.WithDetails(fmt.Sprintf("node %d has label %d", node, label))
		}
	}
	return nil
}

// MaxPartition returns the highest label in the snapshot, or -1 when empty.
func (s Snapshot) MaxPartition() int {
	m := -1
	for _, label := range s {
		if label > m {
			m = label
		}
	}
	return m
}

// AppendJSON appends the compact JSON array form, e.g. [0,1,1].
func (s Snapshot) AppendJSON(dst []byte) []byte {
	dst = append(dst, '[')
	for i, label := range s {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = strconv.AppendInt(dst, int64(label), 10)
	}
	return append(dst, ']')
}

// MarshalJSON encodes the snapshot as a JSON array. A nil snapshot encodes
// as [] rather than null.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return s.AppendJSON(make([]byte, 0, 2*len(s)+2)), nil
}
