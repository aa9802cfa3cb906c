package domain

import "strconv"

// Delta groups the nodes that changed in one step by their new partition.
// Index i holds, in insertion order, the nodes newly assigned to partition
// i. Partitions without changes are present as empty lists so positions
// stay meaningful.
//
// A node appears in at most one list.
type Delta [][]int

// NewDelta returns a delta with width empty partition lists.
func NewDelta(width int) Delta {
	d := make(Delta, width)
	for i := range d {
		d[i] = []int{}
	}
	return d
}

// Add appends node to the list of partition, growing the delta on demand.
func (d *Delta) Add(partition, node int) {
	if partition >= len(*d) {
		d.Widen(partition + 1)
	}
	(*d)[partition] = append((*d)[partition], node)
}

// Widen grows the delta to at least width partitions.
func (d *Delta) Widen(width int) {
	for len(*d) < width {
		*d = append(*d, []int{})
	}
}

// Reset empties every partition list while keeping the width and the
// backing storage.
func (d Delta) Reset() {
	for i := range d {
		d[i] = d[i][:0]
	}
}

// Count returns the total number of changed nodes.
func (d Delta) Count() int {
	n := 0
	for _, nodes := range d {
		n += len(nodes)
	}
	return n
}

// Empty reports whether no node changed.
func (d Delta) Empty() bool {
	for _, nodes := range d {
		if len(nodes) > 0 {
			return false
		}
	}
	return true
}

// Touched returns the partitions with at least one changed node, in
// ascending order.
func (d Delta) Touched() []int {
	var out []int
	for partition, nodes := range d {
		if len(nodes) > 0 {
			out = append(out, partition)
		}
	}
	return out
}

// Clone returns a deep copy that shares no storage with d.
func (d Delta) Clone() Delta {
	out := make(Delta, len(d))
	for i, nodes := range d {
		out[i] = append(make([]int, 0, len(nodes)), nodes...)
	}
	return out
}

// Apply returns a copy of base with every node in the delta moved to its
// new partition. Nodes past the end of base zero-extend the result.
func (d Delta) Apply(base Snapshot) Snapshot {
	out := base.Clone()
	for partition, nodes := range d {
		for _, node := range nodes {
			out.Set(node, partition)
		}
	}
	return out
}

// AppendJSON appends the compact list-of-lists form, e.g. [[],[1]].
func (d Delta) AppendJSON(dst []byte) []byte {
	dst = append(dst, '[')
	for i, nodes := range d {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = append(dst, '[')
		for j, node := range nodes {
			if j > 0 {
				dst = append(dst, ',')
			}
			dst = strconv.AppendInt(dst, int64(node), 10)
		}
		dst = append(dst, ']')
	}
	return append(dst, ']')
}

// MarshalJSON encodes the delta as a JSON list of lists. Empty partitions
// encode as [] rather than null.
func (d Delta) MarshalJSON() ([]byte, error) {
	return d.AppendJSON(make([]byte, 0, 4*len(d)+2)), nil
}
