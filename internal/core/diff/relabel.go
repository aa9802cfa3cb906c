package diff

import "github.com/yndnr/pcompress-go/internal/core/domain"

// Relabel tries to shrink d by swapping two labels in next.
//
// It only applies when d touches exactly two partitions A and B. The
// candidate is next with A and B swapped; it is adopted when its delta
// against prev has strictly fewer changed nodes than d. On adoption the
// swapped snapshot and its delta are returned with swapped set to true.
// Otherwise next and d are returned unchanged.
//
// Labels are opaque, so a swapped snapshot describes the same grouping of
// nodes as next.
func Relabel(prev, next domain.Snapshot, d domain.Delta) (domain.Snapshot, domain.Delta, bool) {
	touched := d.Touched()
	if len(touched) != 2 {
		return next, d, false
	}

	candidate := next.Swap(touched[0], touched[1])
	cd, _ := Compute(prev, candidate)
	if cd.Count() < d.Count() {
		return candidate, cd, true
	}
	return next, d, false
}
