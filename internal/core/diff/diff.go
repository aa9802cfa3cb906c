package diff

import "github.com/yndnr/pcompress-go/internal/core/domain"

// Compute returns the delta that turns prev into next, and whether any
// node changed.
//
// Every node past the end of prev is reported, whatever its label, so
// the decoder learns the full length of next. When next is shorter than
// prev, the missing tail is read as label 0, so nodes that were in a
// non-zero partition are reported as moving to partition 0.
//
// The delta is freshly allocated on every call and sized to the highest
// partition any changed node moves to.
func Compute(prev, next domain.Snapshot) (domain.Delta, bool) {
	var d domain.Delta
	n := max(len(prev), len(next))
	for node := 0; node < n; node++ {
		label := next.At(node)
		if node >= len(prev) || label != prev.At(node) {
			d.Add(label, node)
		}
	}
	if d == nil {
		return domain.Delta{}, false
	}
	return d, true
}

// Changed reports whether Compute would return a non-empty delta, without
// building one.
func Changed(prev, next domain.Snapshot) bool {
	if len(next) > len(prev) {
		return true
	}
	for node := 0; node < len(prev); node++ {
		if next.At(node) != prev.At(node) {
			return true
		}
	}
	return false
}
