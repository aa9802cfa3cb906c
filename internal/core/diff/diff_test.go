package diff

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/yndnr/pcompress-go/internal/core/domain"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name        string
		prev, next  domain.Snapshot
		want        domain.Delta
		wantChanged bool
	}{
		{
			name:        "single move",
			prev:        domain.Snapshot{0, 0, 1},
			next:        domain.Snapshot{0, 1, 1},
			want:        domain.Delta{{}, {1}},
			wantChanged: true,
		},
		{
			name:        "no change",
			prev:        domain.Snapshot{2, 0, 1},
			next:        domain.Snapshot{2, 0, 1},
			want:        domain.Delta{},
			wantChanged: false,
		},
		{
			name:        "from empty records every node",
			prev:        nil,
			next:        domain.Snapshot{0, 0, 1},
			want:        domain.Delta{{0, 1}, {2}},
			wantChanged: true,
		},
		{
			name:        "growth with zeros is recorded",
			prev:        domain.Snapshot{1},
			next:        domain.Snapshot{1, 0, 0},
			want:        domain.Delta{{1, 2}},
			wantChanged: true,
		},
		{
			name:        "growth and moves back to zero",
			prev:        domain.Snapshot{1, 0, 2},
			next:        domain.Snapshot{0, 0, 0, 0},
			want:        domain.Delta{{0, 2, 3}},
			wantChanged: true,
		},
		{
			name:        "shrink of zero tail is not a change",
			prev:        domain.Snapshot{1, 0, 0},
			next:        domain.Snapshot{1},
			want:        domain.Delta{},
			wantChanged: false,
		},
		{
			name:        "shrink moves tail to zero",
			prev:        domain.Snapshot{1, 2, 0, 3},
			next:        domain.Snapshot{1},
			want:        domain.Delta{{1, 3}},
			wantChanged: true,
		},
		{
			name:        "insertion order within a group",
			prev:        domain.Snapshot{0, 0, 0, 0},
			next:        domain.Snapshot{2, 1, 2, 0},
			want:        domain.Delta{{}, {1}, {0, 2}},
			wantChanged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := Compute(tt.prev, tt.next)
			if changed != tt.wantChanged {
				t.Fatalf("changed = %v, want %v", changed, tt.wantChanged)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("Compute mismatch (-want +got):\n%s", diff)
			}
			if changed != Changed(tt.prev, tt.next) {
				t.Fatalf("Changed disagrees with Compute")
			}
		})
	}
}

func TestCompute_ApplyReproducesNext(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	prev := domain.Snapshot{}
	for step := 0; step < 200; step++ {
		next := randomSnapshot(rng, 1+rng.Intn(40), 1+rng.Intn(6))
		d, _ := Compute(prev, next)

		got := d.Apply(prev)
		if len(got) < len(next) {
			t.Fatalf("step %d: apply(prev, delta) has %d nodes, want at least %d", step, len(got), len(next))
		}
		want := next.Clone()
		want.Grow(len(got))
		if !got.Equal(want) {
			t.Fatalf("step %d: apply(prev, delta) = %v, want %v", step, got, want)
		}

		for partition, nodes := range d {
			for _, node := range nodes {
				if next.At(node) != partition {
					t.Fatalf("step %d: node %d listed under %d, labelled %d", step, node, partition, next.At(node))
				}
				if node < len(prev) && prev.At(node) == partition {
					t.Fatalf("step %d: unchanged node %d listed", step, node)
				}
			}
		}
		prev = next
	}
}

func TestCompute_FreshDeltaEachCall(t *testing.T) {
	prev := domain.Snapshot{0, 0}
	a, _ := Compute(prev, domain.Snapshot{1, 0})
	b, _ := Compute(prev, domain.Snapshot{0, 1})
	if diff := cmp.Diff(domain.Delta{{}, {0}}, a); diff != "" {
		t.Fatalf("first delta changed by second call (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(domain.Delta{{}, {1}}, b); diff != "" {
		t.Fatalf("second delta mismatch (-want +got):\n%s", diff)
	}
}

func randomSnapshot(rng *rand.Rand, n, parts int) domain.Snapshot {
	s := make(domain.Snapshot, n)
	for i := range s {
		s[i] = rng.Intn(parts)
	}
	return s
}
