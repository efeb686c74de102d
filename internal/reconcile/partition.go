package reconcile

import (
	"cmp"
	"maps"
	"slices"
)

// Pair holds the desired and actual versions of one entity.
type Pair[V any] struct {
	Desired V
	Actual  V
}

// Partitioned is the three-way split of two entity collections. Every slice
// is ordered by key.
type Partitioned[V any] struct {
	Create []V       // only desired
	Delete []V       // only actual
	Both   []Pair[V] // present on both sides
}

// Partition splits desired and actual by key. Keys are assumed unique on
// each side; for a repeated key the last element wins.
func Partition[K cmp.Ordered, V any](desired, actual []V, key func(V) K) Partitioned[V] {
	want := make(map[K]V, len(desired))
	for _, v := range desired {
		want[key(v)] = v
	}
	have := make(map[K]V, len(actual))
	for _, v := range actual {
		have[key(v)] = v
	}

	var p Partitioned[V]
	for _, k := range slices.Sorted(maps.Keys(want)) {
		if a, ok := have[k]; ok {
			p.Both = append(p.Both, Pair[V]{Desired: want[k], Actual: a})
			continue
		}
		p.Create = append(p.Create, want[k])
	}
	for _, k := range slices.Sorted(maps.Keys(have)) {
		if _, ok := want[k]; !ok {
			p.Delete = append(p.Delete, have[k])
		}
	}
	return p
}
