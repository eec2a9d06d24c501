package domain

import (
	"math/bits"
	"strings"
)

// Partition is a named group of hosts inferred from hostnames
type Partition struct {
	Index   int
	Name    string
	Members []*Node
}

// PartitionName derives the partition name from a hostname: the leading run
// of ASCII letters and '-', with trailing '-' removed. "node-12" gives "node",
// "12abc" gives "".
func PartitionName(hostname string) string {
	i := 0
	for i < len(hostname) && isPartitionChar(hostname[i]) {
		i++
	}
	return strings.TrimRight(hostname[:i], "-")
}

func isPartitionChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-'
}

// PartitionSet is a fixed-width bitset over partition indexes
type PartitionSet []uint64

// NewPartitionSet returns a zeroed set able to hold n partitions
func NewPartitionSet(n int) PartitionSet {
	return make(PartitionSet, (n+63)/64)
}

// Set marks partition i. Indexes outside the set's width are ignored.
func (s PartitionSet) Set(i int) {
	if i < 0 || i/64 >= len(s) {
		return
	}
	s[i/64] |= 1 << (uint(i) % 64)
}

// Has reports whether partition i is marked
func (s PartitionSet) Has(i int) bool {
	if i < 0 || i/64 >= len(s) {
		return false
	}
	return s[i/64]&(1<<(uint(i)%64)) != 0
}

// Count returns the number of marked partitions
func (s PartitionSet) Count() int {
	n := 0
	for _, w := range s {
		n += bits.OnesCount64(w)
	}
	return n
}

// Indexes returns the marked partition indexes in ascending order
func (s PartitionSet) Indexes() []int {
	idx := make([]int, 0, s.Count())
	for wi, w := range s {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			idx = append(idx, wi*64+b)
			w &^= 1 << uint(b)
		}
	}
	return idx
}

// Equal reports whether two sets mark the same partitions
func (s PartitionSet) Equal(o PartitionSet) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// Names maps the marked indexes to partition names
func (s PartitionSet) Names(partitions []*Partition) []string {
	names := make([]string, 0, s.Count())
	for _, i := range s.Indexes() {
		if i < len(partitions) {
			names = append(names, partitions[i].Name)
		}
	}
	return names
}
