package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartitionName(t *testing.T) {
	tests := []struct {
		hostname string
		want     string
	}{
		{"node-a1", "node-a"},
		{"node-a2", "node-a"},
		{"node-12", "node"},
		{"gpu--3", "gpu"},
		{"login", "login"},
		{"12345", ""},
		{"ANONYMOUS-3", "ANONYMOUS"},
		{"", ""},
		{"---", ""},
	}

	for _, tt := range tests {
		if got := PartitionName(tt.hostname); got != tt.want {
			t.Errorf("PartitionName(%q) = %q, want %q", tt.hostname, got, tt.want)
		}
	}
}

func TestPartitionSet(t *testing.T) {
	t.Run("set and has", func(t *testing.T) {
		s := NewPartitionSet(70)
		assert.Len(t, s, 2)
		s.Set(0)
		s.Set(65)
		s.Set(65)

		assert.True(t, s.Has(0))
		assert.True(t, s.Has(65))
		assert.False(t, s.Has(1))
		assert.Equal(t, 2, s.Count())
		assert.Equal(t, []int{0, 65}, s.Indexes())
	})

	t.Run("out of range is ignored", func(t *testing.T) {
		s := NewPartitionSet(3)
		s.Set(-1)
		s.Set(64)
		assert.Equal(t, 0, s.Count())
		assert.False(t, s.Has(-1))
		assert.False(t, s.Has(200))
	})

	t.Run("zero width", func(t *testing.T) {
		s := NewPartitionSet(0)
		s.Set(0)
		assert.Empty(t, s.Indexes())
	})

	t.Run("equal", func(t *testing.T) {
		a := NewPartitionSet(4)
		b := NewPartitionSet(4)
		a.Set(2)
		assert.False(t, a.Equal(b))
		b.Set(2)
		assert.True(t, a.Equal(b))
	})

	t.Run("names", func(t *testing.T) {
		parts := []*Partition{{Index: 0, Name: "node"}, {Index: 1, Name: "gpu"}}
		s := NewPartitionSet(len(parts))
		s.Set(1)
		assert.Equal(t, []string{"gpu"}, s.Names(parts))
	})
}
