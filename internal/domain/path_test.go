package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathSet(t *testing.T) {
	a := NewNode("a", NodeKindHost, 1, "a")
	b := NewNode("b", NodeKindHost, 2, "b")
	c := NewNode("c", NodeKindHost, 3, "c")

	ps := NewPathSet()
	ab := &Path{Source: a, Dest: b}
	ac := &Path{Source: a, Dest: c}
	ps.Add(ab)
	ps.Add(ac)

	require.Equal(t, 2, ps.Len())
	assert.Same(t, ab, ps.Get("a", "b"))
	assert.Nil(t, ps.Get("b", "a"))
	assert.Nil(t, ps.Get("x", "a"))

	replaced := &Path{Source: a, Dest: b}
	ps.Add(replaced)
	assert.Equal(t, 2, ps.Len())
	assert.Same(t, replaced, ps.All()[0])
}

func TestPathBottleneckAndPartition(t *testing.T) {
	a := NewNode("a", NodeKindHost, 1, "a")
	b := NewNode("b", NodeKindHost, 2, "b")
	p := &Path{Source: a, Dest: b, Links: []*PhysicalLink{
		{Bandwidth: 40}, {Bandwidth: 10}, {Bandwidth: 25},
	}}

	assert.Equal(t, 3, p.Hops())
	assert.InDelta(t, 10.0, p.Bottleneck(), 1e-9)
	assert.False(t, p.IntraPartition())

	a.MainPartition, b.MainPartition = 0, 0
	assert.True(t, p.IntraPartition())
	b.MainPartition = 1
	assert.False(t, p.IntraPartition())
}

func TestRouteTables(t *testing.T) {
	rt := NewRouteTables()
	rt.Set("sw", "h1", Route{Port: 2, LID: 4, DestKind: NodeKindHost})
	rt.Set("sw", "h1", Route{Port: 3, LID: 4, DestKind: NodeKindHost})

	r, ok := rt.Lookup("sw", "h1")
	require.True(t, ok)
	assert.Equal(t, 3, r.Port)
	assert.True(t, rt.HasTable("sw"))
	assert.Equal(t, 1, rt.EntryCount())

	rt.Delete("sw", "h1")
	_, ok = rt.Lookup("sw", "h1")
	assert.False(t, ok)
	_, ok = rt.Lookup("other", "h1")
	assert.False(t, ok)
}
