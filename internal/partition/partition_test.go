package partition_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ibtopo/internal/domain"
	"ibtopo/internal/fabric/fabrictest"
	"ibtopo/internal/partition"
	"ibtopo/internal/routing"
)

func TestDetect(t *testing.T) {
	f := fabrictest.New(t)
	f.Cable(fabrictest.Host(1, 1, "node-a1"), fabrictest.Switch(10, 1))
	f.Cable(fabrictest.Host(2, 1, "gpu-1"), fabrictest.Switch(10, 2))
	f.Cable(fabrictest.Host(3, 1, "node-a2"), fabrictest.Switch(10, 3))
	f.Cable(fabrictest.Host(4, 1, "1234"), fabrictest.Switch(10, 4))
	g := f.Graph()

	parts := partition.Detect(g)
	require.Len(t, parts, 3)

	assert.Equal(t, "node-a", parts[0].Name)
	assert.Equal(t, "gpu", parts[1].Name)
	assert.Equal(t, "", parts[2].Name)
	for i, p := range parts {
		assert.Equal(t, i, p.Index)
	}

	assert.Equal(t, []*domain.Node{f.Node(1), f.Node(3)}, parts[0].Members)
	assert.Equal(t, 0, f.Node(1).MainPartition)
	assert.Equal(t, 1, f.Node(2).MainPartition)
	assert.Equal(t, 0, f.Node(3).MainPartition)
	assert.Equal(t, 2, f.Node(4).MainPartition)
	assert.Equal(t, domain.NoPartition, f.Node(10).MainPartition)
}

func TestDetectAnonymousHosts(t *testing.T) {
	f := fabrictest.New(t)
	f.Link(fabrictest.Endpoint{Kind: domain.NodeKindHost, GUID: 1, Port: 1, Desc: "'HCA-1'"}, fabrictest.Switch(10, 1))
	g := f.Graph()

	parts := partition.Detect(g)
	require.Len(t, parts, 1)
	assert.Equal(t, "ANONYMOUS", parts[0].Name)
}

// twoPartitionFabric: node01, node02 and gpu01 hang off switch 10
func twoPartitionFabric(t *testing.T) (*fabrictest.Fabric, *domain.Graph, []*domain.Partition, *domain.PathSet) {
	f := fabrictest.New(t)
	f.Cable(fabrictest.Host(1, 1, "node01"), fabrictest.Switch(10, 1))
	f.Cable(fabrictest.Host(2, 1, "node02"), fabrictest.Switch(10, 2))
	f.Cable(fabrictest.Host(3, 1, "gpu01"), fabrictest.Switch(10, 3))
	f.Cable(fabrictest.Switch(10, 4), fabrictest.Switch(11, 1))
	g := f.Graph()

	tables := fabrictest.Routes(map[uint64]map[uint64]int{
		10: {1: 1, 2: 2, 3: 3},
	})
	paths, _, err := routing.NewBuilder(nil, routing.Options{}).Build(context.Background(), g, tables)
	require.NoError(t, err)

	parts := partition.Detect(g)
	require.Len(t, parts, 2)
	return f, g, parts, paths
}

func TestTag(t *testing.T) {
	f, g, parts, paths := twoPartitionFabric(t)
	partition.Tag(g, parts, paths)

	node, gpu := 0, 1
	require.Equal(t, "node", parts[node].Name)
	require.Equal(t, "gpu", parts[gpu].Name)

	t.Run("every node and edge is allocated", func(t *testing.T) {
		for _, n := range g.Nodes() {
			require.NotNil(t, n.Partitions, n.PhysicalID)
			for _, e := range n.Edges() {
				require.NotNil(t, e.Partitions)
			}
		}
	})

	t.Run("hosts carry their own partition", func(t *testing.T) {
		assert.True(t, f.Node(1).Partitions.Has(node))
		assert.True(t, f.Node(3).Partitions.Has(gpu))
		assert.False(t, f.Node(3).Partitions.Has(node))
	})

	t.Run("intra-partition path links are tagged", func(t *testing.T) {
		p := paths.Get(fabrictest.ID(1), fabrictest.ID(2))
		require.NotNil(t, p)
		for _, l := range p.Links {
			assert.True(t, l.Partitions.Has(node))
			assert.True(t, l.Owner.Partitions.Has(node))
			assert.True(t, l.Edge.Partitions.Has(node))
			require.NotNil(t, l.Sibling)
			assert.True(t, l.Sibling.Partitions.Has(node))
			assert.True(t, l.Sibling.Edge.Partitions.Has(node))
		}
		assert.True(t, f.Node(10).Partitions.Has(node))
	})

	t.Run("cross-partition links stay untagged", func(t *testing.T) {
		gpuUplink := f.Node(3).LinkAt(1)
		assert.Nil(t, gpuUplink.Partitions)
		assert.Nil(t, f.Node(10).LinkAt(3).Partitions)
		assert.False(t, gpuUplink.Edge.Partitions.Has(node))
		assert.False(t, f.Node(10).Partitions.Has(gpu), "gpu has a single host and no intra path")
	})

	t.Run("unused inter-switch link stays untagged", func(t *testing.T) {
		assert.Nil(t, f.Node(10).LinkAt(4).Partitions)
		assert.Equal(t, 0, f.Node(11).Partitions.Count())
	})

	t.Run("footprint", func(t *testing.T) {
		fp := partition.Footprint(g, node)
		assert.Len(t, fp, 4)
		assert.Empty(t, partition.Footprint(g, gpu))
	})
}

func TestTagIdempotent(t *testing.T) {
	_, g, parts, paths := twoPartitionFabric(t)

	snapshot := func() map[string]domain.PartitionSet {
		s := make(map[string]domain.PartitionSet)
		for _, n := range g.Nodes() {
			s["n:"+n.PhysicalID] = append(domain.PartitionSet(nil), n.Partitions...)
			for _, e := range n.Edges() {
				s["e:"+e.ID()] = append(domain.PartitionSet(nil), e.Partitions...)
			}
		}
		for _, l := range g.Links() {
			s["l:"+l.Owner.PhysicalID+":"+string(rune('0'+l.LocalPort))] = append(domain.PartitionSet(nil), l.Partitions...)
		}
		return s
	}

	partition.Tag(g, parts, paths)
	first := snapshot()
	partition.Tag(g, parts, paths)
	second := snapshot()

	assert.Equal(t, first, second)
}

func TestTagWithoutPaths(t *testing.T) {
	f := fabrictest.New(t)
	f.Cable(fabrictest.Host(1, 1, "node01"), fabrictest.Switch(10, 1))
	g := f.Graph()
	parts := partition.Detect(g)

	partition.Tag(g, parts, nil)
	assert.True(t, f.Node(1).Partitions.Has(0))
	assert.Nil(t, f.Node(1).LinkAt(1).Partitions)
}
