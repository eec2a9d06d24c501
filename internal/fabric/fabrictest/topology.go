package fabrictest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ibtopo/internal/domain"
	"ibtopo/internal/partition"
	"ibtopo/internal/routing"
)

// SampleSubnet is the subnet id of Sample
const SampleSubnet = "fe80:0000:0000:0000"

// SampleTime stamps the topology returned by Sample
var SampleTime = time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)

// Sample builds a finished two-switch topology:
//
//	node01(1) -p1- sw10 -p2- node02(2)
//	               sw10 -p3- sw11 -p1- gpu01(3)
//
// Every host pair routes, giving six paths and the partitions "node" and
// "gpu".
func Sample(t testing.TB) *domain.Topology {
	t.Helper()
	f := New(t)
	f.Cable(Host(1, 1, "node01"), Switch(10, 1))
	f.Cable(Host(2, 1, "node02"), Switch(10, 2))
	f.Cable(Switch(10, 3), Switch(11, 3))
	f.Cable(Host(3, 1, "gpu01"), Switch(11, 1))
	g := f.Graph()

	tables := Routes(map[uint64]map[uint64]int{
		10: {1: 1, 2: 2, 3: 3},
		11: {1: 3, 2: 3, 3: 1},
	})
	paths, report, err := routing.NewBuilder(nil, routing.Options{}).Build(context.Background(), g, tables)
	require.NoError(t, err)

	partitions := partition.Detect(g)
	partition.Tag(g, partitions, paths)

	return &domain.Topology{
		Subnet:     SampleSubnet,
		Graph:      g,
		Routes:     tables,
		Partitions: partitions,
		Paths:      paths,
		Stats: domain.Stats{
			ActiveLines:   8,
			RouteFiles:    2,
			RouteEntries:  tables.EntryCount(),
			PathsComplete: report.Complete,
		},
		GeneratedAt: SampleTime,
	}
}
