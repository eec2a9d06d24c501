package service_test

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ibtopo/internal/domain"
	"ibtopo/internal/loader"
	"ibtopo/internal/loader/loadertest"
	"ibtopo/internal/metrics"
	"ibtopo/internal/service"
)

const (
	subnetA = "fe80:0000:0000:0001"
	subnetB = "fe80:0000:0000:0002"
)

var discard = slog.New(slog.DiscardHandler)

// recordingSink keeps every topology it is given
type recordingSink struct {
	mu    sync.Mutex
	topos []*domain.Topology
	err   error
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Write(_ context.Context, t *domain.Topology) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topos = append(s.topos, t)
	return s.err
}

func twoSubnets(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	loadertest.Star(subnetA, 0xa000,
		loadertest.Host{GUID: 0xa1, LID: 2, Name: "node01", SwitchPort: 1},
		loadertest.Host{GUID: 0xa2, LID: 3, Name: "node02", SwitchPort: 2},
		loadertest.Host{GUID: 0xa3, LID: 4, Name: "", SwitchPort: 3},
	).Write(t, dir)
	loadertest.Star(subnetB, 0xb000,
		loadertest.Host{GUID: 0xb1, LID: 2, Name: "gpu01", SwitchPort: 1},
		loadertest.Host{GUID: 0xb2, LID: 3, Name: "", SwitchPort: 2},
	).Write(t, dir)
	return dir
}

func id(v string) string {
	n, err := domain.CanonicalID(v)
	if err != nil {
		panic(err)
	}
	return n
}

func TestProcessSubnet(t *testing.T) {
	dir := t.TempDir()
	loadertest.Star(subnetA, 0xa000,
		loadertest.Host{GUID: 0xa1, LID: 2, Name: "node01", SwitchPort: 1},
		loadertest.Host{GUID: 0xa2, LID: 3, Name: "node02", SwitchPort: 5},
	).Write(t, dir)

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := service.NewPipeline(discard, service.WithClock(clockwork.NewFakeClockAt(at)))

	subnets, err := loader.FindSubnets(dir, discard)
	require.NoError(t, err)
	require.Len(t, subnets, 1)

	topo, err := p.ProcessSubnet(context.Background(), subnets[0])
	require.NoError(t, err)

	assert.Equal(t, subnetA, topo.Subnet)
	assert.Equal(t, at, topo.GeneratedAt)
	assert.Equal(t, domain.GraphCounts{Hosts: 2, Switches: 1, Edges: 4, Links: 4}, topo.Graph.Counts())
	assert.Equal(t, 4, topo.Stats.ActiveLines)
	assert.Equal(t, 1, topo.Stats.InactiveLines)
	assert.Equal(t, 1, topo.Stats.IgnoredLines)
	assert.Zero(t, topo.Stats.MalformedLines)
	assert.Equal(t, 1, topo.Stats.RouteFiles)
	assert.Zero(t, topo.Stats.UnroutedSwitches)
	assert.Zero(t, topo.Stats.UnknownSpeeds)
	assert.Equal(t, 2, topo.Stats.PathsComplete)

	src := topo.Graph.Node(id("00000000000000a1"))
	dst := topo.Graph.Node(id("00000000000000a2"))
	require.NotNil(t, src)
	require.NotNil(t, dst)

	path := topo.Paths.Get(src.PhysicalID, dst.PhysicalID)
	require.NotNil(t, path)
	require.Len(t, path.Links, 2)
	assert.Equal(t, 5, path.Links[1].LocalPort)
	assert.Same(t, dst, path.Links[1].Dest)

	node := topo.PartitionByName("node")
	require.NotNil(t, node)
	assert.Len(t, node.Members, 2)
	assert.True(t, src.FirstLink().Partitions.Has(node.Index))
	assert.True(t, src.FirstLink().Sibling.Partitions.Has(node.Index))
}

func TestProcessSubnetWithoutRoutes(t *testing.T) {
	dir := t.TempDir()
	dump := loadertest.Star(subnetA, 0xa000,
		loadertest.Host{GUID: 0xa1, LID: 2, Name: "node01", SwitchPort: 1},
		loadertest.Host{GUID: 0xa2, LID: 3, Name: "node02", SwitchPort: 2},
	)
	dump.Routes = nil
	dump.Write(t, dir)

	subnets, err := loader.FindSubnets(dir, discard)
	require.NoError(t, err)

	topo, err := service.NewPipeline(discard).ProcessSubnet(context.Background(), subnets[0])
	require.NoError(t, err)

	assert.Zero(t, topo.Paths.Len())
	assert.Equal(t, 2, topo.Stats.PathsIncomplete)
	assert.Equal(t, 1, topo.Stats.UnroutedSwitches)
	require.Len(t, topo.Partitions, 1)
	assert.Nil(t, topo.Graph.Node(id("00000000000000a1")).FirstLink().Partitions,
		"no path means no link tags")
}

func TestProcessSubnetMissingDiscovery(t *testing.T) {
	in := loader.SubnetInput{Subnet: subnetA, DiscoveryPath: filepath.Join(t.TempDir(), "ib-subnet-"+subnetA+".txt")}
	_, err := service.NewPipeline(discard).ProcessSubnet(context.Background(), in)
	assert.True(t, errors.Is(err, loader.ErrFatalInput))
}

func TestRunIsolatesSubnets(t *testing.T) {
	dir := twoSubnets(t)
	sink := &recordingSink{}
	bus := service.NewEventBus()
	events := make(chan service.Event, 8)
	bus.Subscribe(events)

	runner := service.NewRunner(discard, service.NewPipeline(discard, service.WithPathWorkers(4)), dir, bus, nil, sink)
	result, err := runner.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Subnets, 2)
	require.Len(t, sink.topos, 2)

	a, b := sink.topos[0], sink.topos[1]
	assert.Equal(t, subnetA, a.Subnet)
	assert.Equal(t, subnetB, b.Subnet)

	assert.Equal(t, 3, a.Graph.Counts().Hosts)
	assert.Equal(t, 2, b.Graph.Counts().Hosts)
	assert.Nil(t, b.Graph.Node(id("00000000000000a1")), "subnet A nodes leak into B")
	assert.Nil(t, a.Graph.Node(id("00000000000000b1")), "subnet B nodes leak into A")
	assert.Equal(t, 6, a.Paths.Len())
	assert.Equal(t, 2, b.Paths.Len())

	// the anonymous counter runs across subnets
	assert.Equal(t, "ANONYMOUS-0", a.Graph.Node(id("00000000000000a3")).Hostname)
	assert.Equal(t, "ANONYMOUS-1", b.Graph.Node(id("00000000000000b2")).Hostname)

	assert.Equal(t, []string{"node", "ANONYMOUS"}, partitionNames(a))
	assert.Equal(t, []string{"gpu", "ANONYMOUS"}, partitionNames(b))
	assert.Equal(t, 1, result.Subnets[0].AnonymousHosts)
	assert.Equal(t, 1, result.Subnets[1].AnonymousHosts)
	assert.Equal(t, uint64(2), result.AnonymousNames)

	var types []service.EventType
	for len(events) > 0 {
		types = append(types, (<-events).Type)
	}
	assert.Equal(t, []service.EventType{
		service.EventSubnetProcessed,
		service.EventSubnetProcessed,
		service.EventRunCompleted,
	}, types)
}

func TestRunSinkErrorsContinue(t *testing.T) {
	dir := twoSubnets(t)
	failing := &recordingSink{err: errors.New("disk full")}

	reg := prometheus.NewRegistry()
	m, err := metrics.NewCollector(reg)
	require.NoError(t, err)

	runner := service.NewRunner(discard, service.NewPipeline(discard), dir, nil, m, failing)
	result, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	assert.Len(t, failing.topos, 2, "every subnet still reaches the sink")
	assert.Equal(t, 2, result.SinkErrors)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SinkErrors.WithLabelValues("recording")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Subnets.WithLabelValues("processed")))
}

func TestRunFatalInput(t *testing.T) {
	bus := service.NewEventBus()
	events := make(chan service.Event, 1)
	bus.Subscribe(events)

	runner := service.NewRunner(discard, service.NewPipeline(discard), filepath.Join(t.TempDir(), "missing"), bus, nil)
	_, err := runner.Run(context.Background())
	assert.True(t, errors.Is(err, loader.ErrFatalInput))
	assert.Empty(t, events)
}

func TestRunCancelled(t *testing.T) {
	dir := twoSubnets(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &recordingSink{}
	_, err := service.NewRunner(discard, service.NewPipeline(discard), dir, nil, nil, sink).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sink.topos)
}

func TestEventBusDropsForSlowSubscriber(t *testing.T) {
	bus := service.NewEventBus()
	ch := make(chan service.Event, 1)
	bus.Subscribe(ch)

	bus.Publish(service.Event{Type: service.EventSubnetProcessed})
	bus.Publish(service.Event{Type: service.EventRunCompleted})

	require.Len(t, ch, 1)
	assert.Equal(t, service.EventSubnetProcessed, (<-ch).Type)

	var nilBus *service.EventBus
	nilBus.Publish(service.Event{Type: service.EventRunCompleted})
}

func partitionNames(t *domain.Topology) []string {
	names := make([]string, 0, len(t.Partitions))
	for _, p := range t.Partitions {
		names = append(names, p.Name)
	}
	return names
}
