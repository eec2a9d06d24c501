package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"ibtopo/internal/domain"
	"ibtopo/internal/fabric"
	"ibtopo/internal/loader"
	"ibtopo/internal/partition"
	"ibtopo/internal/routing"
)

// Pipeline builds the topology of one subnet at a time
type Pipeline struct {
	log     *slog.Logger
	namer   *domain.AnonymousNamer
	clock   clockwork.Clock
	workers int
}

// PipelineOption configures a Pipeline
type PipelineOption func(*Pipeline)

// WithClock sets the clock used to stamp topologies
func WithClock(c clockwork.Clock) PipelineOption {
	return func(p *Pipeline) { p.clock = c }
}

// WithPathWorkers bounds the concurrent path walks of a subnet
func WithPathWorkers(n int) PipelineOption {
	return func(p *Pipeline) { p.workers = n }
}

// WithNamer shares an anonymous hostname counter with the caller
func WithNamer(n *domain.AnonymousNamer) PipelineOption {
	return func(p *Pipeline) { p.namer = n }
}

// NewPipeline creates a pipeline. Every subnet it processes draws anonymous
// hostnames from the same counter.
func NewPipeline(log *slog.Logger, opts ...PipelineOption) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	p := &Pipeline{log: log, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(p)
	}
	if p.namer == nil {
		p.namer = domain.NewAnonymousNamer()
	}
	return p
}

// Namer returns the anonymous hostname counter of the pipeline
func (p *Pipeline) Namer() *domain.AnonymousNamer {
	return p.namer
}

// Clock returns the clock of the pipeline
func (p *Pipeline) Clock() clockwork.Clock {
	return p.clock
}

// ProcessSubnet runs discovery, sibling resolution, route loading, path
// reconstruction, partition detection and tagging for one subnet. The
// returned topology shares no state with any other subnet. Errors are
// fatal input errors or context cancellation.
func (p *Pipeline) ProcessSubnet(ctx context.Context, in loader.SubnetInput) (*domain.Topology, error) {
	log := p.log.With("subnet", in.Subnet)

	builder := fabric.NewBuilder(log, p.namer)
	disc, err := loader.ReadDiscoveryFile(in.DiscoveryPath, log, func(rec domain.PortRecord) error {
		_, err := builder.AddActivePort(rec)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("subnet %s: %w", in.Subnet, err)
	}

	g := builder.Graph()
	matched := fabric.ResolveSiblings(g)
	counts := g.Counts()
	log.Debug("graph assembled",
		"hosts", counts.Hosts, "switches", counts.Switches,
		"edges", counts.Edges, "links", counts.Links, "siblings", matched)

	tables := domain.NewRouteTables()
	var routes loader.RouteStats
	if in.RouteDir != "" {
		routes, err = loader.LoadRouteDir(in.RouteDir, tables, log)
		if err != nil {
			return nil, fmt.Errorf("subnet %s: %w", in.Subnet, err)
		}
	}

	unrouted := unroutedSwitches(g, tables)
	if unrouted > 0 && in.RouteDir != "" {
		log.Warn("switches without a forwarding table", "count", unrouted)
	}

	paths, report, err := routing.NewBuilder(log, routing.Options{Workers: p.workers}).Build(ctx, g, tables)
	if err != nil {
		return nil, fmt.Errorf("subnet %s: build paths: %w", in.Subnet, err)
	}

	partitions := partition.Detect(g)
	log.Info("partitions found", "count", len(partitions))
	partition.Tag(g, partitions, paths)
	if log.Enabled(ctx, slog.LevelDebug) {
		for _, part := range partitions {
			log.Debug("partition tagged",
				"partition", part.Name,
				"members", len(part.Members),
				"links", len(partition.Footprint(g, part.Index)))
		}
	}

	return &domain.Topology{
		Subnet:     in.Subnet,
		Graph:      g,
		Routes:     tables,
		Partitions: partitions,
		Paths:      paths,
		Stats: domain.Stats{
			ActiveLines:      disc.Active,
			InactiveLines:    disc.Inactive,
			IgnoredLines:     disc.Ignored,
			MalformedLines:   disc.Malformed,
			DuplicatePorts:   builder.DuplicatePorts(),
			UnknownSpeeds:    builder.UnknownSpeeds(),
			RouteFiles:       routes.Files,
			RouteEntries:     routes.Entries,
			MalformedRoutes:  routes.Malformed,
			UnroutedSwitches: unrouted,
			PathsComplete:    report.Complete,
			PathsIncomplete:  report.Incomplete,
			PathsDeadPort:    report.DeadPort,
			PathsLooped:      report.Looped,
			Loops:            report.Loops,
		},
		GeneratedAt: p.clock.Now().UTC(),
	}, nil
}

// unroutedSwitches counts the switches of g with no forwarding table
func unroutedSwitches(g *domain.Graph, tables domain.RouteTables) int {
	n := 0
	for _, node := range g.Nodes() {
		if node.IsSwitch() && !tables.HasTable(node.PhysicalID) {
			n++
		}
	}
	return n
}
