// Package routing reconstructs host-to-host paths by replaying switch
// forwarding tables over a fabric graph.
package routing

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"ibtopo/internal/domain"
)

// Outcome classifies the result of walking one host pair
type Outcome int

const (
	OutcomeComplete   Outcome = iota // reached the destination
	OutcomeIncomplete                // a switch had no table or no entry
	OutcomeDeadPort                  // the egress port had no link
	OutcomeLoop                      // a node was visited twice
)

// String implements fmt.Stringer
func (o Outcome) String() string {
	switch o {
	case OutcomeComplete:
		return "complete"
	case OutcomeIncomplete:
		return "incomplete"
	case OutcomeDeadPort:
		return "dead_port"
	case OutcomeLoop:
		return "loop"
	default:
		return "unknown"
	}
}

// Report counts walk outcomes over a whole build
type Report struct {
	Complete   int
	Incomplete int
	DeadPort   int
	Looped     int
	Loops      []domain.LoopPair
}

func (r *Report) record(o Outcome) {
	switch o {
	case OutcomeComplete:
		r.Complete++
	case OutcomeIncomplete:
		r.Incomplete++
	case OutcomeDeadPort:
		r.DeadPort++
	case OutcomeLoop:
		r.Looped++
	}
}

// Options tune a Builder
type Options struct {
	// Workers bounds how many source hosts are walked concurrently.
	// Zero or one walks sequentially.
	Workers int
}

// Builder replays forwarding tables to find paths between hosts
type Builder struct {
	log  *slog.Logger
	opts Options
}

// NewBuilder creates a path builder
func NewBuilder(log *slog.Logger, opts Options) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{log: log, opts: opts}
}

// walk is the result for one (source, destination) pair
type walk struct {
	dest    *domain.Node
	outcome Outcome
	links   []*domain.PhysicalLink
	loopAt  *domain.Node
}

// Build computes a path for every ordered pair of distinct hosts whose
// forwarding walk reaches the destination. Pairs that stop short are
// counted in the report and left out of the path set; no partial path is
// ever recorded. The graph and tables are only read.
func (b *Builder) Build(ctx context.Context, g *domain.Graph, tables domain.RouteTables) (*domain.PathSet, Report, error) {
	hosts := g.Hosts()
	var sources []*domain.Node
	for _, h := range hosts {
		if h.HasLinks() {
			sources = append(sources, h)
		}
	}

	rows := make([][]walk, len(sources))

	if b.opts.Workers > 1 {
		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(b.opts.Workers)
		for i, src := range sources {
			eg.Go(func() error {
				if err := egCtx.Err(); err != nil {
					return err
				}
				rows[i] = walkFrom(src, hosts, tables)
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, Report{}, err
		}
	} else {
		for i, src := range sources {
			if err := ctx.Err(); err != nil {
				return nil, Report{}, err
			}
			rows[i] = walkFrom(src, hosts, tables)
		}
	}

	paths := domain.NewPathSet()
	var report Report
	for i, src := range sources {
		for _, w := range rows[i] {
			report.record(w.outcome)
			switch w.outcome {
			case OutcomeComplete:
				paths.Add(&domain.Path{Source: src, Dest: w.dest, Links: w.links})
			case OutcomeLoop:
				report.Loops = append(report.Loops, domain.LoopPair{
					SourceID: src.PhysicalID,
					DestID:   w.dest.PhysicalID,
					AtNodeID: w.loopAt.PhysicalID,
				})
				b.log.Warn("routing loop detected",
					"src", src.PhysicalID, "dst", w.dest.PhysicalID, "at", w.loopAt.PhysicalID)
			case OutcomeDeadPort:
				b.log.Debug("egress port has no link", "src", src.PhysicalID, "dst", w.dest.PhysicalID)
			}
		}
	}

	return paths, report, nil
}

// walkFrom walks from src to every other host
func walkFrom(src *domain.Node, hosts []*domain.Node, tables domain.RouteTables) []walk {
	first := src.FirstLink()
	row := make([]walk, 0, len(hosts))
	for _, dst := range hosts {
		if dst == src {
			continue
		}
		w := walkPair(first, dst, tables)
		row = append(row, w)
	}
	return row
}

// walkPair follows forwarding entries from the far end of first until dst is
// reached or the walk cannot continue.
func walkPair(first *domain.PhysicalLink, dst *domain.Node, tables domain.RouteTables) walk {
	w := walk{dest: dst, links: []*domain.PhysicalLink{first}}
	visited := map[*domain.Node]bool{first.Owner: true}

	cur := first.Dest
	for cur != dst {
		if visited[cur] {
			return walk{dest: dst, outcome: OutcomeLoop, loopAt: cur}
		}
		visited[cur] = true

		route, ok := tables.Lookup(cur.PhysicalID, dst.PhysicalID)
		if !ok {
			return walk{dest: dst, outcome: OutcomeIncomplete}
		}
		next := cur.LinkAt(route.Port)
		if next == nil {
			return walk{dest: dst, outcome: OutcomeDeadPort}
		}
		w.links = append(w.links, next)
		cur = next.Dest
	}

	w.outcome = OutcomeComplete
	return w
}
