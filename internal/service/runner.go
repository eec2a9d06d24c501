package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ibtopo/internal/domain"
	"ibtopo/internal/loader"
	"ibtopo/internal/metrics"
)

// Sink receives every finished topology
type Sink interface {
	Name() string
	Write(ctx context.Context, t *domain.Topology) error
}

// SubnetSummary is the payload of a subnet_processed event. AnonymousHosts
// counts hosts named by the pipeline for lack of a hostname.
type SubnetSummary struct {
	Subnet         string       `json:"subnet"`
	Hosts          int          `json:"hosts"`
	Switches       int          `json:"switches"`
	Links          int          `json:"links"`
	Partitions     int          `json:"partitions"`
	Paths          int          `json:"paths"`
	AnonymousHosts int          `json:"anonymous_hosts"`
	Stats          domain.Stats `json:"stats"`
}

// SubnetFailure is the payload of a subnet_failed event
type SubnetFailure struct {
	Subnet string `json:"subnet"`
	Error  string `json:"error"`
}

// RunResult summarises a run and is the payload of run_completed.
// AnonymousNames is the pipeline's running total of issued names.
type RunResult struct {
	Started        time.Time       `json:"started"`
	Finished       time.Time       `json:"finished"`
	Subnets        []SubnetSummary `json:"subnets"`
	SinkErrors     int             `json:"sink_errors"`
	AnonymousNames uint64          `json:"anonymous_names"`
}

// Runner processes every subnet of an input directory
type Runner struct {
	log      *slog.Logger
	pipeline *Pipeline
	inputDir string
	sinks    []Sink
	bus      *EventBus
	metrics  *metrics.Collector
}

// NewRunner creates a runner. bus and m may be nil.
func NewRunner(log *slog.Logger, pipeline *Pipeline, inputDir string, bus *EventBus, m *metrics.Collector, sinks ...Sink) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		log:      log,
		pipeline: pipeline,
		inputDir: inputDir,
		sinks:    sinks,
		bus:      bus,
		metrics:  m,
	}
}

// Run processes the subnets in file name order. A fatal input error stops
// the run at the failing subnet. Sink failures are logged and counted; the
// run carries on and reports them joined in the returned error.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	clock := r.pipeline.Clock()
	result := &RunResult{Started: clock.Now().UTC()}

	subnets, err := loader.FindSubnets(r.inputDir, r.log)
	if err != nil {
		return result, err
	}
	if len(subnets) == 0 {
		r.log.Warn("no subnet discovery files found", "dir", r.inputDir)
	}

	var sinkErrs []error
	for _, in := range subnets {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		start := clock.Now()
		topo, err := r.pipeline.ProcessSubnet(ctx, in)
		if err != nil {
			r.metrics.RecordFailure()
			r.bus.Publish(Event{
				Type:    EventSubnetFailed,
				Payload: SubnetFailure{Subnet: in.Subnet, Error: err.Error()},
			})
			return result, err
		}
		r.metrics.RecordTopology(topo, clock.Since(start))

		for _, sink := range r.sinks {
			if err := sink.Write(ctx, topo); err != nil {
				r.log.Error("sink write failed", "sink", sink.Name(), "subnet", in.Subnet, "error", err)
				r.metrics.RecordSinkError(sink.Name())
				sinkErrs = append(sinkErrs, fmt.Errorf("%s sink, subnet %s: %w", sink.Name(), in.Subnet, err))
			}
		}

		summary := summarize(topo)
		result.Subnets = append(result.Subnets, summary)
		r.bus.Publish(Event{Type: EventSubnetProcessed, Payload: summary})
		r.log.Info("subnet processed",
			"subnet", in.Subnet,
			"hosts", summary.Hosts,
			"switches", summary.Switches,
			"paths", summary.Paths,
			"partitions", summary.Partitions)
		if summary.AnonymousHosts > 0 {
			r.log.Warn("hosts without a hostname",
				"subnet", in.Subnet,
				"count", summary.AnonymousHosts)
		}
	}

	result.Finished = clock.Now().UTC()
	result.SinkErrors = len(sinkErrs)
	result.AnonymousNames = r.pipeline.Namer().Issued()
	r.metrics.RecordRun(result.Finished)
	r.bus.Publish(Event{Type: EventRunCompleted, Payload: *result})

	return result, errors.Join(sinkErrs...)
}

func summarize(t *domain.Topology) SubnetSummary {
	counts := t.Graph.Counts()
	s := SubnetSummary{
		Subnet:     t.Subnet,
		Hosts:      counts.Hosts,
		Switches:   counts.Switches,
		Links:      counts.Links,
		Partitions: len(t.Partitions),
		Paths:      t.Paths.Len(),
		Stats:      t.Stats,
	}
	if p := t.PartitionByName(domain.AnonymousPartition); p != nil {
		s.AnonymousHosts = len(p.Members)
	}
	return s
}
