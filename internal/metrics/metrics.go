// Package metrics exposes Prometheus metrics for topology runs.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ibtopo/internal/domain"
)

const namespace = "ibtopo"

// Collector bundles the metrics recorded while processing subnets
type Collector struct {
	gatherer prometheus.Gatherer

	DiscoveryLines      *prometheus.CounterVec
	DuplicatePorts      prometheus.Counter
	RouteEntries        prometheus.Counter
	MalformedRouteFiles prometheus.Counter
	Paths               *prometheus.CounterVec
	Subnets             *prometheus.CounterVec
	SinkErrors          *prometheus.CounterVec

	Nodes      *prometheus.GaugeVec
	Links      *prometheus.GaugeVec
	Partitions *prometheus.GaugeVec
	LastRun    prometheus.Gauge

	SubnetDuration prometheus.Histogram
}

// NewCollector registers the metrics against reg, defaulting to the global
// registry when nil. Registering twice against the same registry reuses the
// existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{gatherer: gatherer}
	var err error

	if c.DiscoveryLines, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "discovery_lines_total",
		Help:      "Discovery dump lines read, by kind (active, inactive, ignored, malformed).",
	}, []string{"kind"})); err != nil {
		return nil, err
	}
	if c.DuplicatePorts, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "duplicate_ports_total",
		Help:      "Active-port records that overwrote an already populated port.",
	})); err != nil {
		return nil, err
	}
	if c.RouteEntries, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "route_entries_total",
		Help:      "Forwarding entries loaded from route dumps.",
	})); err != nil {
		return nil, err
	}
	if c.MalformedRouteFiles, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "malformed_route_files_total",
		Help:      "Route dumps abandoned because an entry preceded any switch header.",
	})); err != nil {
		return nil, err
	}
	if c.Paths, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "paths_total",
		Help:      "Host pair walks, by outcome (complete, incomplete, dead_port, loop).",
	}, []string{"outcome"})); err != nil {
		return nil, err
	}
	if c.Subnets, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "subnets_total",
		Help:      "Subnets handled, by result (processed, failed).",
	}, []string{"result"})); err != nil {
		return nil, err
	}
	if c.SinkErrors, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sink_errors_total",
		Help:      "Failed topology writes, by sink.",
	}, []string{"sink"})); err != nil {
		return nil, err
	}
	if c.Nodes, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "nodes",
		Help:      "Nodes in the last topology of a subnet, by kind.",
	}, []string{"subnet", "kind"})); err != nil {
		return nil, err
	}
	if c.Links, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "links",
		Help:      "Physical links in the last topology of a subnet.",
	}, []string{"subnet"})); err != nil {
		return nil, err
	}
	if c.Partitions, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "partitions",
		Help:      "Partitions detected in the last topology of a subnet.",
	}, []string{"subnet"})); err != nil {
		return nil, err
	}
	if c.LastRun, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the last run completed.",
	})); err != nil {
		return nil, err
	}
	if c.SubnetDuration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "subnet_duration_seconds",
		Help:      "Time to build the topology of one subnet.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})); err != nil {
		return nil, err
	}

	return c, nil
}

// RecordTopology records the statistics of a finished subnet
func (c *Collector) RecordTopology(t *domain.Topology, elapsed time.Duration) {
	if c == nil || t == nil {
		return
	}
	s := t.Stats
	c.DiscoveryLines.WithLabelValues("active").Add(float64(s.ActiveLines))
	c.DiscoveryLines.WithLabelValues("inactive").Add(float64(s.InactiveLines))
	c.DiscoveryLines.WithLabelValues("ignored").Add(float64(s.IgnoredLines))
	c.DiscoveryLines.WithLabelValues("malformed").Add(float64(s.MalformedLines))
	c.DuplicatePorts.Add(float64(s.DuplicatePorts))
	c.RouteEntries.Add(float64(s.RouteEntries))
	c.MalformedRouteFiles.Add(float64(s.MalformedRoutes))

	c.Paths.WithLabelValues("complete").Add(float64(s.PathsComplete))
	c.Paths.WithLabelValues("incomplete").Add(float64(s.PathsIncomplete))
	c.Paths.WithLabelValues("dead_port").Add(float64(s.PathsDeadPort))
	c.Paths.WithLabelValues("loop").Add(float64(s.PathsLooped))

	counts := t.Graph.Counts()
	c.Nodes.WithLabelValues(t.Subnet, string(domain.NodeKindHost)).Set(float64(counts.Hosts))
	c.Nodes.WithLabelValues(t.Subnet, string(domain.NodeKindSwitch)).Set(float64(counts.Switches))
	c.Links.WithLabelValues(t.Subnet).Set(float64(counts.Links))
	c.Partitions.WithLabelValues(t.Subnet).Set(float64(len(t.Partitions)))

	c.Subnets.WithLabelValues("processed").Inc()
	c.SubnetDuration.Observe(elapsed.Seconds())
}

// RecordFailure counts a subnet that could not be processed
func (c *Collector) RecordFailure() {
	if c == nil {
		return
	}
	c.Subnets.WithLabelValues("failed").Inc()
}

// RecordSinkError counts a failed write to the named sink
func (c *Collector) RecordSinkError(sink string) {
	if c == nil {
		return
	}
	c.SinkErrors.WithLabelValues(sink).Inc()
}

// RecordRun stamps the completion time of a run
func (c *Collector) RecordRun(at time.Time) {
	if c == nil {
		return
	}
	c.LastRun.Set(float64(at.Unix()))
}

// Handler exposes a /metrics handler
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// WriteTextfile writes the current metrics in the node exporter textfile
// format
func (c *Collector) WriteTextfile(path string) error {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	if err := prometheus.WriteToTextfile(path, gatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var zero T
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			return zero, fmt.Errorf("collector already registered with incompatible type: %w", err)
		}
		return zero, err
	}
	return c, nil
}
