package fabric

import (
	"errors"
	"fmt"
	"log/slog"

	"ibtopo/internal/domain"
)

// ErrInvalidPort is returned for a port number below 1
var ErrInvalidPort = errors.New("invalid port")

// Builder assembles the graph of one subnet from active-port records
type Builder struct {
	log      *slog.Logger
	graph    *domain.Graph
	registry *Registry

	nextLinkID     int
	duplicatePorts int
	unknownSpeeds  int
}

// NewBuilder creates a builder over an empty graph
func NewBuilder(log *slog.Logger, namer *domain.AnonymousNamer) *Builder {
	if log == nil {
		log = slog.Default()
	}
	g := domain.NewGraph()
	return &Builder{
		log:      log,
		graph:    g,
		registry: NewRegistry(g, namer),
	}
}

// Graph returns the graph under construction
func (b *Builder) Graph() *domain.Graph {
	return b.graph
}

// Registry returns the identity registry backing the graph
func (b *Builder) Registry() *Registry {
	return b.registry
}

// UnknownSpeeds returns how many links carried an unrecognised speed code
func (b *Builder) UnknownSpeeds() int {
	return b.unknownSpeeds
}

// DuplicatePorts returns how many records overwrote an already populated port
func (b *Builder) DuplicatePorts() int {
	return b.duplicatePorts
}

// AddActivePort records one active port. The link lands in the source
// node's slot for its local port; a port seen twice keeps the later link.
// When both records name the same destination the edge accounts for both;
// otherwise the earlier link is taken off its edge, and that edge is dropped
// once it carries nothing.
func (b *Builder) AddActivePort(rec domain.PortRecord) (*domain.PhysicalLink, error) {
	if rec.Source.Port < 1 || rec.Dest.Port < 1 {
		return nil, fmt.Errorf("%w: %d -> %d", ErrInvalidPort, rec.Source.Port, rec.Dest.Port)
	}

	src, err := b.registry.ResolveOrCreate(rec.Source.Kind, rec.Source.LID, rec.Source.GUID, rec.Source.Description)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	dst, err := b.registry.ResolveOrCreate(rec.Dest.Kind, rec.Dest.LID, rec.Dest.GUID, rec.Dest.Description)
	if err != nil {
		return nil, fmt.Errorf("destination: %w", err)
	}

	bandwidth := domain.LinkBandwidth(rec.Speed, rec.Width)
	if !domain.KnownSpeed(rec.Speed) {
		b.unknownSpeeds++
		b.log.Debug("unknown link speed",
			"node", src.PhysicalID,
			"port", rec.Source.Port,
			"speed", rec.Speed,
			"bandwidth", bandwidth)
	}
	edge, _ := src.EnsureEdge(dst)

	link := &domain.PhysicalLink{
		ID:          b.nextLinkID,
		LocalPort:   rec.Source.Port,
		RemotePort:  rec.Dest.Port,
		Width:       rec.Width,
		Speed:       rec.Speed,
		Bandwidth:   bandwidth,
		Description: rec.Description,
		Dest:        dst,
		Owner:       src,
		Edge:        edge,
	}
	b.nextLinkID++

	if prev := src.SetLink(rec.Source.Port, link); prev != nil {
		b.duplicatePorts++
		b.log.Warn("port listed twice, keeping last",
			"node", src.PhysicalID,
			"port", rec.Source.Port,
			"previous_dest", prev.Dest.PhysicalID,
			"dest", dst.PhysicalID)
		if prev.Edge != nil && prev.Edge != edge {
			if prev.Edge.RemoveLink(prev.LocalPort-1, prev.Bandwidth) {
				src.RemoveEdge(prev.Dest.PhysicalID)
			}
		}
	}
	edge.AddLink(rec.Source.Port-1, bandwidth)

	return link, nil
}
