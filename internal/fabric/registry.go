package fabric

import (
	"fmt"

	"ibtopo/internal/domain"
)

// Registry resolves GUIDs to the single node instance holding that identity
type Registry struct {
	graph *domain.Graph
	namer *domain.AnonymousNamer
}

// NewRegistry creates a registry over graph. Anonymous hosts draw their
// names from namer.
func NewRegistry(graph *domain.Graph, namer *domain.AnonymousNamer) *Registry {
	if namer == nil {
		namer = domain.NewAnonymousNamer()
	}
	return &Registry{graph: graph, namer: namer}
}

// ResolveOrCreate returns the node for guid, creating it on first sight.
// An existing node is returned unchanged: lid, kind and description of
// later observations are ignored.
func (r *Registry) ResolveOrCreate(kind domain.NodeKind, lid int, guid, description string) (*domain.Node, error) {
	id, err := domain.CanonicalID(guid)
	if err != nil {
		return nil, fmt.Errorf("resolve node: %w", err)
	}

	if n := r.graph.Node(id); n != nil {
		return n, nil
	}

	n := domain.NewNode(id, kind, lid, description)
	n.Hostname = domain.DeriveHostname(description)
	if n.IsHost() && n.Hostname == "" {
		n.Hostname = r.namer.Next()
	}

	r.graph.Add(n)
	return n, nil
}

// Lookup returns the node for guid without creating it
func (r *Registry) Lookup(guid string) *domain.Node {
	id, err := domain.CanonicalID(guid)
	if err != nil {
		return nil
	}
	return r.graph.Node(id)
}
