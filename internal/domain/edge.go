package domain

// Edge aggregates the physical links from Source to Dest
type Edge struct {
	Source         *Node
	Dest           *Node
	TotalBandwidth float64

	// LinkIndexes point into Source.Links. An index appears once per
	// accepted link, so a port reported twice towards the same Dest is
	// listed twice.
	LinkIndexes []int

	// Partitions is allocated by the tagger; nil before tagging
	Partitions PartitionSet

	// Reverse is the edge from Dest back to Source, set by the resolver
	Reverse *Edge
}

// NewEdge creates an empty edge between two nodes
func NewEdge(source, dest *Node) *Edge {
	return &Edge{
		Source: source,
		Dest:   dest,
	}
}

// ID returns a stable identifier for the edge
func (e *Edge) ID() string {
	return e.Source.PhysicalID + "->" + e.Dest.PhysicalID
}

// AddLink records that the link stored at index belongs to this edge
func (e *Edge) AddLink(index int, bandwidth float64) {
	e.LinkIndexes = append(e.LinkIndexes, index)
	e.TotalBandwidth += bandwidth
}

// RemoveLink drops one occurrence of index and its bandwidth. It reports
// whether the edge is left without links.
func (e *Edge) RemoveLink(index int, bandwidth float64) bool {
	for i, idx := range e.LinkIndexes {
		if idx == index {
			e.LinkIndexes = append(e.LinkIndexes[:i], e.LinkIndexes[i+1:]...)
			e.TotalBandwidth -= bandwidth
			break
		}
	}
	if len(e.LinkIndexes) == 0 {
		e.TotalBandwidth = 0
		return true
	}
	return false
}

// Links resolves LinkIndexes against the source node's link array
func (e *Edge) Links() []*PhysicalLink {
	links := make([]*PhysicalLink, 0, len(e.LinkIndexes))
	for _, idx := range e.LinkIndexes {
		if idx >= 0 && idx < len(e.Source.Links) && e.Source.Links[idx] != nil {
			links = append(links, e.Source.Links[idx])
		}
	}
	return links
}
