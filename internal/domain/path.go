package domain

// Path is the chain of physical links from Source to Dest
type Path struct {
	Source *Node
	Dest   *Node
	Links  []*PhysicalLink
}

// Hops returns the number of links on the path
func (p *Path) Hops() int {
	return len(p.Links)
}

// Bottleneck returns the lowest link bandwidth along the path
func (p *Path) Bottleneck() float64 {
	if len(p.Links) == 0 {
		return 0
	}
	min := p.Links[0].Bandwidth
	for _, l := range p.Links[1:] {
		if l.Bandwidth < min {
			min = l.Bandwidth
		}
	}
	return min
}

// IntraPartition reports whether both ends share a main partition
func (p *Path) IntraPartition() bool {
	return p.Source.MainPartition != NoPartition && p.Source.MainPartition == p.Dest.MainPartition
}

// PathSet holds at most one path per ordered host pair.
// Paths are iterated by source then destination, in insertion order.
type PathSet struct {
	bySource map[string]map[string]*Path
	order    []*Path
}

// NewPathSet creates an empty path set
func NewPathSet() *PathSet {
	return &PathSet{
		bySource: make(map[string]map[string]*Path),
	}
}

// Add stores a path, replacing any previous path for the same pair
func (ps *PathSet) Add(p *Path) {
	dests, ok := ps.bySource[p.Source.PhysicalID]
	if !ok {
		dests = make(map[string]*Path)
		ps.bySource[p.Source.PhysicalID] = dests
	}
	if old, exists := dests[p.Dest.PhysicalID]; exists {
		for i, q := range ps.order {
			if q == old {
				ps.order[i] = p
				break
			}
		}
	} else {
		ps.order = append(ps.order, p)
	}
	dests[p.Dest.PhysicalID] = p
}

// Get returns the path between two hosts, or nil
func (ps *PathSet) Get(sourceID, destID string) *Path {
	return ps.bySource[sourceID][destID]
}

// All returns every path in insertion order
func (ps *PathSet) All() []*Path {
	return ps.order
}

// Len returns the number of stored paths
func (ps *PathSet) Len() int {
	return len(ps.order)
}

// LoopPair names a host pair whose forwarding walk revisited a node
type LoopPair struct {
	SourceID string `json:"source" yaml:"source"`
	DestID   string `json:"dest" yaml:"dest"`
	AtNodeID string `json:"at_node" yaml:"at_node"`
}
