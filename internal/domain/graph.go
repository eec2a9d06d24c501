package domain

// Graph owns the nodes of one subnet, keyed by physical id.
// Nodes are iterated in the order they were first added.
type Graph struct {
	nodes map[string]*Node
	order []*Node
}

// NewGraph creates an empty graph
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
	}
}

// Node returns the node with the given physical id, or nil
func (g *Graph) Node(physicalID string) *Node {
	return g.nodes[physicalID]
}

// Add inserts a node. Adding an id that already exists keeps the existing
// node and returns it with false.
func (g *Graph) Add(n *Node) (*Node, bool) {
	if existing, ok := g.nodes[n.PhysicalID]; ok {
		return existing, false
	}
	g.nodes[n.PhysicalID] = n
	g.order = append(g.order, n)
	return n, true
}

// Nodes returns every node in insertion order
func (g *Graph) Nodes() []*Node {
	return g.order
}

// Hosts returns the host nodes in insertion order
func (g *Graph) Hosts() []*Node {
	hosts := make([]*Node, 0, len(g.order))
	for _, n := range g.order {
		if n.IsHost() {
			hosts = append(hosts, n)
		}
	}
	return hosts
}

// Len returns the number of nodes
func (g *Graph) Len() int {
	return len(g.order)
}

// Edges returns every edge, grouped by source node in insertion order
func (g *Graph) Edges() []*Edge {
	var edges []*Edge
	for _, n := range g.order {
		edges = append(edges, n.Edges()...)
	}
	return edges
}

// Links returns every populated physical link, by node then port
func (g *Graph) Links() []*PhysicalLink {
	var links []*PhysicalLink
	for _, n := range g.order {
		links = append(links, n.PopulatedLinks()...)
	}
	return links
}

// Counts summarises the graph size
func (g *Graph) Counts() GraphCounts {
	var c GraphCounts
	for _, n := range g.order {
		switch {
		case n.IsHost():
			c.Hosts++
		case n.IsSwitch():
			c.Switches++
		}
		c.Edges += len(n.Edges())
		c.Links += len(n.PopulatedLinks())
	}
	return c
}

// GraphCounts holds node, edge and link totals for a graph
type GraphCounts struct {
	Hosts    int `json:"hosts"`
	Switches int `json:"switches"`
	Edges    int `json:"edges"`
	Links    int `json:"links"`
}
