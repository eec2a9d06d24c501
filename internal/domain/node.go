package domain

import (
	"errors"
	"fmt"
)

// NodeKind distinguishes hosts from switches
type NodeKind string

const (
	NodeKindHost   NodeKind = "host"   // channel adapter, "CA" in discovery dumps
	NodeKindSwitch NodeKind = "switch" // "SW" in discovery dumps
)

// ErrUnknownNodeKind is returned for a node type code other than CA or SW
var ErrUnknownNodeKind = errors.New("unknown node kind")

// ParseNodeKind decodes the two-letter node type used by discovery dumps
func ParseNodeKind(code string) (NodeKind, error) {
	switch code {
	case "CA":
		return NodeKindHost, nil
	case "SW":
		return NodeKindSwitch, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownNodeKind, code)
	}
}

// NoPartition marks a node whose main partition has not been assigned
const NoPartition = -1

// Node represents a host or switch in the fabric
type Node struct {
	PhysicalID    string   `json:"physical_id"`
	LogicalID     int      `json:"logical_id"`
	Kind          NodeKind `json:"kind"`
	Description   string   `json:"description"`
	Hostname      string   `json:"hostname"`
	MainPartition int      `json:"main_partition"`

	// Partitions is allocated by the tagger; nil before tagging
	Partitions PartitionSet `json:"-"`

	// Links is sparse: Links[port-1] is nil when nothing was seen on port
	Links []*PhysicalLink `json:"-"`

	edges     map[string]*Edge
	edgeOrder []*Edge
}

// NewNode creates a node with no links and no partition
func NewNode(physicalID string, kind NodeKind, lid int, description string) *Node {
	return &Node{
		PhysicalID:    physicalID,
		LogicalID:     lid,
		Kind:          kind,
		Description:   description,
		MainPartition: NoPartition,
		edges:         make(map[string]*Edge),
	}
}

// IsHost reports whether the node is a channel adapter
func (n *Node) IsHost() bool {
	return n.Kind == NodeKindHost
}

// IsSwitch reports whether the node is a switch
func (n *Node) IsSwitch() bool {
	return n.Kind == NodeKindSwitch
}

// Edge returns the edge towards destID, or nil
func (n *Node) Edge(destID string) *Edge {
	return n.edges[destID]
}

// Edges returns the node's edges in creation order
func (n *Node) Edges() []*Edge {
	return n.edgeOrder
}

// EnsureEdge returns the edge towards dest, creating it when missing.
// The boolean is true when a new edge was created.
func (n *Node) EnsureEdge(dest *Node) (*Edge, bool) {
	if e, ok := n.edges[dest.PhysicalID]; ok {
		return e, false
	}
	if n.edges == nil {
		n.edges = make(map[string]*Edge)
	}
	e := NewEdge(n, dest)
	n.edges[dest.PhysicalID] = e
	n.edgeOrder = append(n.edgeOrder, e)
	return e, true
}

// RemoveEdge drops the edge towards destID
func (n *Node) RemoveEdge(destID string) {
	e, ok := n.edges[destID]
	if !ok {
		return
	}
	delete(n.edges, destID)
	for i, o := range n.edgeOrder {
		if o == e {
			n.edgeOrder = append(n.edgeOrder[:i], n.edgeOrder[i+1:]...)
			break
		}
	}
}

// LinkAt returns the link on the 1-based port, or nil when the port is
// out of range or empty
func (n *Node) LinkAt(port int) *PhysicalLink {
	if port < 1 || port > len(n.Links) {
		return nil
	}
	return n.Links[port-1]
}

// SetLink stores link on the 1-based port, growing the array with empty
// slots as needed. It returns the link previously stored there, if any.
func (n *Node) SetLink(port int, link *PhysicalLink) *PhysicalLink {
	idx := port - 1
	if idx >= len(n.Links) {
		grown := make([]*PhysicalLink, idx+1)
		copy(grown, n.Links)
		n.Links = grown
	}
	prev := n.Links[idx]
	n.Links[idx] = link
	return prev
}

// FirstLink returns the populated link with the lowest port, or nil
func (n *Node) FirstLink() *PhysicalLink {
	for _, l := range n.Links {
		if l != nil {
			return l
		}
	}
	return nil
}

// PopulatedLinks returns the non-empty links in port order
func (n *Node) PopulatedLinks() []*PhysicalLink {
	links := make([]*PhysicalLink, 0, len(n.Links))
	for _, l := range n.Links {
		if l != nil {
			links = append(links, l)
		}
	}
	return links
}

// HasLinks reports whether at least one port is populated
func (n *Node) HasLinks() bool {
	return n.FirstLink() != nil
}

// String implements fmt.Stringer
func (n *Node) String() string {
	if n.Hostname != "" {
		return fmt.Sprintf("%s(%s)", n.PhysicalID, n.Hostname)
	}
	return n.PhysicalID
}
