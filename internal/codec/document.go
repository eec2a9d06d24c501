package codec

import (
	"time"

	"ibtopo/internal/domain"
)

// Document is the flat, pointer-free form of a topology shared by the
// exporters and the repositories. Nodes are referenced by physical id and
// links by their id.
type Document struct {
	Subnet      string         `json:"subnet" yaml:"subnet"`
	GeneratedAt time.Time      `json:"generated_at" yaml:"generated_at"`
	Stats       domain.Stats   `json:"stats" yaml:"stats"`
	Partitions  []DocPartition `json:"partitions" yaml:"partitions"`
	Nodes       []DocNode      `json:"nodes" yaml:"nodes"`
	Edges       []DocEdge      `json:"edges" yaml:"edges"`
	Links       []DocLink      `json:"links" yaml:"links"`
	Paths       []DocPath      `json:"paths" yaml:"paths"`
}

// DocPartition is a hostname group
type DocPartition struct {
	Index   int      `json:"index" yaml:"index"`
	Name    string   `json:"name" yaml:"name"`
	Members []string `json:"members" yaml:"members"`
}

// DocNode is a host or switch. PartitionIndex is nil for switches, so a host
// in the unnamed partition still shows its assignment.
type DocNode struct {
	ID             string   `json:"id" yaml:"id"`
	LID            int      `json:"lid" yaml:"lid"`
	Kind           string   `json:"kind" yaml:"kind"`
	Hostname       string   `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	Description    string   `json:"description,omitempty" yaml:"description,omitempty"`
	Partition      string   `json:"partition,omitempty" yaml:"partition,omitempty"`
	PartitionIndex *int     `json:"partition_index,omitempty" yaml:"partition_index,omitempty"`
	Partitions     []string `json:"partitions,omitempty" yaml:"partitions,omitempty"`
}

// DocEdge aggregates the links between two nodes in one direction. Reverse
// is the id of the edge running Dest to Source, empty when no link was seen
// that way.
type DocEdge struct {
	Source     string   `json:"source" yaml:"source"`
	Dest       string   `json:"dest" yaml:"dest"`
	Bandwidth  float64  `json:"bandwidth" yaml:"bandwidth"`
	Links      []int    `json:"links" yaml:"links"`
	Partitions []string `json:"partitions,omitempty" yaml:"partitions,omitempty"`
	Reverse    string   `json:"reverse,omitempty" yaml:"reverse,omitempty"`
}

// DocLink is one directed port-to-port link
type DocLink struct {
	ID         int      `json:"id" yaml:"id"`
	Source     string   `json:"source" yaml:"source"`
	Port       int      `json:"port" yaml:"port"`
	Dest       string   `json:"dest" yaml:"dest"`
	RemotePort int      `json:"remote_port" yaml:"remote_port"`
	Width      string   `json:"width" yaml:"width"`
	Speed      string   `json:"speed" yaml:"speed"`
	Bandwidth  float64  `json:"bandwidth" yaml:"bandwidth"`
	Sibling    *int     `json:"sibling,omitempty" yaml:"sibling,omitempty"`
	Partitions []string `json:"partitions,omitempty" yaml:"partitions,omitempty"`
}

// DocPath is the link chain between two hosts
type DocPath struct {
	Source     string  `json:"source" yaml:"source"`
	Dest       string  `json:"dest" yaml:"dest"`
	Links      []int   `json:"links" yaml:"links"`
	Hops       int     `json:"hops" yaml:"hops"`
	Bottleneck float64 `json:"bottleneck" yaml:"bottleneck"`
}

// NewDocument flattens a topology. Element order follows the graph's
// insertion order so repeated exports of the same input are identical.
func NewDocument(t *domain.Topology) *Document {
	doc := &Document{
		Subnet:      t.Subnet,
		GeneratedAt: t.GeneratedAt,
		Stats:       t.Stats,
		Partitions:  make([]DocPartition, 0, len(t.Partitions)),
	}

	for _, p := range t.Partitions {
		dp := DocPartition{Index: p.Index, Name: p.Name, Members: make([]string, 0, len(p.Members))}
		for _, m := range p.Members {
			dp.Members = append(dp.Members, m.PhysicalID)
		}
		doc.Partitions = append(doc.Partitions, dp)
	}

	if t.Graph == nil {
		return doc
	}

	for _, n := range t.Graph.Nodes() {
		dn := DocNode{
			ID:          n.PhysicalID,
			LID:         n.LogicalID,
			Kind:        string(n.Kind),
			Hostname:    n.Hostname,
			Description: n.Description,
			Partitions:  partitionNames(n.Partitions, t.Partitions),
		}
		if n.MainPartition >= 0 && n.MainPartition < len(t.Partitions) {
			idx := n.MainPartition
			dn.Partition = t.Partitions[idx].Name
			dn.PartitionIndex = &idx
		}
		doc.Nodes = append(doc.Nodes, dn)

		for _, e := range n.Edges() {
			de := DocEdge{
				Source:     e.Source.PhysicalID,
				Dest:       e.Dest.PhysicalID,
				Bandwidth:  e.TotalBandwidth,
				Partitions: partitionNames(e.Partitions, t.Partitions),
			}
			if e.Reverse != nil {
				de.Reverse = e.Reverse.ID()
			}
			for _, l := range e.Links() {
				de.Links = append(de.Links, l.ID)
			}
			doc.Edges = append(doc.Edges, de)
		}

		for _, l := range n.PopulatedLinks() {
			dl := DocLink{
				ID:         l.ID,
				Source:     n.PhysicalID,
				Port:       l.LocalPort,
				Dest:       l.Dest.PhysicalID,
				RemotePort: l.RemotePort,
				Width:      l.Width,
				Speed:      l.Speed,
				Bandwidth:  l.Bandwidth,
				Partitions: partitionNames(l.Partitions, t.Partitions),
			}
			if l.Sibling != nil {
				id := l.Sibling.ID
				dl.Sibling = &id
			}
			doc.Links = append(doc.Links, dl)
		}
	}

	if t.Paths != nil {
		for _, p := range t.Paths.All() {
			dp := DocPath{
				Source:     p.Source.PhysicalID,
				Dest:       p.Dest.PhysicalID,
				Links:      make([]int, 0, len(p.Links)),
				Hops:       p.Hops(),
				Bottleneck: p.Bottleneck(),
			}
			for _, l := range p.Links {
				dp.Links = append(dp.Links, l.ID)
			}
			doc.Paths = append(doc.Paths, dp)
		}
	}

	return doc
}

// Node returns the document node with the given id, or nil
func (d *Document) Node(id string) *DocNode {
	for i := range d.Nodes {
		if d.Nodes[i].ID == id {
			return &d.Nodes[i]
		}
	}
	return nil
}

// partitionNames keeps untagged elements free of an empty list
func partitionNames(set domain.PartitionSet, partitions []*domain.Partition) []string {
	if set.Count() == 0 {
		return nil
	}
	return set.Names(partitions)
}
