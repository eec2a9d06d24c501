// Package partition groups hosts by hostname prefix and tags the fabric
// elements that carry each group's internal traffic.
package partition

import (
	"ibtopo/internal/domain"
)

// Detect assigns every host of g to the partition named after its
// hostname prefix. Partitions are indexed in the order their first member
// appears in the graph. Hosts whose prefix is empty share the partition
// named "".
func Detect(g *domain.Graph) []*domain.Partition {
	var partitions []*domain.Partition
	byName := make(map[string]*domain.Partition)

	for _, host := range g.Hosts() {
		name := domain.PartitionName(host.Hostname)
		p, ok := byName[name]
		if !ok {
			p = &domain.Partition{Index: len(partitions), Name: name}
			byName[name] = p
			partitions = append(partitions, p)
		}
		p.Members = append(p.Members, host)
		host.MainPartition = p.Index
	}

	return partitions
}

// Tag resets and recomputes the partition bitsets of every node, edge and
// link of g.
//
// Each host carries its own partition. For every path whose ends share a
// partition, that partition is set on every link of the path, on the
// link's owner node and edge, and on the sibling link with its owner node
// and edge. Links touched by no such path keep a nil set.
func Tag(g *domain.Graph, partitions []*domain.Partition, paths *domain.PathSet) {
	width := len(partitions)

	for _, n := range g.Nodes() {
		n.Partitions = domain.NewPartitionSet(width)
		if n.IsHost() && n.MainPartition != domain.NoPartition {
			n.Partitions.Set(n.MainPartition)
		}
		for _, e := range n.Edges() {
			e.Partitions = domain.NewPartitionSet(width)
		}
		for _, l := range n.Links {
			if l != nil {
				l.Partitions = nil
			}
		}
	}

	if paths == nil {
		return
	}

	for _, p := range paths.All() {
		if !p.IntraPartition() {
			continue
		}
		idx := p.Source.MainPartition
		for _, l := range p.Links {
			mark(l, idx, width)
			if l.Sibling != nil {
				mark(l.Sibling, idx, width)
			}
		}
	}
}

func mark(l *domain.PhysicalLink, idx, width int) {
	if l.Partitions == nil {
		l.Partitions = domain.NewPartitionSet(width)
	}
	l.Partitions.Set(idx)
	if l.Owner != nil && l.Owner.Partitions != nil {
		l.Owner.Partitions.Set(idx)
	}
	if l.Edge != nil && l.Edge.Partitions != nil {
		l.Edge.Partitions.Set(idx)
	}
}

// Footprint returns the links tagged with partition idx, by node then port
func Footprint(g *domain.Graph, idx int) []*domain.PhysicalLink {
	var links []*domain.PhysicalLink
	for _, l := range g.Links() {
		if l.Partitions.Has(idx) {
			links = append(links, l)
		}
	}
	return links
}
