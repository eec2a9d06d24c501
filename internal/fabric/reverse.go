package fabric

import "ibtopo/internal/domain"

// ResolveSiblings pairs every link with the link on its destination's
// remote port, and every edge with the edge running the other way.
// Nothing is created; unmatched links and edges are left without a
// partner. It returns the number of links that found a sibling.
func ResolveSiblings(g *domain.Graph) int {
	matched := 0
	for _, n := range g.Nodes() {
		for _, link := range n.Links {
			if link == nil {
				continue
			}
			link.Sibling = nil
			if link.Dest == nil {
				continue
			}
			link.Sibling = link.Dest.LinkAt(link.RemotePort)
			if link.Sibling != nil {
				matched++
			}
		}
		for _, e := range n.Edges() {
			e.Reverse = e.Dest.Edge(n.PhysicalID)
		}
	}
	return matched
}
