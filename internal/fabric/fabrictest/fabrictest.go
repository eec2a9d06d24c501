// Package fabrictest builds small fabrics for tests.
package fabrictest

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"ibtopo/internal/domain"
	"ibtopo/internal/fabric"
)

// Endpoint is one side of a cable in a test fabric
type Endpoint struct {
	Kind domain.NodeKind
	GUID uint64
	Port int
	Desc string
}

// Host returns a host endpoint described by hostname
func Host(guid uint64, port int, hostname string) Endpoint {
	return Endpoint{Kind: domain.NodeKindHost, GUID: guid, Port: port, Desc: "'" + hostname + " HCA-1'"}
}

// Switch returns a switch endpoint
func Switch(guid uint64, port int) Endpoint {
	return Endpoint{Kind: domain.NodeKindSwitch, GUID: guid, Port: port, Desc: fmt.Sprintf("MF0;sw%d:SX6036/U1", guid)}
}

// GUID renders n as a 16-digit hex GUID
func GUID(n uint64) string {
	return fmt.Sprintf("%016x", n)
}

// ID returns the canonical physical id of GUID(n)
func ID(n uint64) string {
	id, err := domain.CanonicalID(GUID(n))
	if err != nil {
		panic(err)
	}
	return id
}

// Fabric wraps a fabric.Builder with cable helpers
type Fabric struct {
	t       testing.TB
	Builder *fabric.Builder
}

// New creates a test fabric with its own anonymous namer
func New(t testing.TB) *Fabric {
	return NewWithNamer(t, domain.NewAnonymousNamer())
}

// NewWithNamer creates a test fabric sharing namer
func NewWithNamer(t testing.TB, namer *domain.AnonymousNamer) *Fabric {
	t.Helper()
	return &Fabric{t: t, Builder: fabric.NewBuilder(nil, namer)}
}

// Record builds the active-port record for a link from a to b
func Record(a, b Endpoint) domain.PortRecord {
	return domain.PortRecord{
		Source:      domain.PortEndpoint{Kind: a.Kind, LID: int(a.GUID), Port: a.Port, GUID: GUID(a.GUID), Description: a.Desc},
		Dest:        domain.PortEndpoint{Kind: b.Kind, LID: int(b.GUID), Port: b.Port, GUID: GUID(b.GUID), Description: b.Desc},
		Width:       "4x",
		Speed:       "QDR",
		Description: a.Desc + " - " + b.Desc,
	}
}

// Link adds the one-directional link a -> b
func (f *Fabric) Link(a, b Endpoint) *domain.PhysicalLink {
	f.t.Helper()
	link, err := f.Builder.AddActivePort(Record(a, b))
	require.NoError(f.t, err)
	return link
}

// Cable adds both directions of a cable between a and b
func (f *Fabric) Cable(a, b Endpoint) {
	f.t.Helper()
	f.Link(a, b)
	f.Link(b, a)
}

// Node returns the node for GUID(n), failing the test when absent
func (f *Fabric) Node(n uint64) *domain.Node {
	f.t.Helper()
	node := f.Builder.Graph().Node(ID(n))
	require.NotNil(f.t, node, "node %d", n)
	return node
}

// Graph resolves siblings and returns the finished graph
func (f *Fabric) Graph() *domain.Graph {
	fabric.ResolveSiblings(f.Builder.Graph())
	return f.Builder.Graph()
}

// Routes builds route tables from switch -> (dest -> port) entries
func Routes(entries map[uint64]map[uint64]int) domain.RouteTables {
	rt := domain.NewRouteTables()
	for sw, dests := range entries {
		for dst, port := range dests {
			rt.Set(ID(sw), ID(dst), domain.Route{Port: port, LID: dst, DestKind: domain.NodeKindHost})
		}
	}
	return rt
}
