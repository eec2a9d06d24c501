// Package domain defines the core types for reconstructing an InfiniBand
// fabric from discovery and forwarding-table dumps.
//
// # Core Types
//
// Node is a fabric endpoint, either a Host (channel adapter) or a Switch,
// keyed by its canonical physical id. A node owns its physical links in a
// sparse array indexed by local port minus one, and its edges keyed by
// destination node.
//
// Edge aggregates every physical link between an ordered pair of nodes and
// carries their summed bandwidth.
//
// PhysicalLink is one cabled port-to-port connection as seen from its owner.
// Its Sibling is the link describing the same cable from the other end.
//
// Graph owns the nodes of one subnet and remembers the order in which they
// were first seen. Iteration over a graph always follows that order.
//
// # Derived Data
//
// RouteTables hold the per-switch forwarding entries read from route dumps.
// PathSet holds the host-to-host paths obtained by replaying those entries.
// Partition groups hosts by hostname prefix, and PartitionSet is the bitset
// used to tag nodes, edges and links with the partitions whose internal
// traffic crosses them.
//
// # Design Principles
//
// - No file, database or logging dependencies
// - Ownership flows one way: Graph owns Nodes, Nodes own Edges and Links
// - Back-references (Dest, Owner, Sibling, Reverse) never own
package domain
