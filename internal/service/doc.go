// Package service runs the topology pipeline over the subnets of an input
// directory.
//
// Pipeline builds the topology of a single subnet: discovery records are
// assembled into a graph, sibling links are resolved, forwarding tables are
// replayed into host-to-host paths, and hostname partitions are detected
// and tagged onto the graph.
//
// Runner drives a whole run. It lists the subnets, hands each one to the
// pipeline and then to every configured Sink (file exporters, the snapshot
// database, the graph database).
//
// # Event System
//
// Runner publishes events on an EventBus so a watch loop or a test can
// follow progress: subnet_processed, subnet_failed and run_completed.
//
// # Isolation
//
// Every subnet gets a fresh graph, route table store, path set and
// partition list. The anonymous hostname counter is the only state shared
// across the subnets of a run.
package service
