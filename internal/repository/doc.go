// Package repository defines where finished topologies are persisted.
//
// The sqlite subpackage keeps every run as a snapshot (nodes, edges,
// links, partitions and paths) so fabrics can be compared over time. The
// neo4j subpackage replaces the current graph of a subnet in a Neo4j
// database for graph queries.
//
// # Schema Migration
//
// The sqlite repository migrates its schema on startup.
//
// # Testing
//
// The sqlite repository is tested against in-memory databases, the neo4j
// store against a recording fake of the session interface.
package repository
