package domain

import "time"

// Topology is the finished result for one subnet
type Topology struct {
	Subnet      string
	Graph       *Graph
	Routes      RouteTables
	Partitions  []*Partition
	Paths       *PathSet
	Stats       Stats
	GeneratedAt time.Time
}

// Stats records what happened while building a topology
type Stats struct {
	ActiveLines      int `json:"active_lines" yaml:"active_lines"`
	InactiveLines    int `json:"inactive_lines" yaml:"inactive_lines"`
	IgnoredLines     int `json:"ignored_lines" yaml:"ignored_lines"`
	MalformedLines   int `json:"malformed_lines" yaml:"malformed_lines"`
	DuplicatePorts   int `json:"duplicate_ports" yaml:"duplicate_ports"`
	UnknownSpeeds    int `json:"unknown_speed_links" yaml:"unknown_speed_links"`
	RouteFiles       int `json:"route_files" yaml:"route_files"`
	RouteEntries     int `json:"route_entries" yaml:"route_entries"`
	MalformedRoutes  int `json:"malformed_route_files" yaml:"malformed_route_files"`
	UnroutedSwitches int `json:"unrouted_switches" yaml:"unrouted_switches"` // no forwarding table loaded

	PathsComplete   int        `json:"paths_complete" yaml:"paths_complete"`
	PathsIncomplete int        `json:"paths_incomplete" yaml:"paths_incomplete"`
	PathsDeadPort   int        `json:"paths_dead_port" yaml:"paths_dead_port"`
	PathsLooped     int        `json:"paths_looped" yaml:"paths_looped"`
	Loops           []LoopPair `json:"loops,omitempty" yaml:"loops,omitempty"`
}

// PartitionByName returns the partition with the given name, or nil
func (t *Topology) PartitionByName(name string) *Partition {
	for _, p := range t.Partitions {
		if p.Name == name {
			return p
		}
	}
	return nil
}
