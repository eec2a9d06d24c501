package repository

import (
	"context"
	"time"

	"ibtopo/internal/domain"
)

// Snapshot describes one stored topology
type Snapshot struct {
	ID          string       `json:"id"`
	Subnet      string       `json:"subnet"`
	GeneratedAt time.Time    `json:"generated_at"`
	Hosts       int          `json:"hosts"`
	Switches    int          `json:"switches"`
	Links       int          `json:"links"`
	Partitions  int          `json:"partitions"`
	Paths       int          `json:"paths"`
	Stats       domain.Stats `json:"stats"`
}

// Repository stores finished topologies
type Repository interface {
	SaveTopology(ctx context.Context, t *domain.Topology) (*Snapshot, error)
	// ListSnapshots returns the snapshots of subnet, newest first. An
	// empty subnet lists every subnet.
	ListSnapshots(ctx context.Context, subnet string) ([]Snapshot, error)
	Close() error
}

// Sink feeds a Repository from a run
type Sink struct {
	name string
	repo Repository
}

// NewSink wraps repo under name
func NewSink(name string, repo Repository) *Sink {
	return &Sink{name: name, repo: repo}
}

// Name identifies the sink in logs and metrics
func (s *Sink) Name() string {
	return s.name
}

// Write saves the topology as a new snapshot
func (s *Sink) Write(ctx context.Context, t *domain.Topology) error {
	_, err := s.repo.SaveTopology(ctx, t)
	return err
}
