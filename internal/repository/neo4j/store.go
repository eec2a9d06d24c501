package neo4j

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ibtopo/internal/codec"
	"ibtopo/internal/domain"
)

// batchSize bounds the items sent in one UNWIND query
const batchSize = 1000

// StoreConfig holds configuration for the Store.
type StoreConfig struct {
	Logger *slog.Logger
	Neo4j  Client
}

func (cfg *StoreConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Neo4j == nil {
		return errors.New("neo4j client is required")
	}
	return nil
}

// Store keeps one graph per subnet in Neo4j: (:Node) vertices joined by
// [:LINK] relationships, and (:Partition) vertices that hosts are
// [:MEMBER_OF].
type Store struct {
	log *slog.Logger
	cfg StoreConfig
}

// NewStore creates a new Store.
func NewStore(cfg StoreConfig) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Store{
		log: cfg.Logger,
		cfg: cfg,
	}, nil
}

// schema statements are idempotent
var schema = []string{
	`CREATE INDEX ib_node_subnet_id IF NOT EXISTS FOR (n:Node) ON (n.subnet, n.id)`,
	`CREATE INDEX ib_partition_subnet_index IF NOT EXISTS FOR (p:Partition) ON (p.subnet, p.index)`,
}

// EnsureSchema creates the lookup indexes used by Sync.
func (s *Store) EnsureSchema(ctx context.Context) error {
	session, err := s.cfg.Neo4j.Session(ctx)
	if err != nil {
		return fmt.Errorf("failed to create Neo4j session: %w", err)
	}
	defer session.Close(ctx)

	for _, stmt := range schema {
		res, err := session.Run(ctx, stmt, nil)
		if err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
		if _, err := res.Consume(ctx); err != nil {
			return fmt.Errorf("failed to consume schema result: %w", err)
		}
	}
	return nil
}

// Name identifies the store as a run sink
func (s *Store) Name() string {
	return "neo4j"
}

// Write syncs the topology; it lets the store act as a run sink
func (s *Store) Write(ctx context.Context, t *domain.Topology) error {
	return s.Sync(ctx, t)
}

// Sync replaces the subnet's graph within a single write transaction.
// Readers see either the old graph or the new one, never a partial state.
// Other subnets are left untouched.
func (s *Store) Sync(ctx context.Context, t *domain.Topology) error {
	doc := codec.NewDocument(t)
	s.log.Debug("graph: starting sync", "subnet", doc.Subnet)

	session, err := s.cfg.Neo4j.Session(ctx)
	if err != nil {
		return fmt.Errorf("failed to create Neo4j session: %w", err)
	}
	defer session.Close(ctx)

	_, err = session.ExecuteWrite(ctx, func(tx Transaction) (any, error) {
		if err := run(ctx, tx, `
			MATCH (n) WHERE (n:Node OR n:Partition) AND n.subnet = $subnet
			DETACH DELETE n
		`, map[string]any{"subnet": doc.Subnet}); err != nil {
			return nil, fmt.Errorf("failed to clear subnet: %w", err)
		}

		if err := batchCreateNodes(ctx, tx, doc); err != nil {
			return nil, fmt.Errorf("failed to create nodes: %w", err)
		}
		if err := batchCreatePartitions(ctx, tx, doc); err != nil {
			return nil, fmt.Errorf("failed to create partitions: %w", err)
		}
		if err := batchCreateLinks(ctx, tx, doc); err != nil {
			return nil, fmt.Errorf("failed to create links: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("failed to sync graph: %w", err)
	}

	s.log.Info("graph: sync completed",
		"subnet", doc.Subnet,
		"nodes", len(doc.Nodes),
		"links", len(doc.Links),
		"partitions", len(doc.Partitions))

	return nil
}

func run(ctx context.Context, tx Transaction, cypher string, params map[string]any) error {
	res, err := tx.Run(ctx, cypher, params)
	if err != nil {
		return err
	}
	_, err = res.Consume(ctx)
	return err
}

// runBatched sends items through cypher in chunks of batchSize
func runBatched(ctx context.Context, tx Transaction, cypher, subnet string, items []map[string]any) error {
	for start := 0; start < len(items); start += batchSize {
		end := min(start+batchSize, len(items))
		if err := run(ctx, tx, cypher, map[string]any{
			"subnet": subnet,
			"items":  items[start:end],
		}); err != nil {
			return err
		}
	}
	return nil
}

// batchCreateNodes creates all Node vertices in batched queries.
func batchCreateNodes(ctx context.Context, tx Transaction, doc *codec.Document) error {
	items := make([]map[string]any, len(doc.Nodes))
	for i, n := range doc.Nodes {
		items[i] = map[string]any{
			"id":          n.ID,
			"lid":         n.LID,
			"kind":        n.Kind,
			"hostname":    n.Hostname,
			"description": n.Description,
			"partition":   n.Partition,
			"partitions":  stringsOrEmpty(n.Partitions),
		}
	}

	cypher := `
		UNWIND $items AS item
		CREATE (n:Node {
			subnet: $subnet,
			id: item.id,
			lid: item.lid,
			kind: item.kind,
			hostname: item.hostname,
			description: item.description,
			partition: item.partition,
			partitions: item.partitions
		})
	`
	return runBatched(ctx, tx, cypher, doc.Subnet, items)
}

// batchCreatePartitions creates the Partition vertices and MEMBER_OF
// relationships.
func batchCreatePartitions(ctx context.Context, tx Transaction, doc *codec.Document) error {
	if len(doc.Partitions) == 0 {
		return nil
	}

	partitions := make([]map[string]any, len(doc.Partitions))
	var members []map[string]any
	for i, p := range doc.Partitions {
		partitions[i] = map[string]any{
			"index": p.Index,
			"name":  p.Name,
			"size":  len(p.Members),
		}
		for _, id := range p.Members {
			members = append(members, map[string]any{"node": id, "partition": p.Index})
		}
	}

	cypherPartitions := `
		UNWIND $items AS item
		CREATE (p:Partition {subnet: $subnet, index: item.index, name: item.name, size: item.size})
	`
	if err := runBatched(ctx, tx, cypherPartitions, doc.Subnet, partitions); err != nil {
		return err
	}

	cypherMembers := `
		UNWIND $items AS item
		MATCH (n:Node {subnet: $subnet, id: item.node})
		MATCH (p:Partition {subnet: $subnet, index: item.partition})
		CREATE (n)-[:MEMBER_OF]->(p)
	`
	return runBatched(ctx, tx, cypherMembers, doc.Subnet, members)
}

// batchCreateLinks creates one LINK relationship per directed physical link.
func batchCreateLinks(ctx context.Context, tx Transaction, doc *codec.Document) error {
	items := make([]map[string]any, len(doc.Links))
	for i, l := range doc.Links {
		items[i] = map[string]any{
			"id":          l.ID,
			"source":      l.Source,
			"dest":        l.Dest,
			"port":        l.Port,
			"remote_port": l.RemotePort,
			"width":       l.Width,
			"speed":       l.Speed,
			"bandwidth":   l.Bandwidth,
			"partitions":  stringsOrEmpty(l.Partitions),
		}
	}

	cypher := `
		UNWIND $items AS item
		MATCH (a:Node {subnet: $subnet, id: item.source})
		MATCH (b:Node {subnet: $subnet, id: item.dest})
		CREATE (a)-[:LINK {
			id: item.id,
			port: item.port,
			remote_port: item.remote_port,
			width: item.width,
			speed: item.speed,
			bandwidth: item.bandwidth,
			partitions: item.partitions
		}]->(b)
	`
	return runBatched(ctx, tx, cypher, doc.Subnet, items)
}

// stringsOrEmpty avoids sending null list properties
func stringsOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
