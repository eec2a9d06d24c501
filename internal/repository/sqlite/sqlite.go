package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"ibtopo/internal/codec"
	"ibtopo/internal/domain"
	"ibtopo/internal/repository"
)

var _ repository.Repository = (*Repository)(nil)

// Repository stores topology snapshots in SQLite
type Repository struct {
	db   *sql.DB
	keep int
}

// Option configures a Repository
type Option func(*Repository)

// WithKeep retains only the newest n snapshots per subnet. Zero keeps all.
func WithKeep(n int) Option {
	return func(r *Repository) { r.keep = n }
}

// New opens (creating if needed) the snapshot database at dbPath.
// ":memory:" opens a private in-memory database.
func New(dbPath string, opts ...Option) (*Repository, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection keeps pragmas and in-memory databases alive
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	repo := &Repository{db: db}
	for _, opt := range opts {
		opt(repo)
	}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		subnet TEXT NOT NULL,
		generated_at TEXT NOT NULL,
		hosts INTEGER NOT NULL,
		switches INTEGER NOT NULL,
		links INTEGER NOT NULL,
		partitions INTEGER NOT NULL,
		paths INTEGER NOT NULL,
		stats JSON,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS partitions (
		snapshot_id TEXT NOT NULL,
		idx INTEGER NOT NULL,
		name TEXT NOT NULL,
		members JSON,
		PRIMARY KEY (snapshot_id, idx),
		FOREIGN KEY (snapshot_id) REFERENCES snapshots(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS nodes (
		snapshot_id TEXT NOT NULL,
		ord INTEGER NOT NULL,
		id TEXT NOT NULL,
		lid INTEGER NOT NULL,
		kind TEXT NOT NULL,
		hostname TEXT,
		description TEXT,
		main_partition TEXT,
		partition_index INTEGER,
		partitions JSON,
		PRIMARY KEY (snapshot_id, id),
		FOREIGN KEY (snapshot_id) REFERENCES snapshots(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS edges (
		snapshot_id TEXT NOT NULL,
		ord INTEGER NOT NULL,
		source_id TEXT NOT NULL,
		dest_id TEXT NOT NULL,
		bandwidth REAL NOT NULL,
		links JSON,
		partitions JSON,
		reverse TEXT,
		PRIMARY KEY (snapshot_id, source_id, dest_id),
		FOREIGN KEY (snapshot_id) REFERENCES snapshots(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS links (
		snapshot_id TEXT NOT NULL,
		ord INTEGER NOT NULL,
		id INTEGER NOT NULL,
		source_id TEXT NOT NULL,
		port INTEGER NOT NULL,
		dest_id TEXT NOT NULL,
		remote_port INTEGER NOT NULL,
		width TEXT NOT NULL,
		speed TEXT NOT NULL,
		bandwidth REAL NOT NULL,
		sibling_id INTEGER,
		partitions JSON,
		PRIMARY KEY (snapshot_id, id),
		FOREIGN KEY (snapshot_id) REFERENCES snapshots(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS paths (
		snapshot_id TEXT NOT NULL,
		ord INTEGER NOT NULL,
		source_id TEXT NOT NULL,
		dest_id TEXT NOT NULL,
		hops INTEGER NOT NULL,
		bottleneck REAL NOT NULL,
		PRIMARY KEY (snapshot_id, source_id, dest_id),
		FOREIGN KEY (snapshot_id) REFERENCES snapshots(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS path_links (
		snapshot_id TEXT NOT NULL,
		source_id TEXT NOT NULL,
		dest_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		link_id INTEGER NOT NULL,
		PRIMARY KEY (snapshot_id, source_id, dest_id, seq),
		FOREIGN KEY (snapshot_id) REFERENCES snapshots(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_subnet ON snapshots(subnet);
	CREATE INDEX IF NOT EXISTS idx_path_links_link ON path_links(snapshot_id, link_id);
	`

	if _, err := r.db.Exec(schema); err != nil {
		return err
	}
	return r.addMissingColumns()
}

// addedColumns were introduced after the first schema; databases created
// before them get the columns on open
var addedColumns = []struct{ table, column, decl string }{
	{"nodes", "partition_index", "INTEGER"},
	{"edges", "reverse", "TEXT"},
}

func (r *Repository) addMissingColumns() error {
	for _, c := range addedColumns {
		var n int
		err := r.db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, c.table, c.column).Scan(&n)
		if err != nil {
			return fmt.Errorf("inspect %s: %w", c.table, err)
		}
		if n > 0 {
			continue
		}
		if _, err := r.db.Exec(`ALTER TABLE ` + c.table + ` ADD COLUMN ` + c.column + ` ` + c.decl); err != nil {
			return fmt.Errorf("add %s.%s: %w", c.table, c.column, err)
		}
	}
	return nil
}

// SaveTopology stores t as a new snapshot in one transaction
func (r *Repository) SaveTopology(ctx context.Context, t *domain.Topology) (*repository.Snapshot, error) {
	doc := codec.NewDocument(t)
	counts := t.Graph.Counts()

	snap := &repository.Snapshot{
		ID:          uuid.NewString(),
		Subnet:      doc.Subnet,
		GeneratedAt: doc.GeneratedAt.UTC(),
		Hosts:       counts.Hosts,
		Switches:    counts.Switches,
		Links:       counts.Links,
		Partitions:  len(doc.Partitions),
		Paths:       len(doc.Paths),
		Stats:       doc.Stats,
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stats, err := json.Marshal(snap.Stats)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stats: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (`+snapshotColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, snap.ID, snap.Subnet, formatTime(snap.GeneratedAt), snap.Hosts, snap.Switches,
		snap.Links, snap.Partitions, snap.Paths, string(stats)); err != nil {
		return nil, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	if err := insertPartitions(ctx, tx, snap.ID, doc.Partitions); err != nil {
		return nil, err
	}
	if err := insertNodes(ctx, tx, snap.ID, doc.Nodes); err != nil {
		return nil, err
	}
	if err := insertEdges(ctx, tx, snap.ID, doc.Edges); err != nil {
		return nil, err
	}
	if err := insertLinks(ctx, tx, snap.ID, doc.Links); err != nil {
		return nil, err
	}
	if err := insertPaths(ctx, tx, snap.ID, doc.Paths); err != nil {
		return nil, err
	}

	if r.keep > 0 {
		if _, err := prune(ctx, tx, snap.Subnet, r.keep); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return snap, nil
}

func insertPartitions(ctx context.Context, tx *sql.Tx, snapshotID string, partitions []codec.DocPartition) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO partitions (snapshot_id, idx, name, members) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare partition statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range partitions {
		members, err := marshalToNull(p.Members)
		if err != nil {
			return fmt.Errorf("failed to marshal members of %q: %w", p.Name, err)
		}
		if _, err := stmt.ExecContext(ctx, snapshotID, p.Index, p.Name, members); err != nil {
			return fmt.Errorf("failed to insert partition %q: %w", p.Name, err)
		}
	}
	return nil
}

func insertNodes(ctx context.Context, tx *sql.Tx, snapshotID string, nodes []codec.DocNode) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO nodes (snapshot_id, ord, `+nodeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare node statement: %w", err)
	}
	defer stmt.Close()

	for i, n := range nodes {
		args, err := nodeInsertArgs(snapshotID, i, n)
		if err != nil {
			return fmt.Errorf("node %s: %w", n.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert node %s: %w", n.ID, err)
		}
	}
	return nil
}

func insertEdges(ctx context.Context, tx *sql.Tx, snapshotID string, edges []codec.DocEdge) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO edges (snapshot_id, ord, source_id, dest_id, bandwidth, links, partitions, reverse)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare edge statement: %w", err)
	}
	defer stmt.Close()

	for i, e := range edges {
		links, err := marshalToNull(e.Links)
		if err != nil {
			return fmt.Errorf("failed to marshal edge links: %w", err)
		}
		partitions, err := marshalToNull(e.Partitions)
		if err != nil {
			return fmt.Errorf("failed to marshal edge partitions: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, snapshotID, i, e.Source, e.Dest, e.Bandwidth, links, partitions, stringToNull(e.Reverse)); err != nil {
			return fmt.Errorf("failed to insert edge %s->%s: %w", e.Source, e.Dest, err)
		}
	}
	return nil
}

func insertLinks(ctx context.Context, tx *sql.Tx, snapshotID string, links []codec.DocLink) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO links (snapshot_id, ord, `+linkColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare link statement: %w", err)
	}
	defer stmt.Close()

	for i, l := range links {
		args, err := linkInsertArgs(snapshotID, i, l)
		if err != nil {
			return fmt.Errorf("link %d: %w", l.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert link %d: %w", l.ID, err)
		}
	}
	return nil
}

func insertPaths(ctx context.Context, tx *sql.Tx, snapshotID string, paths []codec.DocPath) error {
	pathStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO paths (snapshot_id, ord, source_id, dest_id, hops, bottleneck)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare path statement: %w", err)
	}
	defer pathStmt.Close()

	linkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO path_links (snapshot_id, source_id, dest_id, seq, link_id)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare path link statement: %w", err)
	}
	defer linkStmt.Close()

	for i, p := range paths {
		if _, err := pathStmt.ExecContext(ctx, snapshotID, i, p.Source, p.Dest, p.Hops, p.Bottleneck); err != nil {
			return fmt.Errorf("failed to insert path %s->%s: %w", p.Source, p.Dest, err)
		}
		for seq, linkID := range p.Links {
			if _, err := linkStmt.ExecContext(ctx, snapshotID, p.Source, p.Dest, seq, linkID); err != nil {
				return fmt.Errorf("failed to insert path link %s->%s #%d: %w", p.Source, p.Dest, seq, err)
			}
		}
	}
	return nil
}

// ListSnapshots returns the snapshots of subnet, newest first. An empty
// subnet lists all of them.
func (r *Repository) ListSnapshots(ctx context.Context, subnet string) ([]repository.Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM snapshots`
	var args []interface{}
	if subnet != "" {
		query += ` WHERE subnet = ?`
		args = append(args, subnet)
	}
	query += ` ORDER BY rowid DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []repository.Snapshot
	for rows.Next() {
		var row snapshotRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		s, err := row.toSnapshot()
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return snapshots, nil
}

// LatestSnapshot returns the newest snapshot of subnet, or nil
func (r *Repository) LatestSnapshot(ctx context.Context, subnet string) (*repository.Snapshot, error) {
	var row snapshotRow
	err := r.db.QueryRowContext(ctx, `
		SELECT `+snapshotColumns+` FROM snapshots
		WHERE subnet = ? ORDER BY rowid DESC LIMIT 1
	`, subnet).Scan(row.scanArgs()...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}
	s, err := row.toSnapshot()
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadDocument rebuilds the document stored under a snapshot id, or nil
// when there is no such snapshot
func (r *Repository) LoadDocument(ctx context.Context, snapshotID string) (*codec.Document, error) {
	var row snapshotRow
	err := r.db.QueryRowContext(ctx, `SELECT `+snapshotColumns+` FROM snapshots WHERE id = ?`, snapshotID).
		Scan(row.scanArgs()...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}
	snap, err := row.toSnapshot()
	if err != nil {
		return nil, err
	}

	doc := &codec.Document{
		Subnet:      snap.Subnet,
		GeneratedAt: snap.GeneratedAt,
		Stats:       snap.Stats,
		Partitions:  []codec.DocPartition{},
	}

	if err := r.loadPartitions(ctx, snapshotID, doc); err != nil {
		return nil, err
	}
	if err := r.loadNodes(ctx, snapshotID, doc); err != nil {
		return nil, err
	}
	if err := r.loadEdges(ctx, snapshotID, doc); err != nil {
		return nil, err
	}
	if err := r.loadLinks(ctx, snapshotID, doc); err != nil {
		return nil, err
	}
	if err := r.loadPaths(ctx, snapshotID, doc); err != nil {
		return nil, err
	}

	return doc, nil
}

func (r *Repository) loadPartitions(ctx context.Context, snapshotID string, doc *codec.Document) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT idx, name, members FROM partitions WHERE snapshot_id = ? ORDER BY idx
	`, snapshotID)
	if err != nil {
		return fmt.Errorf("failed to query partitions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p       codec.DocPartition
			members sql.NullString
		)
		if err := rows.Scan(&p.Index, &p.Name, &members); err != nil {
			return fmt.Errorf("failed to scan partition: %w", err)
		}
		p.Members = []string{}
		if err := unmarshalJSONField(members, &p.Members); err != nil {
			return fmt.Errorf("unmarshal members: %w", err)
		}
		doc.Partitions = append(doc.Partitions, p)
	}
	return rows.Err()
}

func (r *Repository) loadNodes(ctx context.Context, snapshotID string, doc *codec.Document) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+nodeColumns+` FROM nodes WHERE snapshot_id = ? ORDER BY ord
	`, snapshotID)
	if err != nil {
		return fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row nodeRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return fmt.Errorf("failed to scan node: %w", err)
		}
		n, err := row.toDoc()
		if err != nil {
			return err
		}
		doc.Nodes = append(doc.Nodes, n)
	}
	return rows.Err()
}

func (r *Repository) loadEdges(ctx context.Context, snapshotID string, doc *codec.Document) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT source_id, dest_id, bandwidth, links, partitions, reverse
		FROM edges WHERE snapshot_id = ? ORDER BY ord
	`, snapshotID)
	if err != nil {
		return fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e                          codec.DocEdge
			links, partitions, reverse sql.NullString
		)
		if err := rows.Scan(&e.Source, &e.Dest, &e.Bandwidth, &links, &partitions, &reverse); err != nil {
			return fmt.Errorf("failed to scan edge: %w", err)
		}
		if err := unmarshalJSONField(links, &e.Links); err != nil {
			return fmt.Errorf("unmarshal edge links: %w", err)
		}
		if err := unmarshalJSONField(partitions, &e.Partitions); err != nil {
			return fmt.Errorf("unmarshal edge partitions: %w", err)
		}
		e.Reverse = nullToString(reverse)
		doc.Edges = append(doc.Edges, e)
	}
	return rows.Err()
}

func (r *Repository) loadLinks(ctx context.Context, snapshotID string, doc *codec.Document) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+linkColumns+` FROM links WHERE snapshot_id = ? ORDER BY ord
	`, snapshotID)
	if err != nil {
		return fmt.Errorf("failed to query links: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row linkRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return fmt.Errorf("failed to scan link: %w", err)
		}
		l, err := row.toDoc()
		if err != nil {
			return err
		}
		doc.Links = append(doc.Links, l)
	}
	return rows.Err()
}

func (r *Repository) loadPaths(ctx context.Context, snapshotID string, doc *codec.Document) error {
	linkRows, err := r.db.QueryContext(ctx, `
		SELECT source_id, dest_id, link_id FROM path_links
		WHERE snapshot_id = ? ORDER BY source_id, dest_id, seq
	`, snapshotID)
	if err != nil {
		return fmt.Errorf("failed to query path links: %w", err)
	}
	chains := make(map[[2]string][]int)
	for linkRows.Next() {
		var (
			src, dst string
			linkID   int
		)
		if err := linkRows.Scan(&src, &dst, &linkID); err != nil {
			linkRows.Close()
			return fmt.Errorf("failed to scan path link: %w", err)
		}
		key := [2]string{src, dst}
		chains[key] = append(chains[key], linkID)
	}
	linkRows.Close()
	if err := linkRows.Err(); err != nil {
		return fmt.Errorf("error iterating path links: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT source_id, dest_id, hops, bottleneck FROM paths WHERE snapshot_id = ? ORDER BY ord
	`, snapshotID)
	if err != nil {
		return fmt.Errorf("failed to query paths: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p codec.DocPath
		if err := rows.Scan(&p.Source, &p.Dest, &p.Hops, &p.Bottleneck); err != nil {
			return fmt.Errorf("failed to scan path: %w", err)
		}
		p.Links = chains[[2]string{p.Source, p.Dest}]
		if p.Links == nil {
			p.Links = []int{}
		}
		doc.Paths = append(doc.Paths, p)
	}
	return rows.Err()
}

// PathsThroughLink returns the (source, dest) host pairs whose path in the
// snapshot crosses the link with the given id
func (r *Repository) PathsThroughLink(ctx context.Context, snapshotID string, linkID int) ([][2]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT pl.source_id, pl.dest_id
		FROM path_links pl
		JOIN paths p ON p.snapshot_id = pl.snapshot_id
			AND p.source_id = pl.source_id AND p.dest_id = pl.dest_id
		WHERE pl.snapshot_id = ? AND pl.link_id = ?
		ORDER BY p.ord
	`, snapshotID, linkID)
	if err != nil {
		return nil, fmt.Errorf("failed to query path links: %w", err)
	}
	defer rows.Close()

	var pairs [][2]string
	for rows.Next() {
		var pair [2]string
		if err := rows.Scan(&pair[0], &pair[1]); err != nil {
			return nil, fmt.Errorf("failed to scan pair: %w", err)
		}
		pairs = append(pairs, pair)
	}
	return pairs, rows.Err()
}

// DeleteSnapshot removes a snapshot and everything recorded under it
func (r *Repository) DeleteSnapshot(ctx context.Context, snapshotID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, snapshotID)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// prune deletes all but the newest keep snapshots of subnet
func prune(ctx context.Context, tx *sql.Tx, subnet string, keep int) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		DELETE FROM snapshots WHERE subnet = ? AND id NOT IN (
			SELECT id FROM snapshots WHERE subnet = ? ORDER BY rowid DESC LIMIT ?
		)
	`, subnet, subnet, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
