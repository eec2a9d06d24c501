package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"ibtopo/internal/codec"
	"ibtopo/internal/repository"
)

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// stringToNull safely converts string to sql.NullString
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullToIntPtr converts sql.NullInt64 to *int
func nullToIntPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	v := int(ni.Int64)
	return &v
}

// intPtrToNull converts *int to sql.NullInt64
func intPtrToNull(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

// formatTime renders timestamps as UTC RFC 3339 text
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime reads a timestamp written by formatTime
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// ============================================================================
// JSON Marshaling Helpers
// ============================================================================

// unmarshalJSONField safely unmarshals JSON from nullable string into target
func unmarshalJSONField(ns sql.NullString, target interface{}) error {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), target)
}

// marshalToNull marshals v to a nullable JSON string.
// Returns empty NullString for nil and empty slices.
func marshalToNull(v interface{}) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}

	switch s := v.(type) {
	case []string:
		if len(s) == 0 {
			return sql.NullString{}, nil
		}
	case []int:
		if len(s) == 0 {
			return sql.NullString{}, nil
		}
	}

	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// ============================================================================
// Schema Evolution Guide
// ============================================================================
//
// To add a new column to a snapshot table:
// 1. Add field to the row struct (below)
// 2. Update scanArgs() - APPEND to end to match column order
// 3. Update the columns constant - APPEND to end
// 4. Update toDoc() to map the new field
// 5. Update the insert args helper if the column is writable
// 6. Add a migration in sqlite.go migrate()
// 7. Update relevant tests
//
// CRITICAL: Column order must match between:
// - the columns constant
// - scanArgs() return slice
// - All SELECT queries using the constant

// ============================================================================
// Snapshot Row Scanner
// ============================================================================

// snapshotRow holds all columns from a snapshot query for scanning
type snapshotRow struct {
	ID          string
	Subnet      string
	GeneratedAt string
	Hosts       int
	Switches    int
	Links       int
	Partitions  int
	Paths       int
	StatsJSON   sql.NullString
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match snapshotColumns order exactly
func (r *snapshotRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID,          // 1
		&r.Subnet,      // 2
		&r.GeneratedAt, // 3
		&r.Hosts,       // 4
		&r.Switches,    // 5
		&r.Links,       // 6
		&r.Partitions,  // 7
		&r.Paths,       // 8
		&r.StatsJSON,   // 9
	}
}

// toSnapshot converts the scanned row to a repository.Snapshot
func (r *snapshotRow) toSnapshot() (repository.Snapshot, error) {
	at, err := parseTime(r.GeneratedAt)
	if err != nil {
		return repository.Snapshot{}, fmt.Errorf("parse generated_at: %w", err)
	}
	s := repository.Snapshot{
		ID:          r.ID,
		Subnet:      r.Subnet,
		GeneratedAt: at,
		Hosts:       r.Hosts,
		Switches:    r.Switches,
		Links:       r.Links,
		Partitions:  r.Partitions,
		Paths:       r.Paths,
	}
	if err := unmarshalJSONField(r.StatsJSON, &s.Stats); err != nil {
		return repository.Snapshot{}, fmt.Errorf("unmarshal stats: %w", err)
	}
	return s, nil
}

// snapshotColumns returns the SELECT column list for snapshot queries
const snapshotColumns = `id, subnet, generated_at, hosts, switches, links, partitions, paths, stats`

// ============================================================================
// Node Row Scanner
// ============================================================================

// nodeRow holds all columns from a node query for scanning
type nodeRow struct {
	ID             string
	LID            int
	Kind           string
	Hostname       sql.NullString
	Description    sql.NullString
	MainPartition  sql.NullString
	PartitionIndex sql.NullInt64
	PartitionsJSON sql.NullString
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match nodeColumns order exactly:
// id, lid, kind, hostname, description, main_partition, partition_index,
// partitions
func (r *nodeRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID,             // 1
		&r.LID,            // 2
		&r.Kind,           // 3
		&r.Hostname,       // 4
		&r.Description,    // 5
		&r.MainPartition,  // 6
		&r.PartitionIndex, // 7
		&r.PartitionsJSON, // 8
	}
}

// toDoc converts the scanned row to a codec.DocNode
func (r *nodeRow) toDoc() (codec.DocNode, error) {
	n := codec.DocNode{
		ID:             r.ID,
		LID:            r.LID,
		Kind:           r.Kind,
		Hostname:       nullToString(r.Hostname),
		Description:    nullToString(r.Description),
		Partition:      nullToString(r.MainPartition),
		PartitionIndex: nullToIntPtr(r.PartitionIndex),
	}
	if err := unmarshalJSONField(r.PartitionsJSON, &n.Partitions); err != nil {
		return n, fmt.Errorf("unmarshal partitions: %w", err)
	}
	return n, nil
}

// nodeColumns returns the SELECT column list for node queries
const nodeColumns = `id, lid, kind, hostname, description, main_partition, partition_index, partitions`

// ============================================================================
// Link Row Scanner
// ============================================================================

// linkRow holds all columns from a link query for scanning
type linkRow struct {
	ID             int
	SourceID       string
	Port           int
	DestID         string
	RemotePort     int
	Width          string
	Speed          string
	Bandwidth      float64
	SiblingID      sql.NullInt64
	PartitionsJSON sql.NullString
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match linkColumns order exactly:
// id, source_id, port, dest_id, remote_port, width, speed, bandwidth,
// sibling_id, partitions
func (r *linkRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID,             // 1
		&r.SourceID,       // 2
		&r.Port,           // 3
		&r.DestID,         // 4
		&r.RemotePort,     // 5
		&r.Width,          // 6
		&r.Speed,          // 7
		&r.Bandwidth,      // 8
		&r.SiblingID,      // 9
		&r.PartitionsJSON, // 10
	}
}

// toDoc converts the scanned row to a codec.DocLink
func (r *linkRow) toDoc() (codec.DocLink, error) {
	l := codec.DocLink{
		ID:         r.ID,
		Source:     r.SourceID,
		Port:       r.Port,
		Dest:       r.DestID,
		RemotePort: r.RemotePort,
		Width:      r.Width,
		Speed:      r.Speed,
		Bandwidth:  r.Bandwidth,
		Sibling:    nullToIntPtr(r.SiblingID),
	}
	if err := unmarshalJSONField(r.PartitionsJSON, &l.Partitions); err != nil {
		return l, fmt.Errorf("unmarshal partitions: %w", err)
	}
	return l, nil
}

// linkColumns returns the SELECT column list for link queries
const linkColumns = `id, source_id, port, dest_id, remote_port, width, speed, bandwidth, sibling_id, partitions`

// ============================================================================
// Write Helpers
// ============================================================================

// nodeInsertArgs prepares arguments for node INSERT
// Returns: snapshot_id, ord, id, lid, kind, hostname, description,
//
//	main_partition, partition_index, partitions
func nodeInsertArgs(snapshotID string, ord int, n codec.DocNode) ([]interface{}, error) {
	partitions, err := marshalToNull(n.Partitions)
	if err != nil {
		return nil, fmt.Errorf("marshal partitions: %w", err)
	}
	return []interface{}{
		snapshotID,
		ord,
		n.ID,
		n.LID,
		n.Kind,
		stringToNull(n.Hostname),
		stringToNull(n.Description),
		stringToNull(n.Partition),
		intPtrToNull(n.PartitionIndex),
		partitions,
	}, nil
}

// linkInsertArgs prepares arguments for link INSERT
// Returns: snapshot_id, ord, id, source_id, port, dest_id, remote_port,
//
//	width, speed, bandwidth, sibling_id, partitions
func linkInsertArgs(snapshotID string, ord int, l codec.DocLink) ([]interface{}, error) {
	partitions, err := marshalToNull(l.Partitions)
	if err != nil {
		return nil, fmt.Errorf("marshal partitions: %w", err)
	}
	return []interface{}{
		snapshotID,
		ord,
		l.ID,
		l.Source,
		l.Port,
		l.Dest,
		l.RemotePort,
		l.Width,
		l.Speed,
		l.Bandwidth,
		intPtrToNull(l.Sibling),
		partitions,
	}, nil
}
