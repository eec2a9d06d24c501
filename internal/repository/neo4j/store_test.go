package neo4j

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ibtopo/internal/fabric/fabrictest"
)

type query struct {
	cypher string
	params map[string]any
}

// recorder is an in-memory Client that records every query it receives
type recorder struct {
	queries  []query
	writes   int
	failOn   string
	sessions int
}

type recordedSession struct{ r *recorder }

type recordedTx struct{ r *recorder }

type emptyResult struct{}

func (emptyResult) Consume(context.Context) (neo4j.ResultSummary, error) { return nil, nil }

func (r *recorder) Session(context.Context) (Session, error) {
	r.sessions++
	return &recordedSession{r: r}, nil
}

func (r *recorder) Close(context.Context) error { return nil }

func (r *recorder) run(cypher string, params map[string]any) (Result, error) {
	if r.failOn != "" && strings.Contains(cypher, r.failOn) {
		return nil, errors.New("boom")
	}
	r.queries = append(r.queries, query{cypher: cypher, params: params})
	return emptyResult{}, nil
}

func (s *recordedSession) Run(_ context.Context, cypher string, params map[string]any) (Result, error) {
	return s.r.run(cypher, params)
}

func (s *recordedSession) ExecuteWrite(_ context.Context, work TransactionWork) (any, error) {
	s.r.writes++
	return work(&recordedTx{r: s.r})
}

func (s *recordedSession) Close(context.Context) error { return nil }

func (t *recordedTx) Run(_ context.Context, cypher string, params map[string]any) (Result, error) {
	return t.r.run(cypher, params)
}

func newTestStore(t *testing.T, c Client) *Store {
	t.Helper()
	store, err := NewStore(StoreConfig{
		Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
		Neo4j:  c,
	})
	require.NoError(t, err)
	return store
}

func (r *recorder) find(fragment string) []query {
	var out []query
	for _, q := range r.queries {
		if strings.Contains(q.cypher, fragment) {
			out = append(out, q)
		}
	}
	return out
}

func TestStoreConfigValidate(t *testing.T) {
	_, err := NewStore(StoreConfig{Neo4j: &recorder{}})
	assert.ErrorContains(t, err, "logger")

	_, err = NewStore(StoreConfig{Logger: slog.Default()})
	assert.ErrorContains(t, err, "neo4j client")
}

func TestSync(t *testing.T) {
	rec := &recorder{}
	store := newTestStore(t, rec)

	require.NoError(t, store.Sync(context.Background(), fabrictest.Sample(t)))
	assert.Equal(t, 1, rec.writes, "sync must use a single write transaction")

	require.NotEmpty(t, rec.queries)
	assert.Contains(t, rec.queries[0].cypher, "DETACH DELETE")
	assert.Equal(t, fabrictest.SampleSubnet, rec.queries[0].params["subnet"])

	nodes := rec.find("CREATE (n:Node")
	require.Len(t, nodes, 1)
	items := nodes[0].params["items"].([]map[string]any)
	require.Len(t, items, 5)
	assert.Equal(t, fabrictest.ID(1), items[0]["id"])
	assert.Equal(t, "node01", items[0]["hostname"])
	assert.Equal(t, fabrictest.ID(11), items[3]["id"])
	assert.Equal(t, []string{}, items[3]["partitions"], "no intra-partition path crosses sw11")

	partitions := rec.find("CREATE (p:Partition")
	require.Len(t, partitions, 1)
	assert.Len(t, partitions[0].params["items"], 2)

	members := rec.find("MEMBER_OF")
	require.Len(t, members, 1)
	assert.Len(t, members[0].params["items"], 3)

	links := rec.find("[:LINK")
	require.Len(t, links, 1)
	linkItems := links[0].params["items"].([]map[string]any)
	require.Len(t, linkItems, 8)
	assert.Equal(t, 32.0, linkItems[0]["bandwidth"])
}

func TestSyncBatches(t *testing.T) {
	items := make([]map[string]any, batchSize*2+1)
	for i := range items {
		items[i] = map[string]any{"id": i}
	}

	rec := &recorder{}
	tx := &recordedTx{r: rec}
	require.NoError(t, runBatched(context.Background(), tx, "UNWIND $items AS item", "s", items))

	require.Len(t, rec.queries, 3)
	assert.Len(t, rec.queries[0].params["items"], batchSize)
	assert.Len(t, rec.queries[2].params["items"], 1)
}

func TestSyncError(t *testing.T) {
	rec := &recorder{failOn: "[:LINK"}
	store := newTestStore(t, rec)

	err := store.Write(context.Background(), fabrictest.Sample(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create links")
}

func TestEnsureSchema(t *testing.T) {
	rec := &recorder{}
	store := newTestStore(t, rec)

	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.Len(t, rec.queries, len(schema))
	assert.Equal(t, "neo4j", store.Name())
}
