// Package neo4j mirrors subnet topologies into a Neo4j graph database.
package neo4j

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const DefaultDatabase = "neo4j"

// Client represents a Neo4j database connection.
type Client interface {
	Session(ctx context.Context) (Session, error)
	Close(ctx context.Context) error
}

// Session represents a Neo4j session for executing queries.
type Session interface {
	Run(ctx context.Context, cypher string, params map[string]any) (Result, error)
	ExecuteWrite(ctx context.Context, work TransactionWork) (any, error)
	Close(ctx context.Context) error
}

// TransactionWork is a function that runs within a transaction.
type TransactionWork func(tx Transaction) (any, error)

// Transaction represents a Neo4j transaction.
type Transaction interface {
	Run(ctx context.Context, cypher string, params map[string]any) (Result, error)
}

// Result represents the result of a Neo4j query.
type Result interface {
	Consume(ctx context.Context) (neo4j.ResultSummary, error)
}

type client struct {
	driver   neo4j.DriverWithContext
	database string
	log      *slog.Logger
}

type session struct {
	sess neo4j.SessionWithContext
}

type transaction struct {
	tx neo4j.ManagedTransaction
}

// NewClient creates a new Neo4j client and verifies connectivity.
func NewClient(ctx context.Context, log *slog.Logger, uri, database, username, password string) (Client, error) {
	if database == "" {
		database = DefaultDatabase
	}
	auth := neo4j.BasicAuth(username, password, "")
	driver, err := neo4j.NewDriverWithContext(uri, auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to verify Neo4j connectivity: %w", err)
	}

	log.Info("neo4j client initialized", "uri", uri, "database", database)

	return &client{
		driver:   driver,
		database: database,
		log:      log,
	}, nil
}

func (c *client) Session(ctx context.Context) (Session, error) {
	sess := c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.database,
	})
	return &session{sess: sess}, nil
}

func (c *client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

func (s *session) Run(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	return s.sess.Run(ctx, cypher, params)
}

func (s *session) ExecuteWrite(ctx context.Context, work TransactionWork) (any, error) {
	return s.sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return work(&transaction{tx: tx})
	})
}

func (s *session) Close(ctx context.Context) error {
	return s.sess.Close(ctx)
}

func (t *transaction) Run(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	return t.tx.Run(ctx, cypher, params)
}
