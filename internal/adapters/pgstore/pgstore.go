// Package pgstore wires the relational-audit-trail deployment option: a
// Postgres-backed ledger.Ledger for the streamed decision feed, and a
// Postgres-backed DataShape registry for schema persistence across process
// restarts (engine.SchemaRegistry itself is process-local/in-memory).
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/decision-gate/core/pkg/canon"
	"github.com/decision-gate/core/pkg/model"
	"github.com/decision-gate/core/pkg/store/ledger"
)

// Open opens a Postgres connection pool, driver name "postgres" (lib/pq).
func Open(dsn string) (*sql.DB, error) {
	return sql.Open("postgres", dsn)
}

// NewDecisionLedger returns a ledger.Ledger backed by this Postgres database.
func NewDecisionLedger(db *sql.DB) *ledger.PostgresLedger {
	return ledger.NewPostgresLedger(db)
}

// SchemaRegistryStore durably persists registered DataShapes, complementing
// engine.SchemaRegistry's in-memory index for deployments that need schema
// registrations to survive a process restart.
type SchemaRegistryStore struct {
	db     *sql.DB
	hasher *canon.Hasher
}

func NewSchemaRegistryStore(db *sql.DB) *SchemaRegistryStore {
	return &SchemaRegistryStore{db: db, hasher: canon.NewHasher(0)}
}

const schemaRegistrySchema = `
CREATE TABLE IF NOT EXISTS data_shapes (
	tenant_id    INTEGER NOT NULL,
	namespace_id INTEGER NOT NULL,
	schema_id    TEXT NOT NULL,
	version      TEXT NOT NULL,
	body         TEXT NOT NULL,
	hash         TEXT NOT NULL,
	PRIMARY KEY (tenant_id, namespace_id, schema_id, version)
);`

func (s *SchemaRegistryStore) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaRegistrySchema)
	return err
}

// Persist stores ds together with the caller-supplied hash; a row that
// already exists for the same key is left unchanged. Callers are expected to
// have already passed ds through engine.SchemaRegistry.Register for
// validation and duplicate rejection; this is the durable mirror of that
// in-memory registration.
func (s *SchemaRegistryStore) Persist(ctx context.Context, ds *model.DataShape, hash string) error {
	body, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("pgstore: marshal data shape: %w", err)
	}

	query := `
		INSERT INTO data_shapes (tenant_id, namespace_id, schema_id, version, body, hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tenant_id, namespace_id, schema_id, version) DO NOTHING
	`
	_, err = s.db.ExecContext(ctx, query, ds.TenantID, ds.NamespaceID, ds.SchemaID, ds.Version, string(body), hash)
	return err
}

// LoadAll returns every persisted DataShape, for rehydrating an
// engine.SchemaRegistry on process start.
func (s *SchemaRegistryStore) LoadAll(ctx context.Context) ([]*model.DataShape, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM data_shapes`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var shapes []*model.DataShape
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var ds model.DataShape
		if err := json.Unmarshal([]byte(body), &ds); err != nil {
			return nil, fmt.Errorf("pgstore: corrupt data shape row: %w", err)
		}
		shapes = append(shapes, &ds)
	}
	return shapes, rows.Err()
}
