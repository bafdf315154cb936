// Package sqlitestore is a reference scenario.Store over SQLite. The
// storage engine choice is scoped out of the core's required surface —
// the core only defines the scenario.Store interface; this adapter is one
// pluggable implementation a single-node deployment can choose. It
// persists run state only; scenario definitions stay in the in-memory
// scenario.Registry.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/decision-gate/core/pkg/canon"
	"github.com/decision-gate/core/pkg/model"
)

// RunStore persists model.RunState rows keyed by (tenant_id, namespace_id,
// run_id), storing both the canonical JSON blob and its content hash so a
// Load can detect on-disk corruption and surface run_state_corrupt rather
// than silently return a tampered run.
type RunStore struct {
	db     *sql.DB
	hasher *canon.Hasher
}

func NewRunStore(db *sql.DB) (*RunStore, error) {
	s := &RunStore{db: db, hasher: canon.NewHasher(0)}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *RunStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS run_states (
		tenant_id    INTEGER NOT NULL,
		namespace_id INTEGER NOT NULL,
		run_id       TEXT NOT NULL,
		spec_hash    TEXT NOT NULL,
		body         TEXT NOT NULL,
		body_hash    TEXT NOT NULL,
		PRIMARY KEY (tenant_id, namespace_id, run_id)
	);`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

// Load implements scenario.Store.
func (s *RunStore) Load(tenantID model.TenantID, namespaceID model.NamespaceID, runID string) (*model.RunState, bool, error) {
	query := `SELECT body, body_hash FROM run_states WHERE tenant_id = ? AND namespace_id = ? AND run_id = ?`
	row := s.db.QueryRowContext(context.Background(), query, tenantID, namespaceID, runID)

	var body, bodyHash string
	if err := row.Scan(&body, &bodyHash); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("sqlitestore: load run %q: %w", runID, err)
	}

	var run model.RunState
	if err := json.Unmarshal([]byte(body), &run); err != nil {
		return nil, false, model.NewErrorf(model.CodeRunStateCorrupt, "sqlitestore: run %q body is not valid JSON: %v", runID, err)
	}

	digest, err := s.hasher.Hash(&run)
	if err != nil {
		return nil, false, fmt.Errorf("sqlitestore: rehash run %q: %w", runID, err)
	}
	if digest.Value != bodyHash {
		return nil, false, model.NewErrorf(model.CodeRunStateCorrupt, "sqlitestore: run %q stored hash does not match recomputed hash", runID)
	}

	return &run, true, nil
}

// Save implements scenario.Store.
func (s *RunStore) Save(run *model.RunState) error {
	body, err := s.hasher.CanonicalBytes(run)
	if err != nil {
		return fmt.Errorf("sqlitestore: canonicalize run %q: %w", run.RunID, err)
	}
	digest := canon.HashBytes(body)

	query := `
		INSERT INTO run_states (tenant_id, namespace_id, run_id, spec_hash, body, body_hash)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, namespace_id, run_id)
		DO UPDATE SET spec_hash = excluded.spec_hash, body = excluded.body, body_hash = excluded.body_hash
	`
	_, err = s.db.ExecContext(context.Background(), query, run.TenantID, run.NamespaceID, run.RunID, run.SpecHash, string(body), digest.Value)
	if err != nil {
		return fmt.Errorf("sqlitestore: save run %q: %w", run.RunID, err)
	}
	return nil
}
