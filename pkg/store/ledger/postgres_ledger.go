package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// PostgresLedger is a durable SQL-based Ledger, for deployments preferring a
// relational audit trail over the file-backed one.
type PostgresLedger struct {
	db *sql.DB
}

func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS decision_records (
	id TEXT PRIMARY KEY,
	tenant_id TEXT,
	namespace_id TEXT,
	run_id TEXT,
	scenario_id TEXT,
	stage_id TEXT,
	operation TEXT,
	outcome TEXT,
	hash TEXT,
	metadata TEXT,
	recorded_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_decision_records_run
	ON decision_records (tenant_id, namespace_id, run_id, recorded_at);

ALTER TABLE decision_records ENABLE ROW LEVEL SECURITY;

DO $$
BEGIN
    IF NOT EXISTS (
        SELECT 1 FROM pg_policies WHERE policyname = 'tenant_isolation'
    ) THEN
        CREATE POLICY tenant_isolation ON decision_records
        USING (tenant_id = current_setting('app.current_tenant', true)::text);
    END IF;
END
$$;
`

func (l *PostgresLedger) Init(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, pgSchema)
	return err
}

func (l *PostgresLedger) Append(ctx context.Context, rec DecisionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	var metaJSON []byte
	if rec.Metadata != nil {
		var err error
		metaJSON, err = json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("ledger: marshal metadata: %w", err)
		}
	}

	query := `
		INSERT INTO decision_records
			(id, tenant_id, namespace_id, run_id, scenario_id, stage_id, operation, outcome, hash, metadata, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
	`
	_, err := l.db.ExecContext(ctx, query,
		rec.ID, rec.TenantID, rec.NamespaceID, rec.RunID, rec.ScenarioID, rec.StageID,
		rec.Operation, rec.Outcome, rec.Hash, string(metaJSON),
	)
	return err
}

func (l *PostgresLedger) Get(ctx context.Context, id string) (DecisionRecord, error) {
	query := `
		SELECT id, tenant_id, namespace_id, run_id, scenario_id, stage_id, operation, outcome, hash, metadata, recorded_at
		FROM decision_records WHERE id = $1
	`
	row := l.db.QueryRowContext(ctx, query, id)
	return scanDecisionRecord(row)
}

func (l *PostgresLedger) ListByRun(ctx context.Context, tenantID, namespaceID, runID string) ([]DecisionRecord, error) {
	query := `
		SELECT id, tenant_id, namespace_id, run_id, scenario_id, stage_id, operation, outcome, hash, metadata, recorded_at
		FROM decision_records
		WHERE tenant_id = $1 AND namespace_id = $2 AND run_id = $3
		ORDER BY recorded_at ASC
	`
	rows, err := l.db.QueryContext(ctx, query, tenantID, namespaceID, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make([]DecisionRecord, 0)
	for rows.Next() {
		rec, err := scanDecisionRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDecisionRecord(row rowScanner) (DecisionRecord, error) {
	var rec DecisionRecord
	var metadata sql.NullString

	err := row.Scan(&rec.ID, &rec.TenantID, &rec.NamespaceID, &rec.RunID, &rec.ScenarioID, &rec.StageID,
		&rec.Operation, &rec.Outcome, &rec.Hash, &metadata, &rec.RecordedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return DecisionRecord{}, ErrNotFound
		}
		return DecisionRecord{}, err
	}

	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &rec.Metadata); err != nil {
			return DecisionRecord{}, fmt.Errorf("ledger: corrupt metadata: %w", err)
		}
	}
	return rec, nil
}
