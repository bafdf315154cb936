package sqlitestore

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/decision-gate/core/pkg/canon"
	"github.com/decision-gate/core/pkg/model"
)

func newTestStore(t *testing.T) (*RunStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS run_states").WillReturnResult(sqlmock.NewResult(0, 0))
	s, err := NewRunStore(db)
	require.NoError(t, err)
	return s, mock
}

func TestRunStore_SaveThenLoad(t *testing.T) {
	s, mock := newTestStore(t)
	run := &model.RunState{TenantID: 1, NamespaceID: 1, RunID: "r1", SpecHash: "sha256:spec"}

	hasher := canon.NewHasher(0)
	body, err := hasher.CanonicalBytes(run)
	require.NoError(t, err)
	digest := canon.HashBytes(body)

	mock.ExpectExec("INSERT INTO run_states").
		WithArgs(run.TenantID, run.NamespaceID, run.RunID, run.SpecHash, string(body), digest.Value).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, s.Save(run))

	mock.ExpectQuery("SELECT body, body_hash FROM run_states").
		WithArgs(run.TenantID, run.NamespaceID, run.RunID).
		WillReturnRows(sqlmock.NewRows([]string{"body", "body_hash"}).AddRow(string(body), digest.Value))

	loaded, exists, err := s.Load(run.TenantID, run.NamespaceID, run.RunID)
	require.NoError(t, err)
	require.True(t, exists)
	require.Equal(t, run.RunID, loaded.RunID)
}

func TestRunStore_LoadDetectsCorruption(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery("SELECT body, body_hash FROM run_states").
		WithArgs(model.TenantID(1), model.NamespaceID(1), "r1").
		WillReturnRows(sqlmock.NewRows([]string{"body", "body_hash"}).AddRow(`{"run_id":"r1"}`, "sha256:wrong"))

	_, _, err := s.Load(1, 1, "r1")
	require.Error(t, err)
	var gerr *model.GateError
	require.ErrorAs(t, err, &gerr)
	require.Equal(t, model.CodeRunStateCorrupt, gerr.Code)
}

func TestRunStore_LoadMissing(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery("SELECT body, body_hash FROM run_states").
		WillReturnError(sql.ErrNoRows)

	_, exists, err := s.Load(1, 1, "does-not-exist")
	require.NoError(t, err)
	require.False(t, exists)
}
