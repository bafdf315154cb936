package pgstore

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/decision-gate/core/pkg/model"
)

func TestSchemaRegistryStore_PersistThenLoadAll(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	s := NewSchemaRegistryStore(db)
	ds := &model.DataShape{TenantID: 1, NamespaceID: 1, SchemaID: "kyc-doc", Version: "1.0.0", Schema: map[string]any{"type": "object"}}

	mock.ExpectExec("INSERT INTO data_shapes").
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, s.Persist(context.Background(), ds, "sha256:abc"))

	mock.ExpectQuery("SELECT body FROM data_shapes").
		WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow(`{"tenant_id":1,"namespace_id":1,"schema_id":"kyc-doc","version":"1.0.0","schema":{"type":"object"}}`))

	shapes, err := s.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, shapes, 1)
	require.Equal(t, "kyc-doc", shapes[0].SchemaID)
}
