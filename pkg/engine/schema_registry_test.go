package engine_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/decision-gate/core/pkg/engine"
	"github.com/decision-gate/core/pkg/model"
)

func sampleDataShape() *model.DataShape {
	return &model.DataShape{
		TenantID:    1,
		NamespaceID: 1,
		SchemaID:    "kyc-doc",
		Version:     "1.0.0",
		Schema:      map[string]any{"type": "object"},
	}
}

func TestSchemaRegistry_RegisterThenLookup(t *testing.T) {
	reg := engine.NewSchemaRegistry()
	hash, err := reg.Register(sampleDataShape())
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	ds, ok := reg.Lookup(1, 1, "kyc-doc", "1.0.0")
	require.True(t, ok)
	require.Equal(t, "kyc-doc", ds.SchemaID)
}

func TestSchemaRegistry_RejectsDuplicateVersion(t *testing.T) {
	reg := engine.NewSchemaRegistry()
	_, err := reg.Register(sampleDataShape())
	require.NoError(t, err)

	_, err = reg.Register(sampleDataShape())
	require.Error(t, err)
	var gerr *model.GateError
	require.ErrorAs(t, err, &gerr)
	require.Equal(t, model.CodeDuplicateSchema, gerr.Code)
}

func TestSchemaRegistry_AllowsSameSchemaIDDifferentNamespace(t *testing.T) {
	reg := engine.NewSchemaRegistry()
	_, err := reg.Register(sampleDataShape())
	require.NoError(t, err)

	other := sampleDataShape()
	other.NamespaceID = 2
	_, err = reg.Register(other)
	require.NoError(t, err)
}

func TestSchemaRegistry_RejectsMalformedSchema(t *testing.T) {
	reg := engine.NewSchemaRegistry()
	ds := sampleDataShape()
	ds.Schema = map[string]any{"type": 123}
	_, err := reg.Register(ds)
	require.Error(t, err)
	var gerr *model.GateError
	require.ErrorAs(t, err, &gerr)
	require.Equal(t, model.CodeInvalidSchema, gerr.Code)
}

func TestSchemaRegistry_RejectsEmptySchemaID(t *testing.T) {
	reg := engine.NewSchemaRegistry()
	ds := sampleDataShape()
	ds.SchemaID = ""
	_, err := reg.Register(ds)
	require.Error(t, err)
}
