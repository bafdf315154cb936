package engine

import (
	"fmt"
	"sync"

	"github.com/decision-gate/core/pkg/canon"
	"github.com/decision-gate/core/pkg/model"
)

// SchemaRegistry is the process-level store of DataShapes (§3), unique per
// (tenant_id, namespace_id, schema_id, version). Grounded on
// pkg/scenario.Registry's mu/map shape, narrowed to this one record type.
type SchemaRegistry struct {
	mu     sync.RWMutex
	shapes map[string]*model.DataShape
	hasher *canon.Hasher
}

func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{
		shapes: make(map[string]*model.DataShape),
		hasher: canon.NewHasher(0),
	}
}

// Register stores ds under its (tenant, namespace, schema_id, version) key
// and returns the canonical hash of its schema document. Re-registering the
// same key is rejected as duplicate — a DataShape version is immutable once
// published, matching ScenarioSpec's content-addressed immutability.
func (r *SchemaRegistry) Register(ds *model.DataShape) (hash string, err error) {
	if ds.SchemaID == "" {
		return "", model.NewError(model.CodeInvalidSchema, "schema_id is required")
	}
	if ds.Version == "" {
		return "", model.NewError(model.CodeInvalidSchema, "version is required")
	}
	if err := validateJSONSchema(ds.Schema); err != nil {
		return "", err
	}

	digest, err := r.hasher.Hash(ds.Schema)
	if err != nil {
		return "", model.NewErrorf(model.CodeInvalidSchema, "cannot canonicalize schema document: %v", err)
	}

	key := shapeKey(ds.TenantID, ds.NamespaceID, ds.SchemaID, ds.Version)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.shapes[key]; exists {
		return "", model.NewErrorf(model.CodeDuplicateSchema, "schema %q version %q already registered for tenant %d namespace %d",
			ds.SchemaID, ds.Version, ds.TenantID, ds.NamespaceID)
	}
	r.shapes[key] = ds
	return digest.Value, nil
}

// Lookup resolves a previously registered DataShape.
func (r *SchemaRegistry) Lookup(tenantID model.TenantID, namespaceID model.NamespaceID, schemaID, version string) (*model.DataShape, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ds, ok := r.shapes[shapeKey(tenantID, namespaceID, schemaID, version)]
	return ds, ok
}

func shapeKey(tenantID model.TenantID, namespaceID model.NamespaceID, schemaID, version string) string {
	return fmt.Sprintf("%d\x00%d\x00%s\x00%s", tenantID, namespaceID, schemaID, version)
}
