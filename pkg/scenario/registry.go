// Package scenario is the run-time orchestrator of §4.6: it owns the
// scenario definition registry and the per-run state machine, and is the
// sole caller of pkg/tristate, pkg/comparator, pkg/evidence, and
// pkg/policyhooks — each of those packages is pure with respect to run
// state; scenario is where their results get recorded.
//
// Uses the same mu/map/clock shape as other process-local registries in
// this module, narrowed here to scenario definitions addressed by content
// hash.
package scenario

import (
	"fmt"
	"sync"
	"time"

	"github.com/decision-gate/core/pkg/canon"
	"github.com/decision-gate/core/pkg/model"
	"github.com/decision-gate/core/pkg/validate"
)

// Registry is the process-level, read-mostly store of ScenarioSpecs (§5:
// "initialized once and treated as read-only during request handling").
// Specs are content-addressed by spec_hash; a (namespace, scenario_id)
// pointer always resolves to the most recently defined hash, but any
// previously defined hash remains resolvable so runs pinned to an older
// spec_hash keep working.
type Registry struct {
	mu       sync.RWMutex
	byHash   map[string]*model.ScenarioSpec
	current  map[string]string // "namespace/scenario_id" -> spec_hash
	contracts validate.Registry
	hasher   *canon.Hasher
	clock    func() time.Time
}

func NewRegistry(contracts validate.Registry) *Registry {
	return &Registry{
		byHash:  make(map[string]*model.ScenarioSpec),
		current: make(map[string]string),
		contracts: contracts,
		hasher:  canon.NewHasher(0),
		clock:   time.Now,
	}
}

// WithClock overrides the clock for deterministic testing.
func (r *Registry) WithClock(clock func() time.Time) *Registry {
	r.clock = clock
	return r
}

// Define validates spec, computes its spec_hash, and stores it keyed by
// that hash. Defining an identical spec again is a no-op (idempotent on
// identical hash); defining a scenario_id that already has a different
// current hash registers a new version without invalidating runs pinned
// to the old one.
func (r *Registry) Define(spec *model.ScenarioSpec) (string, error) {
	if err := validate.ValidateScenario(spec, r.contracts); err != nil {
		return "", err
	}

	digest, err := r.hasher.Hash(spec)
	if err != nil {
		return "", model.NewErrorf(model.CodeInvalidSpec, "cannot canonicalize scenario spec: %v", err)
	}
	hash := digest.Value

	key := scopeKey(spec.NamespaceID, spec.ScenarioID)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byHash[hash]; !ok {
		r.byHash[hash] = spec
	}
	r.current[key] = hash
	return hash, nil
}

// Resolve returns the current spec and spec_hash for (namespace,
// scenario_id).
func (r *Registry) Resolve(namespaceID model.NamespaceID, scenarioID string) (*model.ScenarioSpec, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	hash, ok := r.current[scopeKey(namespaceID, scenarioID)]
	if !ok {
		return nil, "", false
	}
	spec, ok := r.byHash[hash]
	return spec, hash, ok
}

// ByHash resolves a pinned spec_hash regardless of whether it is still the
// current version for its scenario_id — a run always replays against the
// exact spec it started with.
func (r *Registry) ByHash(specHash string) (*model.ScenarioSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.byHash[specHash]
	return spec, ok
}

func scopeKey(namespaceID model.NamespaceID, scenarioID string) string {
	return fmt.Sprintf("%d\x00%s", namespaceID, scenarioID)
}
