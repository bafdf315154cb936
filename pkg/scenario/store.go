package scenario

import (
	"fmt"
	"sync"

	"github.com/decision-gate/core/pkg/model"
)

// Store persists RunState per (tenant_id, namespace_id, run_id) (§6's
// "Persisted state layout"). Durable implementations
// (internal/adapters/sqlitestore) are responsible for the canonical-hash integrity check on load
// that surfaces corruption as run_state_corrupt; Store itself only defines
// the shape.
type Store interface {
	Load(tenantID model.TenantID, namespaceID model.NamespaceID, runID string) (*model.RunState, bool, error)
	Save(run *model.RunState) error
}

// MemoryStore is a process-local Store, the default when no durable
// adapter is configured. It is safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*model.RunState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*model.RunState)}
}

func (s *MemoryStore) Load(tenantID model.TenantID, namespaceID model.NamespaceID, runID string) (*model.RunState, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[runKey(tenantID, namespaceID, runID)]
	return run, ok, nil
}

func (s *MemoryStore) Save(run *model.RunState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[runKey(run.TenantID, run.NamespaceID, run.RunID)] = run
	return nil
}

func runKey(tenantID model.TenantID, namespaceID model.NamespaceID, runID string) string {
	return fmt.Sprintf("%d/%d/%s", tenantID, namespaceID, runID)
}

// runLocks enforces §5's "at most one in-flight step per run_id" via a
// per-run mutex; concurrent steps for the same run are rejected with
// run_busy rather than queued, leaving queueing to the transport.
type runLocks struct {
	mu    sync.Mutex
	inUse map[string]bool
}

func newRunLocks() *runLocks {
	return &runLocks{inUse: make(map[string]bool)}
}

// tryAcquire returns a release func and true on success, or false if the
// run already has an in-flight step.
func (l *runLocks) tryAcquire(runKey string) (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inUse[runKey] {
		return nil, false
	}
	l.inUse[runKey] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.inUse, runKey)
	}, true
}
