package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileLedger implements Ledger using a local JSON file, for single-node
// deployments that want a decision feed without standing up Postgres.
type FileLedger struct {
	path  string
	mu    sync.RWMutex
	data  map[string]DecisionRecord
	byRun map[string][]string // run key -> record IDs, in append order
	clock func() time.Time
}

func NewFileLedger(path string) (*FileLedger, error) {
	return NewFileLedgerWithClock(path, time.Now)
}

func NewFileLedgerWithClock(path string, clock func() time.Time) (*FileLedger, error) {
	fl := &FileLedger{
		path:  path,
		data:  make(map[string]DecisionRecord),
		byRun: make(map[string][]string),
		clock: clock,
	}
	if err := fl.load(); err != nil {
		return nil, err
	}
	return fl, nil
}

func runKey(tenantID, namespaceID, runID string) string {
	return tenantID + "/" + namespaceID + "/" + runID
}

func (f *FileLedger) load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := os.Stat(f.path); os.IsNotExist(err) {
		return nil
	}

	bytes, err := os.ReadFile(f.path)
	if err != nil {
		return err
	}
	if len(bytes) == 0 {
		return nil
	}

	if err := json.Unmarshal(bytes, &f.data); err != nil {
		return err
	}
	for id, rec := range f.data {
		k := runKey(rec.TenantID, rec.NamespaceID, rec.RunID)
		f.byRun[k] = append(f.byRun[k], id)
	}
	for _, ids := range f.byRun {
		sort.SliceStable(ids, func(i, j int) bool {
			return f.data[ids[i]].RecordedAt.Before(f.data[ids[j]].RecordedAt)
		})
	}
	return nil
}

func (f *FileLedger) save() error {
	bytes, err := json.MarshalIndent(f.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, bytes, 0600)
}

func (f *FileLedger) Append(ctx context.Context, rec DecisionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if _, exists := f.data[rec.ID]; exists {
		return errors.New("ledger: record exists")
	}
	rec.RecordedAt = f.clock()

	f.data[rec.ID] = rec
	k := runKey(rec.TenantID, rec.NamespaceID, rec.RunID)
	f.byRun[k] = append(f.byRun[k], rec.ID)
	return f.save()
}

func (f *FileLedger) Get(ctx context.Context, id string) (DecisionRecord, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	rec, exists := f.data[id]
	if !exists {
		return DecisionRecord{}, ErrNotFound
	}
	return rec, nil
}

func (f *FileLedger) ListByRun(ctx context.Context, tenantID, namespaceID, runID string) ([]DecisionRecord, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	ids := f.byRun[runKey(tenantID, namespaceID, runID)]
	out := make([]DecisionRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, f.data[id])
	}
	return out, nil
}
