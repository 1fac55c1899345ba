package store

import (
	"context"
	"sync"
	"time"

	"github.com/tidwall/btree"

	"antroute/internal/model"
)

// Memory is a simple in-memory store used when no database is configured.
// Runs are indexed per tenant in a btree keyed by their time-ordered id.
type Memory struct {
	mu         sync.Mutex
	warehouses map[string]model.Warehouse               // id -> warehouse
	runs       map[string]*btree.Map[string, model.Run] // tenant -> runs
	history    map[string][]model.ScorePoint            // runId -> history
	optCfg     map[string]map[string]any                // tenant -> config
}

func NewMemory() *Memory {
	return &Memory{
		warehouses: map[string]model.Warehouse{},
		runs:       map[string]*btree.Map[string, model.Run]{},
		history:    map[string][]model.ScorePoint{},
		optCfg:     map[string]map[string]any{},
	}
}

func (m *Memory) CreateWarehouse(ctx context.Context, tenantID string, w model.Warehouse) (model.Warehouse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w.ID == "" {
		w.ID = newID()
	}
	w.TenantID = tenantID
	if w.CreatedAt == "" {
		w.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	m.warehouses[w.ID] = w
	return w, nil
}

func (m *Memory) GetWarehouse(ctx context.Context, tenantID, id string) (model.Warehouse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.warehouses[id]
	if !ok || w.TenantID != tenantID {
		return model.Warehouse{}, ErrNotFound
	}
	return w, nil
}

func (m *Memory) tenantRuns(tenantID string) *btree.Map[string, model.Run] {
	t := m.runs[tenantID]
	if t == nil {
		t = new(btree.Map[string, model.Run])
		m.runs[tenantID] = t
	}
	return t
}

func (m *Memory) CreateRun(ctx context.Context, run model.Run) (model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run.ID == "" {
		run.ID = newID()
	}
	if run.CreatedAt == "" {
		run.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	m.tenantRuns(run.TenantID).Set(run.ID, run)
	return run, nil
}

func (m *Memory) UpdateRun(ctx context.Context, run model.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.runs[run.TenantID]
	if t == nil {
		return ErrNotFound
	}
	if _, ok := t.Get(run.ID); !ok {
		return ErrNotFound
	}
	t.Set(run.ID, run)
	return nil
}

func (m *Memory) GetRun(ctx context.Context, tenantID, id string) (model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.runs[tenantID]
	if t == nil {
		return model.Run{}, ErrNotFound
	}
	r, ok := t.Get(id)
	if !ok {
		return model.Run{}, ErrNotFound
	}
	return r, nil
}

// ListRuns pages through a tenant's runs in creation order. The cursor is the
// id of the last run of the previous page.
func (m *Memory) ListRuns(ctx context.Context, tenantID, cursor string, limit int) ([]model.Run, string, error) {
	limit = clampLimit(limit)
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Run{}
	t := m.runs[tenantID]
	if t == nil {
		return out, "", nil
	}
	t.Ascend(cursor, func(id string, r model.Run) bool {
		if id == cursor {
			return true
		}
		out = append(out, r)
		return len(out) < limit
	})
	next := ""
	if len(out) == limit {
		next = out[len(out)-1].ID
	}
	return out, next, nil
}

func (m *Memory) SaveRunHistory(ctx context.Context, tenantID, runID string, history []model.ScorePoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[tenantID+"|"+runID] = append([]model.ScorePoint(nil), history...)
	return nil
}

func (m *Memory) ListRunHistory(ctx context.Context, tenantID, runID string) ([]model.ScorePoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.history[tenantID+"|"+runID]
	if !ok {
		return []model.ScorePoint{}, nil
	}
	return append([]model.ScorePoint(nil), h...), nil
}

func (m *Memory) GetOptimizerConfig(ctx context.Context, tenantID string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.optCfg[tenantID]
	if !ok {
		return nil, nil
	}
	out := make(map[string]any, len(cfg))
	for k, v := range cfg {
		out[k] = v
	}
	return out, nil
}

func (m *Memory) SaveOptimizerConfig(ctx context.Context, tenantID string, cfg map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make(map[string]any, len(cfg))
	for k, v := range cfg {
		cp[k] = v
	}
	m.optCfg[tenantID] = cp
	return nil
}
