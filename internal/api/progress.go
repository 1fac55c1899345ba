package api

import (
	"sync"
)

// RunProgress is the latest known state of an in-flight run.
type RunProgress struct {
	Tenant    string  `json:"tenantId"`
	RunID     string  `json:"runId"`
	Status    string  `json:"status"`
	Iteration int     `json:"iteration"`
	BestScore float64 `json:"bestScore"`
	TS        string  `json:"ts"`
}

// ProgressCache keeps the latest progress per tenant/run so that stream
// subscribers joining mid-run get a snapshot first.
type ProgressCache struct {
	mu sync.Mutex
	// key: tenant|runId
	m map[string]RunProgress
}

func NewProgressCache() *ProgressCache { return &ProgressCache{m: map[string]RunProgress{}} }

func (c *ProgressCache) key(tenant, runID string) string { return tenant + "|" + runID }

// Upsert stores or replaces the progress of a run.
func (c *ProgressCache) Upsert(p RunProgress) {
	if p.Tenant == "" || p.RunID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[c.key(p.Tenant, p.RunID)] = p
}

func (c *ProgressCache) Get(tenant, runID string) (RunProgress, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.m[c.key(tenant, runID)]
	return p, ok
}

// Delete drops a run once it has finished.
func (c *ProgressCache) Delete(tenant, runID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, c.key(tenant, runID))
}
