package opt

import "sync"

type key struct {
	Tenant    string
	Warehouse string
}

var (
	mu    sync.Mutex
	store = map[key]RunRecord{}
)

// RecordRun keeps the latest run record per tenant and warehouse.
func RecordRun(tenant, warehouse string, rec RunRecord) {
	mu.Lock()
	store[key{Tenant: tenant, Warehouse: warehouse}] = rec
	mu.Unlock()
}

// LatestRuns returns the latest record per warehouse for a tenant.
func LatestRuns(tenant string) map[string]RunRecord {
	mu.Lock()
	defer mu.Unlock()
	out := map[string]RunRecord{}
	for k, v := range store {
		if k.Tenant == tenant {
			out[k.Warehouse] = v
		}
	}
	return out
}
