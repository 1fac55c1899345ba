package api

import (
	"fmt"
	"math"

	"antroute/internal/model"
	"antroute/internal/opt"
)

func validateSolveRequest(req *model.SolveRequest) error {
	if req.WarehouseID == "" && req.Warehouse == nil {
		return fmt.Errorf("%w: warehouseId or warehouse required", opt.ErrInvalidParameter)
	}
	if req.WarehouseID != "" && req.Warehouse != nil {
		return fmt.Errorf("%w: warehouseId and warehouse are mutually exclusive", opt.ErrInvalidParameter)
	}
	if n := req.Params.Iterations; n != nil && *n < 1 {
		return fmt.Errorf("%w: iterations must be >= 1, got %d", opt.ErrInvalidParameter, *n)
	}
	for i, o := range req.Orders {
		for j, l := range o.Lines {
			if l.Location == "" {
				return fmt.Errorf("%w: orders[%d].lines[%d]: location required", opt.ErrInvalidParameter, i, j)
			}
			if l.Quantity < 0 || math.IsNaN(l.Quantity) {
				return fmt.Errorf("%w: orders[%d].lines[%d]: quantity must be >= 0", opt.ErrInvalidParameter, i, j)
			}
		}
	}
	return nil
}

// mergeParams layers tenant config and then request overrides over base.
func mergeParams(base opt.Params, tenantCfg map[string]any, req model.SolveParams) opt.Params {
	p := base
	num := func(key string) (float64, bool) {
		switch v := tenantCfg[key].(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case int64:
			return float64(v), true
		}
		return 0, false
	}
	if v, ok := num("iterations"); ok {
		p.Iterations = int(v)
	}
	if v, ok := num("alpha"); ok {
		p.Alpha = v
	}
	if v, ok := num("beta"); ok {
		p.Beta = v
	}
	if v, ok := num("decayRate"); ok {
		p.DecayRate = v
	}

	if req.Iterations != nil {
		p.Iterations = *req.Iterations
	}
	if req.Alpha != nil {
		p.Alpha = *req.Alpha
	}
	if req.Beta != nil {
		p.Beta = *req.Beta
	}
	if req.DecayRate != nil {
		p.DecayRate = *req.DecayRate
	}
	return p
}
