package api

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"antroute/internal/model"
	"antroute/internal/opt"
)

func TestValidateSolveRequest(t *testing.T) {
	wh := &model.Warehouse{Depot: "D"}
	cases := []struct {
		name string
		req  model.SolveRequest
		ok   bool
	}{
		{"inline warehouse", model.SolveRequest{Warehouse: wh}, true},
		{"stored warehouse", model.SolveRequest{WarehouseID: "w1"}, true},
		{"no warehouse", model.SolveRequest{}, false},
		{"both", model.SolveRequest{WarehouseID: "w1", Warehouse: wh}, false},
		{"negative iterations", model.SolveRequest{WarehouseID: "w1", Params: model.SolveParams{Iterations: intp(-1)}}, false},
		{"zero iterations", model.SolveRequest{WarehouseID: "w1", Params: model.SolveParams{Iterations: intp(0)}}, false},
		{"one iteration", model.SolveRequest{WarehouseID: "w1", Params: model.SolveParams{Iterations: intp(1)}}, true},
		{"missing location", model.SolveRequest{WarehouseID: "w1", Orders: []model.Order{{Lines: []model.OrderLine{{Quantity: 1}}}}}, false},
		{"negative quantity", model.SolveRequest{WarehouseID: "w1", Orders: []model.Order{{Lines: []model.OrderLine{{Location: "A", Quantity: -1}}}}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateSolveRequest(&tc.req)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, opt.ErrInvalidParameter)
			}
		})
	}
}

func TestMergeParams(t *testing.T) {
	decay := 0.4
	p := mergeParams(opt.DefaultParams(),
		map[string]any{"iterations": 20.0, "alpha": 2.0, "unknown": "x"},
		model.SolveParams{Iterations: intp(7), DecayRate: &decay})
	assert.Equal(t, opt.Params{Iterations: 7, Alpha: 2, Beta: 1, DecayRate: 0.4}, p)

	assert.Equal(t, opt.DefaultParams(), mergeParams(opt.DefaultParams(), nil, model.SolveParams{}))

	// an explicit zero is carried through so validation can reject it
	p = mergeParams(opt.DefaultParams(), map[string]any{"iterations": 20.0}, model.SolveParams{Iterations: intp(0)})
	assert.Zero(t, p.Iterations)
	assert.ErrorIs(t, p.Validate(), opt.ErrInvalidParameter)
}

func intp(n int) *int { return &n }
