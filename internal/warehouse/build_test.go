package warehouse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"antroute/internal/model"
	"antroute/internal/opt"
)

func TestLoadTopology(t *testing.T) {
	w, err := LoadTopology("testdata/small.yaml")
	require.NoError(t, err)
	assert.Equal(t, "D", w.Depot)
	assert.Len(t, w.Locations, 3)
	assert.Len(t, w.Links, 2)
	require.Len(t, w.Robots, 2)
	assert.Equal(t, model.Robot{ID: "r2", Capacity: 4, Speed: 2}, w.Robots[1])

	_, err = LoadTopology("testdata/missing.yaml")
	assert.Error(t, err)
}

func TestParseOrdersAcceptsJSON(t *testing.T) {
	orders, err := ParseOrders([]byte(`[{"id":"o1","lines":[{"location":"A","quantity":2}]}]`))
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, 2.0, orders[0].Lines[0].Quantity)
}

func TestBuildGraphAggregatesDemandAndNormalizes(t *testing.T) {
	w, err := LoadTopology("testdata/small.yaml")
	require.NoError(t, err)
	orders := []model.Order{
		{ID: "o1", Lines: []model.OrderLine{{Location: "A", Quantity: 2}, {Location: "B", Quantity: 1}}},
		{ID: "o2", Lines: []model.OrderLine{{Location: "A", Quantity: 3}}},
	}
	g, err := BuildGraph(w, orders)
	require.NoError(t, err)

	a, ok := g.Node("A")
	require.True(t, ok)
	assert.Equal(t, 5.0, a.Demand)
	assert.Equal(t, 5.0, a.Remaining)
	d, _ := g.Node("D")
	assert.Zero(t, d.Demand)

	da, ok := g.Edge("D", "A")
	require.True(t, ok)
	assert.Equal(t, 5.0, da.Distance, "euclidean fallback")
	assert.Equal(t, 0.5, da.DistanceNorm)
	assert.Equal(t, InitialPheromone, da.Pheromone)
	ab, _ := g.Edge("A", "B")
	assert.Equal(t, 1.0, ab.DistanceNorm)
}

func TestBuildGraphRejectsBadInput(t *testing.T) {
	base := func() model.Warehouse {
		w, err := LoadTopology("testdata/small.yaml")
		require.NoError(t, err)
		return w
	}
	cases := map[string]struct {
		mutate func(*model.Warehouse)
		orders []model.Order
	}{
		"no depot":         {mutate: func(w *model.Warehouse) { w.Depot = "" }},
		"unknown depot":    {mutate: func(w *model.Warehouse) { w.Depot = "Z" }},
		"unknown location": {orders: []model.Order{{ID: "o", Lines: []model.OrderLine{{Location: "Z", Quantity: 1}}}}},
		"negative qty":     {orders: []model.Order{{ID: "o", Lines: []model.OrderLine{{Location: "A", Quantity: -1}}}}},
		"depot demand":     {orders: []model.Order{{ID: "o", Lines: []model.OrderLine{{Location: "D", Quantity: 1}}}}},
		"bad link":         {mutate: func(w *model.Warehouse) { w.Links = append(w.Links, model.Link{From: "A", To: "Q", Distance: 1}) }},
		"isolated depot":   {mutate: func(w *model.Warehouse) { w.Links = w.Links[1:] }},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			w := base()
			if tc.mutate != nil {
				tc.mutate(&w)
			}
			_, err := BuildGraph(w, tc.orders)
			assert.ErrorIs(t, err, opt.ErrInvalidParameter)
		})
	}
}

func TestNewFleet(t *testing.T) {
	w, err := LoadTopology("testdata/small.yaml")
	require.NoError(t, err)
	g, err := BuildGraph(w, nil)
	require.NoError(t, err)

	fleet, err := NewFleet(g, w.Robots, 1)
	require.NoError(t, err)
	require.Len(t, fleet, 2)
	assert.Equal(t, 4.0, fleet[1].Capacity())
	assert.Equal(t, 2.0, fleet[1].SpeedFactor())

	_, err = NewFleet(g, nil, 1)
	assert.ErrorIs(t, err, opt.ErrInvalidParameter)
	_, err = NewFleet(g, []model.Robot{{ID: "bad", Capacity: 0, Speed: 1}}, 1)
	assert.ErrorIs(t, err, opt.ErrInvalidParameter)
}

func TestSolveEndToEnd(t *testing.T) {
	w := model.Warehouse{
		Depot:     "D",
		Locations: []model.Location{{ID: "D"}, {ID: "A"}},
		Links:     []model.Link{{From: "D", To: "A", Distance: 1}},
		Robots:    []model.Robot{{ID: "bot-1", Capacity: 10, Speed: 1}},
	}
	orders := []model.Order{{ID: "o1", Lines: []model.OrderLine{{Location: "A", Quantity: 5}}}}

	plan, err := Solve(w, orders, opt.Params{Iterations: 5, Alpha: 1, Beta: 1, DecayRate: 0.1}, 42)
	require.NoError(t, err)
	require.NotNil(t, plan.Solution)
	require.Len(t, plan.Routes, 1)
	r := plan.Routes[0]
	assert.Equal(t, "bot-1", r.RobotID)
	assert.Equal(t, []string{"D", "A", "D"}, r.Path)
	assert.Equal(t, 5.0, r.TotalDelivered)
	assert.Equal(t, 5, plan.Record.Iterations)
}

func TestSolveIsolatedDemandFails(t *testing.T) {
	w := model.Warehouse{
		Depot:     "D",
		Locations: []model.Location{{ID: "D"}, {ID: "A"}, {ID: "X"}},
		Links:     []model.Link{{From: "D", To: "A", Distance: 1}},
		Robots:    []model.Robot{{ID: "r1", Capacity: 10, Speed: 1}},
	}
	orders := []model.Order{{ID: "o1", Lines: []model.OrderLine{
		{Location: "A", Quantity: 5},
		{Location: "X", Quantity: 3},
	}}}

	plan, err := Solve(w, orders, opt.Params{Iterations: 5, Alpha: 1, Beta: 1, DecayRate: 0.1}, 1)
	require.ErrorIs(t, err, opt.ErrIterationLimitExceeded)
	assert.Contains(t, err.Error(), "X")
	assert.Nil(t, plan.Solution)
	assert.Empty(t, plan.Routes)
}
