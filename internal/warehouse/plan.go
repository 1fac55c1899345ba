package warehouse

import (
	"antroute/internal/model"
	"antroute/internal/opt"
)

// Plan is the outcome of a solve over a warehouse.
type Plan struct {
	Solution *opt.Solution
	Record   opt.RunRecord
	Routes   []model.RobotRoute
}

// Solve builds graph and fleet, runs the optimizer and maps the best
// solution back to robot ids. Plan.Routes is empty when no feasible
// solution was found.
func Solve(w model.Warehouse, orders []model.Order, p opt.Params, seed int64, opts ...opt.Option) (Plan, error) {
	g, err := BuildGraph(w, orders)
	if err != nil {
		return Plan{}, err
	}
	fleet, err := NewFleet(g, w.Robots, seed)
	if err != nil {
		return Plan{}, err
	}
	sol, rec, err := opt.Optimize(g, fleet, p, opts...)
	plan := Plan{Solution: sol, Record: rec}
	if err != nil {
		return plan, err
	}
	if sol != nil {
		plan.Routes = RobotRoutes(w.Robots, sol)
	}
	return plan, nil
}

// RobotRoutes labels solution routes with the robot they belong to.
func RobotRoutes(robots []model.Robot, sol *opt.Solution) []model.RobotRoute {
	out := make([]model.RobotRoute, 0, len(sol.Routes))
	for i, r := range sol.Routes {
		rr := model.RobotRoute{
			ID:             r.ID,
			TotalDistance:  r.TotalDistance,
			Capacity:       r.Capacity,
			SpeedFactor:    r.SpeedFactor,
			TotalDelivered: r.TotalDelivered,
			Path:           r.Path,
		}
		if i < len(robots) {
			rr.RobotID = robots[i].ID
		}
		out = append(out, rr)
	}
	return out
}
