package warehouse

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"antroute/internal/model"
	"antroute/internal/opt"
)

// InitialPheromone is the trail strength every edge starts with.
const InitialPheromone = 1.0

// BuildGraph aggregates order lines into per-location demand and wires the
// aisles as undirected edges with normalised distances.
func BuildGraph(w model.Warehouse, orders []model.Order) (*opt.Graph, error) {
	depot := strings.TrimSpace(w.Depot)
	if depot == "" {
		return nil, invalid("depot is required")
	}
	coords := make(map[string]model.Location, len(w.Locations))
	for _, loc := range w.Locations {
		if strings.TrimSpace(loc.ID) == "" {
			return nil, invalid("location with empty id")
		}
		coords[loc.ID] = loc
	}
	if _, ok := coords[depot]; !ok {
		return nil, invalid("depot %q is not a location", depot)
	}

	demand := make(map[string]float64, len(w.Locations))
	for _, o := range orders {
		for _, l := range o.Lines {
			if _, ok := coords[l.Location]; !ok {
				return nil, invalid("order %q: unknown location %q", o.ID, l.Location)
			}
			if l.Quantity < 0 || math.IsNaN(l.Quantity) {
				return nil, invalid("order %q: quantity %v at %q", o.ID, l.Quantity, l.Location)
			}
			if l.Location == depot && l.Quantity > 0 {
				return nil, invalid("order %q: demand placed on the depot", o.ID)
			}
			demand[l.Location] += l.Quantity
		}
	}

	g := opt.NewGraph(depot)
	for _, loc := range w.Locations {
		if err := g.AddNode(loc.ID, demand[loc.ID]); err != nil {
			return nil, fmt.Errorf("build graph: %w", err)
		}
	}
	for _, l := range w.Links {
		d := l.Distance
		if d == 0 {
			a, b := coords[l.From], coords[l.To]
			d = math.Hypot(a.X-b.X, a.Y-b.Y)
		}
		if _, err := g.AddEdge(l.From, l.To, d, InitialPheromone); err != nil {
			return nil, fmt.Errorf("build graph: %w", err)
		}
	}
	g.NormalizeDistances()
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}
	return g, nil
}

// NewFleet builds one ant per robot. Robot i draws from a generator seeded
// with seed+i, so a fixed seed reproduces the whole run.
func NewFleet(g *opt.Graph, robots []model.Robot, seed int64) ([]opt.Agent, error) {
	if len(robots) == 0 {
		return nil, invalid("at least one robot is required")
	}
	fleet := make([]opt.Agent, 0, len(robots))
	for i, r := range robots {
		ant, err := opt.NewAnt(g, r.Capacity, r.Speed, rand.New(rand.NewSource(seed+int64(i))))
		if err != nil {
			return nil, fmt.Errorf("robot %q: %w", r.ID, err)
		}
		fleet = append(fleet, ant)
	}
	return fleet, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("build graph: %w: "+format, append([]any{opt.ErrInvalidParameter}, args...)...)
}
