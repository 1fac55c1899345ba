package opt

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"
)

// Node is a warehouse location. Remaining is written by agents during a
// simulation and restored from Demand between iterations.
type Node struct {
	ID        string
	Demand    float64
	Remaining float64
}

// Edge is an undirected connection between two locations.
type Edge struct {
	U, V         string
	Distance     float64
	DistanceNorm float64
	Pheromone    float64
	Weight       float64 // selection weight consumed by agents
	Load         float64
	LoadNorm     float64
	LoadFraction float64
}

// Other returns the endpoint of e opposite to id.
func (e *Edge) Other(id string) string {
	if e.U == id {
		return e.V
	}
	return e.U
}

type pairKey struct{ a, b string }

func keyOf(u, v string) pairKey {
	if u > v {
		u, v = v, u
	}
	return pairKey{u, v}
}

// Graph is the shared mutable state of a run. Nodes and edges keep insertion
// order so every walk over them is reproducible.
type Graph struct {
	depot string
	nodes []*Node
	index map[string]int
	edges []*Edge
	byKey map[pairKey]*Edge
	adj   map[string][]string
}

// NewGraph returns an empty graph whose depot is the node with the given id.
// The depot itself is added by AddNode like any other location.
func NewGraph(depot string) *Graph {
	return &Graph{
		depot: depot,
		index: map[string]int{},
		byKey: map[pairKey]*Edge{},
		adj:   map[string][]string{},
	}
}

// Depot returns the id of the start/return node.
func (g *Graph) Depot() string { return g.depot }

// AddNode adds a location with a fixed demand.
func (g *Graph) AddNode(id string, demand float64) error {
	if _, ok := g.index[id]; ok {
		return fmt.Errorf("%w: duplicate node %q", ErrInvalidParameter, id)
	}
	if demand < 0 || math.IsNaN(demand) {
		return fmt.Errorf("%w: node %q demand %v", ErrInvalidParameter, id, demand)
	}
	g.index[id] = len(g.nodes)
	g.nodes = append(g.nodes, &Node{ID: id, Demand: demand, Remaining: demand})
	return nil
}

// AddEdge connects u and v. DistanceNorm is left at zero until NormalizeDistances
// or SetDistanceNorm runs; pheromone starts at the given value.
func (g *Graph) AddEdge(u, v string, distance, pheromone float64) (*Edge, error) {
	if u == v {
		return nil, fmt.Errorf("%w: self loop on %q", ErrInvalidParameter, u)
	}
	if _, ok := g.index[u]; !ok {
		return nil, fmt.Errorf("%w: unknown node %q", ErrInvalidParameter, u)
	}
	if _, ok := g.index[v]; !ok {
		return nil, fmt.Errorf("%w: unknown node %q", ErrInvalidParameter, v)
	}
	k := keyOf(u, v)
	if _, ok := g.byKey[k]; ok {
		return nil, fmt.Errorf("%w: duplicate edge %s-%s", ErrInvalidParameter, u, v)
	}
	if distance < 0 || math.IsNaN(distance) {
		return nil, fmt.Errorf("%w: edge %s-%s distance %v", ErrInvalidParameter, u, v, distance)
	}
	if pheromone < 0 || math.IsNaN(pheromone) {
		return nil, fmt.Errorf("%w: edge %s-%s pheromone %v", ErrInvalidParameter, u, v, pheromone)
	}
	e := &Edge{U: u, V: v, Distance: distance, Pheromone: pheromone}
	g.edges = append(g.edges, e)
	g.byKey[k] = e
	g.adj[u] = append(g.adj[u], v)
	g.adj[v] = append(g.adj[v], u)
	return e, nil
}

// NormalizeDistances sets DistanceNorm = Distance / max(Distance) for every
// edge. A graph whose edges all have zero length gets DistanceNorm 0.
func (g *Graph) NormalizeDistances() {
	maxD := 0.0
	for _, e := range g.edges {
		maxD = math.Max(maxD, e.Distance)
	}
	for _, e := range g.edges {
		if maxD == 0 {
			e.DistanceNorm = 0
			continue
		}
		e.DistanceNorm = e.Distance / maxD
	}
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return g.nodes[i], true
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []*Node { return g.nodes }

// Edge returns the edge between u and v regardless of direction.
func (g *Graph) Edge(u, v string) (*Edge, bool) {
	e, ok := g.byKey[keyOf(u, v)]
	return e, ok
}

// Edges returns the edges in insertion order.
func (g *Graph) Edges() []*Edge { return g.edges }

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Neighbors returns the ids adjacent to id in edge insertion order.
func (g *Graph) Neighbors(id string) []string { return g.adj[id] }

// Consume takes up to qty units of remaining demand from node id and returns
// the amount actually taken.
func (g *Graph) Consume(id string, qty float64) float64 {
	n, ok := g.Node(id)
	if !ok || qty <= 0 || n.Remaining <= 0 {
		return 0
	}
	taken := math.Min(qty, n.Remaining)
	n.Remaining -= taken
	return taken
}

// RemainingTotal sums remaining demand over all nodes.
func (g *Graph) RemainingTotal() float64 {
	total := 0.0
	for _, n := range g.nodes {
		total += n.Remaining
	}
	return total
}

// DepotNeighborhoodRemaining sums remaining demand over the nodes directly
// connected to the depot.
func (g *Graph) DepotNeighborhoodRemaining() float64 {
	total := 0.0
	for _, id := range g.adj[g.depot] {
		if n, ok := g.Node(id); ok {
			total += n.Remaining
		}
	}
	return total
}

// ResetDemand restores Remaining = Demand on every node.
func (g *Graph) ResetDemand() {
	for _, n := range g.nodes {
		n.Remaining = n.Demand
	}
}

// Validate checks the structural invariants the engine relies on.
func (g *Graph) Validate() error {
	d, ok := g.Node(g.depot)
	if !ok {
		return fmt.Errorf("%w: depot %q is not a node", ErrInvalidParameter, g.depot)
	}
	if d.Demand != 0 {
		return fmt.Errorf("%w: depot %q has demand %v", ErrInvalidParameter, g.depot, d.Demand)
	}
	if len(g.adj[g.depot]) == 0 {
		return fmt.Errorf("%w: disconnected depot %q", ErrInvalidParameter, g.depot)
	}
	for _, e := range g.edges {
		if e.DistanceNorm < 0 || e.DistanceNorm > 1 || math.IsNaN(e.DistanceNorm) {
			return fmt.Errorf("%w: edge %s-%s distance_norm %v outside [0,1]", ErrInvalidParameter, e.U, e.V, e.DistanceNorm)
		}
		if e.Pheromone < 0 || math.IsNaN(e.Pheromone) {
			return fmt.Errorf("%w: edge %s-%s pheromone %v", ErrInvalidParameter, e.U, e.V, e.Pheromone)
		}
	}
	return nil
}

// UnreachableDemand returns, in insertion order, the nodes holding demand
// that no path connects to the depot.
func (g *Graph) UnreachableDemand() []string {
	di, ok := g.index[g.depot]
	if !ok {
		return nil
	}
	var bf traverse.BreadthFirst
	bf.Walk(g.weighted(), simple.Node(int64(di)), nil)
	var out []string
	for i, n := range g.nodes {
		if n.Demand > 0 && !bf.Visited(simple.Node(int64(i))) {
			out = append(out, n.ID)
		}
	}
	return out
}

// weighted mirrors g as a gonum graph keyed by node insertion index with
// edge distance as weight.
func (g *Graph) weighted() *simple.WeightedUndirectedGraph {
	wg := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	for i := range g.nodes {
		wg.AddNode(simple.Node(int64(i)))
	}
	for _, e := range g.edges {
		u, v := g.index[e.U], g.index[e.V]
		wg.SetWeightedEdge(wg.NewWeightedEdge(simple.Node(int64(u)), simple.Node(int64(v)), e.Distance))
	}
	return wg
}
