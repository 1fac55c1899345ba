package opt

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// Ant is the probabilistic Agent used in production. It leaves the depot,
// picks up demand at the nodes it visits and walks the shortest path home
// when its hold is full or there is nothing left to pick up.
type Ant struct {
	g        *Graph
	capacity float64
	speed    float64
	rng      *rand.Rand
	homeward map[string]string // next hop toward the depot

	path    []string
	dist    float64
	loads   []float64
	carried float64
}

// NewAnt builds an ant bound to g. The return routes are computed once here,
// so g's topology must not change afterwards.
func NewAnt(g *Graph, capacity, speed float64, rng *rand.Rand) (*Ant, error) {
	if !(capacity > 0) {
		return nil, fmt.Errorf("%w: capacity must be > 0, got %v", ErrInvalidParameter, capacity)
	}
	if !(speed > 0) || math.IsInf(speed, 1) {
		return nil, fmt.Errorf("%w: speed factor must be > 0, got %v", ErrInvalidParameter, speed)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	a := &Ant{g: g, capacity: capacity, speed: speed, rng: rng, homeward: returnRoutes(g)}
	a.Reset()
	return a, nil
}

// returnRoutes runs Dijkstra from the depot over edge distances and keeps,
// for every reachable node, the neighbour one hop closer to the depot.
func returnRoutes(g *Graph) map[string]string {
	wg := g.weighted()
	out := map[string]string{}
	di, ok := g.index[g.depot]
	if !ok {
		return out
	}
	sp := path.DijkstraFrom(simple.Node(int64(di)), wg)
	for i, n := range g.Nodes() {
		if i == di {
			continue
		}
		p, _ := sp.To(int64(i))
		if len(p) < 2 {
			continue
		}
		out[n.ID] = g.nodes[int(p[len(p)-2].ID())].ID
	}
	return out
}

// Reset implements Agent.
func (a *Ant) Reset() {
	a.path = []string{a.g.Depot()}
	a.dist = 0
	a.loads = []float64{}
	a.carried = 0
}

// Tick implements Agent.
func (a *Ant) Tick() {
	at := a.path[len(a.path)-1]
	depot := a.g.Depot()
	demandLeft := a.g.RemainingTotal() > 0
	switch {
	case at == depot && !demandLeft:
		return
	case a.carried >= a.capacity || !demandLeft:
		a.moveTo(at, a.homeward[at])
	default:
		a.moveTo(at, a.choose(at))
	}
}

func (a *Ant) choose(at string) string {
	var cands []string
	for _, id := range a.g.Neighbors(at) {
		if n, ok := a.g.Node(id); ok && n.Remaining > 0 {
			cands = append(cands, id)
		}
	}
	if len(cands) == 0 {
		for _, id := range a.g.Neighbors(at) {
			if id != a.g.Depot() {
				cands = append(cands, id)
			}
		}
	}
	if len(cands) == 0 {
		return a.homeward[at]
	}
	return a.pick(at, cands)
}

// pick draws a candidate proportionally to edge weight. NaN and non-positive
// weights count as zero, +Inf weights win uniformly, all-zero falls back to
// a uniform draw.
func (a *Ant) pick(from string, cands []string) string {
	if len(cands) == 1 {
		return cands[0]
	}
	weights := make([]float64, len(cands))
	var inf []int
	total := 0.0
	for i, c := range cands {
		e, ok := a.g.Edge(from, c)
		if !ok {
			continue
		}
		switch w := e.Weight; {
		case math.IsInf(w, 1):
			inf = append(inf, i)
		case w > 0:
			weights[i] = w
			total += w
		}
	}
	if len(inf) > 0 {
		return cands[inf[a.rng.Intn(len(inf))]]
	}
	if total <= 0 || math.IsInf(total, 1) {
		return cands[a.rng.Intn(len(cands))]
	}
	r := a.rng.Float64() * total
	for i, w := range weights {
		r -= w
		if r < 0 {
			return cands[i]
		}
	}
	return cands[len(cands)-1]
}

func (a *Ant) moveTo(at, next string) {
	if next == "" {
		return
	}
	e, ok := a.g.Edge(at, next)
	if !ok {
		return
	}
	a.path = append(a.path, next)
	a.dist += e.Distance
	if next == a.g.Depot() {
		a.loads = append(a.loads, a.carried)
		a.carried = 0
		return
	}
	a.carried += a.g.Consume(next, a.capacity-a.carried)
}

// Path implements Agent.
func (a *Ant) Path() []string { return a.path }

// TotalDistance implements Agent.
func (a *Ant) TotalDistance() float64 { return a.dist }

// LoadHistory implements Agent.
func (a *Ant) LoadHistory() []float64 { return a.loads }

// Capacity implements Agent.
func (a *Ant) Capacity() float64 { return a.capacity }

// SpeedFactor implements Agent.
func (a *Ant) SpeedFactor() float64 { return a.speed }
