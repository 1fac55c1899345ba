package opt

import (
	"errors"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
)

// MaxTicks bounds a single simulation round.
const MaxTicks = 10_000

// loadFloor is added to every edge load once real traffic was recorded so
// that normalisation never divides by zero.
const loadFloor = 1e-4

// ErrBusy is returned when Solve is re-entered while a run is in progress.
var ErrBusy = errors.New("engine busy")

// State is the engine lifecycle.
type State int

const (
	StateIdle State = iota
	StateIterating
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateIterating:
		return "iterating"
	case StateDone:
		return "done"
	}
	return "unknown"
}

// AgentRoute is the per-agent part of a solution snapshot.
type AgentRoute struct {
	ID             int      `json:"id"`
	TotalDistance  float64  `json:"totalDistance"`
	Capacity       float64  `json:"capacity"`
	SpeedFactor    float64  `json:"speedFactor"`
	TotalDelivered float64  `json:"totalDelivered"`
	Path           []string `json:"path"`
}

// Solution is the fleet state captured at an improving iteration.
type Solution struct {
	Iteration int          `json:"iteration"`
	Score     float64      `json:"score"`
	Routes    []AgentRoute `json:"routes"`
}

// ScorePoint is one history entry, recorded only on strict improvement.
type ScorePoint struct {
	Iteration int     `json:"iteration"`
	Score     float64 `json:"score"`
}

// RunRecord is what the engine knows about its latest Solve call.
// Improvements[i] is the fleet snapshot behind History[i].
type RunRecord struct {
	Params       Params       `json:"params"`
	BestScore    float64      `json:"bestScore"`
	Best         *Solution    `json:"best,omitempty"`
	History      []ScorePoint `json:"history"`
	Improvements []Solution   `json:"improvements"`
	Iterations   int          `json:"iterations"`
	Ticks        int          `json:"ticks"`
}

// Observer receives progress callbacks on the solving goroutine.
type Observer interface {
	IterationDone(iteration int, score float64, ticks int)
	Improved(iteration int, score float64)
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver attaches a progress observer.
func WithObserver(o Observer) Option { return func(e *Engine) { e.obs = o } }

// WithLogger replaces the default slog logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.log = l } }

// Engine runs the simulate, score, reinforce, reweight loop over a graph it
// owns for the duration of Solve. It is not safe for concurrent use.
type Engine struct {
	g      *Graph
	agents []Agent
	obs    Observer
	log    *slog.Logger
	state  State
	rec    RunRecord
}

// NewEngine validates the graph and fleet and returns an idle engine.
// Agents are processed in slice order on every tick and in every walk.
func NewEngine(g *Graph, agents []Agent, opts ...Option) (*Engine, error) {
	if g == nil {
		return nil, errorf("graph is nil")
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if len(agents) == 0 {
		return nil, errorf("fleet is empty")
	}
	for i, a := range agents {
		if s := a.SpeedFactor(); !(s > 0) || math.IsInf(s, 1) {
			return nil, errorf("agent %d speed factor %v", i+1, s)
		}
	}
	e := &Engine{g: g, agents: agents, log: slog.Default()}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// State reports where the engine is in its lifecycle.
func (e *Engine) State() State { return e.state }

// Graph exposes the owned graph. Callers must not mutate it while Solve runs.
func (e *Engine) Graph() *Graph { return e.g }

// Solve runs p.Iterations rounds and returns the best solution found. A nil
// solution with a nil error means no round produced an improving score.
// Demand with no path to the depot fails the call with an
// *UnreachableDemandError before the first tick.
func (e *Engine) Solve(p Params) (*Solution, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if e.state == StateIterating {
		return nil, ErrBusy
	}
	e.state = StateIterating
	defer func() { e.state = StateDone }()

	e.rec = RunRecord{Params: p, BestScore: math.Inf(1), History: []ScorePoint{}, Improvements: []Solution{}}
	if stranded := e.g.UnreachableDemand(); len(stranded) > 0 {
		err := &UnreachableDemandError{Nodes: stranded}
		e.log.Warn("solve aborted", "error", err)
		return nil, err
	}
	e.updateWeights(p.Alpha, p.Beta)
	e.resetIteration()

	for it := 0; it < p.Iterations; it++ {
		score, ticks, err := e.simulate(it)
		e.rec.Ticks += ticks
		if err != nil {
			e.log.Warn("simulation aborted", "iteration", it, "ticks", ticks, "error", err)
			return nil, err
		}
		e.rec.Iterations++

		if score < e.rec.BestScore {
			e.rec.BestScore = score
			e.rec.Best = e.snapshot(it, score)
			e.rec.History = append(e.rec.History, ScorePoint{Iteration: it, Score: score})
			e.rec.Improvements = append(e.rec.Improvements, *e.rec.Best.clone())
			e.log.Debug("found better score", "iteration", it, "score", score)
			if e.obs != nil {
				e.obs.Improved(it, score)
			}
		}

		e.updateEdgeLoad()
		e.updatePheromone(p.DecayRate)
		e.updateWeights(p.Alpha, p.Beta)
		if e.obs != nil {
			e.obs.IterationDone(it, score, ticks)
		}
		e.resetIteration()
	}
	if e.rec.Best == nil {
		return nil, nil
	}
	return e.rec.Best.clone(), nil
}

// Record returns a copy of the run record of the latest Solve call.
func (e *Engine) Record() RunRecord {
	out := e.rec
	out.History = append([]ScorePoint(nil), e.rec.History...)
	out.Improvements = make([]Solution, len(e.rec.Improvements))
	for i := range e.rec.Improvements {
		out.Improvements[i] = *e.rec.Improvements[i].clone()
	}
	if e.rec.Best != nil {
		out.Best = e.rec.Best.clone()
	}
	return out
}

func (e *Engine) resetIteration() {
	for _, a := range e.agents {
		a.Reset()
	}
	e.g.ResetDemand()
}

// simulate ticks every agent in lockstep until the fleet has cleared the
// depot neighbourhood and is home, or MaxTicks is reached.
func (e *Engine) simulate(iteration int) (float64, int, error) {
	ticks := 0
	for !e.settled() {
		if ticks >= MaxTicks {
			return 0, ticks, &IterationLimitError{Iteration: iteration, Ticks: ticks}
		}
		for _, a := range e.agents {
			a.Tick()
		}
		ticks++
	}
	return e.score(), ticks, nil
}

func (e *Engine) settled() bool {
	if e.g.DepotNeighborhoodRemaining() > 0 {
		return false
	}
	depot := e.g.Depot()
	for _, a := range e.agents {
		p := a.Path()
		if len(p) == 0 || p[len(p)-1] != depot {
			return false
		}
	}
	return true
}

// score is the makespan proxy: the slowest effective agent.
func (e *Engine) score() float64 {
	worst := math.Inf(-1)
	for _, a := range e.agents {
		worst = math.Max(worst, a.TotalDistance()/a.SpeedFactor())
	}
	return worst
}

func (e *Engine) snapshot(iteration int, score float64) *Solution {
	s := &Solution{Iteration: iteration, Score: score, Routes: make([]AgentRoute, len(e.agents))}
	for i, a := range e.agents {
		s.Routes[i] = AgentRoute{
			ID:             i + 1,
			TotalDistance:  a.TotalDistance(),
			Capacity:       a.Capacity(),
			SpeedFactor:    a.SpeedFactor(),
			TotalDelivered: floats.Sum(a.LoadHistory()),
			Path:           append([]string(nil), a.Path()...),
		}
	}
	return s
}

// updateEdgeLoad spreads each trip's quantity over the edges of that trip
// and normalises the result. A trip ends on every arrival at the depot.
func (e *Engine) updateEdgeLoad() {
	edges := e.g.Edges()
	if len(edges) == 0 {
		return
	}
	for _, ed := range edges {
		ed.Load = 0
	}
	depot := e.g.Depot()
	for _, a := range e.agents {
		loads := a.LoadHistory()
		path := a.Path()
		trip := 0
		for i := 1; i < len(path); i++ {
			if ed, ok := e.g.Edge(path[i-1], path[i]); ok && trip < len(loads) {
				ed.Load += math.Max(0, loads[trip])
			}
			if path[i] == depot {
				trip++
			}
		}
	}

	loads := make([]float64, len(edges))
	for i, ed := range edges {
		loads[i] = ed.Load
	}
	if floats.Max(loads) == 0 {
		even := 1 / float64(len(edges))
		for _, ed := range edges {
			ed.Load = loadFloor
			ed.LoadNorm = even
			ed.LoadFraction = even
		}
		return
	}
	for i, ed := range edges {
		ed.Load += loadFloor
		loads[i] = ed.Load
	}
	maxLoad, total := floats.Max(loads), floats.Sum(loads)
	for _, ed := range edges {
		ed.LoadNorm = ed.Load / maxLoad
		ed.LoadFraction = ed.Load / total
	}
}

func (e *Engine) updatePheromone(decay float64) {
	for _, ed := range e.g.Edges() {
		ed.Pheromone = math.Max(0, (1-decay)*ed.Pheromone+ed.LoadFraction)
	}
}

func (e *Engine) updateWeights(alpha, beta float64) {
	for _, ed := range e.g.Edges() {
		ed.Weight = math.Pow(ed.Pheromone, alpha) * math.Pow(ed.DistanceNorm, beta)
	}
}

func (s *Solution) clone() *Solution {
	out := *s
	out.Routes = make([]AgentRoute, len(s.Routes))
	for i, r := range s.Routes {
		r.Path = append([]string(nil), r.Path...)
		out.Routes[i] = r
	}
	return &out
}
