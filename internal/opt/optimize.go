package opt

// Optimize is the one-call surface for higher-level callers: it builds an
// engine over g and agents, solves, and returns the best solution together
// with the run record.
func Optimize(g *Graph, agents []Agent, p Params, opts ...Option) (*Solution, RunRecord, error) {
	e, err := NewEngine(g, agents, opts...)
	if err != nil {
		return nil, RunRecord{}, err
	}
	sol, err := e.Solve(p)
	return sol, e.Record(), err
}
