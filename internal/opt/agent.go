package opt

// Agent is a routing entity driven by the engine. Implementations read edge
// Weight values from the graph to pick moves and call Graph.Consume when they
// pick up demand.
type Agent interface {
	// Reset restores the per-iteration state: path = [depot], zero distance,
	// empty load history.
	Reset()
	// Tick advances the agent by one simulated step. Waiting is allowed.
	Tick()
	Path() []string
	TotalDistance() float64
	// LoadHistory holds one delivered quantity per depot-to-depot trip.
	LoadHistory() []float64
	Capacity() float64
	SpeedFactor() float64
}
