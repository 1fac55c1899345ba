package opt

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAntCapacityForcesReturnTrips(t *testing.T) {
	g := NewGraph("D")
	require.NoError(t, g.AddNode("D", 0))
	require.NoError(t, g.AddNode("A", 7))
	_, err := g.AddEdge("D", "A", 1, 1)
	require.NoError(t, err)
	g.NormalizeDistances()

	a := newAnt(t, g, 3, 1, 1)
	for i := 0; i < 6; i++ {
		a.Tick()
	}
	assert.Equal(t, []string{"D", "A", "D", "A", "D", "A", "D"}, a.Path())
	assert.Equal(t, []float64{3, 3, 1}, a.LoadHistory())
	assert.Equal(t, 6.0, a.TotalDistance())

	// Nothing left: the ant waits at the depot.
	a.Tick()
	assert.Len(t, a.Path(), 7)

	a.Reset()
	assert.Equal(t, []string{"D"}, a.Path())
	assert.Empty(t, a.LoadHistory())
	assert.Zero(t, a.TotalDistance())
}

func TestAntReturnsAlongShortestPath(t *testing.T) {
	// D-A-B chain plus a long direct D-B edge.
	g := NewGraph("D")
	require.NoError(t, g.AddNode("D", 0))
	require.NoError(t, g.AddNode("A", 0))
	require.NoError(t, g.AddNode("B", 4))
	for _, l := range []struct {
		u, v string
		d    float64
	}{{"D", "A", 1}, {"A", "B", 1}, {"D", "B", 10}} {
		_, err := g.AddEdge(l.u, l.v, l.d, 1)
		require.NoError(t, err)
	}
	g.NormalizeDistances()

	a := newAnt(t, g, 10, 1, 1)
	assert.Equal(t, map[string]string{"A": "D", "B": "A"}, a.homeward)
}

func TestAntPrefersInfiniteWeight(t *testing.T) {
	g := NewGraph("D")
	require.NoError(t, g.AddNode("D", 0))
	require.NoError(t, g.AddNode("A", 1))
	require.NoError(t, g.AddNode("B", 1))
	da, err := g.AddEdge("D", "A", 1, 1)
	require.NoError(t, err)
	db, err := g.AddEdge("D", "B", 1, 1)
	require.NoError(t, err)
	da.Weight = 1
	db.Weight = math.Inf(1)

	a := newAnt(t, g, 10, 1, 42)
	for i := 0; i < 20; i++ {
		assert.Equal(t, "B", a.pick("D", []string{"A", "B"}))
	}

	db.Weight = math.NaN()
	da.Weight = 0
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		seen[a.pick("D", []string{"A", "B"})] = true
	}
	assert.True(t, seen["A"] && seen["B"], "all-zero weights fall back to a uniform draw")
}

func TestAntWeightedChoiceFollowsWeights(t *testing.T) {
	g := NewGraph("D")
	require.NoError(t, g.AddNode("D", 0))
	require.NoError(t, g.AddNode("A", 1))
	require.NoError(t, g.AddNode("B", 1))
	da, _ := g.AddEdge("D", "A", 1, 1)
	db, _ := g.AddEdge("D", "B", 1, 1)
	da.Weight, db.Weight = 9, 1

	a, err := NewAnt(g, 1, 1, rand.New(rand.NewSource(5)))
	require.NoError(t, err)
	hits := 0
	const n = 2000
	for i := 0; i < n; i++ {
		if a.pick("D", []string{"A", "B"}) == "A" {
			hits++
		}
	}
	assert.InDelta(t, 0.9, float64(hits)/n, 0.05)
}

func TestNewAntRejectsBadFleetValues(t *testing.T) {
	g := NewGraph("D")
	require.NoError(t, g.AddNode("D", 0))
	_, err := NewAnt(g, 0, 1, nil)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = NewAnt(g, 1, -1, nil)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}
