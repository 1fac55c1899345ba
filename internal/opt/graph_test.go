package opt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphConstruction(t *testing.T) {
	g := NewGraph("D")
	require.NoError(t, g.AddNode("D", 0))
	require.NoError(t, g.AddNode("A", 2))
	require.NoError(t, g.AddNode("B", 3))
	assert.ErrorIs(t, g.AddNode("A", 1), ErrInvalidParameter)
	assert.ErrorIs(t, g.AddNode("C", -1), ErrInvalidParameter)

	_, err := g.AddEdge("D", "A", 4, 1)
	require.NoError(t, err)
	_, err = g.AddEdge("A", "B", 2, 1)
	require.NoError(t, err)
	_, err = g.AddEdge("B", "A", 2, 1)
	assert.ErrorIs(t, err, ErrInvalidParameter, "edges are undirected")
	_, err = g.AddEdge("A", "A", 1, 1)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = g.AddEdge("A", "Z", 1, 1)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	g.NormalizeDistances()
	ab, ok := g.Edge("B", "A")
	require.True(t, ok)
	assert.Equal(t, 0.5, ab.DistanceNorm)
	assert.Equal(t, "B", ab.Other("A"))
	assert.Equal(t, []string{"A"}, g.Neighbors("D"))
	assert.Equal(t, []string{"D", "B"}, g.Neighbors("A"))
	assert.Equal(t, 2, g.EdgeCount())
	require.NoError(t, g.Validate())
}

func TestGraphDemandBookkeeping(t *testing.T) {
	g := NewGraph("D")
	require.NoError(t, g.AddNode("D", 0))
	require.NoError(t, g.AddNode("A", 5))
	require.NoError(t, g.AddNode("B", 2))
	_, err := g.AddEdge("D", "A", 1, 1)
	require.NoError(t, err)

	assert.Equal(t, 3.0, g.Consume("A", 3))
	assert.Equal(t, 2.0, g.Consume("A", 10))
	assert.Zero(t, g.Consume("A", 1))
	assert.Zero(t, g.Consume("missing", 1))
	assert.Equal(t, 0.0, g.DepotNeighborhoodRemaining())
	assert.Equal(t, 2.0, g.RemainingTotal())

	g.ResetDemand()
	assert.Equal(t, 5.0, g.DepotNeighborhoodRemaining())
	assert.Equal(t, 7.0, g.RemainingTotal())
}

func TestGraphValidate(t *testing.T) {
	g := NewGraph("D")
	assert.ErrorIs(t, g.Validate(), ErrInvalidParameter, "missing depot")

	require.NoError(t, g.AddNode("D", 1))
	assert.ErrorIs(t, g.Validate(), ErrInvalidParameter, "depot with demand")

	g = NewGraph("D")
	require.NoError(t, g.AddNode("D", 0))
	require.NoError(t, g.AddNode("A", 1))
	assert.ErrorIs(t, g.Validate(), ErrInvalidParameter, "disconnected depot")

	e, err := g.AddEdge("D", "A", 1, 1)
	require.NoError(t, err)
	e.DistanceNorm = 1.5
	assert.ErrorIs(t, g.Validate(), ErrInvalidParameter)
	e.DistanceNorm = 1
	assert.NoError(t, g.Validate())
}

func TestGraphUnreachableDemand(t *testing.T) {
	g := NewGraph("D")
	for _, n := range []struct {
		id string
		d  float64
	}{{"D", 0}, {"A", 1}, {"B", 2}, {"C", 0}, {"E", 4}} {
		require.NoError(t, g.AddNode(n.id, n.d))
	}
	for _, l := range [][2]string{{"D", "A"}, {"A", "B"}, {"C", "E"}} {
		_, err := g.AddEdge(l[0], l[1], 1, 1)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"E"}, g.UnreachableDemand())

	_, err := g.AddEdge("B", "C", 1, 1)
	require.NoError(t, err)
	assert.Empty(t, g.UnreachableDemand())
}
