package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterDefaultIsIdempotent(t *testing.T) {
	RegisterDefault()
	RegisterDefault()
	mfs, err := Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

func TestSolveObserver(t *testing.T) {
	before := testutil.ToFloat64(SolverImprovements)
	var o SolveObserver
	o.Improved(0, 3)
	o.Improved(4, 2)
	o.IterationDone(4, 2, 17)
	assert.Equal(t, before+2, testutil.ToFloat64(SolverImprovements))
	assert.GreaterOrEqual(t, testutil.CollectAndCount(SimulationTicks), 1)
}
