package opt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLatestRunsPerTenant(t *testing.T) {
	RecordRun("ms_t1", "w1", RunRecord{Iterations: 1})
	RecordRun("ms_t1", "w1", RunRecord{Iterations: 2})
	RecordRun("ms_t1", "w2", RunRecord{Iterations: 3})
	RecordRun("ms_t2", "w1", RunRecord{Iterations: 4})

	got := LatestRuns("ms_t1")
	assert.Len(t, got, 2)
	assert.Equal(t, 2, got["w1"].Iterations)
	assert.Equal(t, 3, got["w2"].Iterations)
	assert.Empty(t, LatestRuns("ms_nobody"))
}
