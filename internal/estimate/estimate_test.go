package estimate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProject(t *testing.T) {
	tests := []struct {
		name         string
		score        int
		hasGeo       bool
		jobValue     float64
		wantSearches int
	}{
		{"low score clamps to floor", 1, false, 350, 150},
		{"mid score", 50, false, 350, 580},
		{"mid score with geo", 50, true, 350, 667},
		{"max score", 100, true, 350, 1242},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Project(tt.score, tt.hasGeo, tt.jobValue)
			require.NotNil(t, p)
			assert.Equal(t, tt.wantSearches, p.MonthlySearches)
			assert.Less(t, p.EstimatedLeads["low"], p.EstimatedLeads["high"])
			assert.LessOrEqual(t, p.EstimatedLeads["low"], p.EstimatedLeads["expected"])
			assert.NotEmpty(t, p.Assumptions)
		})
	}
}

func TestProjectDeterministic(t *testing.T) {
	a := Project(72, true, 500)
	b := Project(72, true, 500)
	assert.Equal(t, a, b)
}

func TestProjectDefaultJobValue(t *testing.T) {
	p := Project(60, false, 0)
	// 680 searches, expected band 9 leads at the default job value.
	assert.Equal(t, 9, p.EstimatedLeads["expected"])
	assert.Equal(t, 9*DefaultJobValue, p.EstimatedRevenue["expected"])
}
