package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterDefault(t *testing.T) {
	require.NotPanics(t, RegisterDefault)
	require.NotPanics(t, RegisterDefault, "registering twice must be a no-op")

	families, err := Registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, family := range families {
		names[family.GetName()] = true
	}
	assert.True(t, names["go_goroutines"])
	assert.True(t, names["refinement_generations_total"])
	assert.True(t, names["refinement_best_cost"])
}

func TestCandidatesByOutcome(t *testing.T) {
	before := testutil.ToFloat64(Candidates.WithLabelValues(OutcomeAccepted))
	rejected := testutil.ToFloat64(Candidates.WithLabelValues(OutcomeRejected))

	Candidates.WithLabelValues(OutcomeAccepted).Inc()
	Candidates.WithLabelValues(OutcomeAccepted).Inc()

	assert.Equal(t, before+2, testutil.ToFloat64(Candidates.WithLabelValues(OutcomeAccepted)))
	assert.Equal(t, rejected, testutil.ToFloat64(Candidates.WithLabelValues(OutcomeRejected)))
}
