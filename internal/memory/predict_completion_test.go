package memory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"coordinator/internal/domain"
)

func TestPredictCompletionTime_BandsByHistorySize(t *testing.T) {
	m := newTestMemory(t)

	task := &domain.Task{ID: "t", Name: "Recurring Sync Job", EstimatedHours: 5, Labels: []string{"backend"}}
	got := m.PredictCompletionTime("agent-a", task)
	require.Equal(t, 0.5, got.Confidence) // no history yet

	for i := 0; i < 5; i++ {
		m.RecordTaskStart("agent-a", task)
		m.RecordTaskCompletion("agent-a", "t", true, 6, nil)
	}

	got = m.PredictCompletionTime("agent-a", task)
	require.Equal(t, 0.8, got.Confidence)
	require.Equal(t, 5, got.SampleSize)
	require.InDelta(t, 6.0, got.ExpectedHours, 1e-9)
}
