package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTaskOutcome_EstimationAccuracy(t *testing.T) {
	require.Equal(t, 0.0, TaskOutcome{EstimatedHours: 0, ActualHours: 5}.EstimationAccuracy())
	require.InDelta(t, 0.5, TaskOutcome{EstimatedHours: 2, ActualHours: 4}.EstimationAccuracy(), 1e-9)
	require.InDelta(t, 1.0, TaskOutcome{EstimatedHours: 3, ActualHours: 3}.EstimationAccuracy(), 1e-9)
}

func TestAgentProfile_Rates(t *testing.T) {
	p := NewAgentProfile("agent-1")
	require.Equal(t, 0.0, p.SuccessRate())
	require.Equal(t, 0.0, p.BlockageRate())

	p.TotalTasks = 10
	p.SuccessfulTasks = 7
	p.BlockedTasks = 2
	require.InDelta(t, 0.7, p.SuccessRate(), 1e-9)
	require.InDelta(t, 0.2, p.BlockageRate(), 1e-9)
}

func TestTaskPattern_AddDurationBoundedAndMedian(t *testing.T) {
	p := &TaskPattern{}
	for i := 1; i <= 150; i++ {
		p.AddDuration(float64(i))
	}
	require.Len(t, p.RecentDurations, 100)
	require.Equal(t, 51.0, p.RecentDurations[0])
	require.Equal(t, 150.0, p.RecentDurations[99])

	p2 := &TaskPattern{}
	p2.AddDuration(2)
	p2.AddDuration(4)
	p2.AddDuration(6)
	require.Equal(t, 4.0, p2.MedianDuration())
	require.InDelta(t, 4.0, p2.AverageDuration(), 1e-9)
}
