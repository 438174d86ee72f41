package kanban

import (
	"testing"

	"github.com/stretchr/testify/require"

	"coordinator/internal/domain"
)

// TestCodec_RoundTrip implements property 10: Encode then
// Decode yields the same original_id, estimated_hours, priority, and
// dependencies.
func TestCodec_RoundTrip(t *testing.T) {
	data := TaskData{
		Name:           "Implement login",
		Description:    "Add a login form.",
		OriginalID:     "orig-42",
		EstimatedHours: 3.5,
		Priority:       domain.PriorityHigh,
		Dependencies:   []string{"task-a", "task-b"},
	}

	encoded := Encode(data)
	decoded := Decode(encoded)

	require.Equal(t, data.OriginalID, decoded.OriginalID)
	require.Equal(t, data.EstimatedHours, decoded.EstimatedHours)
	require.Equal(t, data.Priority, decoded.Priority)
	require.Equal(t, data.Dependencies, decoded.Dependencies)
}

func TestCodec_RoundTrip_IntegerHoursAndNoDependencies(t *testing.T) {
	data := TaskData{
		Name:           "Setup CI",
		Description:    "Wire up the pipeline.",
		EstimatedHours: 4,
		Priority:       domain.PriorityUrgent,
	}

	decoded := Decode(Encode(data))
	require.Equal(t, 4.0, decoded.EstimatedHours)
	require.Equal(t, domain.PriorityUrgent, decoded.Priority)
	require.Empty(t, decoded.Dependencies)
	require.Empty(t, decoded.OriginalID)
}

func TestResolveDependencies_MapsOriginalIDs(t *testing.T) {
	idx := map[string]string{"orig-1": "board-1"}
	resolved := ResolveDependencies([]string{"orig-1", "board-2"}, idx)
	require.Equal(t, []string{"board-1", "board-2"}, resolved)
}

func TestBuildOriginalIDIndex(t *testing.T) {
	tasks := []*domain.Task{
		{ID: "board-1", Description: Encode(TaskData{OriginalID: "orig-1", EstimatedHours: 1, Priority: domain.PriorityLow})},
		{ID: "board-2", Description: "no markers here"},
	}
	idx := BuildOriginalIDIndex(tasks)
	require.Equal(t, map[string]string{"orig-1": "board-1"}, idx)
}
