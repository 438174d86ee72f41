package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Store {
	dir := t.TempDir()
	file, err := NewFileBackend(filepath.Join(dir, "collections"))
	require.NoError(t, err)
	sqlb, err := NewSQLBackend(filepath.Join(dir, "db.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() {
		file.Close()
		sqlb.Close()
	})
	return map[string]Store{"file": file, "sql": sqlb}
}

func TestStore_RoundTripAddsExactlyStoredAt(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			in := map[string]interface{}{"a": float64(1), "b": "x"}
			require.NoError(t, b.Store("widgets", "k1", in))

			got, ok, err := b.Retrieve("widgets", "k1")
			require.NoError(t, err)
			require.True(t, ok)

			require.Equal(t, in["a"], got["a"])
			require.Equal(t, in["b"], got["b"])
			require.Contains(t, got, storedAtKey)
			require.Len(t, got, len(in)+1)
		})
	}
}

func TestStore_RetrieveMissingReturnsFalse(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := b.Retrieve("widgets", "missing")
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestStore_QueryOrdersNewestFirstAndFilters(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.Store("items", "k1", map[string]interface{}{"v": float64(1)}))
			time.Sleep(5 * time.Millisecond)
			require.NoError(t, b.Store("items", "k2", map[string]interface{}{"v": float64(2)}))
			time.Sleep(5 * time.Millisecond)
			require.NoError(t, b.Store("items", "k3", map[string]interface{}{"v": float64(3)}))

			all, err := b.Query("items", nil, 0)
			require.NoError(t, err)
			require.Len(t, all, 3)
			require.Equal(t, "k3", all[0].Key)
			require.Equal(t, "k1", all[2].Key)

			filtered, err := b.Query("items", func(e Entry) bool {
				v, _ := e.Value["v"].(float64)
				return v >= 2
			}, 0)
			require.NoError(t, err)
			require.Len(t, filtered, 2)

			limited, err := b.Query("items", nil, 1)
			require.NoError(t, err)
			require.Len(t, limited, 1)
			require.Equal(t, "k3", limited[0].Key)
		})
	}
}

func TestStore_DeleteIsIdempotent(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.Store("items", "k1", map[string]interface{}{}))
			require.NoError(t, b.Delete("items", "k1"))
			require.NoError(t, b.Delete("items", "k1"))
			_, ok, err := b.Retrieve("items", "k1")
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestStore_ClearOlderThanRemovesStaleEntries(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.Store("items", "fresh", map[string]interface{}{}))
			n, err := b.ClearOlderThan("items", 9999)
			require.NoError(t, err)
			require.Equal(t, 0, n)

			n, err = b.ClearOlderThan("items", -1)
			require.NoError(t, err)
			require.Equal(t, 1, n)
		})
	}
}

func TestSQLBackend_CalculateMedianTaskDuration(t *testing.T) {
	dir := t.TempDir()
	b, err := NewSQLBackend(filepath.Join(dir, "db.sqlite"))
	require.NoError(t, err)
	defer b.Close()

	outcomes := []map[string]interface{}{
		{"success": true, "actual_hours": float64(2)},
		{"success": true, "actual_hours": float64(4)},
		{"success": true, "actual_hours": float64(6)},
		{"success": false, "actual_hours": float64(100)},
		{"success": true, "actual_hours": float64(0)},
	}
	for i, o := range outcomes {
		require.NoError(t, b.Store("task_outcomes", string(rune('a'+i)), o))
	}

	median, err := b.CalculateMedianTaskDuration()
	require.NoError(t, err)
	require.Equal(t, 4.0, median)
}
