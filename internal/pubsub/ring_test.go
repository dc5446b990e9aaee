package pubsub

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRingBuffer_AppendBelowCapacity(t *testing.T) {
	r := NewRingBuffer[int](5)

	r.Append(1)
	r.Append(2)
	r.Append(3)

	require.Equal(t, 3, r.Len())
	require.Equal(t, []int{1, 2, 3}, r.Snapshot())
}

func TestRingBuffer_EvictsOldestFirst(t *testing.T) {
	r := NewRingBuffer[int](3)

	for i := 1; i <= 5; i++ {
		r.Append(i)
	}

	require.Equal(t, 3, r.Len())
	require.Equal(t, []int{3, 4, 5}, r.Snapshot())
}

func TestRingBuffer_SnapshotIsCopy(t *testing.T) {
	r := NewRingBuffer[int](3)
	r.Append(1)

	snap := r.Snapshot()
	r.Append(2)
	r.Append(3)
	r.Append(4)

	require.Equal(t, []int{1}, snap)
}

func TestRingBuffer_Reset(t *testing.T) {
	r := NewRingBuffer[string](2)
	r.Append("a")
	r.Append("b")

	r.Reset()

	require.Equal(t, 0, r.Len())
	require.Empty(t, r.Snapshot())

	r.Append("c")
	require.Equal(t, []string{"c"}, r.Snapshot())
}

// TestRingBuffer_Property checks the buffer always holds the most recent
// min(n, capacity) items in append order.
func TestRingBuffer_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		capacity := rapid.IntRange(1, 32).Draw(rt, "capacity")
		n := rapid.IntRange(0, 100).Draw(rt, "appends")

		r := NewRingBuffer[int](capacity)
		for i := 0; i < n; i++ {
			r.Append(i)
		}

		want := n
		if want > capacity {
			want = capacity
		}
		snap := r.Snapshot()
		require.Len(rt, snap, want)
		for i, v := range snap {
			require.Equal(rt, n-want+i, v)
		}
	})
}
