package lottery

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectReturnsDistinctMembers(t *testing.T) {
	sel := NewSelector(NewSeededSource(42))
	pool := roster(1, 2, 3, 4, 5, 6, 7, 8)

	for count := 0; count <= len(pool); count++ {
		got, err := sel.Select(pool, count)
		require.NoError(t, err)
		require.Len(t, got, count)

		seen := map[int64]bool{}
		for _, p := range got {
			assert.False(t, seen[p.ID], "participant %d selected twice", p.ID)
			seen[p.ID] = true
			assert.Contains(t, ids(pool), p.ID)
		}
	}
}

func TestSelectDoesNotMutateInput(t *testing.T) {
	sel := NewSelector(NewSeededSource(7))
	pool := roster(1, 2, 3, 4, 5)
	_, err := sel.Select(pool, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, ids(pool))
}

func TestSelectInvalidCount(t *testing.T) {
	sel := NewSelector(NewSeededSource(1))
	pool := roster(1, 2, 3)

	for _, count := range []int{4, -1} {
		_, err := sel.Select(pool, count)
		var invalid *InvalidCountError
		require.True(t, errors.As(err, &invalid))
		assert.Equal(t, count, invalid.Count)
		assert.Equal(t, 3, invalid.Available)
	}
}

func TestSelectIsDeterministicForSeed(t *testing.T) {
	pool := roster(1, 2, 3, 4, 5, 6)
	a, err := NewSelector(NewSeededSource(99)).Select(pool, 3)
	require.NoError(t, err)
	b, err := NewSelector(NewSeededSource(99)).Select(pool, 3)
	require.NoError(t, err)
	assert.Equal(t, ids(a), ids(b))
}

// Each of n participants should land in the winning set with probability k/n.
func TestSelectIsUniform(t *testing.T) {
	tests := []struct {
		name      string
		poolSize  int
		k         int
		trials    int
		tolerance float64
	}{
		{"one of ten", 10, 1, 10000, 0.15},
		{"two of five", 5, 2, 20000, 0.05},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var memberIDs []int64
			for i := 1; i <= tt.poolSize; i++ {
				memberIDs = append(memberIDs, int64(i))
			}
			pool := roster(memberIDs...)
			sel := NewSelector(NewSeededSource(2024))
			hits := map[int64]int{}

			for i := 0; i < tt.trials; i++ {
				got, err := sel.Select(pool, tt.k)
				require.NoError(t, err)
				for _, p := range got {
					hits[p.ID]++
				}
			}

			expected := float64(tt.trials*tt.k) / float64(len(pool))
			for _, p := range pool {
				dev := math.Abs(float64(hits[p.ID])-expected) / expected
				assert.Less(t, dev, tt.tolerance, "participant %d selected %d times, expected about %.0f", p.ID, hits[p.ID], expected)
			}
		})
	}
}

func TestNewRandomSourceRange(t *testing.T) {
	src := NewRandomSource()
	for i := 0; i < 1000; i++ {
		n := src.Intn(3)
		assert.True(t, n >= 0 && n < 3)
	}
}
