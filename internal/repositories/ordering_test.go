package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarioJames/super-lotto/internal/models"
)

func rounds(states ...string) []models.Round {
	out := make([]models.Round, 0, len(states))
	for i, s := range states {
		out = append(out, models.Round{ID: int64(i + 1), OrderIndex: i, IsDrawn: s == "drawn"})
	}
	return out
}

func TestLastDrawnIndex(t *testing.T) {
	assert.Equal(t, -1, LastDrawnIndex(rounds("pending", "pending"), 0))
	assert.Equal(t, 2, LastDrawnIndex(rounds("drawn", "pending", "drawn"), 0))
	assert.Equal(t, 0, LastDrawnIndex(rounds("drawn", "pending", "drawn"), 3))
}

func TestCheckPlacement(t *testing.T) {
	existing := rounds("drawn", "pending", "drawn", "pending")

	assert.ErrorIs(t, CheckPlacement(existing, &models.Round{OrderIndex: 1}, -1), ErrDuplicateOrderIndex)
	assert.NoError(t, CheckPlacement(existing, &models.Round{OrderIndex: 4}, -1))

	moved := existing[1]
	assert.NoError(t, CheckPlacement(existing, &moved, moved.OrderIndex))
	moved.OrderIndex = 5
	assert.NoError(t, CheckPlacement(existing, &moved, 1))

	late := existing[3]
	late.OrderIndex = 1
	withGap := []models.Round{existing[0], existing[2], existing[3]}
	assert.ErrorIs(t, CheckPlacement(withGap, &late, 3), ErrOrderBeforeDrawn)

	drawn := existing[2]
	var target *DrawnRoundError
	require.ErrorAs(t, CheckPlacement(existing, &drawn, drawn.OrderIndex), &target)
	assert.Equal(t, drawn.ID, target.RoundID)
}

func TestPlanReorder(t *testing.T) {
	existing := rounds("drawn", "pending", "pending", "pending")

	moved, err := PlanReorder(existing, []int64{1, 4, 2, 3})
	require.NoError(t, err)
	require.Len(t, moved, 3)
	assert.Equal(t, int64(4), moved[0].ID)
	assert.Equal(t, 1, moved[0].OrderIndex)

	_, err = PlanReorder(existing, []int64{2, 1, 3, 4})
	assert.ErrorIs(t, err, ErrRoundAlreadyDrawn)

	_, err = PlanReorder(existing, []int64{1, 2, 3})
	assert.ErrorIs(t, err, ErrRoundSetMismatch)
	_, err = PlanReorder(existing, []int64{1, 2, 2, 3})
	assert.ErrorIs(t, err, ErrRoundSetMismatch)

	gapped := rounds("pending", "pending", "drawn")
	_, err = PlanReorder(gapped, []int64{2, 1, 3})
	assert.ErrorIs(t, err, ErrOrderBeforeDrawn)
}
