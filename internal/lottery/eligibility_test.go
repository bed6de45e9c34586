package lottery

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MarioJames/super-lotto/internal/models"
)

func roster(ids ...int64) []models.Participant {
	out := make([]models.Participant, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.Participant{ID: id, Name: string(rune('A' + id - 1))})
	}
	return out
}

func ids(ps []models.Participant) []int64 {
	out := make([]int64, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

func TestEligible(t *testing.T) {
	winners := []models.Winner{{RoundID: 1, ParticipantID: 2}, {RoundID: 1, ParticipantID: 4}}

	t.Run("excludes every prior winner in the activity", func(t *testing.T) {
		got := Eligible(roster(1, 2, 3, 4, 5), winners, false)
		assert.Equal(t, []int64{1, 3, 5}, ids(got))
	})

	t.Run("multi-win returns the full roster", func(t *testing.T) {
		got := Eligible(roster(1, 2, 3, 4, 5), winners, true)
		assert.Equal(t, []int64{1, 2, 3, 4, 5}, ids(got))
	})

	t.Run("no winners yet", func(t *testing.T) {
		got := Eligible(roster(1, 2, 3), nil, false)
		assert.Equal(t, []int64{1, 2, 3}, ids(got))
	})

	t.Run("empty roster", func(t *testing.T) {
		assert.Empty(t, Eligible(nil, winners, false))
	})

	t.Run("duplicate winner rows are harmless", func(t *testing.T) {
		dup := append(winners, models.Winner{RoundID: 2, ParticipantID: 2})
		got := Eligible(roster(1, 2, 3), dup, false)
		assert.Equal(t, []int64{1, 3}, ids(got))
	})
}

func TestCheckInsufficient(t *testing.T) {
	short, by := CheckInsufficient(3, 4)
	assert.True(t, short)
	assert.Equal(t, 1, by)

	short, by = CheckInsufficient(4, 4)
	assert.False(t, short)
	assert.Zero(t, by)

	short, _ = CheckInsufficient(10, 2)
	assert.False(t, short)
}
