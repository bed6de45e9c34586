package lottery

import (
	"sort"

	"github.com/MarioJames/super-lotto/internal/models"
)

// CanExecute reports whether the round at targetOrderIndex may move from
// pending to drawn. rounds must all belong to the same activity and reflect
// the persisted isDrawn flags at call time.
func CanExecute(targetOrderIndex int, rounds []models.Round) bool {
	found := false
	for _, r := range rounds {
		if r.OrderIndex == targetOrderIndex {
			if r.IsDrawn {
				return false
			}
			found = true
		}
	}
	if !found {
		return false
	}
	return BlockingRound(targetOrderIndex, rounds) == nil
}

// BlockingRound returns the earliest pending round ordered before
// targetOrderIndex, or nil when nothing blocks it.
func BlockingRound(targetOrderIndex int, rounds []models.Round) *models.Round {
	var blocking *models.Round
	for i := range rounds {
		r := rounds[i]
		if r.OrderIndex >= targetOrderIndex || r.IsDrawn {
			continue
		}
		if blocking == nil || r.OrderIndex < blocking.OrderIndex {
			blocking = &rounds[i]
		}
	}
	return blocking
}

// FirstPendingIndex returns the slice index of the first round at or after
// position from that is not drawn, or -1. rounds must be sorted by OrderIndex.
// Every caller that needs "the next round to draw" goes through here.
func FirstPendingIndex(rounds []models.Round, from int) int {
	if from < 0 {
		from = 0
	}
	for i := from; i < len(rounds); i++ {
		if !rounds[i].IsDrawn {
			return i
		}
	}
	return -1
}

// SortRounds orders rounds by OrderIndex in place.
func SortRounds(rounds []models.Round) {
	sort.SliceStable(rounds, func(i, j int) bool {
		return rounds[i].OrderIndex < rounds[j].OrderIndex
	})
}
