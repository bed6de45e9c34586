package repositories

import "github.com/MarioJames/super-lotto/internal/models"

// LastDrawnIndex returns the highest orderIndex among drawn rounds other than
// skipID, or -1 when none is drawn.
func LastDrawnIndex(rounds []models.Round, skipID int64) int {
	last := -1
	for _, r := range rounds {
		if r.ID != skipID && r.IsDrawn && r.OrderIndex > last {
			last = r.OrderIndex
		}
	}
	return last
}

// CheckPlacement validates round against the other rounds of its activity.
// prev is the orderIndex the round had before the write, or -1 on create; a
// round that keeps its place is never rejected for sitting before a drawn
// round, since a redraw can leave it there legitimately.
func CheckPlacement(rounds []models.Round, round *models.Round, prev int) error {
	for _, r := range rounds {
		if r.ID == round.ID {
			if r.IsDrawn {
				return &DrawnRoundError{RoundID: r.ID}
			}
			continue
		}
		if r.OrderIndex == round.OrderIndex {
			return ErrDuplicateOrderIndex
		}
	}
	if round.OrderIndex != prev && round.OrderIndex < LastDrawnIndex(rounds, round.ID) {
		return ErrOrderBeforeDrawn
	}
	return nil
}

// PlanReorder computes the rounds whose orderIndex changes when roundIDs[i]
// moves to position i. Drawn rounds must already sit at their position and
// a moved pending round may not land before a drawn one.
func PlanReorder(rounds []models.Round, roundIDs []int64) ([]models.Round, error) {
	if len(roundIDs) != len(rounds) {
		return nil, ErrRoundSetMismatch
	}
	byID := make(map[int64]models.Round, len(rounds))
	for _, r := range rounds {
		byID[r.ID] = r
	}
	last := LastDrawnIndex(rounds, 0)
	seen := make(map[int64]bool, len(roundIDs))
	var moved []models.Round
	for i, id := range roundIDs {
		r, ok := byID[id]
		if !ok || seen[id] {
			return nil, ErrRoundSetMismatch
		}
		seen[id] = true
		if r.OrderIndex == i {
			continue
		}
		if r.IsDrawn {
			return nil, &DrawnRoundError{RoundID: id}
		}
		if i < last {
			return nil, ErrOrderBeforeDrawn
		}
		r.OrderIndex = i
		moved = append(moved, r)
	}
	return moved, nil
}
