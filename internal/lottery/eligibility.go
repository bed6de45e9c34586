package lottery

import "github.com/MarioJames/super-lotto/internal/models"

// Eligible returns the roster members that may still win. With allowMultiWin
// the roster is returned as is. Otherwise every participant that appears in
// winners is removed; winners is expected to hold the whole activity history,
// not only the round being drawn. Roster order is preserved.
func Eligible(roster []models.Participant, winners []models.Winner, allowMultiWin bool) []models.Participant {
	if allowMultiWin {
		return roster
	}
	won := make(map[int64]struct{}, len(winners))
	for _, w := range winners {
		won[w.ParticipantID] = struct{}{}
	}
	eligible := make([]models.Participant, 0, len(roster))
	for _, p := range roster {
		if _, ok := won[p.ID]; ok {
			continue
		}
		eligible = append(eligible, p)
	}
	return eligible
}

// CheckInsufficient reports whether available falls short of required and by how much.
func CheckInsufficient(available, required int) (bool, int) {
	if available >= required {
		return false, 0
	}
	return true, required - available
}
