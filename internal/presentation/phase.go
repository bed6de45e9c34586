package presentation

import (
	"errors"

	"github.com/MarioJames/super-lotto/internal/models"
)

// Phase is the presentation state of the current round.
type Phase string

const (
	PhaseLoading      Phase = "loading"
	PhaseError        Phase = "error"
	PhaseInsufficient Phase = "insufficient"
	PhaseCompleted    Phase = "completed"
	PhaseReady        Phase = "ready"
	PhaseDrawing      Phase = "drawing"
	PhaseRevealing    Phase = "revealing"
	PhaseResults      Phase = "results"
)

// ErrInvalidTransition is returned when an action is not allowed in the
// current phase. The state is left unchanged.
var ErrInvalidTransition = errors.New("action not allowed in current phase")

// State is a snapshot of the machine. It holds no source of truth; every
// field is derived from the last backend response.
type State struct {
	Phase    Phase
	Activity *models.Activity
	// Rounds are ordered by OrderIndex.
	Rounds []models.Round
	// RoundIndex points into Rounds, or -1 when no round is selected.
	RoundIndex int
	Round      *models.Round

	AvailableCount int
	// Shortage is set in PhaseInsufficient.
	Shortage int
	// CanDraw is false when the round is short of participants or an
	// earlier round is still pending.
	CanDraw         bool
	BlockingRoundID int64

	// Result is the server-confirmed draw, set in PhaseResults.
	Result *models.DrawResult
	// LastError is the most recent failure, kept across a re-sync.
	LastError error
}

func (s State) clone() State {
	out := s
	if s.Rounds != nil {
		out.Rounds = append([]models.Round(nil), s.Rounds...)
	}
	return out
}
