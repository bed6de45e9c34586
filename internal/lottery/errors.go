package lottery

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched by NotFoundError via errors.Is.
var ErrNotFound = errors.New("not found")

// NotFoundError reports a missing activity, round or participant.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// AlreadyDrawnError is returned when a round has already been drawn, either
// on a second draw attempt or when editing a drawn round.
type AlreadyDrawnError struct {
	RoundID int64
}

func (e *AlreadyDrawnError) Error() string {
	return fmt.Sprintf("round %d has already been drawn", e.RoundID)
}

// RoundOutOfOrderError is returned when an earlier round is still pending.
type RoundOutOfOrderError struct {
	RoundID            int64
	BlockingRoundID    int64
	BlockingOrderIndex int
}

func (e *RoundOutOfOrderError) Error() string {
	return fmt.Sprintf("round %d cannot be drawn before round %d (order %d) is drawn",
		e.RoundID, e.BlockingRoundID, e.BlockingOrderIndex)
}

// InsufficientParticipantsError is returned when fewer participants are
// eligible than the round requires.
type InsufficientParticipantsError struct {
	Required  int
	Available int
}

func (e *InsufficientParticipantsError) Error() string {
	return fmt.Sprintf("insufficient participants: required %d, available %d (short by %d)",
		e.Required, e.Available, e.Shortage())
}

// Shortage is how many more eligible participants are needed.
func (e *InsufficientParticipantsError) Shortage() int {
	return e.Required - e.Available
}

// ConcurrentDrawError is returned when another draw holds the activity lock.
type ConcurrentDrawError struct {
	RoundID    int64
	ActivityID int64
}

func (e *ConcurrentDrawError) Error() string {
	return fmt.Sprintf("a draw is already in progress for activity %d (round %d rejected)", e.ActivityID, e.RoundID)
}

// InvalidCountError signals misuse of Select. It should never reach users.
type InvalidCountError struct {
	Count     int
	Available int
}

func (e *InvalidCountError) Error() string {
	return fmt.Sprintf("invalid selection count %d for %d eligible participants", e.Count, e.Available)
}

// ValidationError reports bad input on configuration operations.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}
