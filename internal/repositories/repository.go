package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MarioJames/super-lotto/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrRoundAlreadyDrawn is returned by InsertWinnersAndMarkDrawn when the
	// conditional isDrawn=false flip matched nothing.
	ErrRoundAlreadyDrawn = errors.New("round already drawn")
	// ErrDuplicateOrderIndex is returned when a round reuses an orderIndex.
	ErrDuplicateOrderIndex = errors.New("order index already used in activity")
	// ErrOrderBeforeDrawn is returned when a pending round would be placed
	// ahead of a drawn round of the same activity.
	ErrOrderBeforeDrawn = errors.New("order index precedes a drawn round")
	// ErrRoundOutOfOrder is returned by InsertWinnersAndMarkDrawn when a
	// lower-ordered round of the activity is still pending.
	ErrRoundOutOfOrder = errors.New("an earlier round is still pending")
	// ErrRoundSetMismatch is returned by Reorder when the ids are not exactly
	// the activity's rounds.
	ErrRoundSetMismatch = errors.New("round ids do not match the activity's rounds")
)

// DrawnRoundError names the drawn round that blocked a configuration write.
// It matches ErrRoundAlreadyDrawn.
type DrawnRoundError struct {
	RoundID int64
}

func (e *DrawnRoundError) Error() string {
	return fmt.Sprintf("round %d already drawn", e.RoundID)
}

func (e *DrawnRoundError) Is(target error) bool {
	return target == ErrRoundAlreadyDrawn
}

// BlockedRoundError names the pending round that blocked a draw. It matches
// ErrRoundOutOfOrder.
type BlockedRoundError struct {
	BlockingRoundID    int64
	BlockingOrderIndex int
}

func (e *BlockedRoundError) Error() string {
	return fmt.Sprintf("round %d at order index %d is still pending", e.BlockingRoundID, e.BlockingOrderIndex)
}

func (e *BlockedRoundError) Is(target error) bool {
	return target == ErrRoundOutOfOrder
}

// ActivityRepository defines the interface for activity data operations
type ActivityRepository interface {
	Create(ctx context.Context, activity *models.Activity) error
	FindByID(ctx context.Context, id int64) (*models.Activity, error)
	FindAll(ctx context.Context) ([]*models.Activity, error)
	Update(ctx context.Context, activity *models.Activity) error
	// Delete removes the activity with its rounds, participants and winners.
	Delete(ctx context.Context, id int64) error
}

// RoundRepository defines the interface for round configuration. It never
// touches isDrawn; only DrawStore flips it. Every write checks placement in
// the same transaction: a drawn round is never rewritten or deleted
// (DrawnRoundError) and a pending round never lands before a drawn one
// (ErrOrderBeforeDrawn).
type RoundRepository interface {
	Create(ctx context.Context, round *models.Round) error
	FindByID(ctx context.Context, id int64) (*models.Round, error)
	// FindByActivity returns rounds ordered by OrderIndex.
	FindByActivity(ctx context.Context, activityID int64) ([]models.Round, error)
	Update(ctx context.Context, round *models.Round) error
	Delete(ctx context.Context, id int64) error
	// Reorder gives roundIDs[i] orderIndex i. roundIDs must list every round
	// of the activity exactly once.
	Reorder(ctx context.Context, activityID int64, roundIDs []int64) error
}

// ParticipantRepository defines the interface for roster data operations
type ParticipantRepository interface {
	CreateMany(ctx context.Context, participants []*models.Participant) error
	FindByID(ctx context.Context, id int64) (*models.Participant, error)
	FindByActivity(ctx context.Context, activityID int64) ([]models.Participant, error)
	CountByActivity(ctx context.Context, activityID int64) (int, error)
	Update(ctx context.Context, participant *models.Participant) error
	Delete(ctx context.Context, id int64) error
}

// WinnerRepository is the read side of winner records.
type WinnerRepository interface {
	// FindByRound returns winners ordered by drawnAt then id.
	FindByRound(ctx context.Context, roundID int64) ([]models.Winner, error)
	FindByActivity(ctx context.Context, activityID int64) ([]models.Winner, error)
}

// DrawStore is everything the draw coordinator needs from storage. The two
// write methods are each one atomic unit: either winners exist and the round
// is drawn, or neither.
type DrawStore interface {
	LoadActivity(ctx context.Context, id int64) (*models.Activity, error)
	LoadRound(ctx context.Context, id int64) (*models.Round, error)
	LoadRoundsByActivity(ctx context.Context, activityID int64) ([]models.Round, error)
	LoadRosterByActivity(ctx context.Context, activityID int64) ([]models.Participant, error)
	LoadWinnersByActivity(ctx context.Context, activityID int64) ([]models.Winner, error)
	LoadWinnersByRound(ctx context.Context, roundID int64) ([]models.Winner, error)
	// InsertWinnersAndMarkDrawn flips isDrawn from false to true and inserts
	// one winner per participant id. Returns ErrRoundAlreadyDrawn when the
	// round was drawn by someone else first and BlockedRoundError when a
	// lower-ordered round is pending at commit time.
	InsertWinnersAndMarkDrawn(ctx context.Context, roundID int64, participantIDs []int64, drawnAt time.Time) ([]models.Winner, error)
	// DeleteWinnersAndUnmarkDrawn deletes the round's winners and sets
	// isDrawn=false. It returns the number of winners removed.
	DeleteWinnersAndUnmarkDrawn(ctx context.Context, roundID int64) (int, error)
}

// AdminUserRepository defines the interface for admin user data operations
type AdminUserRepository interface {
	Create(ctx context.Context, adminUser *models.AdminUser) (*models.AdminUser, error)
	FindByEmail(ctx context.Context, email string) (*models.AdminUser, error)
}

// Repositories bundles one storage driver's implementations.
type Repositories struct {
	Activities   ActivityRepository
	Rounds       RoundRepository
	Participants ParticipantRepository
	Winners      WinnerRepository
	Draws        DrawStore
	AdminUsers   AdminUserRepository
	// Close releases the underlying driver.
	Close func(ctx context.Context) error
}
