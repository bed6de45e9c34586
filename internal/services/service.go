package services

import (
	"context"
	"io"

	"github.com/MarioJames/super-lotto/internal/models"
)

// DrawService is the draw coordinator: the only component that writes
// winners or flips a round's isDrawn flag.
type DrawService interface {
	// ExecuteDraw selects and persists winners for a pending round.
	ExecuteDraw(ctx context.Context, roundID int64) (*models.DrawResult, error)

	// GetDrawResult returns the persisted winners of a round, empty when pending.
	GetDrawResult(ctx context.Context, roundID int64) ([]models.WinnerDetail, error)

	// Redraw deletes a round's winners and returns it to pending.
	Redraw(ctx context.Context, roundID int64) (int, error)

	// ListAvailableParticipants returns the activity's currently eligible roster.
	ListAvailableParticipants(ctx context.Context, activityID int64) ([]models.Participant, error)
}

// ActivityService covers configuration of activities, rounds and rosters.
type ActivityService interface {
	CreateActivity(ctx context.Context, input models.ActivityInput) (*models.Activity, error)
	GetActivity(ctx context.Context, id int64) (*models.ActivityDetail, error)
	ListActivities(ctx context.Context) ([]*models.Activity, error)
	UpdateActivity(ctx context.Context, id int64, input models.ActivityInput) (*models.Activity, error)
	DeleteActivity(ctx context.Context, id int64) error

	ConfigureRound(ctx context.Context, activityID int64, input models.RoundInput) (*models.Round, error)
	GetRound(ctx context.Context, id int64) (*models.Round, error)
	UpdateRound(ctx context.Context, id int64, patch models.RoundUpdate) (*models.Round, error)
	DeleteRound(ctx context.Context, id int64) error
	ReorderRounds(ctx context.Context, activityID int64, roundIDs []int64) ([]models.Round, error)
	GetActivityWinners(ctx context.Context, activityID int64) ([]models.WinnerDetail, error)

	AddParticipants(ctx context.Context, activityID int64, inputs []models.ParticipantInput) ([]models.Participant, error)
	ImportParticipants(ctx context.Context, activityID int64, csv io.Reader) (*models.ImportResult, error)
	ListParticipants(ctx context.Context, activityID int64) ([]models.Participant, error)
	UpdateParticipant(ctx context.Context, id int64, input models.ParticipantInput) (*models.Participant, error)
	DeleteParticipant(ctx context.Context, id int64) error
}

// AuthService defines the interface for admin authentication
type AuthService interface {
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error)
	// EnsureAdmin creates the bootstrap admin if no account uses email yet.
	EnsureAdmin(ctx context.Context, email, password string) error
}
