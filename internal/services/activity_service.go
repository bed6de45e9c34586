package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/exp/slog"

	"github.com/MarioJames/super-lotto/internal/lottery"
	"github.com/MarioJames/super-lotto/internal/models"
	"github.com/MarioJames/super-lotto/internal/repositories"
	"github.com/MarioJames/super-lotto/internal/roster"
)

const (
	MinAnimationDurationMs     = 1000
	MaxAnimationDurationMs     = 60000
	DefaultAnimationDurationMs = 5000
)

// Ensure activityService implements ActivityService
var _ ActivityService = (*activityService)(nil)

type activityService struct {
	activities   repositories.ActivityRepository
	rounds       repositories.RoundRepository
	participants repositories.ParticipantRepository
	winners      repositories.WinnerRepository

	defaultAnimationMs int
}

// NewActivityService creates the configuration service. defaultAnimationMs
// is used when a round omits animationDurationMs; 0 selects 5000.
func NewActivityService(repos repositories.Repositories, defaultAnimationMs int) ActivityService {
	if defaultAnimationMs == 0 {
		defaultAnimationMs = DefaultAnimationDurationMs
	}
	return &activityService{
		activities:         repos.Activities,
		rounds:             repos.Rounds,
		participants:       repos.Participants,
		winners:            repos.Winners,
		defaultAnimationMs: defaultAnimationMs,
	}
}

func (s *activityService) CreateActivity(ctx context.Context, input models.ActivityInput) (*models.Activity, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, &lottery.ValidationError{Field: "name", Message: "is required"}
	}
	activity := &models.Activity{
		Name:          name,
		Description:   strings.TrimSpace(input.Description),
		AllowMultiWin: input.AllowMultiWin,
	}
	if err := s.activities.Create(ctx, activity); err != nil {
		slog.Error("Failed to create activity", "error", err)
		return nil, fmt.Errorf("failed to create activity: %w", err)
	}
	slog.Info("Activity created", "activityId", activity.ID, "allowMultiWin", activity.AllowMultiWin)
	return activity, nil
}

func (s *activityService) GetActivity(ctx context.Context, id int64) (*models.ActivityDetail, error) {
	activity, err := s.findActivity(ctx, id)
	if err != nil {
		return nil, err
	}
	rounds, err := s.rounds.FindByActivity(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load rounds: %w", err)
	}
	count, err := s.participants.CountByActivity(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count participants: %w", err)
	}
	slots := 0
	for _, r := range rounds {
		slots += r.WinnerCount
	}
	return &models.ActivityDetail{
		Activity:         *activity,
		Rounds:           rounds,
		ParticipantCount: count,
		TotalWinnerSlots: slots,
		CapacityWarning:  !activity.AllowMultiWin && slots > count,
	}, nil
}

func (s *activityService) ListActivities(ctx context.Context) ([]*models.Activity, error) {
	return s.activities.FindAll(ctx)
}

func (s *activityService) UpdateActivity(ctx context.Context, id int64, input models.ActivityInput) (*models.Activity, error) {
	activity, err := s.findActivity(ctx, id)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, &lottery.ValidationError{Field: "name", Message: "is required"}
	}
	activity.Name = name
	activity.Description = strings.TrimSpace(input.Description)
	activity.AllowMultiWin = input.AllowMultiWin
	if err := s.activities.Update(ctx, activity); err != nil {
		return nil, s.translate(err, "activity", id)
	}
	return activity, nil
}

func (s *activityService) DeleteActivity(ctx context.Context, id int64) error {
	if err := s.activities.Delete(ctx, id); err != nil {
		return s.translate(err, "activity", id)
	}
	slog.Info("Activity deleted", "activityId", id)
	return nil
}

// ConfigureRound appends a round when OrderIndex is nil. An explicit
// OrderIndex may not precede a drawn round.
func (s *activityService) ConfigureRound(ctx context.Context, activityID int64, input models.RoundInput) (*models.Round, error) {
	if _, err := s.findActivity(ctx, activityID); err != nil {
		return nil, err
	}
	existing, err := s.rounds.FindByActivity(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rounds: %w", err)
	}

	round := &models.Round{
		ActivityID:          activityID,
		PrizeName:           input.PrizeName,
		WinnerCount:         input.WinnerCount,
		LotteryMode:         input.LotteryMode,
		AnimationDurationMs: input.AnimationDurationMs,
	}
	if input.OrderIndex != nil {
		round.OrderIndex = *input.OrderIndex
	} else {
		for _, r := range existing {
			if r.OrderIndex >= round.OrderIndex {
				round.OrderIndex = r.OrderIndex + 1
			}
		}
	}
	if err := s.validateRound(round); err != nil {
		return nil, err
	}

	if err := s.rounds.Create(ctx, round); err != nil {
		if mapped := roundWriteError(err, round.OrderIndex); mapped != nil {
			return nil, mapped
		}
		slog.Error("Failed to create round", "error", err, "activityId", activityID)
		return nil, fmt.Errorf("failed to create round: %w", err)
	}
	slog.Info("Round configured", "roundId", round.ID, "activityId", activityID, "orderIndex", round.OrderIndex)
	return round, nil
}

func (s *activityService) GetRound(ctx context.Context, id int64) (*models.Round, error) {
	round, err := s.rounds.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, "round", id)
	}
	return round, nil
}

// UpdateRound applies the non-nil fields of patch to a pending round.
func (s *activityService) UpdateRound(ctx context.Context, id int64, patch models.RoundUpdate) (*models.Round, error) {
	round, err := s.GetRound(ctx, id)
	if err != nil {
		return nil, err
	}
	if round.IsDrawn {
		return nil, &lottery.AlreadyDrawnError{RoundID: id}
	}
	if patch.OrderIndex != nil {
		round.OrderIndex = *patch.OrderIndex
	}
	if patch.PrizeName != nil {
		round.PrizeName = *patch.PrizeName
	}
	if patch.WinnerCount != nil {
		round.WinnerCount = *patch.WinnerCount
	}
	if patch.LotteryMode != nil {
		round.LotteryMode = *patch.LotteryMode
	}
	if patch.AnimationDurationMs != nil {
		round.AnimationDurationMs = *patch.AnimationDurationMs
	}
	if err := s.validateRound(round); err != nil {
		return nil, err
	}
	if err := s.rounds.Update(ctx, round); err != nil {
		if mapped := roundWriteError(err, round.OrderIndex); mapped != nil {
			return nil, mapped
		}
		return nil, s.translate(err, "round", id)
	}
	return round, nil
}

func (s *activityService) DeleteRound(ctx context.Context, id int64) error {
	if err := s.rounds.Delete(ctx, id); err != nil {
		if mapped := roundWriteError(err, 0); mapped != nil {
			return mapped
		}
		return s.translate(err, "round", id)
	}
	slog.Info("Round deleted", "roundId", id)
	return nil
}

// ReorderRounds gives roundIDs[i] orderIndex i and returns the activity's
// rounds in their new order. Drawn rounds must keep their position.
func (s *activityService) ReorderRounds(ctx context.Context, activityID int64, roundIDs []int64) ([]models.Round, error) {
	if _, err := s.findActivity(ctx, activityID); err != nil {
		return nil, err
	}
	if len(roundIDs) == 0 {
		return nil, &lottery.ValidationError{Field: "roundIds", Message: "at least one round id is required"}
	}
	if err := s.rounds.Reorder(ctx, activityID, roundIDs); err != nil {
		if errors.Is(err, repositories.ErrRoundSetMismatch) {
			return nil, &lottery.ValidationError{Field: "roundIds", Message: "must list every round of the activity exactly once"}
		}
		if mapped := roundWriteError(err, 0); mapped != nil {
			return nil, mapped
		}
		slog.Error("Failed to reorder rounds", "error", err, "activityId", activityID)
		return nil, s.translate(err, "activity", activityID)
	}
	slog.Info("Rounds reordered", "activityId", activityID, "count", len(roundIDs))
	return s.rounds.FindByActivity(ctx, activityID)
}

// GetActivityWinners returns every winner of the activity with participant
// and round detail, in round order.
func (s *activityService) GetActivityWinners(ctx context.Context, activityID int64) ([]models.WinnerDetail, error) {
	if _, err := s.findActivity(ctx, activityID); err != nil {
		return nil, err
	}
	winners, err := s.winners.FindByActivity(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load winners: %w", err)
	}
	if len(winners) == 0 {
		return []models.WinnerDetail{}, nil
	}
	rounds, err := s.rounds.FindByActivity(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rounds: %w", err)
	}
	roster, err := s.participants.FindByActivity(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}
	byID := make(map[int64]models.Participant, len(roster))
	for _, p := range roster {
		byID[p.ID] = p
	}
	byRound := make(map[int64][]models.Winner, len(rounds))
	for _, w := range winners {
		byRound[w.RoundID] = append(byRound[w.RoundID], w)
	}
	out := make([]models.WinnerDetail, 0, len(winners))
	for _, r := range rounds {
		out = append(out, joinWinners(byRound[r.ID], byID, r)...)
	}
	return out, nil
}

// validateRound fills defaults and checks the configurable fields.
func (s *activityService) validateRound(round *models.Round) error {
	round.PrizeName = strings.TrimSpace(round.PrizeName)
	if round.PrizeName == "" {
		return &lottery.ValidationError{Field: "prizeName", Message: "is required"}
	}
	if round.WinnerCount < 1 {
		return &lottery.ValidationError{Field: "winnerCount", Message: "must be at least 1"}
	}
	if round.OrderIndex < 0 {
		return &lottery.ValidationError{Field: "orderIndex", Message: "must not be negative"}
	}

	if round.LotteryMode == "" {
		round.LotteryMode = models.LotteryModeWheel
	}
	if !round.LotteryMode.Valid() {
		return &lottery.ValidationError{Field: "lotteryMode", Message: fmt.Sprintf("unknown mode %q", round.LotteryMode)}
	}

	if round.AnimationDurationMs == 0 {
		round.AnimationDurationMs = s.defaultAnimationMs
	}
	if round.AnimationDurationMs < MinAnimationDurationMs || round.AnimationDurationMs > MaxAnimationDurationMs {
		return &lottery.ValidationError{
			Field:   "animationDurationMs",
			Message: fmt.Sprintf("must be between %d and %d", MinAnimationDurationMs, MaxAnimationDurationMs),
		}
	}
	return nil
}

func (s *activityService) AddParticipants(ctx context.Context, activityID int64, inputs []models.ParticipantInput) ([]models.Participant, error) {
	if _, err := s.findActivity(ctx, activityID); err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, &lottery.ValidationError{Field: "participants", Message: "at least one participant is required"}
	}
	batch := make([]*models.Participant, 0, len(inputs))
	for i, in := range inputs {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return nil, &lottery.ValidationError{Field: fmt.Sprintf("participants[%d].name", i), Message: "is required"}
		}
		batch = append(batch, &models.Participant{
			ActivityID: activityID,
			Name:       name,
			EmployeeID: strings.TrimSpace(in.EmployeeID),
			Department: strings.TrimSpace(in.Department),
			Email:      strings.TrimSpace(in.Email),
		})
	}
	if err := s.participants.CreateMany(ctx, batch); err != nil {
		slog.Error("Failed to add participants", "error", err, "activityId", activityID)
		return nil, fmt.Errorf("failed to add participants: %w", err)
	}
	out := make([]models.Participant, 0, len(batch))
	for _, p := range batch {
		out = append(out, *p)
	}
	slog.Info("Participants added", "activityId", activityID, "count", len(out))
	return out, nil
}

func (s *activityService) ImportParticipants(ctx context.Context, activityID int64, csv io.Reader) (*models.ImportResult, error) {
	if _, err := s.findActivity(ctx, activityID); err != nil {
		return nil, err
	}
	parsed, err := roster.Parse(csv)
	if err != nil {
		return nil, &lottery.ValidationError{Field: "file", Message: err.Error()}
	}
	result := &models.ImportResult{TotalRows: parsed.TotalRows, Errors: []models.RowIssue{}}
	for _, e := range parsed.Errors {
		result.Errors = append(result.Errors, models.RowIssue{Row: e.Row, Message: e.Message})
	}
	if len(parsed.Participants) == 0 {
		return result, nil
	}
	created, err := s.AddParticipants(ctx, activityID, parsed.Participants)
	if err != nil {
		return nil, err
	}
	result.Created = len(created)
	return result, nil
}

func (s *activityService) ListParticipants(ctx context.Context, activityID int64) ([]models.Participant, error) {
	if _, err := s.findActivity(ctx, activityID); err != nil {
		return nil, err
	}
	return s.participants.FindByActivity(ctx, activityID)
}

func (s *activityService) UpdateParticipant(ctx context.Context, id int64, input models.ParticipantInput) (*models.Participant, error) {
	participant, err := s.participants.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, "participant", id)
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, &lottery.ValidationError{Field: "name", Message: "is required"}
	}
	participant.Name = name
	participant.EmployeeID = strings.TrimSpace(input.EmployeeID)
	participant.Department = strings.TrimSpace(input.Department)
	participant.Email = strings.TrimSpace(input.Email)
	if err := s.participants.Update(ctx, participant); err != nil {
		return nil, s.translate(err, "participant", id)
	}
	return participant, nil
}

// DeleteParticipant leaves winner rows in place; their detail shows a nil participant.
func (s *activityService) DeleteParticipant(ctx context.Context, id int64) error {
	if err := s.participants.Delete(ctx, id); err != nil {
		return s.translate(err, "participant", id)
	}
	return nil
}

func (s *activityService) findActivity(ctx context.Context, id int64) (*models.Activity, error) {
	activity, err := s.activities.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, "activity", id)
	}
	return activity, nil
}

func (s *activityService) translate(err error, entity string, id int64) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return &lottery.NotFoundError{Entity: entity, ID: id}
	}
	return fmt.Errorf("%s %d: %w", entity, id, err)
}

// roundWriteError maps the placement errors every round store returns, or
// returns nil for anything else.
func roundWriteError(err error, orderIndex int) error {
	var drawn *repositories.DrawnRoundError
	switch {
	case errors.As(err, &drawn):
		return &lottery.AlreadyDrawnError{RoundID: drawn.RoundID}
	case errors.Is(err, repositories.ErrDuplicateOrderIndex):
		return &lottery.ValidationError{Field: "orderIndex", Message: fmt.Sprintf("order index %d is already used in this activity", orderIndex)}
	case errors.Is(err, repositories.ErrOrderBeforeDrawn):
		return &lottery.ValidationError{Field: "orderIndex", Message: "a pending round cannot be placed before a drawn round"}
	}
	return nil
}
