package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"github.com/MarioJames/super-lotto/internal/lottery"
	"github.com/MarioJames/super-lotto/internal/models"
	"github.com/MarioJames/super-lotto/internal/repositories"
)

// Ensure DrawServiceImpl implements DrawService
var _ DrawService = (*DrawServiceImpl)(nil)

// DrawServiceImpl serialises draws and redraws per activity. A second call
// that arrives while the activity is busy is rejected with
// ConcurrentDrawError instead of queueing; the store's conditional flip is
// the backstop across processes.
type DrawServiceImpl struct {
	store    repositories.DrawStore
	selector *lottery.Selector
	locks    *activityLocks
	now      func() time.Time
}

// NewDrawService creates a new draw coordinator. A nil selector draws from
// lottery.NewRandomSource.
func NewDrawService(store repositories.DrawStore, selector *lottery.Selector) *DrawServiceImpl {
	if selector == nil {
		selector = lottery.NewSelector(nil)
	}
	return &DrawServiceImpl{
		store:    store,
		selector: selector,
		locks:    newActivityLocks(),
		now:      time.Now,
	}
}

// ExecuteDraw runs load, order check, eligibility, insufficiency check,
// selection and the atomic persist, in that order, under the activity lock.
func (s *DrawServiceImpl) ExecuteDraw(ctx context.Context, roundID int64) (*models.DrawResult, error) {
	round, err := s.store.LoadRound(ctx, roundID)
	if err != nil {
		return nil, s.notFound(err, "round", roundID)
	}

	if !s.locks.tryAcquire(round.ActivityID) {
		slog.Warn("ExecuteDraw: activity busy", "roundId", roundID, "activityId", round.ActivityID)
		return nil, &lottery.ConcurrentDrawError{RoundID: roundID, ActivityID: round.ActivityID}
	}
	defer s.locks.release(round.ActivityID)

	// Re-read under the lock; the first read only located the activity.
	round, err = s.store.LoadRound(ctx, roundID)
	if err != nil {
		return nil, s.notFound(err, "round", roundID)
	}
	if round.IsDrawn {
		slog.Warn("ExecuteDraw: round already drawn", "roundId", roundID)
		return nil, &lottery.AlreadyDrawnError{RoundID: roundID}
	}

	rounds, err := s.store.LoadRoundsByActivity(ctx, round.ActivityID)
	if err != nil {
		slog.Error("ExecuteDraw: failed to load rounds", "error", err, "activityId", round.ActivityID)
		return nil, fmt.Errorf("failed to load rounds: %w", err)
	}
	if blocking := lottery.BlockingRound(round.OrderIndex, rounds); blocking != nil {
		slog.Warn("ExecuteDraw: round out of order", "roundId", roundID, "blockingRoundId", blocking.ID)
		return nil, &lottery.RoundOutOfOrderError{
			RoundID:            roundID,
			BlockingRoundID:    blocking.ID,
			BlockingOrderIndex: blocking.OrderIndex,
		}
	}

	eligible, err := s.eligible(ctx, round.ActivityID)
	if err != nil {
		return nil, err
	}
	if short, _ := lottery.CheckInsufficient(len(eligible), round.WinnerCount); short {
		slog.Warn("ExecuteDraw: insufficient participants", "roundId", roundID,
			"required", round.WinnerCount, "available", len(eligible))
		return nil, &lottery.InsufficientParticipantsError{Required: round.WinnerCount, Available: len(eligible)}
	}

	picked, err := s.selector.Select(eligible, round.WinnerCount)
	if err != nil {
		slog.Error("ExecuteDraw: selector rejected count", "error", err, "roundId", roundID)
		return nil, err
	}
	participantIDs := make([]int64, 0, len(picked))
	for _, p := range picked {
		participantIDs = append(participantIDs, p.ID)
	}

	// A started draw finishes even if the caller goes away.
	drawnAt := s.now().UTC()
	winners, err := s.store.InsertWinnersAndMarkDrawn(context.WithoutCancel(ctx), roundID, participantIDs, drawnAt)
	if err != nil {
		if errors.Is(err, repositories.ErrRoundAlreadyDrawn) {
			slog.Warn("ExecuteDraw: lost conditional flip", "roundId", roundID)
			return nil, &lottery.AlreadyDrawnError{RoundID: roundID}
		}
		var blocked *repositories.BlockedRoundError
		if errors.As(err, &blocked) {
			slog.Warn("ExecuteDraw: earlier round configured concurrently", "roundId", roundID, "blockingRoundId", blocked.BlockingRoundID)
			return nil, &lottery.RoundOutOfOrderError{
				RoundID:            roundID,
				BlockingRoundID:    blocked.BlockingRoundID,
				BlockingOrderIndex: blocked.BlockingOrderIndex,
			}
		}
		slog.Error("ExecuteDraw: failed to persist winners", "error", err, "roundId", roundID)
		return nil, fmt.Errorf("failed to persist draw: %w", err)
	}

	round.IsDrawn = true
	round.DrawnAt = &drawnAt
	round.UpdatedAt = drawnAt

	byID := make(map[int64]models.Participant, len(picked))
	for _, p := range picked {
		byID[p.ID] = p
	}
	result := &models.DrawResult{
		Round:   *round,
		Winners: joinWinners(winners, byID, *round),
		DrawnAt: drawnAt,
	}
	slog.Info("Draw executed", "roundId", roundID, "activityId", round.ActivityID, "winners", len(winners))
	return result, nil
}

// GetDrawResult returns winners with participant and round detail.
func (s *DrawServiceImpl) GetDrawResult(ctx context.Context, roundID int64) ([]models.WinnerDetail, error) {
	round, err := s.store.LoadRound(ctx, roundID)
	if err != nil {
		return nil, s.notFound(err, "round", roundID)
	}
	winners, err := s.store.LoadWinnersByRound(ctx, roundID)
	if err != nil {
		slog.Error("GetDrawResult: failed to load winners", "error", err, "roundId", roundID)
		return nil, fmt.Errorf("failed to load winners: %w", err)
	}
	if len(winners) == 0 {
		return []models.WinnerDetail{}, nil
	}
	roster, err := s.store.LoadRosterByActivity(ctx, round.ActivityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}
	byID := make(map[int64]models.Participant, len(roster))
	for _, p := range roster {
		byID[p.ID] = p
	}
	return joinWinners(winners, byID, *round), nil
}

// Redraw is allowed for any round regardless of order position.
func (s *DrawServiceImpl) Redraw(ctx context.Context, roundID int64) (int, error) {
	round, err := s.store.LoadRound(ctx, roundID)
	if err != nil {
		return 0, s.notFound(err, "round", roundID)
	}
	if !s.locks.tryAcquire(round.ActivityID) {
		slog.Warn("Redraw: activity busy", "roundId", roundID, "activityId", round.ActivityID)
		return 0, &lottery.ConcurrentDrawError{RoundID: roundID, ActivityID: round.ActivityID}
	}
	defer s.locks.release(round.ActivityID)

	deleted, err := s.store.DeleteWinnersAndUnmarkDrawn(context.WithoutCancel(ctx), roundID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return 0, &lottery.NotFoundError{Entity: "round", ID: roundID}
		}
		slog.Error("Redraw: failed to reset round", "error", err, "roundId", roundID)
		return 0, fmt.Errorf("failed to reset round: %w", err)
	}
	slog.Info("Round redrawn", "roundId", roundID, "activityId", round.ActivityID, "deletedWinners", deleted)
	return deleted, nil
}

// ListAvailableParticipants is an optimistic pre-check only; ExecuteDraw
// re-computes eligibility under the lock.
func (s *DrawServiceImpl) ListAvailableParticipants(ctx context.Context, activityID int64) ([]models.Participant, error) {
	return s.eligible(ctx, activityID)
}

func (s *DrawServiceImpl) eligible(ctx context.Context, activityID int64) ([]models.Participant, error) {
	activity, err := s.store.LoadActivity(ctx, activityID)
	if err != nil {
		return nil, s.notFound(err, "activity", activityID)
	}
	roster, err := s.store.LoadRosterByActivity(ctx, activityID)
	if err != nil {
		slog.Error("failed to load roster", "error", err, "activityId", activityID)
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}
	var history []models.Winner
	if !activity.AllowMultiWin {
		history, err = s.store.LoadWinnersByActivity(ctx, activityID)
		if err != nil {
			slog.Error("failed to load winner history", "error", err, "activityId", activityID)
			return nil, fmt.Errorf("failed to load winners: %w", err)
		}
	}
	return lottery.Eligible(roster, history, activity.AllowMultiWin), nil
}

func (s *DrawServiceImpl) notFound(err error, entity string, id int64) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return &lottery.NotFoundError{Entity: entity, ID: id}
	}
	slog.Error("failed to load "+entity, "error", err, "id", id)
	return fmt.Errorf("failed to load %s %d: %w", entity, id, err)
}

func joinWinners(winners []models.Winner, participants map[int64]models.Participant, round models.Round) []models.WinnerDetail {
	out := make([]models.WinnerDetail, 0, len(winners))
	for _, w := range winners {
		d := models.WinnerDetail{Winner: w, Round: round}
		if p, ok := participants[w.ParticipantID]; ok {
			p := p
			d.Participant = &p
		}
		out = append(out, d)
	}
	return out
}

// activityLocks is a set of busy activity ids.
type activityLocks struct {
	mu   sync.Mutex
	busy map[int64]struct{}
}

func newActivityLocks() *activityLocks {
	return &activityLocks{busy: make(map[int64]struct{})}
}

func (l *activityLocks) tryAcquire(activityID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.busy[activityID]; ok {
		return false
	}
	l.busy[activityID] = struct{}{}
	return true
}

func (l *activityLocks) release(activityID int64) {
	l.mu.Lock()
	delete(l.busy, activityID)
	l.mu.Unlock()
}
