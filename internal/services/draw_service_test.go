package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarioJames/super-lotto/internal/lottery"
	"github.com/MarioJames/super-lotto/internal/models"
	"github.com/MarioJames/super-lotto/internal/repositories"
)

func newDrawService(store repositories.DrawStore) *DrawServiceImpl {
	return NewDrawService(store, lottery.NewSelector(lottery.NewSeededSource(1)))
}

func participantIDs(ds []models.WinnerDetail) []int64 {
	out := make([]int64, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Winner.ParticipantID)
	}
	return out
}

func TestExecuteDrawFiveParticipantsTwoWinners(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, []string{"A", "B", "C", "D", "E"}, 2, 3)
	svc := newDrawService(f.repos.Draws)

	result, err := svc.ExecuteDraw(ctx, f.rounds[0].ID)
	require.NoError(t, err)
	require.Len(t, result.Winners, 2)
	assert.True(t, result.Round.IsDrawn)
	assert.False(t, result.DrawnAt.IsZero())
	for _, w := range result.Winners {
		require.NotNil(t, w.Participant)
		assert.Equal(t, w.Winner.ParticipantID, w.Participant.ID)
	}
	assert.NotEqual(t, result.Winners[0].Winner.ParticipantID, result.Winners[1].Winner.ParticipantID)

	available, err := svc.ListAvailableParticipants(ctx, f.activity.ID)
	require.NoError(t, err)
	assert.Len(t, available, 3)
	for _, p := range available {
		assert.NotContains(t, participantIDs(result.Winners), p.ID)
	}

	_, err = svc.ExecuteDraw(ctx, f.rounds[0].ID)
	var already *lottery.AlreadyDrawnError
	require.True(t, errors.As(err, &already))
	assert.Equal(t, f.rounds[0].ID, already.RoundID)

	stored, err := svc.GetDrawResult(ctx, f.rounds[0].ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, participantIDs(result.Winners), participantIDs(stored))
}

func TestExecuteDrawInsufficientPersistsNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, []string{"A", "B", "C"}, 4)
	svc := newDrawService(f.repos.Draws)

	_, err := svc.ExecuteDraw(ctx, f.rounds[0].ID)
	var insufficient *lottery.InsufficientParticipantsError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 4, insufficient.Required)
	assert.Equal(t, 3, insufficient.Available)
	assert.Equal(t, 1, insufficient.Shortage())

	round, err := f.repos.Draws.LoadRound(ctx, f.rounds[0].ID)
	require.NoError(t, err)
	assert.False(t, round.IsDrawn)
	winners, err := f.repos.Winners.FindByRound(ctx, f.rounds[0].ID)
	require.NoError(t, err)
	assert.Empty(t, winners)
}

func TestExecuteDrawEnforcesRoundOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, []string{"A", "B", "C", "D", "E", "F"}, 1, 1, 1)
	svc := newDrawService(f.repos.Draws)

	_, err := svc.ExecuteDraw(ctx, f.rounds[2].ID)
	var outOfOrder *lottery.RoundOutOfOrderError
	require.True(t, errors.As(err, &outOfOrder))
	assert.Equal(t, f.rounds[0].ID, outOfOrder.BlockingRoundID)
	assert.Equal(t, 0, outOfOrder.BlockingOrderIndex)

	_, err = svc.ExecuteDraw(ctx, f.rounds[0].ID)
	require.NoError(t, err)
	_, err = svc.ExecuteDraw(ctx, f.rounds[2].ID)
	require.True(t, errors.As(err, &outOfOrder))
	assert.Equal(t, f.rounds[1].ID, outOfOrder.BlockingRoundID)

	_, err = svc.ExecuteDraw(ctx, f.rounds[1].ID)
	require.NoError(t, err)
	_, err = svc.ExecuteDraw(ctx, f.rounds[2].ID)
	require.NoError(t, err)
}

func TestExecuteDrawUnknownRound(t *testing.T) {
	f := newFixture(t, false, []string{"A"})
	svc := newDrawService(f.repos.Draws)

	_, err := svc.ExecuteDraw(context.Background(), 404)
	var notFound *lottery.NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "round", notFound.Entity)

	_, err = svc.GetDrawResult(context.Background(), 404)
	assert.ErrorIs(t, err, lottery.ErrNotFound)

	_, err = svc.ListAvailableParticipants(context.Background(), 999)
	assert.ErrorIs(t, err, lottery.ErrNotFound)
}

func TestGetDrawResultPendingIsEmpty(t *testing.T) {
	f := newFixture(t, false, []string{"A", "B"}, 1)
	svc := newDrawService(f.repos.Draws)

	winners, err := svc.GetDrawResult(context.Background(), f.rounds[0].ID)
	require.NoError(t, err)
	assert.NotNil(t, winners)
	assert.Empty(t, winners)
}

func TestRedrawRestoresPoolAndAllowsNewDraw(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, []string{"A", "B", "C"}, 3, 1)
	svc := newDrawService(f.repos.Draws)

	_, err := svc.ExecuteDraw(ctx, f.rounds[0].ID)
	require.NoError(t, err)
	available, err := svc.ListAvailableParticipants(ctx, f.activity.ID)
	require.NoError(t, err)
	assert.Empty(t, available)

	_, err = svc.ExecuteDraw(ctx, f.rounds[1].ID)
	var insufficient *lottery.InsufficientParticipantsError
	require.True(t, errors.As(err, &insufficient))

	deleted, err := svc.Redraw(ctx, f.rounds[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	round, err := f.repos.Draws.LoadRound(ctx, f.rounds[0].ID)
	require.NoError(t, err)
	assert.False(t, round.IsDrawn)
	winners, err := svc.GetDrawResult(ctx, f.rounds[0].ID)
	require.NoError(t, err)
	assert.Empty(t, winners)

	available, err = svc.ListAvailableParticipants(ctx, f.activity.ID)
	require.NoError(t, err)
	assert.Len(t, available, 3)

	result, err := svc.ExecuteDraw(ctx, f.rounds[0].ID)
	require.NoError(t, err)
	assert.Len(t, result.Winners, 3)
}

func TestRedrawIgnoresRoundOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, []string{"A", "B", "C", "D"}, 1, 1)
	svc := newDrawService(f.repos.Draws)

	_, err := svc.ExecuteDraw(ctx, f.rounds[0].ID)
	require.NoError(t, err)
	_, err = svc.ExecuteDraw(ctx, f.rounds[1].ID)
	require.NoError(t, err)

	deleted, err := svc.Redraw(ctx, f.rounds[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	deleted, err = svc.Redraw(ctx, f.rounds[0].ID)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	_, err = svc.Redraw(ctx, 999)
	assert.ErrorIs(t, err, lottery.ErrNotFound)
}

func TestMultiWinKeepsWinnersEligible(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true, []string{"A", "B"}, 2, 2)
	svc := newDrawService(f.repos.Draws)

	_, err := svc.ExecuteDraw(ctx, f.rounds[0].ID)
	require.NoError(t, err)
	available, err := svc.ListAvailableParticipants(ctx, f.activity.ID)
	require.NoError(t, err)
	assert.Len(t, available, 2)

	result, err := svc.ExecuteDraw(ctx, f.rounds[1].ID)
	require.NoError(t, err)
	assert.Len(t, result.Winners, 2)
}

func TestNoParticipantWinsTwice(t *testing.T) {
	ctx := context.Background()
	names := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"}
	f := newFixture(t, false, names, 3, 3, 3, 1)
	svc := NewDrawService(f.repos.Draws, nil)

	for _, r := range f.rounds {
		_, err := svc.ExecuteDraw(ctx, r.ID)
		require.NoError(t, err)
	}
	history, err := f.repos.Winners.FindByActivity(ctx, f.activity.ID)
	require.NoError(t, err)
	require.Len(t, history, 10)
	seen := map[int64]bool{}
	for _, w := range history {
		assert.False(t, seen[w.ParticipantID])
		seen[w.ParticipantID] = true
	}
}

// blockingStore holds InsertWinnersAndMarkDrawn until release is closed.
type blockingStore struct {
	repositories.DrawStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *blockingStore) InsertWinnersAndMarkDrawn(ctx context.Context, roundID int64, ids []int64, at time.Time) ([]models.Winner, error) {
	s.once.Do(func() { close(s.entered) })
	<-s.release
	return s.DrawStore.InsertWinnersAndMarkDrawn(ctx, roundID, ids, at)
}

func TestConcurrentDrawIsRejectedWhileInFlight(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, []string{"A", "B", "C"}, 1)
	store := &blockingStore{DrawStore: f.repos.Draws, entered: make(chan struct{}), release: make(chan struct{})}
	svc := newDrawService(store)

	done := make(chan error, 1)
	go func() {
		_, err := svc.ExecuteDraw(ctx, f.rounds[0].ID)
		done <- err
	}()
	<-store.entered

	_, err := svc.ExecuteDraw(ctx, f.rounds[0].ID)
	var concurrent *lottery.ConcurrentDrawError
	require.True(t, errors.As(err, &concurrent))
	assert.Equal(t, f.activity.ID, concurrent.ActivityID)

	_, err = svc.Redraw(ctx, f.rounds[0].ID)
	require.True(t, errors.As(err, &concurrent))

	close(store.release)
	require.NoError(t, <-done)

	winners, err := svc.GetDrawResult(ctx, f.rounds[0].ID)
	require.NoError(t, err)
	assert.Len(t, winners, 1)
}

func TestParallelDrawsProduceOneWinnerSet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, []string{"A", "B", "C", "D"}, 2)
	svc := NewDrawService(f.repos.Draws, nil)

	const callers = 16
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ExecuteDraw(ctx, f.rounds[0].ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		var already *lottery.AlreadyDrawnError
		var concurrent *lottery.ConcurrentDrawError
		assert.True(t, errors.As(err, &already) || errors.As(err, &concurrent), "unexpected error %v", err)
	}
	assert.Equal(t, 1, success)

	winners, err := f.repos.Winners.FindByRound(ctx, f.rounds[0].ID)
	require.NoError(t, err)
	assert.Len(t, winners, 2)
}

func TestDrawSurvivesCancelledCaller(t *testing.T) {
	f := newFixture(t, false, []string{"A", "B"}, 1)
	store := &blockingStore{DrawStore: f.repos.Draws, entered: make(chan struct{}), release: make(chan struct{})}
	svc := newDrawService(store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := svc.ExecuteDraw(ctx, f.rounds[0].ID)
		done <- err
	}()
	<-store.entered
	cancel()
	close(store.release)
	require.NoError(t, <-done)

	round, err := f.repos.Draws.LoadRound(context.Background(), f.rounds[0].ID)
	require.NoError(t, err)
	assert.True(t, round.IsDrawn)
}
