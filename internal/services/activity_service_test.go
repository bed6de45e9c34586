package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarioJames/super-lotto/internal/lottery"
	"github.com/MarioJames/super-lotto/internal/models"
)

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func TestConfigureRoundDefaultsAndAppend(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, nil)

	first, err := f.admin.ConfigureRound(ctx, f.activity.ID, models.RoundInput{PrizeName: "Phone", WinnerCount: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, first.OrderIndex)
	assert.Equal(t, models.LotteryModeWheel, first.LotteryMode)
	assert.Equal(t, DefaultAnimationDurationMs, first.AnimationDurationMs)
	assert.False(t, first.IsDrawn)

	explicit, err := f.admin.ConfigureRound(ctx, f.activity.ID, models.RoundInput{
		OrderIndex: intPtr(5), PrizeName: "Laptop", WinnerCount: 2,
		LotteryMode: models.LotteryModeSlotMachine, AnimationDurationMs: 8000,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, explicit.OrderIndex)

	appended, err := f.admin.ConfigureRound(ctx, f.activity.ID, models.RoundInput{PrizeName: "Car", WinnerCount: 1})
	require.NoError(t, err)
	assert.Equal(t, 6, appended.OrderIndex)
}

func TestConfigureRoundValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, nil, 1)

	tests := []struct {
		name  string
		input models.RoundInput
		field string
	}{
		{"missing prize", models.RoundInput{WinnerCount: 1}, "prizeName"},
		{"zero winners", models.RoundInput{PrizeName: "x"}, "winnerCount"},
		{"negative order", models.RoundInput{PrizeName: "x", WinnerCount: 1, OrderIndex: intPtr(-1)}, "orderIndex"},
		{"duplicate order", models.RoundInput{PrizeName: "x", WinnerCount: 1, OrderIndex: intPtr(0)}, "orderIndex"},
		{"unknown mode", models.RoundInput{PrizeName: "x", WinnerCount: 1, LotteryMode: "dice"}, "lotteryMode"},
		{"animation too short", models.RoundInput{PrizeName: "x", WinnerCount: 1, AnimationDurationMs: 999}, "animationDurationMs"},
		{"animation too long", models.RoundInput{PrizeName: "x", WinnerCount: 1, AnimationDurationMs: 60001}, "animationDurationMs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.admin.ConfigureRound(ctx, f.activity.ID, tt.input)
			var validation *lottery.ValidationError
			require.True(t, errors.As(err, &validation), "got %v", err)
			assert.Equal(t, tt.field, validation.Field)
		})
	}

	_, err := f.admin.ConfigureRound(ctx, 999, models.RoundInput{PrizeName: "x", WinnerCount: 1})
	assert.ErrorIs(t, err, lottery.ErrNotFound)
}

func TestDrawnRoundIsReadOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, []string{"A", "B"}, 1)
	_, err := newDrawService(f.repos.Draws).ExecuteDraw(ctx, f.rounds[0].ID)
	require.NoError(t, err)

	_, err = f.admin.UpdateRound(ctx, f.rounds[0].ID, models.RoundUpdate{WinnerCount: intPtr(2)})
	var already *lottery.AlreadyDrawnError
	assert.True(t, errors.As(err, &already))

	err = f.admin.DeleteRound(ctx, f.rounds[0].ID)
	require.True(t, errors.As(err, &already))
	assert.Equal(t, f.rounds[0].ID, already.RoundID)
}

func TestUpdateRoundKeepsOmittedFields(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, nil, 1, 1)

	_, err := f.admin.UpdateRound(ctx, f.rounds[1].ID, models.RoundUpdate{
		PrizeName:           strPtr("Bike"),
		AnimationDurationMs: intPtr(9000),
	})
	require.NoError(t, err)
	updated, err := f.admin.UpdateRound(ctx, f.rounds[1].ID, models.RoundUpdate{WinnerCount: intPtr(3)})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.OrderIndex)
	assert.Equal(t, 3, updated.WinnerCount)
	assert.Equal(t, "Bike", updated.PrizeName)
	assert.Equal(t, 9000, updated.AnimationDurationMs)
	assert.Equal(t, models.LotteryModeWheel, updated.LotteryMode)

	_, err = f.admin.UpdateRound(ctx, f.rounds[1].ID, models.RoundUpdate{PrizeName: strPtr("  ")})
	var validation *lottery.ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, "prizeName", validation.Field)

	_, err = f.admin.UpdateRound(ctx, f.rounds[1].ID, models.RoundUpdate{OrderIndex: intPtr(0)})
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, "orderIndex", validation.Field)

	require.NoError(t, f.admin.DeleteRound(ctx, f.rounds[1].ID))
	_, err = f.admin.GetRound(ctx, f.rounds[1].ID)
	assert.ErrorIs(t, err, lottery.ErrNotFound)
	assert.ErrorIs(t, f.admin.DeleteRound(ctx, f.rounds[1].ID), lottery.ErrNotFound)
}

func TestPendingRoundCannotPrecedeDrawnRound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, []string{"A", "B", "C"})
	first, err := f.admin.ConfigureRound(ctx, f.activity.ID, models.RoundInput{OrderIndex: intPtr(0), PrizeName: "Mug", WinnerCount: 1})
	require.NoError(t, err)
	third, err := f.admin.ConfigureRound(ctx, f.activity.ID, models.RoundInput{OrderIndex: intPtr(2), PrizeName: "Car", WinnerCount: 1})
	require.NoError(t, err)

	draws := newDrawService(f.repos.Draws)
	_, err = draws.ExecuteDraw(ctx, first.ID)
	require.NoError(t, err)
	_, err = draws.ExecuteDraw(ctx, third.ID)
	require.NoError(t, err)

	_, err = f.admin.ConfigureRound(ctx, f.activity.ID, models.RoundInput{OrderIndex: intPtr(1), PrizeName: "Phone", WinnerCount: 1})
	var validation *lottery.ValidationError
	require.True(t, errors.As(err, &validation), "got %v", err)
	assert.Equal(t, "orderIndex", validation.Field)

	appended, err := f.admin.ConfigureRound(ctx, f.activity.ID, models.RoundInput{PrizeName: "Phone", WinnerCount: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, appended.OrderIndex)

	_, err = f.admin.UpdateRound(ctx, appended.ID, models.RoundUpdate{OrderIndex: intPtr(1)})
	require.True(t, errors.As(err, &validation), "got %v", err)
	assert.Equal(t, "orderIndex", validation.Field)

	rounds, err := f.repos.Rounds.FindByActivity(ctx, f.activity.ID)
	require.NoError(t, err)
	for _, r := range rounds {
		if !r.IsDrawn {
			assert.Greater(t, r.OrderIndex, 2, "pending round %d sits before a drawn round", r.ID)
		}
	}
}

func TestUpdateKeepsPlaceAfterRedraw(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, []string{"A", "B"}, 1, 1)
	draws := newDrawService(f.repos.Draws)
	for _, r := range f.rounds {
		_, err := draws.ExecuteDraw(ctx, r.ID)
		require.NoError(t, err)
	}
	_, err := draws.Redraw(ctx, f.rounds[0].ID)
	require.NoError(t, err)

	updated, err := f.admin.UpdateRound(ctx, f.rounds[0].ID, models.RoundUpdate{PrizeName: strPtr("Mug")})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.OrderIndex)
}

func TestReorderRounds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, []string{"A", "B", "C", "D"}, 1, 1, 1, 1)
	ids := func(order ...int) []int64 {
		out := make([]int64, 0, len(order))
		for _, i := range order {
			out = append(out, f.rounds[i].ID)
		}
		return out
	}

	rounds, err := f.admin.ReorderRounds(ctx, f.activity.ID, ids(0, 3, 1, 2))
	require.NoError(t, err)
	require.Len(t, rounds, 4)
	for i, want := range ids(0, 3, 1, 2) {
		assert.Equal(t, want, rounds[i].ID)
		assert.Equal(t, i, rounds[i].OrderIndex)
	}

	var validation *lottery.ValidationError
	for name, roundIDs := range map[string][]int64{
		"missing round": ids(0, 3, 1),
		"duplicated id": ids(0, 3, 1, 1),
		"foreign id":    append(ids(0, 3, 1), 999),
		"empty":         nil,
	} {
		_, err := f.admin.ReorderRounds(ctx, f.activity.ID, roundIDs)
		require.True(t, errors.As(err, &validation), "%s: got %v", name, err)
		assert.Equal(t, "roundIds", validation.Field, name)
	}

	draws := newDrawService(f.repos.Draws)
	_, err = draws.ExecuteDraw(ctx, f.rounds[0].ID)
	require.NoError(t, err)
	_, err = draws.ExecuteDraw(ctx, f.rounds[3].ID)
	require.NoError(t, err)

	_, err = f.admin.ReorderRounds(ctx, f.activity.ID, ids(3, 0, 1, 2))
	var already *lottery.AlreadyDrawnError
	assert.True(t, errors.As(err, &already), "got %v", err)

	_, err = draws.Redraw(ctx, f.rounds[0].ID)
	require.NoError(t, err)
	_, err = f.admin.ReorderRounds(ctx, f.activity.ID, ids(1, 3, 0, 2))
	require.True(t, errors.As(err, &validation), "got %v", err)
	assert.Equal(t, "orderIndex", validation.Field)

	rounds, err = f.admin.ReorderRounds(ctx, f.activity.ID, ids(0, 3, 2, 1))
	require.NoError(t, err)
	assert.Equal(t, ids(0, 3, 2, 1), []int64{rounds[0].ID, rounds[1].ID, rounds[2].ID, rounds[3].ID})

	_, err = f.admin.ReorderRounds(ctx, 999, ids(0, 3, 2, 1))
	assert.ErrorIs(t, err, lottery.ErrNotFound)
}

func TestGetActivityWinners(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, []string{"A", "B", "C"}, 1, 2)

	winners, err := f.admin.GetActivityWinners(ctx, f.activity.ID)
	require.NoError(t, err)
	assert.Empty(t, winners)

	draws := newDrawService(f.repos.Draws)
	for _, r := range f.rounds {
		_, err := draws.ExecuteDraw(ctx, r.ID)
		require.NoError(t, err)
	}

	winners, err = f.admin.GetActivityWinners(ctx, f.activity.ID)
	require.NoError(t, err)
	require.Len(t, winners, 3)
	assert.Equal(t, f.rounds[0].ID, winners[0].Round.ID)
	assert.Equal(t, f.rounds[1].ID, winners[1].Round.ID)
	assert.Equal(t, f.rounds[1].ID, winners[2].Round.ID)
	seen := map[int64]bool{}
	for _, w := range winners {
		require.NotNil(t, w.Participant)
		assert.Equal(t, w.Winner.ParticipantID, w.Participant.ID)
		assert.True(t, w.Round.IsDrawn)
		seen[w.Participant.ID] = true
	}
	assert.Len(t, seen, 3)

	_, err = f.admin.GetActivityWinners(ctx, 999)
	assert.ErrorIs(t, err, lottery.ErrNotFound)
}

func TestGetActivityCapacityWarning(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, []string{"A", "B", "C"}, 2, 2)

	detail, err := f.admin.GetActivity(ctx, f.activity.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, detail.ParticipantCount)
	assert.Equal(t, 4, detail.TotalWinnerSlots)
	assert.True(t, detail.CapacityWarning)
	require.Len(t, detail.Rounds, 2)
	assert.Equal(t, 0, detail.Rounds[0].OrderIndex)

	_, err = f.admin.UpdateActivity(ctx, f.activity.ID, models.ActivityInput{Name: "Party", AllowMultiWin: true})
	require.NoError(t, err)
	detail, err = f.admin.GetActivity(ctx, f.activity.ID)
	require.NoError(t, err)
	assert.False(t, detail.CapacityWarning)
	assert.Equal(t, "Party", detail.Activity.Name)
}

func TestActivityLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, []string{"A"}, 1)

	_, err := f.admin.CreateActivity(ctx, models.ActivityInput{Name: "   "})
	var validation *lottery.ValidationError
	assert.True(t, errors.As(err, &validation))

	all, err := f.admin.ListActivities(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, f.admin.DeleteActivity(ctx, f.activity.ID))
	_, err = f.admin.GetActivity(ctx, f.activity.ID)
	assert.ErrorIs(t, err, lottery.ErrNotFound)
	assert.ErrorIs(t, f.admin.DeleteActivity(ctx, f.activity.ID), lottery.ErrNotFound)
}

func TestParticipantsAddImportUpdateDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, nil)

	_, err := f.admin.AddParticipants(ctx, f.activity.ID, []models.ParticipantInput{{Name: "ok"}, {Name: " "}})
	var validation *lottery.ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, "participants[1].name", validation.Field)

	res, err := f.admin.ImportParticipants(ctx, f.activity.ID, strings.NewReader("姓名,部门\n张三,技术部\n,市场部\n李四,\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 3, res.TotalRows)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 2, res.Errors[0].Row)

	_, err = f.admin.ImportParticipants(ctx, f.activity.ID, strings.NewReader("foo\nbar\n"))
	assert.True(t, errors.As(err, &validation))

	roster, err := f.admin.ListParticipants(ctx, f.activity.ID)
	require.NoError(t, err)
	require.Len(t, roster, 2)

	updated, err := f.admin.UpdateParticipant(ctx, roster[0].ID, models.ParticipantInput{Name: "张三丰", Department: "武当"})
	require.NoError(t, err)
	assert.Equal(t, "张三丰", updated.Name)

	require.NoError(t, f.admin.DeleteParticipant(ctx, roster[1].ID))
	assert.ErrorIs(t, f.admin.DeleteParticipant(ctx, roster[1].ID), lottery.ErrNotFound)
}

func TestDeletedWinnerShowsWithoutParticipant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, []string{"A"}, 1)
	svc := newDrawService(f.repos.Draws)

	_, err := svc.ExecuteDraw(ctx, f.rounds[0].ID)
	require.NoError(t, err)
	require.NoError(t, f.admin.DeleteParticipant(ctx, f.roster[0].ID))

	winners, err := svc.GetDrawResult(ctx, f.rounds[0].ID)
	require.NoError(t, err)
	require.Len(t, winners, 1)
	assert.Nil(t, winners[0].Participant)
	assert.Equal(t, f.roster[0].ID, winners[0].Winner.ParticipantID)
}
