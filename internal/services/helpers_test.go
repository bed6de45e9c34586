package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MarioJames/super-lotto/internal/models"
	"github.com/MarioJames/super-lotto/internal/repositories"
	"github.com/MarioJames/super-lotto/internal/repositories/bolt"
)

func newTestRepos(t *testing.T) repositories.Repositories {
	t.Helper()
	store, err := bolt.Open(filepath.Join(t.TempDir(), "services.db"))
	require.NoError(t, err)
	repos := store.Repositories()
	t.Cleanup(func() { _ = repos.Close(context.Background()) })
	return repos
}

type fixture struct {
	repos    repositories.Repositories
	admin    ActivityService
	activity *models.Activity
	roster   []models.Participant
	rounds   []*models.Round
}

// newFixture creates one activity with the given roster names and one round
// per winner count, in order.
func newFixture(t *testing.T, allowMultiWin bool, names []string, winnerCounts ...int) *fixture {
	t.Helper()
	ctx := context.Background()
	repos := newTestRepos(t)
	admin := NewActivityService(repos, 0)

	activity, err := admin.CreateActivity(ctx, models.ActivityInput{Name: "Year-end party", AllowMultiWin: allowMultiWin})
	require.NoError(t, err)

	f := &fixture{repos: repos, admin: admin, activity: activity}
	if len(names) > 0 {
		var inputs []models.ParticipantInput
		for _, n := range names {
			inputs = append(inputs, models.ParticipantInput{Name: n})
		}
		f.roster, err = admin.AddParticipants(ctx, activity.ID, inputs)
		require.NoError(t, err)
	}
	for _, wc := range winnerCounts {
		r, err := admin.ConfigureRound(ctx, activity.ID, models.RoundInput{PrizeName: "prize", WinnerCount: wc})
		require.NoError(t, err)
		f.rounds = append(f.rounds, r)
	}
	return f
}
