package presentation

import (
	"context"

	"github.com/MarioJames/super-lotto/internal/models"
	"github.com/MarioJames/super-lotto/internal/services"
)

// ServiceBackend drives the machine against in-process services.
type ServiceBackend struct {
	Activities services.ActivityService
	Draws      services.DrawService
}

var _ Backend = (*ServiceBackend)(nil)

func (b *ServiceBackend) GetActivity(ctx context.Context, activityID int64) (*models.ActivityDetail, error) {
	return b.Activities.GetActivity(ctx, activityID)
}

func (b *ServiceBackend) ListAvailableParticipants(ctx context.Context, activityID int64) ([]models.Participant, error) {
	return b.Draws.ListAvailableParticipants(ctx, activityID)
}

func (b *ServiceBackend) ExecuteDraw(ctx context.Context, roundID int64) (*models.DrawResult, error) {
	return b.Draws.ExecuteDraw(ctx, roundID)
}

func (b *ServiceBackend) Redraw(ctx context.Context, roundID int64) (int, error) {
	return b.Draws.Redraw(ctx, roundID)
}
