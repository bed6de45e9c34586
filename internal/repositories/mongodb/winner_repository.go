package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/MarioJames/super-lotto/internal/models"
	"github.com/MarioJames/super-lotto/internal/repositories"
)

var _ repositories.WinnerRepository = (*winnerRepository)(nil)

type winnerRepository struct {
	collection *mongo.Collection
}

// NewWinnerRepository creates a new WinnerRepository
func NewWinnerRepository(db *mongo.Database) repositories.WinnerRepository {
	return &winnerRepository{collection: db.Collection(winnersCollection)}
}

func (r *winnerRepository) FindByRound(ctx context.Context, roundID int64) ([]models.Winner, error) {
	return findWinners(ctx, r.collection, bson.M{"roundId": roundID})
}

func (r *winnerRepository) FindByActivity(ctx context.Context, activityID int64) ([]models.Winner, error) {
	return findWinners(ctx, r.collection, bson.M{"activityId": activityID})
}

func findWinners(ctx context.Context, collection *mongo.Collection, filter bson.M) ([]models.Winner, error) {
	opts := options.Find().SetSort(bson.D{{Key: "drawnAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	winners := []models.Winner{}
	if err := cursor.All(ctx, &winners); err != nil {
		return nil, err
	}
	return winners, nil
}
