package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/MarioJames/super-lotto/internal/models"
	"github.com/MarioJames/super-lotto/internal/repositories"
)

var _ repositories.ActivityRepository = (*activityRepository)(nil)

type activityRepository struct {
	db         *mongo.Database
	collection *mongo.Collection
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *mongo.Database) repositories.ActivityRepository {
	return &activityRepository{
		db:         db,
		collection: db.Collection(activitiesCollection),
	}
}

func (r *activityRepository) Create(ctx context.Context, activity *models.Activity) error {
	id, err := nextID(ctx, r.db, activitiesCollection)
	if err != nil {
		return err
	}
	now := time.Now()
	activity.ID = id
	activity.CreatedAt = now
	activity.UpdatedAt = now
	_, err = r.collection.InsertOne(ctx, activity)
	return err
}

func (r *activityRepository) FindByID(ctx context.Context, id int64) (*models.Activity, error) {
	var activity models.Activity
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&activity); err != nil {
		return nil, translate(err)
	}
	return &activity, nil
}

func (r *activityRepository) FindAll(ctx context.Context) ([]*models.Activity, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var activities []*models.Activity
	if err := cursor.All(ctx, &activities); err != nil {
		return nil, err
	}
	if activities == nil {
		activities = []*models.Activity{}
	}
	return activities, nil
}

func (r *activityRepository) Update(ctx context.Context, activity *models.Activity) error {
	activity.UpdatedAt = time.Now()
	update := bson.M{"$set": bson.M{
		"name":          activity.Name,
		"description":   activity.Description,
		"allowMultiWin": activity.AllowMultiWin,
		"updatedAt":     activity.UpdatedAt,
	}}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": activity.ID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *activityRepository) Delete(ctx context.Context, id int64) error {
	_, err := withTransaction(ctx, r.db, func(sc mongo.SessionContext) (interface{}, error) {
		res, err := r.collection.DeleteOne(sc, bson.M{"_id": id})
		if err != nil {
			return nil, err
		}
		if res.DeletedCount == 0 {
			return nil, repositories.ErrNotFound
		}
		for _, name := range []string{winnersCollection, roundsCollection, participantsCollection} {
			if _, err := r.db.Collection(name).DeleteMany(sc, bson.M{"activityId": id}); err != nil {
				return nil, fmt.Errorf("failed to delete %s of activity %d: %w", name, id, err)
			}
		}
		return nil, nil
	})
	return err
}
