package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/MarioJames/super-lotto/internal/repositories"
)

const (
	activitiesCollection   = "activities"
	roundsCollection       = "rounds"
	participantsCollection = "participants"
	winnersCollection      = "winners"
	adminUsersCollection   = "admin_users"
)

// NewRepositories wires every Mongo-backed repository against db. Draws and
// cascading deletes use multi-document transactions, so the deployment must
// be a replica set (a single-node replica set is enough).
func NewRepositories(db *mongo.Database) repositories.Repositories {
	return repositories.Repositories{
		Activities:   NewActivityRepository(db),
		Rounds:       NewRoundRepository(db),
		Participants: NewParticipantRepository(db),
		Winners:      NewWinnerRepository(db),
		Draws:        NewDrawStore(db),
		AdminUsers:   NewAdminUserRepository(db),
		Close: func(ctx context.Context) error {
			return db.Client().Disconnect(ctx)
		},
	}
}

// EnsureIndexes creates the indexes the repositories rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		roundsCollection: {
			{
				Keys:    bson.D{{Key: "activityId", Value: 1}, {Key: "orderIndex", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		participantsCollection: {
			{Keys: bson.D{{Key: "activityId", Value: 1}}},
		},
		winnersCollection: {
			{Keys: bson.D{{Key: "roundId", Value: 1}, {Key: "drawnAt", Value: 1}}},
			{Keys: bson.D{{Key: "activityId", Value: 1}}},
		},
		adminUsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}

func translate(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repositories.ErrNotFound
	}
	return err
}

// withTransaction runs fn inside a session transaction on db's client.
func withTransaction(ctx context.Context, db *mongo.Database, fn func(sc mongo.SessionContext) (interface{}, error)) (interface{}, error) {
	session, err := db.Client().StartSession()
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)
	return session.WithTransaction(ctx, fn)
}

// touchActivity bumps the activity's roundsVersion. Every transaction that
// reads an activity's rounds to validate a write calls it first, so two such
// transactions on one activity conflict and one of them is retried.
func touchActivity(sc mongo.SessionContext, db *mongo.Database, activityID int64) error {
	res, err := db.Collection(activitiesCollection).UpdateOne(sc,
		bson.M{"_id": activityID},
		bson.M{"$inc": bson.M{"roundsVersion": 1}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}
