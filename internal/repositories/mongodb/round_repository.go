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

var _ repositories.RoundRepository = (*roundRepository)(nil)

type roundRepository struct {
	db         *mongo.Database
	collection *mongo.Collection
}

// NewRoundRepository creates a new RoundRepository
func NewRoundRepository(db *mongo.Database) repositories.RoundRepository {
	return &roundRepository{
		db:         db,
		collection: db.Collection(roundsCollection),
	}
}

// Create checks placement and inserts inside one transaction.
func (r *roundRepository) Create(ctx context.Context, round *models.Round) error {
	id, err := nextID(ctx, r.db, roundsCollection)
	if err != nil {
		return err
	}
	_, err = withTransaction(ctx, r.db, func(sc mongo.SessionContext) (interface{}, error) {
		if err := touchActivity(sc, r.db, round.ActivityID); err != nil {
			return nil, err
		}
		siblings, err := findRoundsByActivity(sc, r.collection, round.ActivityID)
		if err != nil {
			return nil, err
		}
		round.ID = 0
		if err := repositories.CheckPlacement(siblings, round, -1); err != nil {
			return nil, err
		}
		now := time.Now()
		round.ID = id
		round.IsDrawn = false
		round.DrawnAt = nil
		round.CreatedAt = now
		round.UpdatedAt = now
		if _, err := r.collection.InsertOne(sc, round); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, repositories.ErrDuplicateOrderIndex
			}
			return nil, err
		}
		return nil, nil
	})
	return err
}

func (r *roundRepository) FindByID(ctx context.Context, id int64) (*models.Round, error) {
	return findRound(ctx, r.collection, id)
}

func (r *roundRepository) FindByActivity(ctx context.Context, activityID int64) ([]models.Round, error) {
	return findRoundsByActivity(ctx, r.collection, activityID)
}

// Update rewrites the configurable fields of a pending round. The write
// filters on isDrawn=false, so a draw committed after the placement check
// still wins.
func (r *roundRepository) Update(ctx context.Context, round *models.Round) error {
	_, err := withTransaction(ctx, r.db, func(sc mongo.SessionContext) (interface{}, error) {
		existing, err := findRound(sc, r.collection, round.ID)
		if err != nil {
			return nil, err
		}
		if err := touchActivity(sc, r.db, existing.ActivityID); err != nil {
			return nil, err
		}
		siblings, err := findRoundsByActivity(sc, r.collection, existing.ActivityID)
		if err != nil {
			return nil, err
		}
		round.ActivityID = existing.ActivityID
		if err := repositories.CheckPlacement(siblings, round, existing.OrderIndex); err != nil {
			return nil, err
		}
		round.IsDrawn = false
		round.DrawnAt = nil
		round.CreatedAt = existing.CreatedAt
		round.UpdatedAt = time.Now()
		update := bson.M{"$set": bson.M{
			"orderIndex":          round.OrderIndex,
			"prizeName":           round.PrizeName,
			"winnerCount":         round.WinnerCount,
			"lotteryMode":         round.LotteryMode,
			"animationDurationMs": round.AnimationDurationMs,
			"updatedAt":           round.UpdatedAt,
		}}
		res, err := r.collection.UpdateOne(sc, bson.M{"_id": round.ID, "isDrawn": false}, update)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, repositories.ErrDuplicateOrderIndex
			}
			return nil, err
		}
		if res.MatchedCount == 0 {
			return nil, missingOrDrawn(sc, r.collection, round.ID)
		}
		return nil, nil
	})
	return err
}

func (r *roundRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "isDrawn": false})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return missingOrDrawn(ctx, r.collection, id)
	}
	return nil
}

// Reorder parks moved rounds on negative indexes first so the unique
// (activityId, orderIndex) index never sees two rounds on one slot.
func (r *roundRepository) Reorder(ctx context.Context, activityID int64, roundIDs []int64) error {
	_, err := withTransaction(ctx, r.db, func(sc mongo.SessionContext) (interface{}, error) {
		if err := touchActivity(sc, r.db, activityID); err != nil {
			return nil, err
		}
		rounds, err := findRoundsByActivity(sc, r.collection, activityID)
		if err != nil {
			return nil, err
		}
		moved, err := repositories.PlanReorder(rounds, roundIDs)
		if err != nil {
			return nil, err
		}
		for i, rd := range moved {
			if err := r.moveRound(sc, rd.ID, -(i + 1)); err != nil {
				return nil, err
			}
		}
		for _, rd := range moved {
			if err := r.moveRound(sc, rd.ID, rd.OrderIndex); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

func (r *roundRepository) moveRound(ctx context.Context, id int64, orderIndex int) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "isDrawn": false},
		bson.M{"$set": bson.M{"orderIndex": orderIndex, "updatedAt": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return missingOrDrawn(ctx, r.collection, id)
	}
	return nil
}

// missingOrDrawn explains why a write filtered on isDrawn=false matched nothing.
func missingOrDrawn(ctx context.Context, collection *mongo.Collection, id int64) error {
	round, err := findRound(ctx, collection, id)
	if err != nil {
		return err
	}
	if round.IsDrawn {
		return &repositories.DrawnRoundError{RoundID: id}
	}
	return fmt.Errorf("round %d changed concurrently", id)
}

func findRound(ctx context.Context, collection *mongo.Collection, id int64) (*models.Round, error) {
	var round models.Round
	if err := collection.FindOne(ctx, bson.M{"_id": id}).Decode(&round); err != nil {
		return nil, translate(err)
	}
	return &round, nil
}

func findRoundsByActivity(ctx context.Context, collection *mongo.Collection, activityID int64) ([]models.Round, error) {
	opts := options.Find().SetSort(bson.D{{Key: "orderIndex", Value: 1}})
	cursor, err := collection.Find(ctx, bson.M{"activityId": activityID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	rounds := []models.Round{}
	if err := cursor.All(ctx, &rounds); err != nil {
		return nil, err
	}
	return rounds, nil
}
