package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/MarioJames/super-lotto/internal/lottery"
	"github.com/MarioJames/super-lotto/internal/models"
	"github.com/MarioJames/super-lotto/internal/repositories"
)

var _ repositories.DrawStore = (*drawStore)(nil)

type drawStore struct {
	db           *mongo.Database
	activities   *mongo.Collection
	rounds       *mongo.Collection
	participants *mongo.Collection
	winners      *mongo.Collection
}

// NewDrawStore creates the transactional store used by the draw coordinator.
func NewDrawStore(db *mongo.Database) repositories.DrawStore {
	return &drawStore{
		db:           db,
		activities:   db.Collection(activitiesCollection),
		rounds:       db.Collection(roundsCollection),
		participants: db.Collection(participantsCollection),
		winners:      db.Collection(winnersCollection),
	}
}

func (s *drawStore) LoadActivity(ctx context.Context, id int64) (*models.Activity, error) {
	var activity models.Activity
	if err := s.activities.FindOne(ctx, bson.M{"_id": id}).Decode(&activity); err != nil {
		return nil, translate(err)
	}
	return &activity, nil
}

func (s *drawStore) LoadRound(ctx context.Context, id int64) (*models.Round, error) {
	return findRound(ctx, s.rounds, id)
}

func (s *drawStore) LoadRoundsByActivity(ctx context.Context, activityID int64) ([]models.Round, error) {
	return findRoundsByActivity(ctx, s.rounds, activityID)
}

func (s *drawStore) LoadRosterByActivity(ctx context.Context, activityID int64) ([]models.Participant, error) {
	return findRoster(ctx, s.participants, activityID)
}

func (s *drawStore) LoadWinnersByActivity(ctx context.Context, activityID int64) ([]models.Winner, error) {
	return findWinners(ctx, s.winners, bson.M{"activityId": activityID})
}

func (s *drawStore) LoadWinnersByRound(ctx context.Context, roundID int64) ([]models.Winner, error) {
	return findWinners(ctx, s.winners, bson.M{"roundId": roundID})
}

func (s *drawStore) InsertWinnersAndMarkDrawn(ctx context.Context, roundID int64, participantIDs []int64, drawnAt time.Time) ([]models.Winner, error) {
	round, err := s.LoadRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	first, err := reserveIDs(ctx, s.db, winnersCollection, len(participantIDs))
	if err != nil {
		return nil, err
	}
	winners := make([]models.Winner, 0, len(participantIDs))
	docs := make([]interface{}, 0, len(participantIDs))
	for i, pid := range participantIDs {
		w := models.Winner{
			ID:            first + int64(i),
			RoundID:       roundID,
			ActivityID:    round.ActivityID,
			ParticipantID: pid,
			DrawnAt:       drawnAt,
		}
		winners = append(winners, w)
		docs = append(docs, w)
	}

	_, err = withTransaction(ctx, s.db, func(sc mongo.SessionContext) (interface{}, error) {
		if err := touchActivity(sc, s.db, round.ActivityID); err != nil {
			return nil, err
		}
		siblings, err := findRoundsByActivity(sc, s.rounds, round.ActivityID)
		if err != nil {
			return nil, err
		}
		if blocking := lottery.BlockingRound(round.OrderIndex, siblings); blocking != nil {
			return nil, &repositories.BlockedRoundError{BlockingRoundID: blocking.ID, BlockingOrderIndex: blocking.OrderIndex}
		}
		// Conditional flip: only one caller can match isDrawn=false.
		res, err := s.rounds.UpdateOne(sc,
			bson.M{"_id": roundID, "isDrawn": false},
			bson.M{"$set": bson.M{"isDrawn": true, "drawnAt": drawnAt, "updatedAt": drawnAt}},
		)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			return nil, repositories.ErrRoundAlreadyDrawn
		}
		if len(docs) > 0 {
			if _, err := s.winners.InsertMany(sc, docs); err != nil {
				return nil, fmt.Errorf("failed to insert winners: %w", err)
			}
		}
		return nil, nil
	})
	if err != nil {
		if errors.Is(err, repositories.ErrRoundAlreadyDrawn) {
			return nil, repositories.ErrRoundAlreadyDrawn
		}
		if errors.Is(err, repositories.ErrRoundOutOfOrder) {
			return nil, err
		}
		return nil, fmt.Errorf("draw transaction for round %d failed: %w", roundID, err)
	}
	return winners, nil
}

func (s *drawStore) DeleteWinnersAndUnmarkDrawn(ctx context.Context, roundID int64) (int, error) {
	deleted, err := withTransaction(ctx, s.db, func(sc mongo.SessionContext) (interface{}, error) {
		res, err := s.rounds.UpdateOne(sc,
			bson.M{"_id": roundID},
			bson.M{
				"$set":   bson.M{"isDrawn": false, "updatedAt": time.Now()},
				"$unset": bson.M{"drawnAt": ""},
			},
		)
		if err != nil {
			return 0, err
		}
		if res.MatchedCount == 0 {
			return 0, repositories.ErrNotFound
		}
		del, err := s.winners.DeleteMany(sc, bson.M{"roundId": roundID})
		if err != nil {
			return 0, fmt.Errorf("failed to delete winners: %w", err)
		}
		return int(del.DeletedCount), nil
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return 0, repositories.ErrNotFound
		}
		return 0, fmt.Errorf("redraw transaction for round %d failed: %w", roundID, err)
	}
	return deleted.(int), nil
}
