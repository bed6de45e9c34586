package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/MarioJames/super-lotto/internal/models"
	"github.com/MarioJames/super-lotto/internal/repositories"
)

var _ repositories.ParticipantRepository = (*participantRepository)(nil)

type participantRepository struct {
	db         *mongo.Database
	collection *mongo.Collection
}

// NewParticipantRepository creates a new ParticipantRepository
func NewParticipantRepository(db *mongo.Database) repositories.ParticipantRepository {
	return &participantRepository{
		db:         db,
		collection: db.Collection(participantsCollection),
	}
}

func (r *participantRepository) CreateMany(ctx context.Context, participants []*models.Participant) error {
	if len(participants) == 0 {
		return nil
	}
	first, err := reserveIDs(ctx, r.db, participantsCollection, len(participants))
	if err != nil {
		return err
	}
	now := time.Now()
	docs := make([]interface{}, 0, len(participants))
	for i, p := range participants {
		p.ID = first + int64(i)
		p.CreatedAt = now
		p.UpdatedAt = now
		docs = append(docs, p)
	}
	_, err = r.collection.InsertMany(ctx, docs)
	return err
}

func (r *participantRepository) FindByID(ctx context.Context, id int64) (*models.Participant, error) {
	var participant models.Participant
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&participant); err != nil {
		return nil, translate(err)
	}
	return &participant, nil
}

func (r *participantRepository) FindByActivity(ctx context.Context, activityID int64) ([]models.Participant, error) {
	return findRoster(ctx, r.collection, activityID)
}

func (r *participantRepository) CountByActivity(ctx context.Context, activityID int64) (int, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"activityId": activityID})
	return int(n), err
}

func (r *participantRepository) Update(ctx context.Context, participant *models.Participant) error {
	participant.UpdatedAt = time.Now()
	update := bson.M{"$set": bson.M{
		"name":       participant.Name,
		"employeeId": participant.EmployeeID,
		"department": participant.Department,
		"email":      participant.Email,
		"updatedAt":  participant.UpdatedAt,
	}}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": participant.ID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *participantRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func findRoster(ctx context.Context, collection *mongo.Collection, activityID int64) ([]models.Participant, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := collection.Find(ctx, bson.M{"activityId": activityID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	participants := []models.Participant{}
	if err := cursor.All(ctx, &participants); err != nil {
		return nil, err
	}
	return participants, nil
}
