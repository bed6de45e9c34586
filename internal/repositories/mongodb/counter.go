package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const countersCollection = "counters"

type counter struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}

// reserveIDs allocates n consecutive integer ids for name and returns the
// first. Ids are never reused, so gaps appear when a later write fails.
func reserveIDs(ctx context.Context, db *mongo.Database, name string, n int) (int64, error) {
	if n <= 0 {
		return 0, nil
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var c counter
	err := db.Collection(countersCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(n)}},
		opts,
	).Decode(&c)
	if err != nil {
		return 0, fmt.Errorf("failed to reserve %d %s ids: %w", n, name, err)
	}
	return c.Seq - int64(n) + 1, nil
}

func nextID(ctx context.Context, db *mongo.Database, name string) (int64, error) {
	return reserveIDs(ctx, db, name, 1)
}
