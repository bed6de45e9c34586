package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/MarioJames/super-lotto/internal/models"
	"github.com/MarioJames/super-lotto/internal/repositories"
)

// Ensure adminUserRepository implements repositories.AdminUserRepository
var _ repositories.AdminUserRepository = (*adminUserRepository)(nil)

type adminUserRepository struct {
	db         *mongo.Database
	collection *mongo.Collection
}

// NewAdminUserRepository creates a new repository for admin users
func NewAdminUserRepository(db *mongo.Database) repositories.AdminUserRepository {
	return &adminUserRepository{
		db:         db,
		collection: db.Collection(adminUsersCollection),
	}
}

// Create inserts a new admin user into the database
func (r *adminUserRepository) Create(ctx context.Context, adminUser *models.AdminUser) (*models.AdminUser, error) {
	id, err := nextID(ctx, r.db, adminUsersCollection)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	adminUser.ID = id
	adminUser.CreatedAt = now
	adminUser.UpdatedAt = now
	if _, err := r.collection.InsertOne(ctx, adminUser); err != nil {
		return nil, err
	}
	return adminUser, nil
}

// FindByEmail finds an admin user by their email address
func (r *adminUserRepository) FindByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	var adminUser models.AdminUser
	if err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&adminUser); err != nil {
		return nil, translate(err)
	}
	return &adminUser, nil
}
