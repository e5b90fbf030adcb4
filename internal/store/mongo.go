package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/pawpal-api/internal/models"
)

// MongoStore keeps the per-pet dose log in MongoDB.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection("dose_logs")}
}

// EnsureIndexes creates the listing index if it is missing.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "pet_id", Value: 1},
			{Key: "given_at", Value: -1},
		},
	})
	if err != nil {
		return fmt.Errorf("mongo index: %w", err)
	}
	return nil
}

func (s *MongoStore) InsertDose(ctx context.Context, dose *models.DoseLog) (*models.DoseLog, error) {
	dose.CreatedAt = time.Now().UTC()
	if dose.GivenAt.IsZero() {
		dose.GivenAt = dose.CreatedAt
	}
	res, err := s.col.InsertOne(ctx, dose)
	if err != nil {
		return nil, fmt.Errorf("mongo insert: %w", err)
	}
	out := *dose
	out.ID = res.InsertedID.(primitive.ObjectID)
	return &out, nil
}

// ListDoses returns up to limit entries for the pet, newest first.
func (s *MongoStore) ListDoses(ctx context.Context, userID, petID int64, limit int64) ([]models.DoseLog, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "given_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)
	cur, err := s.col.Find(ctx, bson.M{"user_id": userID, "pet_id": petID}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find: %w", err)
	}
	defer cur.Close(ctx)

	var doses []models.DoseLog
	if err := cur.All(ctx, &doses); err != nil {
		return nil, fmt.Errorf("mongo decode: %w", err)
	}
	return doses, nil
}

// DeleteDosesForPet removes the pet's whole log.
func (s *MongoStore) DeleteDosesForPet(ctx context.Context, userID, petID int64) error {
	_, err := s.col.DeleteMany(ctx, bson.M{"user_id": userID, "pet_id": petID})
	if err != nil {
		return fmt.Errorf("mongo delete: %w", err)
	}
	return nil
}
