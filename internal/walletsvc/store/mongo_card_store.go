package store

import (
	"context"
	"fmt"
	"time"

	"github.com/avvvet/card-wallet/internal/walletsvc/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const cardsCollection = "cards"

type MongoCardStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoCardStore(db *mongo.Database) *MongoCardStore {
	return &MongoCardStore{coll: db.Collection(cardsCollection), now: time.Now}
}

// EnsureIndexes creates the compound index backing SelectByOwner.
func (s *MongoCardStore) EnsureIndexes(ctx context.Context) error {
	indexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "open_count", Value: -1},
			{Key: "created_at", Value: -1},
		},
	}

	if _, err := s.coll.Indexes().CreateOne(ctx, indexModel); err != nil {
		return fmt.Errorf("failed to create cards index: %w", err)
	}
	return nil
}

func (s *MongoCardStore) SelectByOwner(ctx context.Context, owner string) ([]models.Card, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "open_count", Value: -1},
		{Key: "created_at", Value: -1},
	})

	cursor, err := s.coll.Find(ctx, bson.M{"user_id": owner}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to select cards: %w", err)
	}
	defer cursor.Close(ctx)

	cards := []models.Card{}
	if err := cursor.All(ctx, &cards); err != nil {
		return nil, fmt.Errorf("failed to decode cards: %w", err)
	}
	return cards, nil
}

func (s *MongoCardStore) Insert(ctx context.Context, card models.Card) (*models.Card, error) {
	card.ID = uuid.NewString()
	card.OpenCount = 0
	// mongo keeps milliseconds; truncate so the returned row matches what is stored
	card.CreatedAt = s.now().UTC().Truncate(time.Millisecond)

	if _, err := s.coll.InsertOne(ctx, card); err != nil {
		return nil, fmt.Errorf("failed to insert card: %w", err)
	}
	return &card, nil
}

func (s *MongoCardStore) UpdateOpenCount(ctx context.Context, owner, id string, openCount int) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "user_id": owner},
		bson.M{"$max": bson.M{"open_count": openCount}},
	)
	if err != nil {
		return fmt.Errorf("failed to update open count: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrCardNotFound
	}
	return nil
}

func (s *MongoCardStore) Delete(ctx context.Context, owner, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id, "user_id": owner})
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrCardNotFound
	}
	return nil
}

var _ CardStore = (*MongoCardStore)(nil)
