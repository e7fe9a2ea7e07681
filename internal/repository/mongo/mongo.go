package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"tg-clicker/internal/domain/dto"
	"tg-clicker/internal/domain/models"
	"tg-clicker/internal/repository"
)

// Storage keeps each player as one document keyed by a unique telegramId index.
type Storage struct {
	client  *mongo.Client
	players *mongo.Collection
}

func NewMongo(ctx context.Context, uri, database, collection string) (*Storage, error) {
	const op = "storage.mongo.New"

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		client:  client,
		players: client.Database(database).Collection(collection),
	}, nil
}

// Migrate ensures the unique telegramId index and the score index used by the leaderboard.
func (s *Storage) Migrate(ctx context.Context) error {
	const op = "storage.mongo.Migrate"

	_, err := s.players.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "telegramId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "score", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) UpsertPlayer(ctx context.Context, p models.PlayerProgress) (models.PlayerProgress, error) {
	const op = "storage.mongo.UpsertPlayer"

	filter := bson.M{"telegramId": p.TelegramID}
	update := bson.M{
		"$set": bson.M{
			"username":    p.Username,
			"score":       p.Score,
			"multiplier":  p.Multiplier,
			"upgrades":    p.Upgrades,
			"lastUpdated": p.LastUpdated,
		},
		"$setOnInsert": bson.M{
			"_id":       p.ID,
			"createdAt": p.CreatedAt,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var stored models.PlayerProgress
	if err := s.players.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored); err != nil {
		return models.PlayerProgress{}, fmt.Errorf("%s: %w", op, err)
	}

	return stored, nil
}

func (s *Storage) GetPlayerByTelegramID(ctx context.Context, telegramID string) (models.PlayerProgress, error) {
	const op = "storage.mongo.GetPlayerByTelegramID"

	return s.findOne(ctx, op, bson.M{"telegramId": telegramID})
}

func (s *Storage) GetPlayerByID(ctx context.Context, id string) (models.PlayerProgress, error) {
	const op = "storage.mongo.GetPlayerByID"

	return s.findOne(ctx, op, bson.M{"_id": id})
}

func (s *Storage) findOne(ctx context.Context, op string, filter bson.M) (models.PlayerProgress, error) {
	var p models.PlayerProgress
	err := s.players.FindOne(ctx, filter).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.PlayerProgress{}, fmt.Errorf("%s: %w", op, repository.ErrPlayerNotFound)
		}
		return models.PlayerProgress{}, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

func (s *Storage) TopPlayers(ctx context.Context, limit int) ([]dto.LeaderboardEntry, error) {
	const op = "storage.mongo.TopPlayers"

	opts := options.Find().
		SetSort(bson.D{{Key: "score", Value: -1}, {Key: "telegramId", Value: 1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"_id": 0, "username": 1, "score": 1})

	cursor, err := s.players.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	entries := make([]dto.LeaderboardEntry, 0, limit)
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return entries, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	const op = "storage.mongo.Ping"

	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) Close() error {
	return s.client.Disconnect(context.Background())
}
