package redis

import (
	"context"
	"encoding/json"
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/redis/go-redis/v9"

	"tg-clicker/internal/domain/dto"
	"tg-clicker/internal/domain/models"
	"tg-clicker/internal/repository"
)

const maxUpsertAttempts = 5

// Storage keeps a JSON document per player, an id -> telegramId index,
// a sorted set for the leaderboard and a hash of usernames for its projection.
type Storage struct {
	db     *redis.Client
	prefix string
}

func InitRedis(addr, password string, db int, prefix string) *Storage {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: "",
		Password: password,
		DB:       db,
	})

	return &Storage{db: client, prefix: prefix}
}

func (s *Storage) playerKey(telegramID string) string { return s.prefix + "player:" + telegramID }
func (s *Storage) idKey(id string) string              { return s.prefix + "player-id:" + id }
func (s *Storage) leaderboardKey() string              { return s.prefix + "leaderboard" }
func (s *Storage) usernamesKey() string                { return s.prefix + "usernames" }

func (s *Storage) UpsertPlayer(ctx context.Context, p models.PlayerProgress) (models.PlayerProgress, error) {
	const op = "storage.redis.UpsertPlayer"

	key := s.playerKey(p.TelegramID)

	upsert := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			var existing models.PlayerProgress
			if err := json.Unmarshal(raw, &existing); err != nil {
				return err
			}
			p.ID = existing.ID
			p.CreatedAt = existing.CreatedAt
		}

		payload, err := json.Marshal(p)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			if p.ID != "" {
				pipe.Set(ctx, s.idKey(p.ID), p.TelegramID, 0)
			}
			pipe.ZAdd(ctx, s.leaderboardKey(), redis.Z{Score: p.Score, Member: p.TelegramID})
			pipe.HSet(ctx, s.usernamesKey(), p.TelegramID, p.Username)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxUpsertAttempts; attempt++ {
		err := s.db.Watch(ctx, upsert, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return models.PlayerProgress{}, fmt.Errorf("%s: %w", op, err)
		}
		return p, nil
	}

	return models.PlayerProgress{}, fmt.Errorf("%s: concurrent updates for %s: %w", op, p.TelegramID, redis.TxFailedErr)
}

func (s *Storage) GetPlayerByTelegramID(ctx context.Context, telegramID string) (models.PlayerProgress, error) {
	const op = "storage.redis.GetPlayerByTelegramID"

	raw, err := s.db.Get(ctx, s.playerKey(telegramID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.PlayerProgress{}, fmt.Errorf("%s: %w", op, repository.ErrPlayerNotFound)
		}
		return models.PlayerProgress{}, fmt.Errorf("%s: %w", op, err)
	}

	var p models.PlayerProgress
	if err := json.Unmarshal(raw, &p); err != nil {
		return models.PlayerProgress{}, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

func (s *Storage) GetPlayerByID(ctx context.Context, id string) (models.PlayerProgress, error) {
	const op = "storage.redis.GetPlayerByID"

	telegramID, err := s.db.Get(ctx, s.idKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.PlayerProgress{}, fmt.Errorf("%s: %w", op, repository.ErrPlayerNotFound)
		}
		return models.PlayerProgress{}, fmt.Errorf("%s: %w", op, err)
	}

	p, err := s.GetPlayerByTelegramID(ctx, telegramID)
	if err != nil {
		return models.PlayerProgress{}, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

func (s *Storage) TopPlayers(ctx context.Context, limit int) ([]dto.LeaderboardEntry, error) {
	const op = "storage.redis.TopPlayers"

	if limit <= 0 {
		return []dto.LeaderboardEntry{}, nil
	}

	top, err := s.db.ZRevRangeWithScores(ctx, s.leaderboardKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(top) == 0 {
		return []dto.LeaderboardEntry{}, nil
	}

	// Equal scores come back by member descending. Ties break by telegram id ascending.
	if len(top) == limit {
		boundary := strconv.FormatFloat(top[len(top)-1].Score, 'f', -1, 64)
		ties, err := s.db.ZRangeByScoreWithScores(ctx, s.leaderboardKey(), &redis.ZRangeBy{
			Min: boundary,
			Max: boundary,
		}).Result()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		top = rankTop(top, ties, limit)
	}

	ids := make([]string, 0, len(top))
	for _, z := range top {
		member, _ := z.Member.(string)
		ids = append(ids, member)
	}

	names, err := s.db.HMGet(ctx, s.usernamesKey(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	entries := make([]dto.LeaderboardEntry, 0, len(top))
	for i, z := range top {
		name, _ := names[i].(string)
		entries = append(entries, dto.LeaderboardEntry{Username: name, Score: z.Score})
	}

	return entries, nil
}

// rankTop merges the highest members with every member tied at the boundary score and
// orders them by score descending, then member ascending.
func rankTop(top, ties []redis.Z, limit int) []redis.Z {
	boundary := top[len(top)-1].Score

	ranked := make([]redis.Z, 0, len(top)+len(ties))
	for _, z := range top {
		if z.Score > boundary {
			ranked = append(ranked, z)
		}
	}
	ranked = append(ranked, ties...)

	slices.SortStableFunc(ranked, func(a, b redis.Z) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		am, _ := a.Member.(string)
		bm, _ := b.Member.(string)
		return cmp.Compare(am, bm)
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	return ranked
}

func (s *Storage) Ping(ctx context.Context) error {
	const op = "storage.redis.Ping"

	if err := s.db.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}
