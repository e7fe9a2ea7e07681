package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tg-clicker/internal/domain/dto"
	"tg-clicker/internal/domain/models"
	"tg-clicker/internal/game"
	"tg-clicker/internal/repository"
)

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 10
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrMissingTelegramID = fmt.Errorf("%w: missing telegramId", ErrValidation)
	ErrMissingGameState  = fmt.Errorf("%w: missing gameState", ErrValidation)
	ErrPlayerNotFound    = errors.New("player not found")
	ErrStoreUnavailable  = errors.New("storage unavailable")
	ErrForbidden         = errors.New("player belongs to another user")
)

type PlayerRepository interface {
	UpsertPlayer(ctx context.Context, p models.PlayerProgress) (models.PlayerProgress, error)
	GetPlayerByTelegramID(ctx context.Context, telegramID string) (models.PlayerProgress, error)
	GetPlayerByID(ctx context.Context, id string) (models.PlayerProgress, error)
	TopPlayers(ctx context.Context, limit int) ([]dto.LeaderboardEntry, error)
	Ping(ctx context.Context) error
}

type PlayerService struct {
	log              *slog.Logger
	playerRepository PlayerRepository
	driver           string
	now              func() time.Time
	newID            func() string
}

func NewPlayerService(log *slog.Logger, playerRepository PlayerRepository, driver string) *PlayerService {
	return &PlayerService{
		log:              log,
		playerRepository: playerRepository,
		driver:           driver,
		now:              func() time.Time { return time.Now().UTC() },
		newID:            uuid.NewString,
	}
}

// SavePlayer creates or overwrites the record of payload's telegramId. owner is the authenticated
// telegram id, empty for anonymous requests. The returned bool reports whether a record was created.
func (s *PlayerService) SavePlayer(ctx context.Context, owner string, payload dto.PlayerPayload) (models.PlayerProgress, bool, error) {
	const op = "services.PlayerService.SavePlayer"

	telegramID := payload.TelegramID.String()

	log := s.log.With(
		slog.String("op", op),
		slog.String("telegram_id", telegramID),
	)

	if telegramID == "" {
		return models.PlayerProgress{}, false, fmt.Errorf("%s: %w", op, ErrMissingTelegramID)
	}
	if !payload.HasState() {
		return models.PlayerProgress{}, false, fmt.Errorf("%s: %w", op, ErrMissingGameState)
	}
	if err := checkOwner(owner, telegramID); err != nil {
		log.Info("save rejected", slog.String("owner", owner))
		return models.PlayerProgress{}, false, fmt.Errorf("%s: %w", op, err)
	}

	player := game.NormalizePlayer(payload, game.DefaultUsername)
	now := s.now()
	player.ID = s.newID()
	player.CreatedAt = now
	player.LastUpdated = now

	stored, err := s.playerRepository.UpsertPlayer(ctx, player)
	if err != nil {
		log.Error("failed to save player", slog.String("error", err.Error()))
		return models.PlayerProgress{}, false, storeError(op, telegramID, err)
	}

	created := stored.ID == player.ID
	log.Info("player saved", slog.Bool("created", created), slog.Float64("score", stored.Score))

	return stored, created, nil
}

func (s *PlayerService) GetPlayer(ctx context.Context, telegramID string) (models.PlayerProgress, error) {
	const op = "services.PlayerService.GetPlayer"

	log := s.log.With(
		slog.String("op", op),
		slog.String("telegram_id", telegramID),
	)

	if telegramID == "" {
		return models.PlayerProgress{}, fmt.Errorf("%s: %w", op, ErrMissingTelegramID)
	}

	player, err := s.playerRepository.GetPlayerByTelegramID(ctx, telegramID)
	if err != nil {
		if !errors.Is(err, repository.ErrPlayerNotFound) {
			log.Error("failed to get player", slog.String("error", err.Error()))
		}
		return models.PlayerProgress{}, storeError(op, telegramID, err)
	}

	return player, nil
}

// UpdatePlayer merges patch into the record addressed by key. key is tried as a record id, then as a
// telegramId, then patch's telegramId is tried. When nothing matches a new record is created.
func (s *PlayerService) UpdatePlayer(ctx context.Context, owner, key string, patch dto.PlayerPayload) (models.PlayerProgress, bool, error) {
	const op = "services.PlayerService.UpdatePlayer"

	log := s.log.With(
		slog.String("op", op),
		slog.String("key", key),
	)

	existing, found, err := s.resolve(ctx, key, patch.TelegramID.String())
	if err != nil {
		log.Error("failed to resolve player", slog.String("error", err.Error()))
		return models.PlayerProgress{}, false, storeError(op, key, err)
	}

	now := s.now()

	if !found {
		telegramID := patch.TelegramID.String()
		if telegramID == "" {
			telegramID = key
		}
		if telegramID == "" {
			return models.PlayerProgress{}, false, fmt.Errorf("%s: %w", op, ErrMissingTelegramID)
		}
		if err := checkOwner(owner, telegramID); err != nil {
			return models.PlayerProgress{}, false, fmt.Errorf("%s: %w", op, err)
		}

		player := game.NormalizePlayer(patch, game.DefaultUsername)
		player.TelegramID = telegramID
		player.ID = s.newID()
		player.CreatedAt = now
		player.LastUpdated = now

		stored, err := s.playerRepository.UpsertPlayer(ctx, player)
		if err != nil {
			log.Error("failed to create player", slog.String("error", err.Error()))
			return models.PlayerProgress{}, false, storeError(op, telegramID, err)
		}

		created := stored.ID == player.ID
		log.Info("player created on update", slog.String("telegram_id", telegramID), slog.Bool("created", created))

		return stored, created, nil
	}

	if err := checkOwner(owner, existing.TelegramID); err != nil {
		log.Info("update rejected", slog.String("owner", owner))
		return models.PlayerProgress{}, false, fmt.Errorf("%s: %w", op, err)
	}

	existing.GameState = game.Apply(existing.GameState, &patch.GameStatePayload)
	if patch.GameState != nil {
		existing.GameState = game.Apply(existing.GameState, patch.GameState)
	}
	if patch.Username != "" {
		existing.Username = patch.Username
	}
	existing.LastUpdated = now

	stored, err := s.playerRepository.UpsertPlayer(ctx, existing)
	if err != nil {
		log.Error("failed to update player", slog.String("error", err.Error()))
		return models.PlayerProgress{}, false, storeError(op, existing.TelegramID, err)
	}

	log.Info("player updated", slog.String("telegram_id", stored.TelegramID), slog.Float64("score", stored.Score))

	return stored, false, nil
}

func (s *PlayerService) resolve(ctx context.Context, key, patchTelegramID string) (models.PlayerProgress, bool, error) {
	lookups := []func() (models.PlayerProgress, error){
		func() (models.PlayerProgress, error) { return s.playerRepository.GetPlayerByID(ctx, key) },
		func() (models.PlayerProgress, error) { return s.playerRepository.GetPlayerByTelegramID(ctx, key) },
	}
	if patchTelegramID != "" && patchTelegramID != key {
		lookups = append(lookups, func() (models.PlayerProgress, error) {
			return s.playerRepository.GetPlayerByTelegramID(ctx, patchTelegramID)
		})
	}

	for _, lookup := range lookups {
		player, err := lookup()
		if err == nil {
			return player, true, nil
		}
		if !errors.Is(err, repository.ErrPlayerNotFound) {
			return models.PlayerProgress{}, false, err
		}
	}

	return models.PlayerProgress{}, false, nil
}

// ListTop returns up to limit entries ordered by score. Out of range limits fall back to the default.
func (s *PlayerService) ListTop(ctx context.Context, limit int) ([]dto.LeaderboardEntry, error) {
	const op = "services.PlayerService.ListTop"

	if limit <= 0 || limit > MaxLeaderboardLimit {
		limit = DefaultLeaderboardLimit
	}

	entries, err := s.playerRepository.TopPlayers(ctx, limit)
	if err != nil {
		s.log.Error("failed to list leaderboard", slog.String("op", op), slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}

	return entries, nil
}

func (s *PlayerService) Status(ctx context.Context) (dto.StatusResponse, error) {
	const op = "services.PlayerService.Status"

	if err := s.playerRepository.Ping(ctx); err != nil {
		s.log.Error("store is not reachable", slog.String("op", op), slog.String("store", s.driver), slog.String("error", err.Error()))
		return dto.StatusResponse{Status: "unavailable", Store: s.driver, Connected: false},
			fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	}

	return dto.StatusResponse{Status: "ok", Store: s.driver, Connected: true}, nil
}

func checkOwner(owner, telegramID string) error {
	if owner != "" && owner != telegramID {
		return ErrForbidden
	}
	return nil
}

func storeError(op, key string, err error) error {
	if errors.Is(err, repository.ErrPlayerNotFound) {
		return fmt.Errorf("%s: %w", op, ErrPlayerNotFound)
	}
	return fmt.Errorf("%s: %w (key %q): %w", op, ErrStoreUnavailable, key, err)
}
