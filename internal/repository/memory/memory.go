package memory

import (
	"context"
	"fmt"
	"sync"

	"tg-clicker/internal/domain/dto"
	"tg-clicker/internal/domain/models"
	"tg-clicker/internal/repository"
)

// Storage keeps players in process memory. It is the default store and the one tests run against.
type Storage struct {
	mu      sync.RWMutex
	players map[string]models.PlayerProgress
	ids     map[string]string
}

func New() *Storage {
	return &Storage{
		players: make(map[string]models.PlayerProgress),
		ids:     make(map[string]string),
	}
}

func (s *Storage) UpsertPlayer(_ context.Context, p models.PlayerProgress) (models.PlayerProgress, error) {
	const op = "storage.memory.UpsertPlayer"

	if p.TelegramID == "" {
		return models.PlayerProgress{}, fmt.Errorf("%s: empty telegram id", op)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.players[p.TelegramID]; ok {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
	}

	s.players[p.TelegramID] = p
	if p.ID != "" {
		s.ids[p.ID] = p.TelegramID
	}

	return p, nil
}

func (s *Storage) GetPlayerByTelegramID(_ context.Context, telegramID string) (models.PlayerProgress, error) {
	const op = "storage.memory.GetPlayerByTelegramID"

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.players[telegramID]
	if !ok {
		return models.PlayerProgress{}, fmt.Errorf("%s: %w", op, repository.ErrPlayerNotFound)
	}

	return p, nil
}

func (s *Storage) GetPlayerByID(_ context.Context, id string) (models.PlayerProgress, error) {
	const op = "storage.memory.GetPlayerByID"

	s.mu.RLock()
	defer s.mu.RUnlock()

	telegramID, ok := s.ids[id]
	if !ok || id == "" {
		return models.PlayerProgress{}, fmt.Errorf("%s: %w", op, repository.ErrPlayerNotFound)
	}

	return s.players[telegramID], nil
}

func (s *Storage) TopPlayers(_ context.Context, limit int) ([]dto.LeaderboardEntry, error) {
	s.mu.RLock()
	players := make([]models.PlayerProgress, 0, len(s.players))
	for _, p := range s.players {
		players = append(players, p)
	}
	s.mu.RUnlock()

	return repository.RankPlayers(players, limit), nil
}

func (s *Storage) Ping(context.Context) error {
	return nil
}

func (s *Storage) Close() error {
	return nil
}

// Count returns the number of stored players.
func (s *Storage) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players)
}
