package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"tg-clicker/internal/domain/dto"
	"tg-clicker/internal/domain/models"
	"tg-clicker/internal/repository"
)

const ext = ".json"

// Storage keeps one JSON document per player in a directory.
type Storage struct {
	mu  sync.RWMutex
	dir string
}

func New(dir string) (*Storage, error) {
	const op = "storage.file.New"

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{dir: dir}, nil
}

func (s *Storage) path(telegramID string) string {
	return filepath.Join(s.dir, url.PathEscape(telegramID)+ext)
}

func (s *Storage) UpsertPlayer(_ context.Context, p models.PlayerProgress) (models.PlayerProgress, error) {
	const op = "storage.file.UpsertPlayer"

	if p.TelegramID == "" {
		return models.PlayerProgress{}, fmt.Errorf("%s: empty telegram id", op)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.read(s.path(p.TelegramID))
	switch {
	case err == nil:
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
	case !errors.Is(err, repository.ErrPlayerNotFound):
		return models.PlayerProgress{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.write(p); err != nil {
		return models.PlayerProgress{}, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

func (s *Storage) GetPlayerByTelegramID(_ context.Context, telegramID string) (models.PlayerProgress, error) {
	const op = "storage.file.GetPlayerByTelegramID"

	if telegramID == "" {
		return models.PlayerProgress{}, fmt.Errorf("%s: %w", op, repository.ErrPlayerNotFound)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, err := s.read(s.path(telegramID))
	if err != nil {
		return models.PlayerProgress{}, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

func (s *Storage) GetPlayerByID(_ context.Context, id string) (models.PlayerProgress, error) {
	const op = "storage.file.GetPlayerByID"

	s.mu.RLock()
	defer s.mu.RUnlock()

	players, err := s.readAll()
	if err != nil {
		return models.PlayerProgress{}, fmt.Errorf("%s: %w", op, err)
	}

	for _, p := range players {
		if id != "" && p.ID == id {
			return p, nil
		}
	}

	return models.PlayerProgress{}, fmt.Errorf("%s: %w", op, repository.ErrPlayerNotFound)
}

func (s *Storage) TopPlayers(_ context.Context, limit int) ([]dto.LeaderboardEntry, error) {
	const op = "storage.file.TopPlayers"

	s.mu.RLock()
	players, err := s.readAll()
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return repository.RankPlayers(players, limit), nil
}

func (s *Storage) Ping(context.Context) error {
	const op = "storage.file.Ping"

	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: %s is not a directory", op, s.dir)
	}

	return nil
}

func (s *Storage) Close() error {
	return nil
}

func (s *Storage) read(path string) (models.PlayerProgress, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return models.PlayerProgress{}, repository.ErrPlayerNotFound
	}
	if err != nil {
		return models.PlayerProgress{}, err
	}

	var p models.PlayerProgress
	if err := json.Unmarshal(b, &p); err != nil {
		return models.PlayerProgress{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	return p, nil
}

func (s *Storage) readAll() ([]models.PlayerProgress, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	players := make([]models.PlayerProgress, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		p, err := s.read(filepath.Join(s.dir, e.Name()))
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}

	return players, nil
}

// write replaces the player file atomically through a rename.
func (s *Storage) write(p models.PlayerProgress) error {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "player-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), s.path(p.TelegramID))
}
