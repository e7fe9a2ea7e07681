package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"tg-clicker/internal/domain/dto"
	"tg-clicker/internal/domain/models"
)

type PlayerRepositoryMock struct {
	mock.Mock
}

// UpsertPlayer echoes the given record when the expectation returns nil as the record.
func (m *PlayerRepositoryMock) UpsertPlayer(ctx context.Context, p models.PlayerProgress) (models.PlayerProgress, error) {
	args := m.Called(ctx, p)
	if stored, ok := args.Get(0).(models.PlayerProgress); ok {
		return stored, args.Error(1)
	}
	return p, args.Error(1)
}

func (m *PlayerRepositoryMock) GetPlayerByTelegramID(ctx context.Context, telegramID string) (models.PlayerProgress, error) {
	args := m.Called(ctx, telegramID)
	return args.Get(0).(models.PlayerProgress), args.Error(1)
}

func (m *PlayerRepositoryMock) GetPlayerByID(ctx context.Context, id string) (models.PlayerProgress, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.PlayerProgress), args.Error(1)
}

func (m *PlayerRepositoryMock) TopPlayers(ctx context.Context, limit int) ([]dto.LeaderboardEntry, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]dto.LeaderboardEntry), args.Error(1)
}

func (m *PlayerRepositoryMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
