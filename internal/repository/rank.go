package repository

import (
	"cmp"
	"slices"

	"tg-clicker/internal/domain/dto"
	"tg-clicker/internal/domain/models"
)

// RankPlayers orders players by score descending (ties by telegram id) and projects
// at most limit of them to leaderboard entries. The slice is sorted in place.
func RankPlayers(players []models.PlayerProgress, limit int) []dto.LeaderboardEntry {
	slices.SortStableFunc(players, func(a, b models.PlayerProgress) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.TelegramID, b.TelegramID)
	})

	if limit >= 0 && limit < len(players) {
		players = players[:limit]
	}

	entries := make([]dto.LeaderboardEntry, 0, len(players))
	for _, p := range players {
		entries = append(entries, dto.LeaderboardEntry{Username: p.Username, Score: p.Score})
	}

	return entries
}
