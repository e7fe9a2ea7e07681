package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tg-clicker/internal/domain/dto"
	"tg-clicker/internal/domain/models"
	"tg-clicker/internal/repository"
)

const playersTable = "players"

const schema = `
CREATE TABLE IF NOT EXISTS players (
	telegram_id                    TEXT PRIMARY KEY,
	id                             TEXT NOT NULL UNIQUE,
	username                       TEXT NOT NULL,
	score                          DOUBLE PRECISION NOT NULL DEFAULT 0,
	multiplier                     DOUBLE PRECISION NOT NULL DEFAULT 1,
	auto_clicker_level             INTEGER NOT NULL DEFAULT 0,
	auto_clicker_cost              DOUBLE PRECISION NOT NULL DEFAULT 10,
	auto_clicker_base_cost         DOUBLE PRECISION NOT NULL DEFAULT 10,
	auto_clicker_clicks_per_second DOUBLE PRECISION NOT NULL DEFAULT 0,
	click_power_level              INTEGER NOT NULL DEFAULT 0,
	click_power_cost               DOUBLE PRECISION NOT NULL DEFAULT 50,
	click_power_base_cost          DOUBLE PRECISION NOT NULL DEFAULT 50,
	click_power_power              DOUBLE PRECISION NOT NULL DEFAULT 1,
	created_at                     TIMESTAMPTZ NOT NULL,
	last_updated                   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS players_score_idx ON players (score DESC);
`

// id and created_at are left out of the conflict update so an existing record keeps its identity.
const upsertSuffix = `ON CONFLICT (telegram_id) DO UPDATE SET
	username = EXCLUDED.username,
	score = EXCLUDED.score,
	multiplier = EXCLUDED.multiplier,
	auto_clicker_level = EXCLUDED.auto_clicker_level,
	auto_clicker_cost = EXCLUDED.auto_clicker_cost,
	auto_clicker_base_cost = EXCLUDED.auto_clicker_base_cost,
	auto_clicker_clicks_per_second = EXCLUDED.auto_clicker_clicks_per_second,
	click_power_level = EXCLUDED.click_power_level,
	click_power_cost = EXCLUDED.click_power_cost,
	click_power_base_cost = EXCLUDED.click_power_base_cost,
	click_power_power = EXCLUDED.click_power_power,
	last_updated = EXCLUDED.last_updated
RETURNING ` + playerColumnList

var playerColumns = []string{
	"id",
	"telegram_id",
	"username",
	"score",
	"multiplier",
	"auto_clicker_level",
	"auto_clicker_cost",
	"auto_clicker_base_cost",
	"auto_clicker_clicks_per_second",
	"click_power_level",
	"click_power_cost",
	"click_power_base_cost",
	"click_power_power",
	"created_at",
	"last_updated",
}

const playerColumnList = "id, telegram_id, username, score, multiplier, " +
	"auto_clicker_level, auto_clicker_cost, auto_clicker_base_cost, auto_clicker_clicks_per_second, " +
	"click_power_level, click_power_cost, click_power_base_cost, click_power_power, " +
	"created_at, last_updated"

type Storage struct {
	db *pgxpool.Pool
}

func NewPostgres(ctx context.Context, conn string) (*Storage, error) {
	const op = "storage.postgres.New"

	db, err := pgxpool.New(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

// Migrate creates the players table when it does not exist yet.
func (s *Storage) Migrate(ctx context.Context) error {
	const op = "storage.postgres.Migrate"

	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) UpsertPlayer(ctx context.Context, p models.PlayerProgress) (models.PlayerProgress, error) {
	const op = "storage.postgres.UpsertPlayer"

	ac := p.Upgrades.AutoClicker
	cp := p.Upgrades.ClickPower

	sql, args, err := squirrel.Insert(playersTable).
		Columns(playerColumns...).
		Values(
			p.ID, p.TelegramID, p.Username, p.Score, p.Multiplier,
			ac.Level, ac.Cost, ac.BaseCost, ac.ClicksPerSecond,
			cp.Level, cp.Cost, cp.BaseCost, cp.Power,
			p.CreatedAt, p.LastUpdated,
		).
		Suffix(upsertSuffix).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return models.PlayerProgress{}, fmt.Errorf("%s: %w", op, err)
	}

	stored, err := scanPlayer(s.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return models.PlayerProgress{}, fmt.Errorf("%s: %w", op, err)
	}

	return stored, nil
}

func (s *Storage) GetPlayerByTelegramID(ctx context.Context, telegramID string) (models.PlayerProgress, error) {
	const op = "storage.postgres.GetPlayerByTelegramID"

	return s.getPlayer(ctx, op, squirrel.Eq{"telegram_id": telegramID})
}

func (s *Storage) GetPlayerByID(ctx context.Context, id string) (models.PlayerProgress, error) {
	const op = "storage.postgres.GetPlayerByID"

	return s.getPlayer(ctx, op, squirrel.Eq{"id": id})
}

func (s *Storage) getPlayer(ctx context.Context, op string, where squirrel.Eq) (models.PlayerProgress, error) {
	sql, args, err := squirrel.Select(playerColumns...).
		From(playersTable).
		Where(where).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return models.PlayerProgress{}, fmt.Errorf("%s: %w", op, err)
	}

	p, err := scanPlayer(s.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.PlayerProgress{}, fmt.Errorf("%s: %w", op, repository.ErrPlayerNotFound)
		}
		return models.PlayerProgress{}, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

func (s *Storage) TopPlayers(ctx context.Context, limit int) ([]dto.LeaderboardEntry, error) {
	const op = "storage.postgres.TopPlayers"

	sql, args, err := squirrel.Select("username", "score").
		From(playersTable).
		OrderBy("score DESC", "telegram_id ASC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	entries := make([]dto.LeaderboardEntry, 0, limit)
	for rows.Next() {
		var e dto.LeaderboardEntry
		if err := rows.Scan(&e.Username, &e.Score); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return entries, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	const op = "storage.postgres.Ping"

	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) Close() error {
	s.db.Close()
	return nil
}

func scanPlayer(row pgx.Row) (models.PlayerProgress, error) {
	var p models.PlayerProgress
	ac := &p.Upgrades.AutoClicker
	cp := &p.Upgrades.ClickPower

	err := row.Scan(
		&p.ID, &p.TelegramID, &p.Username, &p.Score, &p.Multiplier,
		&ac.Level, &ac.Cost, &ac.BaseCost, &ac.ClicksPerSecond,
		&cp.Level, &cp.Cost, &cp.BaseCost, &cp.Power,
		&p.CreatedAt, &p.LastUpdated,
	)

	return p, err
}
