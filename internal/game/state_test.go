package game

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-clicker/internal/domain/dto"
	"tg-clicker/internal/domain/models"
)

func decodeState(t *testing.T, raw string) *dto.GameStatePayload {
	t.Helper()
	var p dto.GameStatePayload
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	return &p
}

func assertInvariants(t *testing.T, s models.GameState) {
	t.Helper()
	assert.GreaterOrEqual(t, s.Score, 0.0)
	assert.GreaterOrEqual(t, s.Multiplier, 1.0)

	ac := s.Upgrades.AutoClicker
	assert.GreaterOrEqual(t, ac.Level, 0)
	assert.Equal(t, float64(AutoClickerBaseCost), ac.BaseCost)
	assert.Equal(t, math.Floor(ac.BaseCost*math.Pow(1.5, float64(ac.Level))), ac.Cost)
	assert.GreaterOrEqual(t, ac.ClicksPerSecond, 0.0)

	cp := s.Upgrades.ClickPower
	assert.GreaterOrEqual(t, cp.Level, 0)
	assert.Equal(t, float64(ClickPowerBaseCost), cp.BaseCost)
	assert.Equal(t, math.Floor(cp.BaseCost*math.Pow(1.5, float64(cp.Level))), cp.Cost)
	assert.GreaterOrEqual(t, cp.Power, 1.0)
}

func TestInitialize_NilReturnsDefaults(t *testing.T) {
	s := Initialize(nil)

	assert.Equal(t, DefaultState(), s)
	assertInvariants(t, s)
}

func TestInitialize_BackfillsEveryOmittedLeaf(t *testing.T) {
	cases := map[string]string{
		"empty object":           `{}`,
		"score only":             `{"score": 42.5}`,
		"auto clicker level":     `{"upgrades": {"autoClicker": {"level": 3}}}`,
		"click power power only": `{"upgrades": {"clickPower": {"power": 2.25}}}`,
		"non numeric leaves":     `{"score": "abc", "multiplier": {}, "upgrades": {"autoClicker": {"level": true}}}`,
		"numeric strings":        `{"score": "12.5", "upgrades": {"clickPower": {"level": "2"}}}`,
		"negative values":        `{"score": -5, "multiplier": 0, "upgrades": {"autoClicker": {"level": -2, "clicksPerSecond": -1}}}`,
		"nulls":                  `{"score": null, "upgrades": {"autoClicker": null, "clickPower": {"power": null}}}`,
		"huge level":             `{"upgrades": {"clickPower": {"level": 1e9}}}`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			s := Initialize(decodeState(t, raw))
			assertInvariants(t, s)
		})
	}
}

func TestInitialize_PartialTrackKeepsDefaultsForOtherFields(t *testing.T) {
	s := Initialize(decodeState(t, `{"upgrades": {"autoClicker": {"level": 2}}}`))

	assert.Equal(t, 2, s.Upgrades.AutoClicker.Level)
	assert.Equal(t, 22.0, s.Upgrades.AutoClicker.Cost)
	assert.Equal(t, 10.0, s.Upgrades.AutoClicker.BaseCost)
	assert.Equal(t, 0.0, s.Upgrades.AutoClicker.ClicksPerSecond)
	assert.Equal(t, DefaultState().Upgrades.ClickPower, s.Upgrades.ClickPower)
	assert.Equal(t, 0.0, s.Score)
	assert.Equal(t, 1.0, s.Multiplier)
}

func TestInitialize_KeepsFractionalScore(t *testing.T) {
	s := Initialize(decodeState(t, `{"score": 10.75, "multiplier": 2}`))

	assert.Equal(t, 10.75, s.Score)
	assert.Equal(t, 2.0, s.Multiplier)
}

func TestSanitize_ZeroValueIsDefaultState(t *testing.T) {
	assert.Equal(t, DefaultState(), Sanitize(models.GameState{}))
}

func TestSanitize_RepairsCorruptedFields(t *testing.T) {
	s := DefaultState()
	s.Score = math.NaN()
	s.Multiplier = math.Inf(1)
	s.Upgrades.ClickPower.Power = math.NaN()
	s.Upgrades.AutoClicker.ClicksPerSecond = math.Inf(-1)
	s.Upgrades.AutoClicker.Cost = 1

	s = Sanitize(s)

	assert.Equal(t, DefaultState(), s)
}

func TestApply_MergesPatchOverExistingState(t *testing.T) {
	base := DefaultState()
	base.Score = 100
	base.Upgrades.AutoClicker.Level = 1
	base.Upgrades.AutoClicker.ClicksPerSecond = 0.5

	s := Apply(base, decodeState(t, `{"score": 70}`))

	assert.Equal(t, 70.0, s.Score)
	assert.Equal(t, 1, s.Upgrades.AutoClicker.Level)
	assert.Equal(t, 0.5, s.Upgrades.AutoClicker.ClicksPerSecond)
	assert.Equal(t, 15.0, s.Upgrades.AutoClicker.Cost)
}

func TestNormalizePlayer_AcceptsBothShapes(t *testing.T) {
	var flat, nested dto.PlayerPayload
	require.NoError(t, json.Unmarshal([]byte(`{"telegramId": 123, "score": 5, "upgrades": {"clickPower": {"level": 1, "power": 1.5}}}`), &flat))
	require.NoError(t, json.Unmarshal([]byte(`{"telegramId": "123", "username": "bob", "gameState": {"score": 5, "upgrades": {"clickPower": {"level": 1, "power": 1.5}}}}`), &nested))

	a := NormalizePlayer(flat, DefaultUsername)
	b := NormalizePlayer(nested, DefaultUsername)

	assert.Equal(t, "123", a.TelegramID)
	assert.Equal(t, DefaultUsername, a.Username)
	assert.Equal(t, "bob", b.Username)
	assert.Equal(t, a.GameState, b.GameState)
	assert.Equal(t, 75.0, a.Upgrades.ClickPower.Cost)
}

func TestNormalizePlayer_NestedStateWins(t *testing.T) {
	var p dto.PlayerPayload
	require.NoError(t, json.Unmarshal([]byte(`{"telegramId": "1", "score": 5, "multiplier": 3, "gameState": {"score": 9}}`), &p))

	player := NormalizePlayer(p, "unknown")

	assert.Equal(t, 9.0, player.Score)
	assert.Equal(t, 3.0, player.Multiplier)
	assert.Equal(t, "unknown", player.Username)
}
