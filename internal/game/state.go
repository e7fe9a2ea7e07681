// Package game holds the player progress rules shared by the client session and the server:
// the default template, field-level defaulting and the pure click/purchase/tick transformations.
package game

import (
	"math"

	"tg-clicker/internal/domain/dto"
	"tg-clicker/internal/domain/models"
)

const (
	AutoClickerBaseCost = 10
	ClickPowerBaseCost  = 50

	CostGrowth          = 1.5
	ClicksPerSecondStep = 0.5
	PowerGrowth         = 1.5

	// MaxUpgradeLevel keeps cost finite: 1.5^1000 times a base cost still fits in a float64.
	MaxUpgradeLevel = 1000

	DefaultUsername = "Anonymous"
)

// DefaultState is the template every partial state is merged over.
func DefaultState() models.GameState {
	return models.GameState{
		Score:      0,
		Multiplier: 1,
		Upgrades: models.Upgrades{
			AutoClicker: models.AutoClicker{
				Level:           0,
				Cost:            AutoClickerBaseCost,
				BaseCost:        AutoClickerBaseCost,
				ClicksPerSecond: 0,
			},
			ClickPower: models.ClickPower{
				Level:    0,
				Cost:     ClickPowerBaseCost,
				BaseCost: ClickPowerBaseCost,
				Power:    1,
			},
		},
	}
}

// UpgradeCost is floor(baseCost * 1.5^level).
func UpgradeCost(baseCost float64, level int) float64 {
	return math.Floor(baseCost * math.Pow(CostGrowth, float64(level)))
}

// Initialize builds a fully populated state from an optional partial one.
func Initialize(data *dto.GameStatePayload) models.GameState {
	return Apply(DefaultState(), data)
}

// Apply merges every valid leaf of patch over base and sanitizes the result.
// A leaf that is missing or not numeric keeps the base value. Cost and baseCost are not merged:
// baseCost is a constant and cost is derived from the level.
func Apply(base models.GameState, patch *dto.GameStatePayload) models.GameState {
	out := base
	if patch == nil {
		return Sanitize(out)
	}

	mergeFloat(&out.Score, patch.Score)
	mergeFloat(&out.Multiplier, patch.Multiplier)

	if patch.Upgrades != nil {
		if ac := patch.Upgrades.AutoClicker; ac != nil {
			mergeLevel(&out.Upgrades.AutoClicker.Level, ac.Level)
			mergeFloat(&out.Upgrades.AutoClicker.ClicksPerSecond, ac.ClicksPerSecond)
		}
		if cp := patch.Upgrades.ClickPower; cp != nil {
			mergeLevel(&out.Upgrades.ClickPower.Level, cp.Level)
			mergeFloat(&out.Upgrades.ClickPower.Power, cp.Power)
		}
	}

	return Sanitize(out)
}

// Sanitize repairs an uninitialized or corrupted state field by field.
// The zero value sanitizes to DefaultState().
func Sanitize(s models.GameState) models.GameState {
	if !finite(s.Score) || s.Score < 0 {
		s.Score = 0
	}
	if !finite(s.Multiplier) || s.Multiplier < 1 {
		s.Multiplier = 1
	}

	ac := &s.Upgrades.AutoClicker
	ac.Level = clampLevel(ac.Level)
	ac.BaseCost = AutoClickerBaseCost
	ac.Cost = UpgradeCost(ac.BaseCost, ac.Level)
	if !finite(ac.ClicksPerSecond) || ac.ClicksPerSecond < 0 {
		ac.ClicksPerSecond = 0
	}

	cp := &s.Upgrades.ClickPower
	cp.Level = clampLevel(cp.Level)
	cp.BaseCost = ClickPowerBaseCost
	cp.Cost = UpgradeCost(cp.BaseCost, cp.Level)
	if !finite(cp.Power) || cp.Power < 1 {
		cp.Power = 1
	}

	return s
}

// NormalizePlayer turns a wire payload of either shape into a complete record.
// Fields nested under gameState win over flattened ones.
func NormalizePlayer(p dto.PlayerPayload, fallbackUsername string) models.PlayerProgress {
	state := Initialize(&p.GameStatePayload)
	if p.GameState != nil {
		state = Apply(state, p.GameState)
	}

	username := p.Username
	if username == "" {
		username = fallbackUsername
	}

	player := models.PlayerProgress{
		ID:         p.ID,
		TelegramID: p.TelegramID.String(),
		Username:   username,
		GameState:  state,
	}
	if p.CreatedAt != nil {
		player.CreatedAt = *p.CreatedAt
	}
	if p.LastUpdated != nil {
		player.LastUpdated = *p.LastUpdated
	}

	return player
}

func mergeFloat(dst *float64, n dto.Number) {
	if v, ok := n.Float(); ok {
		*dst = v
	}
}

func mergeLevel(dst *int, n dto.Number) {
	v, ok := n.Float()
	if !ok {
		return
	}
	switch {
	case v < 0:
		*dst = 0
	case v > MaxUpgradeLevel:
		*dst = MaxUpgradeLevel
	default:
		*dst = int(math.Floor(v))
	}
}

func clampLevel(level int) int {
	switch {
	case level < 0:
		return 0
	case level > MaxUpgradeLevel:
		return MaxUpgradeLevel
	default:
		return level
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
