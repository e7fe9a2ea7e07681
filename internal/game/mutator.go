package game

import "tg-clicker/internal/domain/models"

// Click adds multiplier * clickPower.power to the score.
func Click(s models.GameState) models.GameState {
	s = Sanitize(s)
	s.Score += s.Multiplier * s.Upgrades.ClickPower.Power
	return s
}

// BuyAutoClicker purchases one auto clicker level when the score covers its cost.
func BuyAutoClicker(s models.GameState) (models.GameState, bool) {
	s = Sanitize(s)

	ac := &s.Upgrades.AutoClicker
	if s.Score < ac.Cost || ac.Level >= MaxUpgradeLevel {
		return s, false
	}

	s.Score -= ac.Cost
	ac.Level++
	ac.ClicksPerSecond += ClicksPerSecondStep
	ac.Cost = UpgradeCost(ac.BaseCost, ac.Level)

	return s, true
}

// BuyClickPower purchases one click power level when the score covers its cost.
func BuyClickPower(s models.GameState) (models.GameState, bool) {
	s = Sanitize(s)

	cp := &s.Upgrades.ClickPower
	if s.Score < cp.Cost || cp.Level >= MaxUpgradeLevel {
		return s, false
	}

	s.Score -= cp.Cost
	cp.Level++
	cp.Power *= PowerGrowth
	cp.Cost = UpgradeCost(cp.BaseCost, cp.Level)

	return s, true
}

// Tick applies one second of auto clicking. It reports false when nothing was added.
func Tick(s models.GameState) (models.GameState, bool) {
	s = Sanitize(s)

	gain := s.Upgrades.AutoClicker.ClicksPerSecond * s.Upgrades.ClickPower.Power
	if gain <= 0 {
		return s, false
	}

	s.Score += gain
	return s, true
}
