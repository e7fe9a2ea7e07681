package models

import "time"

// PlayerProgress is the persisted per-user record. The JSON shape is the flattened wire shape:
// game state fields sit next to the identity fields.
type PlayerProgress struct {
	ID          string    `json:"_id,omitempty" bson:"_id" db:"id"`
	TelegramID  string    `json:"telegramId" bson:"telegramId" db:"telegram_id"`
	Username    string    `json:"username" bson:"username" db:"username"`
	GameState   `bson:",inline"`
	CreatedAt   time.Time `json:"createdAt,omitzero" bson:"createdAt" db:"created_at"`
	LastUpdated time.Time `json:"lastUpdated,omitzero" bson:"lastUpdated" db:"last_updated"`
}

// GameState is the mutable part of the progress. Score stays fractional, it is floored only for display.
type GameState struct {
	Score      float64  `json:"score" bson:"score" db:"score"`
	Multiplier float64  `json:"multiplier" bson:"multiplier" db:"multiplier"`
	Upgrades   Upgrades `json:"upgrades" bson:"upgrades"`
}

type Upgrades struct {
	AutoClicker AutoClicker `json:"autoClicker" bson:"autoClicker"`
	ClickPower  ClickPower  `json:"clickPower" bson:"clickPower"`
}

type AutoClicker struct {
	Level           int     `json:"level" bson:"level" db:"auto_clicker_level"`
	Cost            float64 `json:"cost" bson:"cost" db:"auto_clicker_cost"`
	BaseCost        float64 `json:"baseCost" bson:"baseCost" db:"auto_clicker_base_cost"`
	ClicksPerSecond float64 `json:"clicksPerSecond" bson:"clicksPerSecond" db:"auto_clicker_clicks_per_second"`
}

type ClickPower struct {
	Level    int     `json:"level" bson:"level" db:"click_power_level"`
	Cost     float64 `json:"cost" bson:"cost" db:"click_power_cost"`
	BaseCost float64 `json:"baseCost" bson:"baseCost" db:"click_power_base_cost"`
	Power    float64 `json:"power" bson:"power" db:"click_power_power"`
}
