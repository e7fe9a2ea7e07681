package dto

import (
	"encoding/json"
	"time"
)

// PlayerPayload is the request/response body for a player. It tolerates both wire shapes:
// the flattened one, where score and upgrades sit at the top level, and the nested one
// where they are wrapped in gameState.
// swagger:model
type PlayerPayload struct {
	ID         string     `json:"_id,omitempty" example:"4b0c3f5e-7a9d-4a63-9f3c-1d2e3f4a5b6c"`
	TelegramID TelegramID `json:"telegramId" example:"123456789"`
	Username   string     `json:"username,omitempty" example:"johndoe"`

	GameStatePayload

	GameState   *GameStatePayload `json:"gameState,omitempty"`
	CreatedAt   *time.Time        `json:"createdAt,omitempty"`
	LastUpdated *time.Time        `json:"lastUpdated,omitempty"`
}

// HasState reports whether the payload carries any game state in either shape.
func (p PlayerPayload) HasState() bool {
	return p.GameState != nil || !p.GameStatePayload.IsEmpty()
}

type GameStatePayload struct {
	Score      Number           `json:"score,omitzero"`
	Multiplier Number           `json:"multiplier,omitzero"`
	Upgrades   *UpgradesPayload `json:"upgrades,omitempty"`
}

// IsEmpty reports whether no state field was sent at all. A present but unusable value
// still counts as sent.
func (g GameStatePayload) IsEmpty() bool {
	return !g.Score.Set && !g.Multiplier.Set && g.Upgrades == nil
}

type UpgradesPayload struct {
	AutoClicker *AutoClickerPayload `json:"autoClicker,omitempty"`
	ClickPower  *ClickPowerPayload  `json:"clickPower,omitempty"`
}

type AutoClickerPayload struct {
	Level           Number `json:"level,omitzero"`
	Cost            Number `json:"cost,omitzero"`
	BaseCost        Number `json:"baseCost,omitzero"`
	ClicksPerSecond Number `json:"clicksPerSecond,omitzero"`
}

type ClickPowerPayload struct {
	Level    Number `json:"level,omitzero"`
	Cost     Number `json:"cost,omitzero"`
	BaseCost Number `json:"baseCost,omitzero"`
	Power    Number `json:"power,omitzero"`
}

// The upgrade objects decode leniently: a value of the wrong JSON type leaves the
// track empty so it takes the defaults, instead of failing the whole body.

func (u *UpgradesPayload) UnmarshalJSON(data []byte) error {
	type plain UpgradesPayload
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		*u = UpgradesPayload{}
		return nil
	}
	*u = UpgradesPayload(p)
	return nil
}

func (a *AutoClickerPayload) UnmarshalJSON(data []byte) error {
	type plain AutoClickerPayload
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		*a = AutoClickerPayload{}
		return nil
	}
	*a = AutoClickerPayload(p)
	return nil
}

func (c *ClickPowerPayload) UnmarshalJSON(data []byte) error {
	type plain ClickPowerPayload
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		*c = ClickPowerPayload{}
		return nil
	}
	*c = ClickPowerPayload(p)
	return nil
}
