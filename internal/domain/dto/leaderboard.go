package dto

// swagger:model
type LeaderboardEntry struct {
	Username string  `json:"username" bson:"username" example:"johndoe"`
	Score    float64 `json:"score" bson:"score" example:"1500"`
}
