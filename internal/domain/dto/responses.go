package dto

// swagger:model
type ErrorResponse struct {
	Error string `json:"error" example:"Player not found"`
}

// swagger:model
type StatusResponse struct {
	Status    string `json:"status" example:"ok"`
	Store     string `json:"store" example:"mongo"`
	Connected bool   `json:"connected" example:"true"`
}
