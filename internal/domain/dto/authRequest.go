package dto

// swagger:model
type AuthRequest struct {
	InitData string `json:"initData" binding:"required" example:"query_id=AAH...&user=%7B%22id%22%3A123%7D&auth_date=1700000000&hash=..."`
}

// swagger:model
type AuthResponse struct {
	Token      string `json:"token"`
	TelegramID string `json:"telegramId" example:"123456789"`
	Username   string `json:"username" example:"johndoe"`
}
