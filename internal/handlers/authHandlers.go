package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"tg-clicker/internal/domain/dto"
	"tg-clicker/internal/services"
)

type AuthService interface {
	Authenticate(ctx context.Context, initData string) (dto.AuthResponse, error)
}

type AuthHandler struct {
	log         *slog.Logger
	authService AuthService
}

func NewAuthHandler(log *slog.Logger, authService AuthService) *AuthHandler {
	return &AuthHandler{
		log:         log,
		authService: authService,
	}
}

// Auth
// @Summary Exchange Telegram Mini-App init data for a session token
// @Description The token subject is the telegram user id. Send it as "Authorization: Bearer <token>".
// @Tags auth
// @Accept json
// @Produce json
// @Param auth body dto.AuthRequest true "Mini-App init data"
// @Success 200 {object} dto.AuthResponse "Authenticated"
// @Failure 400 {object} dto.ErrorResponse "Malformed request"
// @Failure 401 {object} dto.ErrorResponse "Init data rejected"
// @Failure 404 {object} dto.ErrorResponse "Telegram auth is not configured"
// @Failure 500 {object} dto.ErrorResponse "Server error"
// @Router /auth/telegram [post]
func (h *AuthHandler) Auth(c *gin.Context) {
	var input dto.AuthRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.authService.Authenticate(c.Request.Context(), input.InitData)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAuthDisabled):
			c.JSON(http.StatusNotFound, gin.H{"error": "Telegram auth is not configured"})
		case errors.Is(err, services.ErrInvalidInitData):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		default:
			h.log.Error("failed to authenticate", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}
