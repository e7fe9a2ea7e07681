package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tg-clicker/internal/domain/dto"
	"tg-clicker/internal/domain/models"
	"tg-clicker/internal/lib/metrics"
	"tg-clicker/internal/middlewares"
	"tg-clicker/internal/services"
)

type PlayerService interface {
	SavePlayer(ctx context.Context, owner string, payload dto.PlayerPayload) (models.PlayerProgress, bool, error)
	GetPlayer(ctx context.Context, telegramID string) (models.PlayerProgress, error)
	UpdatePlayer(ctx context.Context, owner, key string, patch dto.PlayerPayload) (models.PlayerProgress, bool, error)
	ListTop(ctx context.Context, limit int) ([]dto.LeaderboardEntry, error)
}

type SaveRecorder interface {
	RecordSave(outcome string)
}

type PlayerHandler struct {
	log           *slog.Logger
	playerService PlayerService
	recorder      SaveRecorder
}

func NewPlayerHandler(log *slog.Logger, playerService PlayerService, recorder SaveRecorder) *PlayerHandler {
	return &PlayerHandler{
		log:           log,
		playerService: playerService,
		recorder:      recorder,
	}
}

// SavePlayer
// @Summary Create or overwrite player progress
// @Description Upserts the record of the given telegramId. Accepts the flattened shape or a nested gameState.
// @Tags players
// @Accept json
// @Produce json
// @Param player body dto.PlayerPayload true "Player progress"
// @Success 200 {object} models.PlayerProgress "Existing record overwritten"
// @Success 201 {object} models.PlayerProgress "Record created"
// @Failure 400 {object} dto.ErrorResponse "Missing telegramId or gameState"
// @Failure 403 {object} dto.ErrorResponse "Record belongs to another user"
// @Failure 503 {object} dto.ErrorResponse "Storage unavailable"
// @Router /players [post]
func (h *PlayerHandler) SavePlayer(c *gin.Context) {
	payload, ok := h.bindPayload(c)
	if !ok {
		return
	}

	player, created, err := h.playerService.SavePlayer(c.Request.Context(), middlewares.Owner(c), payload)
	if err != nil {
		h.recordFailure(err)
		h.writeError(c, err)
		return
	}

	if created {
		h.recorder.RecordSave(metrics.SaveCreated)
		c.JSON(http.StatusCreated, player)
		return
	}

	h.recorder.RecordSave(metrics.SaveUpdated)
	c.JSON(http.StatusOK, player)
}

// GetPlayer
// @Summary Get player progress
// @Tags players
// @Produce json
// @Param telegramId path string true "Telegram user id"
// @Success 200 {object} models.PlayerProgress
// @Failure 404 {object} dto.ErrorResponse "Player not found"
// @Failure 503 {object} dto.ErrorResponse "Storage unavailable"
// @Router /players/{telegramId} [get]
func (h *PlayerHandler) GetPlayer(c *gin.Context) {
	player, err := h.playerService.GetPlayer(c.Request.Context(), c.Param("telegramId"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, player)
}

// UpdatePlayer
// @Summary Merge a partial update into player progress
// @Description The path key is matched against the record id first, then against the telegramId.
// @Description A record is created when nothing matches.
// @Tags players
// @Accept json
// @Produce json
// @Param telegramId path string true "Record id or telegram user id"
// @Param player body dto.PlayerPayload true "Partial player progress"
// @Success 200 {object} models.PlayerProgress
// @Failure 400 {object} dto.ErrorResponse "Malformed body"
// @Failure 403 {object} dto.ErrorResponse "Record belongs to another user"
// @Failure 503 {object} dto.ErrorResponse "Storage unavailable"
// @Router /players/{telegramId} [put]
func (h *PlayerHandler) UpdatePlayer(c *gin.Context) {
	patch, ok := h.bindPayload(c)
	if !ok {
		return
	}

	player, created, err := h.playerService.UpdatePlayer(c.Request.Context(), middlewares.Owner(c), c.Param("telegramId"), patch)
	if err != nil {
		h.recordFailure(err)
		h.writeError(c, err)
		return
	}

	if created {
		h.recorder.RecordSave(metrics.SaveCreated)
	} else {
		h.recorder.RecordSave(metrics.SaveUpdated)
	}

	c.JSON(http.StatusOK, player)
}

// Leaderboard
// @Summary Top players by score
// @Tags players
// @Produce json
// @Param limit query int false "Number of entries, 1..10" default(10)
// @Success 200 {array} dto.LeaderboardEntry
// @Failure 503 {object} dto.ErrorResponse "Storage unavailable"
// @Router /leaderboard [get]
func (h *PlayerHandler) Leaderboard(c *gin.Context) {
	limit := services.DefaultLeaderboardLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	entries, err := h.playerService.ListTop(c.Request.Context(), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, entries)
}

// Preflight answers CORS preflight and API availability probes.
func (h *PlayerHandler) Preflight(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func (h *PlayerHandler) bindPayload(c *gin.Context) (dto.PlayerPayload, bool) {
	var payload dto.PlayerPayload
	if err := c.ShouldBindJSON(&payload); err != nil && !errors.Is(err, io.EOF) {
		h.recorder.RecordSave(metrics.SaveInvalid)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return dto.PlayerPayload{}, false
	}

	return payload, true
}

func (h *PlayerHandler) recordFailure(err error) {
	if errors.Is(err, services.ErrValidation) || errors.Is(err, services.ErrForbidden) {
		h.recorder.RecordSave(metrics.SaveInvalid)
		return
	}
	h.recorder.RecordSave(metrics.SaveFailed)
}

func (h *PlayerHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrMissingTelegramID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing telegramId"})
	case errors.Is(err, services.ErrMissingGameState):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing gameState"})
	case errors.Is(err, services.ErrPlayerNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Player not found"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	case errors.Is(err, services.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Storage unavailable"})
	default:
		h.log.Error("unexpected error", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
	}
}
