package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"tg-clicker/internal/domain/dto"
)

type StatusService interface {
	Status(ctx context.Context) (dto.StatusResponse, error)
}

type StatusHandler struct {
	statusService StatusService
}

func NewStatusHandler(statusService StatusService) *StatusHandler {
	return &StatusHandler{statusService: statusService}
}

// Status
// @Summary Store driver and connectivity
// @Tags status
// @Produce json
// @Success 200 {object} dto.StatusResponse
// @Failure 503 {object} dto.StatusResponse
// @Router /status [get]
func (h *StatusHandler) Status(c *gin.Context) {
	status, err := h.statusService.Status(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}

	c.JSON(http.StatusOK, status)
}

func (h *StatusHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}
