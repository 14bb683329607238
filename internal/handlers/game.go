package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"casino-backend/internal/services"
)

// GameHandler serves read-only game data over REST. Play itself happens on
// the websocket.
type GameHandler struct {
	redisService *services.RedisService
	leaderboard  *services.Leaderboard
}

func NewGameHandler(redisService *services.RedisService, leaderboard *services.Leaderboard) *GameHandler {
	return &GameHandler{
		redisService: redisService,
		leaderboard:  leaderboard,
	}
}

func (h *GameHandler) GetLeaderboard(c *gin.Context) {
	standings, err := h.leaderboard.Top(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get leaderboard"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"leaderboard": standings,
	})
}

func (h *GameHandler) GetHistory(c *gin.Context) {
	player := c.GetString("player")

	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil || limit <= 0 || limit > services.MaxTransactions {
		limit = 50
	}

	txs, err := h.redisService.GetUserTransactions(c.Request.Context(), player, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"transactions": txs,
		"count":        len(txs),
	})
}
