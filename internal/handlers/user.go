package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"casino-backend/internal/services"
)

type UserHandler struct {
	authService  *services.AuthService
	redisService *services.RedisService
	hub          *WebSocketHub
}

func NewUserHandler(authService *services.AuthService, redisService *services.RedisService, hub *WebSocketHub) *UserHandler {
	return &UserHandler{
		authService:  authService,
		redisService: redisService,
		hub:          hub,
	}
}

func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	player := c.GetString("player")

	acct, err := h.authService.Account(c.Request.Context(), player)
	if errors.Is(err, services.ErrAccountNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get account"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name":       acct.Name,
		"chips":      acct.Chips,
		"bank":       acct.Bank,
		"isDebtor":   acct.IsDebtor(),
		"created_at": acct.CreatedAt,
		"last_login": acct.LastLogin,
	})
}

func (h *UserHandler) Health(c *gin.Context) {
	if err := h.redisService.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "redis": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"connections": h.hub.Count(),
	})
}
