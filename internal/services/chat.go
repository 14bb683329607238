package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"casino-backend/internal/config"
	"casino-backend/internal/models"
	"casino-backend/internal/session"
)

type ChatService struct {
	store *RedisService
	rules config.GameRules
	out   Broadcaster
	log   *zap.Logger
	now   func() time.Time
}

func NewChatService(store *RedisService, rules config.GameRules, out Broadcaster, log *zap.Logger) *ChatService {
	return &ChatService{store: store, rules: rules, out: out, log: log.Named("chat"), now: time.Now}
}

// Send stores the message and broadcasts it to everyone. The author is
// flagged as a debtor while their bank balance is negative.
func (c *ChatService) Send(ctx context.Context, sess *session.Session, req models.ChatRequest) (*models.ChatMessage, error) {
	sess.Lock()
	player, err := sess.Player()
	sess.Unlock()
	if err != nil {
		return nil, err
	}

	text, err := req.Clean(c.rules.ChatMaxLength)
	if err != nil {
		return nil, err
	}

	acct, err := c.store.GetAccount(ctx, player)
	if err != nil {
		return nil, err
	}

	msg := models.ChatMessage{
		Author:   player,
		Text:     text,
		IsDebtor: acct.IsDebtor(),
		Time:     c.now().UTC(),
	}
	if err := c.store.AppendChat(ctx, msg, c.rules.ChatRetention); err != nil {
		return nil, err
	}

	c.out.BroadcastChat(msg)
	c.log.Debug("chat message", zap.String("player", player), zap.Int("len", len(text)))
	return &msg, nil
}

// History returns the latest messages, oldest first.
func (c *ChatService) History(ctx context.Context) ([]models.ChatMessage, error) {
	return c.store.RecentChat(ctx, c.rules.ChatHistory)
}
