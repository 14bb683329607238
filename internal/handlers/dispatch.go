package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"casino-backend/internal/models"
	"casino-backend/internal/services"
)

// decode reads a request payload. A missing payload decodes to the zero value.
func decode[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 || string(raw) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("%w: %v", services.ErrInvalidMessage, err)
	}
	return v, nil
}

func (h *WebSocketHandler) dispatch(ctx context.Context, c *Client, msg inbound) {
	var (
		typ  string
		data interface{}
		err  error
	)

	switch msg.Type {
	case "login":
		h.login(ctx, c, msg.Data, false)
		return
	case "resume":
		h.login(ctx, c, msg.Data, true)
		return

	case "spin":
		typ = "spin_result"
		data, err = withBet(msg.Data, func(req models.BetRequest) (*models.SpinResult, error) {
			return h.engine.Spin(ctx, c.sess, req)
		})
	case "double_up":
		typ = "du_result"
		data, err = withBet(msg.Data, func(req models.BetRequest) (*models.DoubleUpResult, error) {
			return h.engine.DoubleUp(ctx, c.sess, req)
		})
	case "blackjack_start":
		typ = "bj_update"
		data, err = withBet(msg.Data, func(req models.BetRequest) (*models.BlackjackUpdate, error) {
			return h.engine.StartBlackjack(ctx, c.sess, req)
		})
	case "blackjack_hit":
		update, result, hitErr := h.engine.Hit(ctx, c.sess)
		typ, data, err = "bj_update", update, hitErr
		if result != nil {
			typ, data = "bj_result", result
		}
	case "blackjack_stand":
		typ = "bj_result"
		data, err = h.engine.Stand(ctx, c.sess)
	case "highlow_start":
		typ = "hl_setup"
		data, err = withBet(msg.Data, func(req models.BetRequest) (*models.HighLowSetup, error) {
			return h.engine.StartHighLow(ctx, c.sess, req)
		})
	case "highlow_guess":
		typ = "hl_result"
		var req models.GuessRequest
		if req, err = decode[models.GuessRequest](msg.Data); err == nil {
			data, err = h.engine.Guess(ctx, c.sess, req)
		}
	case "highlow_collect":
		typ = "hl_result"
		data, err = h.engine.Collect(ctx, c.sess)

	case "bank_deposit", "bank_withdraw":
		typ = "bank_update"
		var req models.BankRequest
		if req, err = decode[models.BankRequest](msg.Data); err == nil {
			if msg.Type == "bank_deposit" {
				data, err = h.engine.Deposit(ctx, c.sess, req)
			} else {
				data, err = h.engine.Withdraw(ctx, c.sess, req)
			}
		}

	case "chat_send":
		var req models.ChatRequest
		if req, err = decode[models.ChatRequest](msg.Data); err == nil {
			// delivered to the sender through the broadcast
			_, err = h.chat.Send(ctx, c.sess, req)
		}

	case "ping":
		typ, data = "pong", map[string]int64{"time": time.Now().Unix()}

	default:
		err = fmt.Errorf("%w: unknown type %q", services.ErrInvalidMessage, msg.Type)
	}

	if err != nil {
		h.sendError(c, err)
		return
	}
	if typ != "" {
		c.reply(typ, data)
	}
}

// withBet decodes a bet payload and runs fn with it. Results are returned as
// interface{} only after the nil check, so a failed call never yields a
// typed nil.
func withBet[T any](raw json.RawMessage, fn func(models.BetRequest) (*T, error)) (interface{}, error) {
	req, err := decode[models.BetRequest](raw)
	if err != nil {
		return nil, err
	}
	res, err := fn(req)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (h *WebSocketHandler) login(ctx context.Context, c *Client, raw json.RawMessage, resume bool) {
	var (
		res *services.LoginResult
		err error
	)
	if resume {
		var req models.ResumeRequest
		if req, err = decode[models.ResumeRequest](raw); err == nil {
			res, err = h.auth.Resume(ctx, c.sess, req)
		}
	} else {
		var req models.LoginRequest
		if req, err = decode[models.LoginRequest](raw); err == nil {
			res, err = h.auth.Login(ctx, c.sess, req)
		}
	}
	if err != nil {
		code, message := errorReply(err)
		if code == codeServerError {
			h.log.Error("login failed", zap.String("conn", c.sess.ID()), zap.Error(err))
		}
		c.reply("login_error", models.LoginError{Reason: message})
		return
	}

	c.reply("login_ok", models.LoginOK{
		Name:    res.Account.Name,
		Balance: res.Account.Chips,
		Bank:    res.Account.Bank,
		Token:   res.Token,
	})

	history, err := h.chat.History(ctx)
	if err != nil {
		h.log.Warn("failed to load chat history", zap.Error(err))
		return
	}
	c.reply("chat_history", models.ChatHistory{Messages: history})
}

func (h *WebSocketHandler) sendError(c *Client, err error) {
	code, message := errorReply(err)
	if code == codeServerError {
		h.log.Error("request failed", zap.String("conn", c.sess.ID()), zap.Error(err))
	}
	c.reply("error", models.ErrorReply{Code: code, Message: message})
}
