package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrInvalidBet    = errors.New("invalid bet")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyMessage  = errors.New("message is empty")
)

type LoginRequest struct {
	Name   string `json:"name"`
	Secret string `json:"secret"`
}

// Names become part of store keys, so they never contain separators.
var validName = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)

func (r *LoginRequest) Normalize() error {
	r.Name = strings.TrimSpace(r.Name)
	if !validName.MatchString(r.Name) {
		return fmt.Errorf("name must be 1-32 letters, digits, '_' or '-'")
	}
	if r.Secret == "" {
		return fmt.Errorf("secret is required")
	}
	return nil
}

type ResumeRequest struct {
	Token string `json:"token"`
}

type BetRequest struct {
	Bet int64 `json:"bet"`
}

func (br *BetRequest) Validate(min, max int64) error {
	if br.Bet < min {
		return fmt.Errorf("%w: minimum bet is %d", ErrInvalidBet, min)
	}
	if br.Bet > max {
		return fmt.Errorf("%w: maximum bet is %d", ErrInvalidBet, max)
	}
	return nil
}

type GuessRequest struct {
	Direction string `json:"direction"`
}

type BankRequest struct {
	Amount int64 `json:"amount"`
}

func (br *BankRequest) Validate() error {
	if br.Amount <= 0 {
		return fmt.Errorf("%w: must be positive", ErrInvalidAmount)
	}
	return nil
}

type ChatRequest struct {
	Text string `json:"text"`
}

// Clean trims the text and cuts it to at most maxLen runes.
func (cr *ChatRequest) Clean(maxLen int) (string, error) {
	text := strings.TrimSpace(cr.Text)
	if text == "" {
		return "", ErrEmptyMessage
	}
	if r := []rune(text); len(r) > maxLen {
		text = string(r[:maxLen])
	}
	return text, nil
}
