package services

import (
	"errors"

	"casino-backend/internal/models"
)

var (
	ErrInsufficientFunds  = errors.New("insufficient chips")
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountExists      = errors.New("account already exists")
	ErrOriginTaken        = errors.New("an account already exists for this origin")
	ErrLoanLimit          = errors.New("loan limit reached")
	ErrInvalidCredentials = errors.New("invalid name or secret")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrRateLimited        = errors.New("too many requests")
	ErrSettlementDeferred = errors.New("settlement deferred")
	ErrInvalidMessage     = errors.New("invalid message")

	ErrInvalidBet = models.ErrInvalidBet
)
