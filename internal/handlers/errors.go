package handlers

import (
	"errors"

	"casino-backend/internal/game"
	"casino-backend/internal/models"
	"casino-backend/internal/services"
	"casino-backend/internal/session"
)

const codeServerError = "server_error"

var errorCodes = []struct {
	err  error
	code string
}{
	{services.ErrInsufficientFunds, "insufficient_funds"},
	{services.ErrInvalidBet, "invalid_bet"},
	{models.ErrInvalidAmount, "invalid_amount"},
	{models.ErrEmptyMessage, "empty_message"},
	{session.ErrNotAuthenticated, "not_authenticated"},
	{session.ErrAlreadyAuthenticated, "already_authenticated"},
	{session.ErrNoActiveSession, "no_active_session"},
	{session.ErrGameInProgress, "game_in_progress"},
	{game.ErrNothingToCollect, "nothing_to_collect"},
	{game.ErrInvalidDirection, "invalid_direction"},
	{game.ErrPayoutCapped, "payout_capped"},
	{services.ErrInvalidCredentials, "invalid_credentials"},
	{services.ErrInvalidToken, "invalid_token"},
	{services.ErrAccountNotFound, "account_not_found"},
	{services.ErrOriginTaken, "origin_taken"},
	{services.ErrLoanLimit, "loan_limit"},
	{services.ErrRateLimited, "rate_limited"},
	{services.ErrSettlementDeferred, "settlement_deferred"},
	{services.ErrInvalidMessage, "invalid_message"},
}

// errorReply maps err to a wire code and a message safe to show the client.
// Anything unrecognised, store failures and exhausted decks included, is a
// server_error with a generic message.
func errorReply(err error) (code, message string) {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.code, err.Error()
		}
	}
	return codeServerError, "internal error, please retry"
}
