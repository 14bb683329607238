package models

import "time"

type TransactionType string

const (
	TransactionTypeBet      TransactionType = "bet"
	TransactionTypePayout   TransactionType = "payout"
	TransactionTypeBonus    TransactionType = "bonus"
	TransactionTypeDeposit  TransactionType = "deposit"
	TransactionTypeWithdraw TransactionType = "withdraw"
)

// Transaction is one entry of a player's recent balance history.
type Transaction struct {
	ID           string          `json:"id"`
	Account      string          `json:"account"`
	Type         TransactionType `json:"type"`
	Amount       int64           `json:"amount"`
	BalanceAfter int64           `json:"balance_after"`
	GameID       string          `json:"game_id,omitempty"`
	GameType     string          `json:"game_type,omitempty"`
	Description  string          `json:"description"`
	CreatedAt    time.Time       `json:"created_at"`
}
