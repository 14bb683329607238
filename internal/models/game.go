package models

import "casino-backend/internal/game"

// Outbound payloads. Field names follow the browser client.

type LoginOK struct {
	Name    string `json:"name"`
	Balance int64  `json:"balance"`
	Bank    int64  `json:"bank"`
	Token   string `json:"token"`
}

type LoginError struct {
	Reason string `json:"reason"`
}

type SpinResult struct {
	Symbols    [3]string `json:"symbols"`
	Win        int64     `json:"win"`
	Jackpot    bool      `json:"jackpot,omitempty"`
	NewBalance int64     `json:"newBalance"`
}

type BlackjackUpdate struct {
	PlayerHand   []game.Card `json:"playerHand"`
	PlayerValue  int         `json:"playerValue"`
	DealerUpcard game.Card   `json:"dealerUpcard"`
	Balance      *int64      `json:"balance,omitempty"`
}

type BlackjackResult struct {
	PlayerHand  []game.Card  `json:"playerHand"`
	DealerHand  []game.Card  `json:"dealerHand"`
	PlayerValue int          `json:"playerValue"`
	DealerValue int          `json:"dealerValue"`
	Outcome     game.Outcome `json:"outcome"`
	Payout      int64        `json:"payout"`
	NewBalance  int64        `json:"newBalance"`
}

type HighLowSetup struct {
	CurrentCard game.Card `json:"currentCard"`
	Bet         int64     `json:"bet"`
	Balance     int64     `json:"balance"`
}

// HighLowResult answers both guesses and collects. Collected and
// NewBalance are only set when the streak is cashed out.
type HighLowResult struct {
	Won        bool       `json:"won"`
	Previous   *game.Card `json:"previousCard,omitempty"`
	NextCard   *game.Card `json:"nextCard,omitempty"`
	Pending    int64      `json:"pending"`
	Streak     int        `json:"streak"`
	Capped     bool       `json:"capped,omitempty"`
	Collected  int64      `json:"collected,omitempty"`
	NewBalance *int64     `json:"newBalance,omitempty"`
}

type DoubleUpResult struct {
	PlayerFace int          `json:"playerFace"`
	DealerFace int          `json:"dealerFace"`
	Outcome    game.Outcome `json:"outcome"`
	Win        int64        `json:"win"`
	NewBalance int64        `json:"newBalance"`
}

type BankUpdate struct {
	Chips int64 `json:"chips"`
	Bank  int64 `json:"bank"`
}

type ChatHistory struct {
	Messages []ChatMessage `json:"messages"`
}

type Notice struct {
	Text string `json:"text"`
}

type ErrorReply struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
