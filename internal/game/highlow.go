package game

import (
	"fmt"
	"strings"

	"casino-backend/internal/config"
)

type Direction string

const (
	High Direction = "high"
	Low  Direction = "low"
)

func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case High:
		return High, nil
	case Low:
		return Low, nil
	}
	return "", ErrInvalidDirection
}

// HighLow is a streak of guesses against a face-up card. Each correct
// guess scales the pending payout up to a cap; a wrong guess forfeits it.
type HighLow struct {
	id        string
	bet       int64
	percent   int64
	maxPayout int64
	src       Source
	deck      *Deck
	current   Card
	pending   int64
	streak    int
	capped    bool
	done      bool
}

type GuessResult struct {
	Previous Card
	Next     Card
	Won      bool
	Pending  int64
	Streak   int
	// Capped is set by the win that brought Pending to the payout limit.
	Capped bool
}

func NewHighLow(id string, bet int64, deck *Deck, src Source, rules config.HighLowRules) (*HighLow, error) {
	c, err := deck.Draw()
	if err != nil {
		return nil, fmt.Errorf("deal face-up card: %w", err)
	}
	maxPayout := rules.MaxPayout
	if maxPayout <= 0 || maxPayout > config.MaxAmount {
		maxPayout = config.MaxAmount
	}
	return &HighLow{
		id:        id,
		bet:       bet,
		percent:   rules.PayoutPercent,
		maxPayout: maxPayout,
		src:       src,
		deck:      deck,
		current:   c,
		pending:   bet,
	}, nil
}

func (h *HighLow) Kind() Kind { return KindHighLow }
func (h *HighLow) ID() string { return h.id }
func (h *HighLow) Bet() int64 { return h.bet }
func (h *HighLow) isSession() {}

func (h *HighLow) Current() Card  { return h.current }
func (h *HighLow) Pending() int64 { return h.pending }
func (h *HighLow) Streak() int    { return h.streak }
func (h *HighLow) Resolved() bool { return h.done }
func (h *HighLow) Capped() bool   { return h.capped }

// Guess draws the next card. A rank tie wins whichever direction was chosen.
// An exhausted deck is replaced with a freshly shuffled one. Once the pending
// payout reaches the cap the streak only accepts Collect.
func (h *HighLow) Guess(dir Direction) (GuessResult, error) {
	if h.done {
		return GuessResult{}, ErrHandResolved
	}
	if h.capped {
		return GuessResult{}, ErrPayoutCapped
	}
	if dir != High && dir != Low {
		return GuessResult{}, ErrInvalidDirection
	}
	if h.deck.Remaining() == 0 {
		h.deck = NewShuffledDeck(h.src)
	}
	next, err := h.deck.Draw()
	if err != nil {
		return GuessResult{}, err
	}

	cur, nxt := HighLowRank(h.current), HighLowRank(next)
	won := (dir == High && nxt >= cur) || (dir == Low && nxt <= cur)

	res := GuessResult{Previous: h.current, Next: next, Won: won}
	if won {
		scaled, ok := ApplyPercent(h.pending, h.percent)
		if !ok || scaled >= h.maxPayout {
			scaled = h.maxPayout
			h.capped = true
		}
		h.pending = scaled
		h.streak++
		h.current = next
		res.Capped = h.capped
	} else {
		h.pending = 0
		h.streak = 0
		h.done = true
	}
	res.Pending = h.pending
	res.Streak = h.streak
	return res, nil
}

// Collect cashes out the pending payout. It requires at least one correct
// guess since the start; after a collect or a loss there is nothing left.
func (h *HighLow) Collect() (int64, error) {
	if h.done || h.streak == 0 {
		return 0, ErrNothingToCollect
	}
	amount := h.pending
	h.pending = 0
	h.streak = 0
	h.done = true
	return amount, nil
}
