package game

import (
	"fmt"

	"casino-backend/internal/config"
)

type Phase string

const (
	PhasePlayerTurn Phase = "player_turn"
	PhaseDealerTurn Phase = "dealer_turn"
	PhaseResolved   Phase = "resolved"
)

// Blackjack is one hand dealt from its own single deck. No splits,
// doubles, insurance or natural bonus.
type Blackjack struct {
	id      string
	bet     int64
	rules   config.BlackjackRules
	deck    *Deck
	player  []Card
	dealer  []Card
	phase   Phase
	outcome Outcome
}

func NewBlackjack(id string, bet int64, deck *Deck, rules config.BlackjackRules) (*Blackjack, error) {
	b := &Blackjack{id: id, bet: bet, rules: rules, deck: deck, phase: PhasePlayerTurn}
	for i := 0; i < 2; i++ {
		c, err := deck.Draw()
		if err != nil {
			return nil, fmt.Errorf("deal player: %w", err)
		}
		b.player = append(b.player, c)
	}
	for i := 0; i < 2; i++ {
		c, err := deck.Draw()
		if err != nil {
			return nil, fmt.Errorf("deal dealer: %w", err)
		}
		b.dealer = append(b.dealer, c)
	}
	return b, nil
}

func (b *Blackjack) Kind() Kind   { return KindBlackjack }
func (b *Blackjack) ID() string   { return b.id }
func (b *Blackjack) Bet() int64   { return b.bet }
func (b *Blackjack) Phase() Phase { return b.phase }
func (b *Blackjack) isSession()   {}

func (b *Blackjack) Player() []Card { return append([]Card(nil), b.player...) }
func (b *Blackjack) Dealer() []Card { return append([]Card(nil), b.dealer...) }
func (b *Blackjack) Upcard() Card   { return b.dealer[0] }

func (b *Blackjack) PlayerValue() int { return BlackjackValue(b.player) }
func (b *Blackjack) DealerValue() int { return BlackjackValue(b.dealer) }

// Outcome is empty until the hand resolves.
func (b *Blackjack) Outcome() Outcome { return b.outcome }

func (b *Blackjack) Resolved() bool { return b.phase == PhaseResolved }

// Payout is the amount credited back on settlement, wager included.
func (b *Blackjack) Payout() int64 {
	switch b.outcome {
	case OutcomeWin:
		return b.bet * b.rules.WinMultiplier
	case OutcomePush:
		return b.bet * b.rules.PushMultiplier
	}
	return 0
}

// Hit draws one card for the player. Going over 21 resolves the hand as a loss.
func (b *Blackjack) Hit() (Card, error) {
	if b.phase != PhasePlayerTurn {
		return Card{}, ErrHandResolved
	}
	c, err := b.deck.Draw()
	if err != nil {
		return Card{}, err
	}
	b.player = append(b.player, c)
	if b.PlayerValue() > 21 {
		b.resolve(OutcomeLose)
	}
	return c, nil
}

// Stand plays out the dealer, who draws strictly below DealerStandsOn,
// and resolves the hand.
func (b *Blackjack) Stand() error {
	if b.phase != PhasePlayerTurn {
		return ErrHandResolved
	}
	b.phase = PhaseDealerTurn
	for b.DealerValue() < b.rules.DealerStandsOn {
		c, err := b.deck.Draw()
		if err != nil {
			return err
		}
		b.dealer = append(b.dealer, c)
	}

	p, d := b.PlayerValue(), b.DealerValue()
	switch {
	case d > 21 || p > d:
		b.resolve(OutcomeWin)
	case p == d:
		b.resolve(OutcomePush)
	default:
		b.resolve(OutcomeLose)
	}
	return nil
}

func (b *Blackjack) resolve(o Outcome) {
	b.outcome = o
	b.phase = PhaseResolved
}
