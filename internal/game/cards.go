package game

import (
	"errors"
	"fmt"
	"strconv"
)

var ErrEmptyDeck = errors.New("deck is empty")

type Suit string

const (
	Spades   Suit = "♠"
	Hearts   Suit = "♥"
	Diamonds Suit = "♦"
	Clubs    Suit = "♣"
)

var Suits = [...]Suit{Spades, Hearts, Diamonds, Clubs}

// Rank orders cards for high-low: Ace=1 through King=13.
type Rank int

const (
	Ace   Rank = 1
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
)

func (r Rank) Valid() bool { return r >= Ace && r <= King }

func (r Rank) String() string {
	switch r {
	case Ace:
		return "A"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	}
	return strconv.Itoa(int(r))
}

func (r Rank) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid rank %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Rank) UnmarshalText(b []byte) error {
	switch s := string(b); s {
	case "A":
		*r = Ace
	case "J":
		*r = Jack
	case "Q":
		*r = Queen
	case "K":
		*r = King
	default:
		n, err := strconv.Atoi(s)
		if err != nil || n < 2 || n > 10 {
			return fmt.Errorf("invalid rank %q", s)
		}
		*r = Rank(n)
	}
	return nil
}

type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

func (c Card) String() string { return c.Rank.String() + string(c.Suit) }

// Deck is a single 52-card shoe. Cards are drawn front to back.
type Deck struct {
	cards []Card
	next  int
}

// NewDeck returns an unshuffled deck in suit-major order.
func NewDeck() *Deck {
	cards := make([]Card, 0, len(Suits)*13)
	for _, s := range Suits {
		for r := Ace; r <= King; r++ {
			cards = append(cards, Card{Suit: s, Rank: r})
		}
	}
	return &Deck{cards: cards}
}

func NewShuffledDeck(src Source) *Deck {
	d := NewDeck()
	d.Shuffle(src)
	return d
}

// DeckOf builds a deck that deals exactly the given cards in order.
func DeckOf(cards ...Card) *Deck {
	return &Deck{cards: append([]Card(nil), cards...)}
}

// Shuffle permutes the undealt cards with Fisher-Yates.
func (d *Deck) Shuffle(src Source) {
	if src == nil {
		src = DefaultSource()
	}
	rest := d.cards[d.next:]
	for i := len(rest) - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		rest[i], rest[j] = rest[j], rest[i]
	}
}

func (d *Deck) Draw() (Card, error) {
	if d.next >= len(d.cards) {
		return Card{}, ErrEmptyDeck
	}
	c := d.cards[d.next]
	d.next++
	return c, nil
}

func (d *Deck) Remaining() int { return len(d.cards) - d.next }

// Cards returns the undealt cards.
func (d *Deck) Cards() []Card {
	return append([]Card(nil), d.cards[d.next:]...)
}

// BlackjackValue sums a hand counting faces as 10 and aces as 11, demoting
// aces to 1 one at a time while the total exceeds 21.
func BlackjackValue(cards []Card) int {
	sum, aces := 0, 0
	for _, c := range cards {
		switch {
		case c.Rank == Ace:
			sum += 11
			aces++
		case c.Rank >= 10:
			sum += 10
		default:
			sum += int(c.Rank)
		}
	}
	for sum > 21 && aces > 0 {
		sum -= 10
		aces--
	}
	return sum
}

func HighLowRank(c Card) int { return int(c.Rank) }
