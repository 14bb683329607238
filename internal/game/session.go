package game

import (
	"errors"
	"math"
	"math/bits"
)

var (
	ErrHandResolved     = errors.New("game already resolved")
	ErrNothingToCollect = errors.New("nothing to collect")
	ErrInvalidDirection = errors.New("direction must be high or low")
	ErrPayoutCapped     = errors.New("payout limit reached, collect to continue")
)

type Kind string

const (
	KindSlot      Kind = "slot"
	KindBlackjack Kind = "blackjack"
	KindHighLow   Kind = "highlow"
	KindDoubleUp  Kind = "double_up"
)

type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLose Outcome = "lose"
	OutcomePush Outcome = "push"
)

// Session is a multi-step game in progress. Only *Blackjack and *HighLow
// implement it; single-shot games never hold one.
type Session interface {
	Kind() Kind
	ID() string
	Bet() int64
	isSession()
}

// ApplyPercent scales a non-negative amount, rounding down. It reports false
// when the product does not fit in an int64.
func ApplyPercent(amount, percent int64) (int64, bool) {
	if amount < 0 || percent < 0 {
		return 0, false
	}
	hi, lo := bits.Mul64(uint64(amount), uint64(percent))
	if hi != 0 || lo > math.MaxInt64 {
		return 0, false
	}
	return int64(lo) / 100, true
}
