package game

import "casino-backend/internal/config"

type DoubleUpOutcome struct {
	PlayerFace int
	DealerFace int
	Outcome    Outcome
	Multiplier int64
}

// DoubleUp compares one face for each side: higher player face pays 2x,
// a tie refunds the wager.
func DoubleUp(src Source, rules config.DoubleUpRules) DoubleUpOutcome {
	o := DoubleUpOutcome{
		PlayerFace: src.IntN(rules.Faces),
		DealerFace: src.IntN(rules.Faces),
	}
	switch {
	case o.PlayerFace > o.DealerFace:
		o.Outcome, o.Multiplier = OutcomeWin, 2
	case o.PlayerFace == o.DealerFace:
		o.Outcome, o.Multiplier = OutcomePush, 1
	default:
		o.Outcome = OutcomeLose
	}
	return o
}
