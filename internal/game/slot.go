package game

import "casino-backend/internal/config"

type SpinOutcome struct {
	Symbols    [3]string
	Multiplier int64
	Jackpot    bool
}

// Spin draws three independent reels. With JackpotOdds set, a 1-in-N roll
// made first forces a top-symbol triple.
func Spin(src Source, rules config.SlotRules) SpinOutcome {
	if rules.JackpotOdds > 0 && src.IntN(rules.JackpotOdds) == 0 {
		s := [3]string{rules.TopSymbol, rules.TopSymbol, rules.TopSymbol}
		return SpinOutcome{Symbols: s, Multiplier: SlotMultiplier(s, rules), Jackpot: true}
	}

	var s [3]string
	for i := range s {
		s[i] = rules.Symbols[src.IntN(len(rules.Symbols))]
	}
	return SpinOutcome{Symbols: s, Multiplier: SlotMultiplier(s, rules)}
}

func SlotMultiplier(s [3]string, rules config.SlotRules) int64 {
	switch {
	case s[0] == s[1] && s[1] == s[2]:
		if s[0] == rules.TopSymbol {
			return rules.TopTripleMultiplier
		}
		if m, ok := rules.TripleOverrides[s[0]]; ok {
			return m
		}
		return rules.TripleMultiplier
	case s[0] == s[1] || s[1] == s[2] || s[0] == s[2]:
		return rules.PairMultiplier
	}
	return 0
}
