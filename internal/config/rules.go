package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// MaxAmount bounds every configured amount and any single payout. It keeps
// balances exact in the store's Lua scripts, whose numbers are doubles.
const MaxAmount int64 = 1 << 50

// GameRules holds every tunable game constant. Defaults come from
// DefaultRules; a YAML file may override any subset of fields.
type GameRules struct {
	StartingChips      int64         `yaml:"starting_chips"`
	DailyBonus         int64         `yaml:"daily_bonus"`
	DailyBonusInterval time.Duration `yaml:"daily_bonus_interval"`

	MinBet int64 `yaml:"min_bet"`
	MaxBet int64 `yaml:"max_bet"`

	// StartsPerMinute caps game starts (spins included) per account; 0 disables.
	StartsPerMinute int `yaml:"starts_per_minute"`

	LeaderboardSize int   `yaml:"leaderboard_size"`
	ChatRetention   int   `yaml:"chat_retention"`
	ChatHistory     int   `yaml:"chat_history"`
	ChatMaxLength   int   `yaml:"chat_max_length"`
	LoanLimit       int64 `yaml:"loan_limit"`

	Slot      SlotRules      `yaml:"slot"`
	Blackjack BlackjackRules `yaml:"blackjack"`
	HighLow   HighLowRules   `yaml:"highlow"`
	DoubleUp  DoubleUpRules  `yaml:"double_up"`
}

type SlotRules struct {
	Symbols   []string `yaml:"symbols"`
	TopSymbol string   `yaml:"top_symbol"`

	TopTripleMultiplier int64 `yaml:"top_triple_multiplier"`
	TripleMultiplier    int64 `yaml:"triple_multiplier"`
	PairMultiplier      int64 `yaml:"pair_multiplier"`

	// TripleOverrides sets a per-symbol triple multiplier, e.g. {"💎": 20}.
	TripleOverrides map[string]int64 `yaml:"triple_overrides"`

	// JackpotOdds forces a top-symbol triple with probability 1/JackpotOdds; 0 disables.
	JackpotOdds int `yaml:"jackpot_odds"`
}

type BlackjackRules struct {
	DealerStandsOn int   `yaml:"dealer_stands_on"`
	WinMultiplier  int64 `yaml:"win_multiplier"`
	PushMultiplier int64 `yaml:"push_multiplier"`
}

type HighLowRules struct {
	// PayoutPercent is applied to the pending payout on each correct guess:
	// 200 doubles, 190 is the discounted variant.
	PayoutPercent int64 `yaml:"payout_percent"`
	// MaxPayout caps the pending payout; the win that reaches it cashes out.
	MaxPayout int64 `yaml:"max_payout"`
}

type DoubleUpRules struct {
	Faces int `yaml:"faces"`
}

func DefaultRules() GameRules {
	return GameRules{
		StartingChips:      1000,
		DailyBonus:         500,
		DailyBonusInterval: 24 * time.Hour,
		MinBet:             1,
		MaxBet:             1_000_000,
		StartsPerMinute:    120,
		LeaderboardSize:    5,
		ChatRetention:      100,
		ChatHistory:        30,
		ChatMaxLength:      280,
		LoanLimit:          5000,
		Slot: SlotRules{
			Symbols:             []string{"🍒", "💎", "7️⃣", "🍋", "⭐"},
			TopSymbol:           "7️⃣",
			TopTripleMultiplier: 50,
			TripleMultiplier:    10,
			PairMultiplier:      2,
		},
		Blackjack: BlackjackRules{
			DealerStandsOn: 17,
			WinMultiplier:  2,
			PushMultiplier: 1,
		},
		HighLow: HighLowRules{
			PayoutPercent: 200,
			MaxPayout:     1_000_000_000_000,
		},
		DoubleUp: DoubleUpRules{
			Faces: 10,
		},
	}
}

// LoadRules returns the defaults overlaid with the YAML file at path.
// An empty path yields the defaults.
func LoadRules(path string) (GameRules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, rules.Validate()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return GameRules{}, fmt.Errorf("read game rules: %w", err)
	}
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return GameRules{}, fmt.Errorf("parse game rules %s: %w", path, err)
	}
	if err := rules.Validate(); err != nil {
		return GameRules{}, fmt.Errorf("invalid game rules %s: %w", path, err)
	}
	return rules, nil
}

func (r GameRules) Validate() error {
	switch {
	case r.StartingChips < 0:
		return fmt.Errorf("starting_chips must be >= 0")
	case r.DailyBonus < 0:
		return fmt.Errorf("daily_bonus must be >= 0")
	case r.MinBet < 1:
		return fmt.Errorf("min_bet must be >= 1")
	case r.MaxBet < r.MinBet:
		return fmt.Errorf("max_bet %d below min_bet %d", r.MaxBet, r.MinBet)
	case r.LeaderboardSize < 1:
		return fmt.Errorf("leaderboard_size must be >= 1")
	case r.ChatRetention < 1:
		return fmt.Errorf("chat_retention must be >= 1")
	case r.ChatHistory < 0 || r.ChatHistory > r.ChatRetention:
		return fmt.Errorf("chat_history must be within [0, chat_retention]")
	case r.ChatMaxLength < 1:
		return fmt.Errorf("chat_max_length must be >= 1")
	case r.LoanLimit < 0:
		return fmt.Errorf("loan_limit must be >= 0")
	case r.StartingChips > MaxAmount || r.DailyBonus > MaxAmount || r.LoanLimit > MaxAmount:
		return fmt.Errorf("starting_chips, daily_bonus and loan_limit must be <= %d", MaxAmount)
	}

	if len(r.Slot.Symbols) < 2 {
		return fmt.Errorf("slot needs at least 2 symbols")
	}
	seen := make(map[string]bool, len(r.Slot.Symbols))
	for _, s := range r.Slot.Symbols {
		if seen[s] {
			return fmt.Errorf("duplicate slot symbol %q", s)
		}
		seen[s] = true
	}
	if !seen[r.Slot.TopSymbol] {
		return fmt.Errorf("top_symbol %q is not a slot symbol", r.Slot.TopSymbol)
	}
	for s, m := range r.Slot.TripleOverrides {
		if !seen[s] {
			return fmt.Errorf("triple override for unknown symbol %q", s)
		}
		if m < 0 {
			return fmt.Errorf("negative triple override for %q", s)
		}
	}
	if r.Slot.TopTripleMultiplier < 0 || r.Slot.TripleMultiplier < 0 || r.Slot.PairMultiplier < 0 {
		return fmt.Errorf("slot multipliers must be >= 0")
	}
	if r.Slot.JackpotOdds < 0 {
		return fmt.Errorf("jackpot_odds must be >= 0")
	}
	if top := r.maxSlotMultiplier(); top > 0 && r.MaxBet > MaxAmount/top {
		return fmt.Errorf("max_bet %d times slot multiplier %d exceeds %d", r.MaxBet, top, MaxAmount)
	}

	if r.Blackjack.DealerStandsOn < 2 || r.Blackjack.DealerStandsOn > 21 {
		return fmt.Errorf("dealer_stands_on must be within [2, 21]")
	}
	if r.Blackjack.WinMultiplier < 1 || r.Blackjack.PushMultiplier < 0 {
		return fmt.Errorf("blackjack multipliers out of range")
	}
	if r.MaxBet > MaxAmount/max(r.Blackjack.WinMultiplier, r.Blackjack.PushMultiplier) {
		return fmt.Errorf("max_bet %d times blackjack multiplier exceeds %d", r.MaxBet, MaxAmount)
	}

	if r.HighLow.PayoutPercent != 200 && r.HighLow.PayoutPercent != 190 {
		return fmt.Errorf("highlow payout_percent must be 200 or 190, got %d", r.HighLow.PayoutPercent)
	}
	if r.HighLow.MaxPayout < r.MaxBet || r.HighLow.MaxPayout > MaxAmount {
		return fmt.Errorf("highlow max_payout must be within [max_bet, %d]", MaxAmount)
	}

	if r.DoubleUp.Faces < 2 {
		return fmt.Errorf("double_up faces must be >= 2")
	}
	return nil
}

func (r GameRules) maxSlotMultiplier() int64 {
	top := max(r.Slot.TopTripleMultiplier, r.Slot.TripleMultiplier, r.Slot.PairMultiplier)
	for _, m := range r.Slot.TripleOverrides {
		top = max(top, m)
	}
	return top
}
