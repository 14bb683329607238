package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"casino-backend/internal/config"
	"casino-backend/internal/game"
	"casino-backend/internal/models"
	"casino-backend/internal/session"
)

// GameEngine runs every game action for a connection session. Each method
// holds the session lock for the whole request, so a game transition and its
// settlement never interleave with another request on the same connection.
type GameEngine struct {
	store  *RedisService
	ledger *Ledger
	rules  config.GameRules
	board  Refresher
	log    *zap.Logger

	src     game.Source
	newDeck func() *game.Deck
}

type EngineOption func(*GameEngine)

// WithSource replaces the random source used for slot reels, double-up faces
// and deck shuffles.
func WithSource(src game.Source) EngineOption {
	return func(ge *GameEngine) { ge.src = src }
}

// WithDeckFactory replaces how a fresh deck is built for each hand or streak.
func WithDeckFactory(f func() *game.Deck) EngineOption {
	return func(ge *GameEngine) { ge.newDeck = f }
}

func NewGameEngine(store *RedisService, ledger *Ledger, rules config.GameRules, board Refresher, log *zap.Logger, opts ...EngineOption) *GameEngine {
	ge := &GameEngine{
		store:  store,
		ledger: ledger,
		rules:  rules,
		board:  board,
		log:    log.Named("engine"),
		src:    game.DefaultSource(),
	}
	for _, opt := range opts {
		opt(ge)
	}
	if ge.newDeck == nil {
		ge.newDeck = func() *game.Deck { return game.NewShuffledDeck(ge.src) }
	}
	return ge
}

func (ge *GameEngine) Spin(ctx context.Context, sess *session.Session, req models.BetRequest) (*models.SpinResult, error) {
	sess.Lock()
	defer sess.Unlock()

	w, _, err := ge.open(ctx, sess, game.KindSlot, req.Bet)
	if err != nil {
		return nil, err
	}

	out := game.Spin(ge.src, ge.rules.Slot)
	win := w.Amount * out.Multiplier
	chips, err := ge.settle(ctx, w, win)
	if err != nil {
		return nil, err
	}

	if out.Jackpot {
		ge.log.Info("jackpot", zap.String("player", w.Account), zap.Int64("win", win))
	}
	return &models.SpinResult{
		Symbols:    out.Symbols,
		Win:        win,
		Jackpot:    out.Jackpot,
		NewBalance: chips,
	}, nil
}

func (ge *GameEngine) DoubleUp(ctx context.Context, sess *session.Session, req models.BetRequest) (*models.DoubleUpResult, error) {
	sess.Lock()
	defer sess.Unlock()

	w, _, err := ge.open(ctx, sess, game.KindDoubleUp, req.Bet)
	if err != nil {
		return nil, err
	}

	out := game.DoubleUp(ge.src, ge.rules.DoubleUp)
	win := w.Amount * out.Multiplier
	chips, err := ge.settle(ctx, w, win)
	if err != nil {
		return nil, err
	}

	return &models.DoubleUpResult{
		PlayerFace: out.PlayerFace,
		DealerFace: out.DealerFace,
		Outcome:    out.Outcome,
		Win:        win,
		NewBalance: chips,
	}, nil
}

func (ge *GameEngine) StartBlackjack(ctx context.Context, sess *session.Session, req models.BetRequest) (*models.BlackjackUpdate, error) {
	sess.Lock()
	defer sess.Unlock()

	w, chips, err := ge.open(ctx, sess, game.KindBlackjack, req.Bet)
	if err != nil {
		return nil, err
	}

	bj, err := game.NewBlackjack(w.ID, w.Amount, ge.newDeck(), ge.rules.Blackjack)
	if err != nil {
		ge.log.Error("failed to deal hand, wager forfeited", zap.String("wager", w.ID), zap.Error(err))
		return nil, err
	}
	if err := sess.Begin(bj); err != nil {
		return nil, err
	}

	update := blackjackUpdate(bj)
	update.Balance = &chips
	return update, nil
}

// Hit returns an update while the hand is still live, or the final result
// when the player busts.
func (ge *GameEngine) Hit(ctx context.Context, sess *session.Session) (*models.BlackjackUpdate, *models.BlackjackResult, error) {
	sess.Lock()
	defer sess.Unlock()

	player, err := sess.Player()
	if err != nil {
		return nil, nil, err
	}
	bj, err := sess.Blackjack()
	if err != nil {
		return nil, nil, err
	}

	if _, err := bj.Hit(); err != nil {
		ge.abandon(sess, bj, err)
		return nil, nil, err
	}
	if !bj.Resolved() {
		return blackjackUpdate(bj), nil, nil
	}

	res, err := ge.finishBlackjack(ctx, sess, player, bj)
	return nil, res, err
}

func (ge *GameEngine) Stand(ctx context.Context, sess *session.Session) (*models.BlackjackResult, error) {
	sess.Lock()
	defer sess.Unlock()

	player, err := sess.Player()
	if err != nil {
		return nil, err
	}
	bj, err := sess.Blackjack()
	if err != nil {
		return nil, err
	}

	if err := bj.Stand(); err != nil {
		ge.abandon(sess, bj, err)
		return nil, err
	}
	return ge.finishBlackjack(ctx, sess, player, bj)
}

// finishBlackjack clears the session before settling, so a hand can reach
// the ledger only once.
func (ge *GameEngine) finishBlackjack(ctx context.Context, sess *session.Session, player string, bj *game.Blackjack) (*models.BlackjackResult, error) {
	sess.End(bj)

	payout := bj.Payout()
	chips, err := ge.settle(ctx, wagerOf(player, bj), payout)
	if err != nil {
		return nil, err
	}

	ge.log.Debug("blackjack resolved",
		zap.String("player", player),
		zap.String("game", bj.ID()),
		zap.String("outcome", string(bj.Outcome())),
		zap.Int64("payout", payout),
	)
	return &models.BlackjackResult{
		PlayerHand:  bj.Player(),
		DealerHand:  bj.Dealer(),
		PlayerValue: bj.PlayerValue(),
		DealerValue: bj.DealerValue(),
		Outcome:     bj.Outcome(),
		Payout:      payout,
		NewBalance:  chips,
	}, nil
}

func (ge *GameEngine) StartHighLow(ctx context.Context, sess *session.Session, req models.BetRequest) (*models.HighLowSetup, error) {
	sess.Lock()
	defer sess.Unlock()

	w, chips, err := ge.open(ctx, sess, game.KindHighLow, req.Bet)
	if err != nil {
		return nil, err
	}

	hl, err := game.NewHighLow(w.ID, w.Amount, ge.newDeck(), ge.src, ge.rules.HighLow)
	if err != nil {
		ge.log.Error("failed to deal face-up card, wager forfeited", zap.String("wager", w.ID), zap.Error(err))
		return nil, err
	}
	if err := sess.Begin(hl); err != nil {
		return nil, err
	}

	return &models.HighLowSetup{CurrentCard: hl.Current(), Bet: w.Amount, Balance: chips}, nil
}

// Guess advances the streak. A wrong guess ends it and settles a zero payout;
// a win that reaches the payout cap cashes the streak out.
func (ge *GameEngine) Guess(ctx context.Context, sess *session.Session, req models.GuessRequest) (*models.HighLowResult, error) {
	dir, err := game.ParseDirection(req.Direction)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	player, err := sess.Player()
	if err != nil {
		return nil, err
	}
	hl, err := sess.HighLow()
	if err != nil {
		return nil, err
	}

	r, err := hl.Guess(dir)
	if err != nil {
		ge.abandon(sess, hl, err)
		return nil, err
	}

	res := &models.HighLowResult{
		Won:      r.Won,
		Previous: &r.Previous,
		NextCard: &r.Next,
		Pending:  r.Pending,
		Streak:   r.Streak,
		Capped:   r.Capped,
	}

	var payout int64
	if r.Won {
		if !r.Capped {
			return res, nil
		}
		if payout, err = hl.Collect(); err != nil {
			return nil, err
		}
		res.Collected = payout
		ge.log.Info("highlow payout cap reached",
			zap.String("player", player),
			zap.String("game", hl.ID()),
			zap.Int64("payout", payout),
		)
	}

	sess.End(hl)
	chips, err := ge.settle(ctx, wagerOf(player, hl), payout)
	if err != nil {
		return nil, err
	}
	res.NewBalance = &chips
	return res, nil
}

// Collect cashes out the streak. Without a live streak, including right after
// a collect, it reports game.ErrNothingToCollect and changes nothing.
func (ge *GameEngine) Collect(ctx context.Context, sess *session.Session) (*models.HighLowResult, error) {
	sess.Lock()
	defer sess.Unlock()

	player, err := sess.Player()
	if err != nil {
		return nil, err
	}
	hl, err := sess.HighLow()
	if err != nil {
		return nil, game.ErrNothingToCollect
	}

	amount, err := hl.Collect()
	if err != nil {
		return nil, err
	}

	sess.End(hl)
	chips, err := ge.settle(ctx, wagerOf(player, hl), amount)
	if err != nil {
		return nil, err
	}
	return &models.HighLowResult{Won: true, Collected: amount, NewBalance: &chips}, nil
}

func (ge *GameEngine) Deposit(ctx context.Context, sess *session.Session, req models.BankRequest) (*models.BankUpdate, error) {
	return ge.transfer(ctx, sess, req, models.TransactionTypeDeposit)
}

// Withdraw moves chips out of the bank. The bank may go negative, which is a
// loan, down to the configured loan limit.
func (ge *GameEngine) Withdraw(ctx context.Context, sess *session.Session, req models.BankRequest) (*models.BankUpdate, error) {
	return ge.transfer(ctx, sess, req, models.TransactionTypeWithdraw)
}

func (ge *GameEngine) transfer(ctx context.Context, sess *session.Session, req models.BankRequest, typ models.TransactionType) (*models.BankUpdate, error) {
	sess.Lock()
	defer sess.Unlock()

	player, err := sess.Player()
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	toBank := req.Amount
	if typ == models.TransactionTypeWithdraw {
		toBank = -req.Amount
	}
	chips, bank, err := ge.store.Transfer(ctx, player, toBank, ge.rules.LoanLimit)
	if err != nil {
		return nil, err
	}

	ge.ledger.Record(ctx, &models.Transaction{
		Account:      player,
		Type:         typ,
		Amount:       -toBank,
		BalanceAfter: chips,
		Description:  fmt.Sprintf("bank %s of %d", typ, req.Amount),
	})
	ge.board.Refresh()
	return &models.BankUpdate{Chips: chips, Bank: bank}, nil
}

// Disconnect releases the session. A game still in progress is forfeited:
// its wager stays with the house and nothing is settled.
func (ge *GameEngine) Disconnect(sess *session.Session) {
	sess.Lock()
	g := sess.Close()
	player, _ := sess.Player()
	sess.Unlock()

	if g != nil {
		ge.log.Info("game forfeited on disconnect",
			zap.String("player", player),
			zap.String("game", g.ID()),
			zap.String("kind", string(g.Kind())),
			zap.Int64("bet", g.Bet()),
		)
	}
}

// open checks that sess may start a game and reserves the wager. The caller
// holds the session lock.
func (ge *GameEngine) open(ctx context.Context, sess *session.Session, kind game.Kind, bet int64) (ReservedWager, int64, error) {
	player, err := sess.Player()
	if err != nil {
		return ReservedWager{}, 0, err
	}
	if err := sess.Idle(); err != nil {
		return ReservedWager{}, 0, err
	}

	br := models.BetRequest{Bet: bet}
	if err := br.Validate(ge.rules.MinBet, ge.rules.MaxBet); err != nil {
		return ReservedWager{}, 0, err
	}
	if err := ge.allow(ctx, player); err != nil {
		return ReservedWager{}, 0, err
	}

	w, chips, err := ge.ledger.Reserve(ctx, player, kind, bet)
	if err != nil {
		ge.release(ctx, player)
		return ReservedWager{}, 0, err
	}
	ge.board.Refresh()
	return w, chips, nil
}

func (ge *GameEngine) allow(ctx context.Context, player string) error {
	if ge.rules.StartsPerMinute <= 0 {
		return nil
	}
	ok, err := ge.store.CheckRateLimit(ctx, player, "start", ge.rules.StartsPerMinute, time.Minute)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRateLimited
	}
	return nil
}

// release returns the start taken by allow when no wager was placed.
func (ge *GameEngine) release(ctx context.Context, player string) {
	if ge.rules.StartsPerMinute <= 0 {
		return
	}
	if err := ge.store.ReleaseRateLimit(ctx, player, "start"); err != nil {
		ge.log.Warn("failed to release rate limit", zap.String("player", player), zap.Error(err))
	}
}

func (ge *GameEngine) settle(ctx context.Context, w ReservedWager, payout int64) (int64, error) {
	chips, err := ge.ledger.Settle(ctx, w, payout)
	ge.board.Refresh()
	return chips, err
}

// abandon forfeits g after a failure that leaves it unplayable.
func (ge *GameEngine) abandon(sess *session.Session, g game.Session, err error) {
	if !errors.Is(err, game.ErrEmptyDeck) {
		return
	}
	sess.End(g)
	ge.log.Error("deck exhausted, game forfeited", zap.String("game", g.ID()), zap.Error(err))
}

func wagerOf(player string, g game.Session) ReservedWager {
	return ReservedWager{ID: g.ID(), Account: player, Game: g.Kind(), Amount: g.Bet()}
}

func blackjackUpdate(bj *game.Blackjack) *models.BlackjackUpdate {
	return &models.BlackjackUpdate{
		PlayerHand:   bj.Player(),
		PlayerValue:  bj.PlayerValue(),
		DealerUpcard: bj.Upcard(),
	}
}
