package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casino-backend/internal/game"
	"casino-backend/internal/models"
	"casino-backend/internal/services"
	"casino-backend/internal/session"
)

// losingReels draws 🍒 💎 7️⃣ on every spin.
func losingReels() *seq { return &seq{vals: []int{0, 1, 2}} }

func TestEndToEndAlice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	engine := f.engine(services.WithSource(losingReels()))

	sess := session.New("c1", "10.0.0.1")
	res, err := f.auth().Login(ctx, sess, models.LoginRequest{Name: "alice", Secret: "pw"})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), res.Account.Chips)

	spin, err := engine.Spin(ctx, sess, models.BetRequest{Bet: 100})
	require.NoError(t, err)
	assert.Zero(t, spin.Win)
	assert.Equal(t, int64(900), spin.NewBalance)

	f.decks.push(
		card(10, game.Spades), card(8, game.Spades),
		card(10, game.Hearts), card(6, game.Hearts),
		card(game.King, game.Clubs),
	)
	update, err := engine.StartBlackjack(ctx, sess, models.BetRequest{Bet: 200})
	require.NoError(t, err)
	require.NotNil(t, update.Balance)
	assert.Equal(t, int64(700), *update.Balance)
	assert.Len(t, update.PlayerHand, 2)
	assert.Equal(t, card(10, game.Hearts), update.DealerUpcard)

	result, err := engine.Stand(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, game.OutcomeWin, result.Outcome)
	assert.Equal(t, 26, result.DealerValue)
	assert.Equal(t, int64(400), result.Payout)
	assert.Equal(t, int64(1100), result.NewBalance)
	assert.Equal(t, int64(1100), f.chips(t, "alice"))
	assert.Positive(t, f.board.n.Load())
}

func TestTopTriplePaysFiftyTimes(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "alice", 1000)
	engine := f.engine(services.WithSource(&seq{vals: []int{2}}))

	spin, err := engine.Spin(context.Background(), f.player(t, "alice"), models.BetRequest{Bet: 100})
	require.NoError(t, err)
	assert.Equal(t, [3]string{"7️⃣", "7️⃣", "7️⃣"}, spin.Symbols)
	assert.Equal(t, int64(5000), spin.Win)
	assert.Equal(t, int64(1000-100+5000), spin.NewBalance)
}

func TestDoubleStandSettlesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "alice", 1000)
	engine := f.engine()
	sess := f.player(t, "alice")

	f.decks.push(
		card(10, game.Spades), card(9, game.Spades),
		card(10, game.Hearts), card(7, game.Hearts),
	)
	_, err := engine.StartBlackjack(ctx, sess, models.BetRequest{Bet: 100})
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		settled int
		errs    []error
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Stand(ctx, sess)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				settled++
				return
			}
			errs = append(errs, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, settled)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], session.ErrNoActiveSession)
	assert.Equal(t, int64(1100), f.chips(t, "alice"))
}

func TestHitBustSettlesLoss(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "alice", 1000)
	engine := f.engine()
	sess := f.player(t, "alice")

	f.decks.push(
		card(10, game.Spades), card(6, game.Spades),
		card(10, game.Hearts), card(7, game.Hearts),
		card(3, game.Clubs), card(game.King, game.Clubs),
	)
	_, err := engine.StartBlackjack(ctx, sess, models.BetRequest{Bet: 100})
	require.NoError(t, err)

	update, result, err := engine.Hit(ctx, sess)
	require.NoError(t, err)
	require.NotNil(t, update)
	assert.Nil(t, result)
	assert.Equal(t, 19, update.PlayerValue)

	update, result, err = engine.Hit(ctx, sess)
	require.NoError(t, err)
	assert.Nil(t, update)
	require.NotNil(t, result)
	assert.Equal(t, game.OutcomeLose, result.Outcome)
	assert.Equal(t, int64(900), result.NewBalance)

	_, _, err = engine.Hit(ctx, sess)
	assert.ErrorIs(t, err, session.ErrNoActiveSession)
}

func TestCollectThenReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "alice", 1000)
	engine := f.engine()
	sess := f.player(t, "alice")

	f.decks.push(card(7, game.Spades), card(9, game.Hearts))
	setup, err := engine.StartHighLow(ctx, sess, models.BetRequest{Bet: 100})
	require.NoError(t, err)
	assert.Equal(t, card(7, game.Spades), setup.CurrentCard)
	assert.Equal(t, int64(900), setup.Balance)

	_, err = engine.Collect(ctx, sess)
	assert.ErrorIs(t, err, game.ErrNothingToCollect, "no correct guess yet")

	res, err := engine.Guess(ctx, sess, models.GuessRequest{Direction: "high"})
	require.NoError(t, err)
	assert.True(t, res.Won)
	assert.Equal(t, int64(200), res.Pending)
	assert.Nil(t, res.NewBalance)

	res, err = engine.Collect(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, int64(200), res.Collected)
	require.NotNil(t, res.NewBalance)
	assert.Equal(t, int64(1100), *res.NewBalance)

	_, err = engine.Collect(ctx, sess)
	assert.ErrorIs(t, err, game.ErrNothingToCollect)
	assert.Equal(t, int64(1100), f.chips(t, "alice"))
}

func TestHighLowLossEndsStreak(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "alice", 1000)
	engine := f.engine()
	sess := f.player(t, "alice")

	f.decks.push(card(7, game.Spades), card(7, game.Hearts), card(2, game.Clubs))
	_, err := engine.StartHighLow(ctx, sess, models.BetRequest{Bet: 100})
	require.NoError(t, err)

	res, err := engine.Guess(ctx, sess, models.GuessRequest{Direction: "high"})
	require.NoError(t, err)
	assert.True(t, res.Won, "tie favors the player")

	res, err = engine.Guess(ctx, sess, models.GuessRequest{Direction: "high"})
	require.NoError(t, err)
	assert.False(t, res.Won)
	assert.Zero(t, res.Pending)
	assert.Zero(t, res.Streak)
	require.NotNil(t, res.NewBalance)
	assert.Equal(t, int64(900), *res.NewBalance)

	_, err = engine.Guess(ctx, sess, models.GuessRequest{Direction: "low"})
	assert.ErrorIs(t, err, session.ErrNoActiveSession)
	_, err = engine.Collect(ctx, sess)
	assert.ErrorIs(t, err, game.ErrNothingToCollect)

	_, err = engine.Guess(ctx, sess, models.GuessRequest{Direction: "sideways"})
	assert.ErrorIs(t, err, game.ErrInvalidDirection)
}

func TestOneGameAtATime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "alice", 1000)
	engine := f.engine(services.WithSource(losingReels()))
	sess := f.player(t, "alice")

	_, err := engine.StartBlackjack(ctx, sess, models.BetRequest{Bet: 100})
	require.NoError(t, err)

	_, err = engine.Spin(ctx, sess, models.BetRequest{Bet: 100})
	assert.ErrorIs(t, err, session.ErrGameInProgress)
	_, err = engine.StartHighLow(ctx, sess, models.BetRequest{Bet: 100})
	assert.ErrorIs(t, err, session.ErrGameInProgress)
	_, err = engine.DoubleUp(ctx, sess, models.BetRequest{Bet: 100})
	assert.ErrorIs(t, err, session.ErrGameInProgress)
	_, err = engine.StartBlackjack(ctx, sess, models.BetRequest{Bet: 100})
	assert.ErrorIs(t, err, session.ErrGameInProgress)

	assert.Equal(t, int64(900), f.chips(t, "alice"))
}

func TestStartRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "alice", 1000)
	engine := f.engine()

	_, err := engine.Spin(ctx, session.New("anon", ""), models.BetRequest{Bet: 10})
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)

	sess := f.player(t, "alice")
	_, err = engine.Spin(ctx, sess, models.BetRequest{Bet: 0})
	assert.ErrorIs(t, err, services.ErrInvalidBet)

	_, err = engine.StartBlackjack(ctx, sess, models.BetRequest{Bet: 5000})
	assert.ErrorIs(t, err, services.ErrInsufficientFunds)
	assert.Nil(t, sess.Active())

	_, err = engine.Stand(ctx, sess)
	assert.ErrorIs(t, err, session.ErrNoActiveSession)
	assert.Equal(t, int64(1000), f.chips(t, "alice"))
}

func TestStartsAreRateLimited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "alice", 1000)
	f.cfg.Rules.StartsPerMinute = 2
	engine := f.engine(services.WithSource(losingReels()))
	sess := f.player(t, "alice")

	for i := 0; i < 2; i++ {
		_, err := engine.Spin(ctx, sess, models.BetRequest{Bet: 10})
		require.NoError(t, err)
	}
	_, err := engine.Spin(ctx, sess, models.BetRequest{Bet: 10})
	assert.ErrorIs(t, err, services.ErrRateLimited)
	assert.Equal(t, int64(980), f.chips(t, "alice"))
}

func TestDoubleUp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "alice", 1000)
	sess := f.player(t, "alice")

	res, err := f.engine(services.WithSource(&seq{vals: []int{8, 3}})).DoubleUp(ctx, sess, models.BetRequest{Bet: 100})
	require.NoError(t, err)
	assert.Equal(t, game.OutcomeWin, res.Outcome)
	assert.Equal(t, int64(200), res.Win)
	assert.Equal(t, int64(1100), res.NewBalance)

	res, err = f.engine(services.WithSource(&seq{vals: []int{4, 4}})).DoubleUp(ctx, sess, models.BetRequest{Bet: 100})
	require.NoError(t, err)
	assert.Equal(t, game.OutcomePush, res.Outcome)
	assert.Equal(t, int64(1100), res.NewBalance)
}

func TestDisconnectForfeitsWager(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "alice", 1000)
	engine := f.engine()
	sess := f.player(t, "alice")

	_, err := engine.StartBlackjack(ctx, sess, models.BetRequest{Bet: 200})
	require.NoError(t, err)

	engine.Disconnect(sess)
	assert.Nil(t, sess.Active())
	assert.Equal(t, int64(800), f.chips(t, "alice"))
}

func TestBankDepositWithdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "alice", 1000)
	engine := f.engine()
	sess := f.player(t, "alice")

	up, err := engine.Deposit(ctx, sess, models.BankRequest{Amount: 400})
	require.NoError(t, err)
	assert.Equal(t, models.BankUpdate{Chips: 600, Bank: 400}, *up)

	up, err = engine.Withdraw(ctx, sess, models.BankRequest{Amount: 1400})
	require.NoError(t, err)
	assert.Equal(t, models.BankUpdate{Chips: 2000, Bank: -1000}, *up)

	_, err = engine.Withdraw(ctx, sess, models.BankRequest{Amount: f.cfg.Rules.LoanLimit})
	assert.ErrorIs(t, err, services.ErrLoanLimit)

	_, err = engine.Deposit(ctx, sess, models.BankRequest{Amount: -5})
	assert.ErrorIs(t, err, models.ErrInvalidAmount)
}

func TestConcurrentConnectionsNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "alice", 1000)
	engine := f.engine()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		started int
	)
	for i := 0; i < 20; i++ {
		sess := f.player(t, "alice")
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := engine.StartBlackjack(ctx, sess, models.BetRequest{Bet: 100}); err == nil {
				mu.Lock()
				started++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, services.ErrInsufficientFunds)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, started)
	assert.Zero(t, f.chips(t, "alice"))
}

func TestHighLowCapCashesOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "alice", 1000)
	f.cfg.Rules.HighLow.MaxPayout = 1000
	engine := f.engine()
	sess := f.player(t, "alice")

	f.decks.push(sevens(10)...)
	_, err := engine.StartHighLow(ctx, sess, models.BetRequest{Bet: 100})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		res, err := engine.Guess(ctx, sess, models.GuessRequest{Direction: "high"})
		require.NoError(t, err)
		assert.False(t, res.Capped)
		assert.Nil(t, res.NewBalance)
	}

	res, err := engine.Guess(ctx, sess, models.GuessRequest{Direction: "high"})
	require.NoError(t, err)
	assert.True(t, res.Capped)
	assert.Equal(t, int64(1000), res.Collected)
	require.NotNil(t, res.NewBalance)
	assert.Equal(t, int64(1900), *res.NewBalance)
	assert.Nil(t, sess.Active())

	_, err = engine.Guess(ctx, sess, models.GuessRequest{Direction: "high"})
	assert.ErrorIs(t, err, session.ErrNoActiveSession)
	assert.Equal(t, int64(1900), f.chips(t, "alice"))
}

func TestMaxBetStreakSettlesAtCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rules := f.cfg.Rules
	f.seed(t, "alice", rules.MaxBet)
	engine := f.engine()
	sess := f.player(t, "alice")

	f.decks.push(sevens(100)...)
	_, err := engine.StartHighLow(ctx, sess, models.BetRequest{Bet: rules.MaxBet})
	require.NoError(t, err)

	var last *models.HighLowResult
	for i := 0; i < 90 && sess.Active() != nil; i++ {
		last, err = engine.Guess(ctx, sess, models.GuessRequest{Direction: "high"})
		require.NoError(t, err)
		require.Positive(t, last.Pending)
	}
	require.NotNil(t, last)
	assert.True(t, last.Capped)
	assert.Equal(t, rules.HighLow.MaxPayout, last.Collected)
	assert.Equal(t, rules.HighLow.MaxPayout, f.chips(t, "alice"))
}

func TestFailedStartKeepsRateBudget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "alice", 50)
	f.cfg.Rules.StartsPerMinute = 2
	engine := f.engine(services.WithSource(losingReels()))
	sess := f.player(t, "alice")

	for i := 0; i < 3; i++ {
		_, err := engine.Spin(ctx, sess, models.BetRequest{Bet: 100})
		assert.ErrorIs(t, err, services.ErrInsufficientFunds)
	}
	for i := 0; i < 2; i++ {
		_, err := engine.Spin(ctx, sess, models.BetRequest{Bet: 10})
		require.NoError(t, err)
	}
	_, err := engine.Spin(ctx, sess, models.BetRequest{Bet: 10})
	assert.ErrorIs(t, err, services.ErrRateLimited)
	assert.Equal(t, int64(30), f.chips(t, "alice"))
}
