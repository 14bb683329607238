package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"casino-backend/internal/game"
	"casino-backend/internal/models"
)

// ReservedWager is a debit already applied to the account. Its ID doubles as
// the settlement key, so it must be settled exactly once.
type ReservedWager struct {
	ID         string
	Account    string
	Game       game.Kind
	Amount     int64
	ReservedAt time.Time
}

type pendingSettlement struct {
	wager  ReservedWager
	payout int64
}

// Ledger is the only writer of game balances. Reserve and Settle both run as
// single store scripts, so concurrent connections of one account serialize
// on the account record.
type Ledger struct {
	store    *RedisService
	log      *zap.Logger
	attempts int
	backoff  time.Duration

	mu      sync.Mutex
	pending []pendingSettlement
}

func NewLedger(store *RedisService, log *zap.Logger) *Ledger {
	return &Ledger{
		store:    store,
		log:      log.Named("ledger"),
		attempts: 3,
		backoff:  50 * time.Millisecond,
	}
}

// SetRetry overrides how often and how patiently Settle retries the store.
func (l *Ledger) SetRetry(attempts int, backoff time.Duration) {
	if attempts < 1 {
		attempts = 1
	}
	l.attempts = attempts
	l.backoff = backoff
}

// Reserve debits amount before any game randomness is drawn and returns the
// wager together with the balance that remains.
func (l *Ledger) Reserve(ctx context.Context, account string, kind game.Kind, amount int64) (ReservedWager, int64, error) {
	if amount <= 0 {
		return ReservedWager{}, 0, ErrInvalidBet
	}

	chips, err := l.store.Reserve(ctx, account, amount)
	if err != nil {
		return ReservedWager{}, 0, err
	}

	w := ReservedWager{
		ID:         models.GenerateGameID(string(kind)),
		Account:    account,
		Game:       kind,
		Amount:     amount,
		ReservedAt: time.Now(),
	}
	l.record(ctx, w, models.TransactionTypeBet, -amount, chips)
	return w, chips, nil
}

// Settle credits payout for w and returns the new balance. Transient store
// failures are retried; when every attempt fails the settlement is queued for
// RetryPending and ErrSettlementDeferred is returned.
func (l *Ledger) Settle(ctx context.Context, w ReservedWager, payout int64) (int64, error) {
	if payout < 0 {
		return 0, fmt.Errorf("negative payout %d", payout)
	}

	var lastErr error
retry:
	for attempt := 0; attempt < l.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				break retry
			case <-time.After(l.backoff * time.Duration(attempt)):
			}
		}

		chips, err := l.apply(ctx, w, payout)
		if err == nil {
			return chips, nil
		}
		if errors.Is(err, ErrAccountNotFound) {
			return 0, err
		}
		lastErr = err
		l.log.Warn("settlement attempt failed",
			zap.String("wager", w.ID),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}

	l.mu.Lock()
	l.pending = append(l.pending, pendingSettlement{wager: w, payout: payout})
	l.mu.Unlock()

	l.log.Error("settlement deferred",
		zap.String("wager", w.ID),
		zap.String("player", w.Account),
		zap.Int64("payout", payout),
		zap.Error(lastErr),
	)
	return 0, ErrSettlementDeferred
}

func (l *Ledger) apply(ctx context.Context, w ReservedWager, payout int64) (int64, error) {
	chips, applied, err := l.store.Settle(ctx, w.Account, w.ID, payout)
	if err != nil {
		return 0, err
	}
	if applied && payout > 0 {
		l.record(ctx, w, models.TransactionTypePayout, payout, chips)
	}
	return chips, nil
}

// RetryPending drives queued settlements to completion and returns how many
// are still outstanding.
func (l *Ledger) RetryPending(ctx context.Context) int {
	l.mu.Lock()
	queue := l.pending
	l.pending = nil
	l.mu.Unlock()

	var failed []pendingSettlement
	for _, p := range queue {
		if _, err := l.apply(ctx, p.wager, p.payout); err != nil {
			if errors.Is(err, ErrAccountNotFound) {
				l.log.Error("dropping settlement for missing account", zap.String("wager", p.wager.ID))
				continue
			}
			failed = append(failed, p)
			continue
		}
		l.log.Info("deferred settlement applied",
			zap.String("wager", p.wager.ID),
			zap.Int64("payout", p.payout),
		)
	}

	l.mu.Lock()
	l.pending = append(l.pending, failed...)
	n := len(l.pending)
	l.mu.Unlock()
	return n
}

func (l *Ledger) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

func (l *Ledger) record(ctx context.Context, w ReservedWager, typ models.TransactionType, amount, balance int64) {
	l.Record(ctx, &models.Transaction{
		Account:      w.Account,
		Type:         typ,
		Amount:       amount,
		BalanceAfter: balance,
		GameID:       w.ID,
		GameType:     string(w.Game),
		Description:  fmt.Sprintf("%s %s", w.Game, typ),
	})
}

// Record appends tx to the account history. History is best effort: a
// failed write is logged and never fails the balance change it describes.
func (l *Ledger) Record(ctx context.Context, tx *models.Transaction) {
	if tx.ID == "" {
		tx.ID = models.GenerateTransactionID()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	if err := l.store.SaveTransaction(ctx, tx); err != nil {
		l.log.Warn("failed to record transaction", zap.String("tx", tx.ID), zap.Error(err))
	}
}
