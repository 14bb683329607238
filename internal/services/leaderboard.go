package services

import (
	"context"

	"go.uber.org/zap"

	"casino-backend/internal/models"
)

// Leaderboard recomputes the top standings off the request path. Refresh
// requests that arrive while one is queued are coalesced, so a burst of
// settlements costs a single read and broadcast.
type Leaderboard struct {
	store *RedisService
	size  int
	out   Broadcaster
	log   *zap.Logger
	kick  chan struct{}
}

func NewLeaderboard(store *RedisService, size int, out Broadcaster, log *zap.Logger) *Leaderboard {
	return &Leaderboard{
		store: store,
		size:  size,
		out:   out,
		log:   log.Named("leaderboard"),
		kick:  make(chan struct{}, 1),
	}
}

func (l *Leaderboard) Refresh() {
	select {
	case l.kick <- struct{}{}:
	default:
	}
}

func (l *Leaderboard) Top(ctx context.Context) ([]models.Standing, error) {
	return l.store.TopAccounts(ctx, l.size)
}

// Run publishes standings until ctx is done.
func (l *Leaderboard) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.kick:
			standings, err := l.Top(ctx)
			if err != nil {
				l.log.Warn("failed to read leaderboard", zap.Error(err))
				continue
			}
			l.out.BroadcastLeaderboard(standings)
		}
	}
}
