package services_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"casino-backend/internal/config"
	"casino-backend/internal/game"
	"casino-backend/internal/models"
	"casino-backend/internal/services"
	"casino-backend/internal/session"
)

type recorder struct {
	mu      sync.Mutex
	notices []string
	chats   []models.ChatMessage
	boards  [][]models.Standing
}

func (r *recorder) BroadcastLeaderboard(s []models.Standing) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.boards = append(r.boards, s)
}

func (r *recorder) BroadcastChat(m models.ChatMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chats = append(r.chats, m)
}

func (r *recorder) BroadcastNotice(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, text)
}

func (r *recorder) Notices() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.notices...)
}

func (r *recorder) Boards() [][]models.Standing {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]models.Standing(nil), r.boards...)
}

type refreshCounter struct{ n atomic.Int32 }

func (c *refreshCounter) Refresh() { c.n.Add(1) }

// seq is a scripted game.Source; it is safe for concurrent use.
type seq struct {
	mu   sync.Mutex
	vals []int
	i    int
}

func (s *seq) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v % n
}

// decks hands out scripted decks in order, then shuffled ones.
type decks struct {
	mu   sync.Mutex
	next [][]game.Card
}

func (d *decks) factory() *game.Deck {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.next) == 0 {
		return game.NewShuffledDeck(game.DefaultSource())
	}
	cards := d.next[0]
	d.next = d.next[1:]
	return game.DeckOf(cards...)
}

func (d *decks) push(cards ...game.Card) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next = append(d.next, cards)
}

func card(r game.Rank, s game.Suit) game.Card { return game.Card{Suit: s, Rank: r} }

// sevens is a deck on which "high" always wins.
func sevens(n int) []game.Card {
	cards := make([]game.Card, n)
	for i := range cards {
		cards[i] = card(7, game.Suits[i%len(game.Suits)])
	}
	return cards
}

type fixture struct {
	mr     *miniredis.Miniredis
	store  *services.RedisService
	ledger *services.Ledger
	cfg    *config.Config
	out    *recorder
	board  *refreshCounter
	decks  *decks
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := services.NewRedisServiceFromClient(client)
	ledger := services.NewLedger(store, zap.NewNop())
	ledger.SetRetry(2, time.Millisecond)

	return &fixture{
		mr:     mr,
		store:  store,
		ledger: ledger,
		cfg: &config.Config{
			JWTSecret:  "test-secret",
			JWTTTL:     time.Hour,
			BcryptCost: bcrypt.MinCost,
			Rules:      config.DefaultRules(),
		},
		out:   &recorder{},
		board: &refreshCounter{},
		decks: &decks{},
	}
}

func (f *fixture) engine(opts ...services.EngineOption) *services.GameEngine {
	opts = append([]services.EngineOption{services.WithDeckFactory(f.decks.factory)}, opts...)
	return services.NewGameEngine(f.store, f.ledger, f.cfg.Rules, f.board, zap.NewNop(), opts...)
}

func (f *fixture) auth() *services.AuthService {
	return services.NewAuthService(f.store, f.ledger, services.NewJWTService(f.cfg), f.cfg, f.out, f.board, zap.NewNop())
}

// seed creates an account directly in the store.
func (f *fixture) seed(t *testing.T, name string, chips int64) {
	t.Helper()
	acct := models.NewAccount(name, "x", "", chips, time.Now())
	require.NoError(t, f.store.CreateAccount(context.Background(), acct, false))
}

// player returns a session already bound to name.
func (f *fixture) player(t *testing.T, name string) *session.Session {
	t.Helper()
	s := session.New(models.GenerateConnectionID(), "")
	require.NoError(t, s.Bind(name))
	return s
}

func (f *fixture) chips(t *testing.T, name string) int64 {
	t.Helper()
	acct, err := f.store.GetAccount(context.Background(), name)
	require.NoError(t, err)
	return acct.Chips
}
