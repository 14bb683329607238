package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"casino-backend/internal/config"
	"casino-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// Status codes returned as the first element of every balance script reply.
const (
	statusOK           = 0
	statusInsufficient = -1
	statusNotFound     = -2
	statusLoanLimit    = -3
	statusExists       = -4
	statusOriginTaken  = -5
)

type RedisService struct {
	client *redis.Client
}

func NewRedisService(ctx context.Context, cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisService{client: client}, nil
}

// NewRedisServiceFromClient wraps an existing client.
func NewRedisServiceFromClient(client *redis.Client) *RedisService {
	return &RedisService{client: client}
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

func (s *RedisService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func accountKey(name string) string { return fmt.Sprintf(KeyAccount, name) }

func (s *RedisService) GetAccount(ctx context.Context, name string) (*models.Account, error) {
	res := s.client.HGetAll(ctx, accountKey(name))
	fields, err := res.Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrAccountNotFound
	}

	var acct models.Account
	if err := res.Scan(&acct); err != nil {
		return nil, fmt.Errorf("failed to decode account: %w", err)
	}
	return &acct, nil
}

var createAccountScript = redis.NewScript(`
	if redis.call("EXISTS", KEYS[1]) == 1 then
		return {-4}
	end
	if ARGV[7] == "1" and ARGV[4] ~= "" and redis.call("EXISTS", KEYS[3]) == 1 then
		return {-5}
	end

	redis.call("HSET", KEYS[1],
		"name", ARGV[1], "secret", ARGV[2], "chips", ARGV[3], "bank", "0",
		"origin", ARGV[4], "last_login", ARGV[5], "created_at", ARGV[6])
	redis.call("ZADD", KEYS[2], ARGV[3], ARGV[1])
	if ARGV[4] ~= "" then
		redis.call("SET", KEYS[3], ARGV[1])
	end
	return {0}
`)

// CreateAccount inserts a new account. With exclusiveOrigin set, a second
// account from the same origin is refused with ErrOriginTaken.
func (s *RedisService) CreateAccount(ctx context.Context, acct *models.Account, exclusiveOrigin bool) error {
	keys := []string{accountKey(acct.Name), KeyLeaderboard, fmt.Sprintf(KeyOrigin, acct.Origin)}
	exclusive := "0"
	if exclusiveOrigin {
		exclusive = "1"
	}
	reply, err := createAccountScript.Run(ctx, s.client, keys,
		acct.Name, acct.Secret, acct.Chips, acct.Origin, acct.LastLogin, acct.CreatedAt, exclusive,
	).Slice()
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	_, err = scriptStatus(reply)
	return err
}

var loginScript = redis.NewScript(`
	local last = redis.call("HGET", KEYS[1], "last_login")
	if not last then
		return {-2}
	end

	local chips = tonumber(redis.call("HGET", KEYS[1], "chips"))
	local credited = 0
	if tonumber(ARGV[1]) - tonumber(last) > tonumber(ARGV[2]) then
		chips = redis.call("HINCRBY", KEYS[1], "chips", ARGV[3])
		credited = 1
		redis.call("ZADD", KEYS[2], chips, ARGV[4])
	end
	redis.call("HSET", KEYS[1], "last_login", ARGV[1])
	return {0, chips, credited}
`)

// TouchLogin refreshes last_login and credits bonus when more than interval
// has passed since the previous login.
func (s *RedisService) TouchLogin(ctx context.Context, name string, now time.Time, interval time.Duration, bonus int64) (int64, bool, error) {
	reply, err := loginScript.Run(ctx, s.client, []string{accountKey(name), KeyLeaderboard},
		now.Unix(), int64(interval.Seconds()), bonus, name,
	).Slice()
	if err != nil {
		return 0, false, fmt.Errorf("failed to record login: %w", err)
	}
	vals, err := scriptStatus(reply)
	if err != nil {
		return 0, false, err
	}
	return vals[0], vals[1] == 1, nil
}

var reserveScript = redis.NewScript(`
	local chips = redis.call("HGET", KEYS[1], "chips")
	if not chips then
		return {-2}
	end

	chips = tonumber(chips)
	local amount = tonumber(ARGV[1])
	if chips < amount then
		return {-1}
	end

	chips = redis.call("HINCRBY", KEYS[1], "chips", ARGV[3])
	redis.call("ZADD", KEYS[2], chips, ARGV[2])
	return {0, chips}
`)

// Reserve atomically checks that the account holds amount chips and removes
// them. It returns the balance after the debit.
func (s *RedisService) Reserve(ctx context.Context, name string, amount int64) (int64, error) {
	reply, err := reserveScript.Run(ctx, s.client, []string{accountKey(name), KeyLeaderboard}, amount, name, -amount).Slice()
	if err != nil {
		return 0, fmt.Errorf("failed to reserve wager: %w", err)
	}
	vals, err := scriptStatus(reply)
	if err != nil {
		return 0, err
	}
	return vals[0], nil
}

var settleScript = redis.NewScript(`
	local chips = redis.call("HGET", KEYS[1], "chips")
	if not chips then
		return {-2}
	end

	chips = tonumber(chips)
	if redis.call("EXISTS", KEYS[3]) == 1 then
		return {0, chips, 0}
	end
	redis.call("SET", KEYS[3], "1", "EX", ARGV[3])

	chips = redis.call("HINCRBY", KEYS[1], "chips", ARGV[1])
	if chips < 0 then
		redis.call("HSET", KEYS[1], "chips", "0")
		chips = 0
	end
	redis.call("ZADD", KEYS[2], chips, ARGV[2])
	return {0, chips, 1}
`)

// Settle credits payout once per settlementID. A repeated call leaves the
// balance untouched and reports applied=false.
func (s *RedisService) Settle(ctx context.Context, name, settlementID string, payout int64) (int64, bool, error) {
	keys := []string{accountKey(name), KeyLeaderboard, fmt.Sprintf(KeySettled, settlementID)}
	reply, err := settleScript.Run(ctx, s.client, keys, payout, name, int64(TTLSettled.Seconds())).Slice()
	if err != nil {
		return 0, false, fmt.Errorf("failed to settle: %w", err)
	}
	vals, err := scriptStatus(reply)
	if err != nil {
		return 0, false, err
	}
	return vals[0], vals[1] == 1, nil
}

var transferScript = redis.NewScript(`
	local chips = redis.call("HGET", KEYS[1], "chips")
	if not chips then
		return {-2}
	end

	chips = tonumber(chips)
	local bank = tonumber(redis.call("HGET", KEYS[1], "bank") or "0")
	local delta = tonumber(ARGV[1])
	if chips - delta < 0 then
		return {-1}
	end
	if bank + delta < -tonumber(ARGV[2]) then
		return {-3}
	end

	chips = redis.call("HINCRBY", KEYS[1], "chips", ARGV[4])
	bank = redis.call("HINCRBY", KEYS[1], "bank", ARGV[1])
	redis.call("ZADD", KEYS[2], chips, ARGV[3])
	return {0, chips, bank}
`)

// Transfer moves toBank chips into the bank (negative values withdraw).
// The bank may go negative down to -loanLimit.
func (s *RedisService) Transfer(ctx context.Context, name string, toBank, loanLimit int64) (chips, bank int64, err error) {
	reply, err := transferScript.Run(ctx, s.client, []string{accountKey(name), KeyLeaderboard}, toBank, loanLimit, name, -toBank).Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to transfer: %w", err)
	}
	vals, err := scriptStatus(reply)
	if err != nil {
		return 0, 0, err
	}
	return vals[0], vals[1], nil
}

// scriptStatus maps the leading status code of a script reply to an error and
// returns the remaining integers.
func scriptStatus(reply []interface{}) ([]int64, error) {
	if len(reply) == 0 {
		return nil, errors.New("empty script reply")
	}
	vals := make([]int64, len(reply))
	for i, v := range reply {
		n, ok := v.(int64)
		if !ok {
			return nil, fmt.Errorf("unexpected script reply %v", v)
		}
		vals[i] = n
	}

	switch vals[0] {
	case statusOK:
		return vals[1:], nil
	case statusInsufficient:
		return nil, ErrInsufficientFunds
	case statusNotFound:
		return nil, ErrAccountNotFound
	case statusLoanLimit:
		return nil, ErrLoanLimit
	case statusExists:
		return nil, ErrAccountExists
	case statusOriginTaken:
		return nil, ErrOriginTaken
	}
	return nil, fmt.Errorf("unknown script status %d", vals[0])
}

func (s *RedisService) TopAccounts(ctx context.Context, n int) ([]models.Standing, error) {
	zs, err := s.client.ZRevRangeWithScores(ctx, KeyLeaderboard, 0, int64(n)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}

	standings := make([]models.Standing, 0, len(zs))
	for _, z := range zs {
		name, _ := z.Member.(string)
		standings = append(standings, models.Standing{Name: name, Balance: int64(z.Score)})
	}
	return standings, nil
}

// AppendChat stores msg and trims the log to the newest retention entries.
func (s *RedisService) AppendChat(ctx context.Context, msg models.ChatMessage, retention int) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal chat message: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, KeyChat, data)
	pipe.LTrim(ctx, KeyChat, 0, int64(retention)-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append chat message: %w", err)
	}
	return nil
}

// RecentChat returns up to n of the newest messages, oldest first.
func (s *RedisService) RecentChat(ctx context.Context, n int) ([]models.ChatMessage, error) {
	raw, err := s.client.LRange(ctx, KeyChat, 0, int64(n)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read chat: %w", err)
	}

	msgs := make([]models.ChatMessage, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var m models.ChatMessage
		if err := json.Unmarshal([]byte(raw[i]), &m); err != nil {
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func (s *RedisService) SaveTransaction(ctx context.Context, tx *models.Transaction) error {
	txKey := fmt.Sprintf(KeyTransaction, tx.ID)

	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}

	if err := s.client.Set(ctx, txKey, data, TTLTransaction).Err(); err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}

	userTxKey := fmt.Sprintf(KeyHistory, tx.Account)
	if err := s.client.ZAdd(ctx, userTxKey, redis.Z{
		Score:  float64(tx.CreatedAt.UnixNano()),
		Member: tx.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to account transactions: %w", err)
	}

	// Keep only the newest entries
	s.client.ZRemRangeByRank(ctx, userTxKey, 0, -(MaxTransactions + 1))

	return nil
}

func (s *RedisService) GetUserTransactions(ctx context.Context, name string, limit int64) ([]*models.Transaction, error) {
	if limit <= 0 || limit > MaxTransactions {
		limit = 50
	}

	userTxKey := fmt.Sprintf(KeyHistory, name)

	txIDs, err := s.client.ZRevRange(ctx, userTxKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction IDs: %w", err)
	}

	transactions := make([]*models.Transaction, 0, len(txIDs))
	for _, txID := range txIDs {
		data, err := s.client.Get(ctx, fmt.Sprintf(KeyTransaction, txID)).Result()
		if err != nil {
			continue
		}

		var tx models.Transaction
		if err := json.Unmarshal([]byte(data), &tx); err != nil {
			continue
		}

		transactions = append(transactions, &tx)
	}

	return transactions, nil
}

func (s *RedisService) CheckRateLimit(ctx context.Context, name, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, name, action)

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}

	if count == 1 {
		s.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}

// ReleaseRateLimit gives back one unit taken by CheckRateLimit.
func (s *RedisService) ReleaseRateLimit(ctx context.Context, name, action string) error {
	key := fmt.Sprintf(KeyRateLimit, name, action)
	n, err := s.client.Decr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to release rate limit: %w", err)
	}
	if n <= 0 {
		return s.client.Del(ctx, key).Err()
	}
	return nil
}
