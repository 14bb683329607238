package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"casino-backend/internal/config"
	"casino-backend/internal/models"
	"casino-backend/internal/session"
)

type LoginResult struct {
	Account *models.Account
	Token   string
	Created bool
	Bonus   int64
}

type AuthService struct {
	store  *RedisService
	ledger *Ledger
	tokens *JWTService
	cfg    *config.Config
	out    Broadcaster
	board  Refresher
	log    *zap.Logger
	now    func() time.Time
}

func NewAuthService(store *RedisService, ledger *Ledger, tokens *JWTService, cfg *config.Config, out Broadcaster, board Refresher, log *zap.Logger) *AuthService {
	return &AuthService{
		store:  store,
		ledger: ledger,
		tokens: tokens,
		cfg:    cfg,
		out:    out,
		board:  board,
		log:    log.Named("auth"),
		now:    time.Now,
	}
}

// Login authenticates name/secret, creating the account on first sight, and
// binds the player to sess. A connection binds only once.
func (a *AuthService) Login(ctx context.Context, sess *session.Session, req models.LoginRequest) (*LoginResult, error) {
	sess.Lock()
	defer sess.Unlock()

	if _, err := sess.Player(); err == nil {
		return nil, session.ErrAlreadyAuthenticated
	}
	if err := req.Normalize(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	acct, created, err := a.findOrCreate(ctx, sess, req)
	if err != nil {
		return nil, err
	}
	if !created {
		if err := bcrypt.CompareHashAndPassword([]byte(acct.Secret), []byte(req.Secret)); err != nil {
			return nil, ErrInvalidCredentials
		}
	}

	res := &LoginResult{Account: acct, Created: created}
	if created {
		a.out.BroadcastNotice(fmt.Sprintf("%s joined the casino", acct.Name))
	} else if err := a.touch(ctx, res); err != nil {
		return nil, err
	}

	if err := a.bind(sess, res); err != nil {
		return nil, err
	}
	a.log.Info("player logged in",
		zap.String("player", acct.Name),
		zap.String("conn", sess.ID()),
		zap.Bool("created", created),
	)
	return res, nil
}

// Resume binds the player named by a token issued on an earlier login.
func (a *AuthService) Resume(ctx context.Context, sess *session.Session, req models.ResumeRequest) (*LoginResult, error) {
	sess.Lock()
	defer sess.Unlock()

	if _, err := sess.Player(); err == nil {
		return nil, session.ErrAlreadyAuthenticated
	}
	claims, err := a.tokens.ValidateToken(req.Token)
	if err != nil {
		return nil, err
	}
	acct, err := a.store.GetAccount(ctx, claims.Player)
	if err != nil {
		return nil, err
	}

	res := &LoginResult{Account: acct}
	if err := a.touch(ctx, res); err != nil {
		return nil, err
	}
	if err := a.bind(sess, res); err != nil {
		return nil, err
	}
	a.log.Info("player resumed", zap.String("player", acct.Name), zap.String("conn", sess.ID()))
	return res, nil
}

func (a *AuthService) findOrCreate(ctx context.Context, sess *session.Session, req models.LoginRequest) (*models.Account, bool, error) {
	acct, err := a.store.GetAccount(ctx, req.Name)
	if err == nil {
		return acct, false, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, false, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Secret), a.cfg.BcryptCost)
	if err != nil {
		return nil, false, fmt.Errorf("failed to hash secret: %w", err)
	}
	acct = models.NewAccount(req.Name, string(hash), sess.Origin(), a.cfg.Rules.StartingChips, a.now())

	err = a.store.CreateAccount(ctx, acct, a.cfg.OneAccountPerOrigin)
	switch {
	case err == nil:
		return acct, true, nil
	case errors.Is(err, ErrAccountExists):
		// Lost a race with another first login for the same name.
		acct, err = a.store.GetAccount(ctx, req.Name)
		return acct, false, err
	}
	return nil, false, err
}

// touch refreshes last_login and pays the daily bonus when it is due.
func (a *AuthService) touch(ctx context.Context, res *LoginResult) error {
	rules := a.cfg.Rules
	chips, credited, err := a.store.TouchLogin(ctx, res.Account.Name, a.now(), rules.DailyBonusInterval, rules.DailyBonus)
	if err != nil {
		return err
	}
	res.Account.Chips = chips
	if !credited {
		return nil
	}

	res.Bonus = rules.DailyBonus
	a.ledger.Record(ctx, &models.Transaction{
		Account:      res.Account.Name,
		Type:         models.TransactionTypeBonus,
		Amount:       rules.DailyBonus,
		BalanceAfter: chips,
		Description:  "daily login bonus",
	})
	a.out.BroadcastNotice(fmt.Sprintf("%s collected the daily bonus of %d chips", res.Account.Name, rules.DailyBonus))
	return nil
}

func (a *AuthService) bind(sess *session.Session, res *LoginResult) error {
	token, err := a.tokens.GenerateToken(res.Account.Name, sess.ID())
	if err != nil {
		return err
	}
	if err := sess.Bind(res.Account.Name); err != nil {
		return err
	}
	res.Token = token
	a.board.Refresh()
	return nil
}

// Account reads the current account record for REST callers.
func (a *AuthService) Account(ctx context.Context, name string) (*models.Account, error) {
	return a.store.GetAccount(ctx, name)
}
