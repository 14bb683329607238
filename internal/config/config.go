package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	Port string
	Env  string

	RedisURL  string
	RedisPass string
	RedisDB   int

	JWTSecret string
	JWTTTL    time.Duration

	BcryptCost          int
	OneAccountPerOrigin bool
	IdleTimeout         time.Duration

	LogLevel  string
	LogFormat string
	LogFile   string

	RulesFile string
	Rules     GameRules
}

const devJWTSecret = "dev-secret-change-me"

func Load() (*Config, error) {
	cfg := &Config{
		Port:       "8080",
		Env:        "development",
		RedisURL:   "localhost:6379",
		JWTTTL:     24 * time.Hour,
		BcryptCost: bcrypt.DefaultCost,
		LogLevel:   "info",
		LogFormat:  "console",
	}

	if v := getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := getenv("APP_ENV"); v != "" {
		cfg.Env = v
	}
	if v := getenv("REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	cfg.RedisPass = getenv("REDIS_PASSWORD")
	if v := getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, errors.New("REDIS_DB must be a non-negative integer")
		}
		cfg.RedisDB = n
	}

	cfg.JWTSecret = getenv("JWT_SECRET")
	if v := getenv("JWT_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, errors.New("JWT_TTL must be a positive duration")
		}
		cfg.JWTTTL = d
	}

	if v := getenv("BCRYPT_COST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < bcrypt.MinCost || n > bcrypt.MaxCost {
			return nil, errors.New("BCRYPT_COST out of range")
		}
		cfg.BcryptCost = n
	}
	if v := getenv("ONE_ACCOUNT_PER_ORIGIN"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.OneAccountPerOrigin = b
		}
	}
	if v := getenv("IDLE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return nil, errors.New("IDLE_TIMEOUT must be a duration")
		}
		cfg.IdleTimeout = d
	}

	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}
	cfg.LogFile = getenv("LOG_FILE")

	cfg.RulesFile = getenv("GAME_RULES_FILE")
	rules, err := LoadRules(cfg.RulesFile)
	if err != nil {
		return nil, err
	}
	cfg.Rules = rules

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, errors.New("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = devJWTSecret
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
