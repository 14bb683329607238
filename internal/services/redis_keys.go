package services

import "time"

const (
	KeyAccount             = "account:%s"
	KeyLeaderboard         = "leaderboard"
	KeyOrigin              = "origin:%s"
	KeySettled             = "settled:%s"
	KeyChat                = "chat"
	KeyTransaction         = "transaction:%s"
	KeyHistory             = "history:%s"
	KeyRateLimit           = "ratelimit:%s:%s"

	TTLSettled     = 7 * 24 * time.Hour
	TTLTransaction = 30 * 24 * time.Hour // 30 days

	MaxTransactions = 100
)
