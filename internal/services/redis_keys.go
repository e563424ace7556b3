package services

import "time"

const (
	KeyUserSession        = "user:%d:session:%s"
	KeyUserInfo           = "user:%d:info"
	KeyWallet             = "wallet:%d"
	KeyRollSession        = "roll:session:%s"
	KeyUserActiveRolls    = "user:%d:active_rolls"
	KeyUserCompletedRolls = "user:%d:completed_rolls"
	KeyRigPreset          = "user:%d:rig_preset"
	KeyTransaction        = "transaction:%s"
	KeyUserTransactions   = "user:%d:transactions"
	KeyRateLimit          = "ratelimit:%d:%s"
	KeyBetPatterns        = "patterns:%d:bets"

	TTLUserSession = 24 * time.Hour
	TTLUserInfo    = 30 * 24 * time.Hour // 30 days
	TTLRollSession = 7 * 24 * time.Hour  // 7 days
	TTLTransaction = 30 * 24 * time.Hour // 30 days

	DefaultRateLimitRolls = 30 // Max 30 rolls per minute
	DefaultRateLimitRigs  = 60 // Max 60 preset changes per minute
)
