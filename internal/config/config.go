package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Env  string
	Port string

	BotToken  string
	JWTSecret string

	RedisURL  string
	RedisPass string
	RedisDB   int

	// Dice engine tuning. Settle and mid-air thresholds varied across
	// front-end revisions, so they are deployment knobs rather than
	// constants.
	DieCount           int
	ShadowSpeed        float64
	MaxShadowFrames    int
	SettleLinearSpeed  float64
	SettleAngularSpeed float64
	GroundHeight       float64
	RigMinFrames       int
	RigSettleSpeed     float64
	RigGroundClearance float64
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:  getEnv("APP_ENV", "development"),
		Port: getEnv("PORT", "8080"),

		BotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		JWTSecret: os.Getenv("JWT_SECRET"),

		RedisURL:  getEnv("REDIS_URL", "localhost:6379"),
		RedisPass: os.Getenv("REDIS_PASSWORD"),
		RedisDB:   getEnvInt("REDIS_DB", 0),

		DieCount:           getEnvInt("DICE_COUNT", 2),
		ShadowSpeed:        getEnvFloat("DICE_SHADOW_SPEED", 6),
		MaxShadowFrames:    getEnvInt("DICE_MAX_SHADOW_FRAMES", 600),
		SettleLinearSpeed:  getEnvFloat("DICE_SETTLE_LINEAR_SPEED", 0.15),
		SettleAngularSpeed: getEnvFloat("DICE_SETTLE_ANGULAR_SPEED", 0.25),
		GroundHeight:       getEnvFloat("DICE_GROUND_HEIGHT", 1.2),
		RigMinFrames:       getEnvInt("DICE_RIG_MIN_FRAMES", 10),
		RigSettleSpeed:     getEnvFloat("DICE_RIG_SETTLE_SPEED", 0.8),
		RigGroundClearance: getEnvFloat("DICE_RIG_GROUND_CLEARANCE", 1.5),
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.DieCount < 1 || cfg.DieCount > 6 {
		return nil, fmt.Errorf("DICE_COUNT must be between 1 and 6, got %d", cfg.DieCount)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
