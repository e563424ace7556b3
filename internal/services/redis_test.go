package services_test

import (
	"testing"
	"time"

	"dice-miniapp-backend/internal/config"
	"dice-miniapp-backend/internal/models"
	"dice-miniapp-backend/internal/services"
)

func TestRedisService(t *testing.T) {
	cfg := &config.Config{
		RedisURL:  "localhost:6379",
		RedisPass: "",
		RedisDB:   0,
	}

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer redisService.Close()

	userID := int64(999999)

	wallet, err := redisService.GetWallet(userID)
	if err != nil {
		t.Fatalf("Failed to get wallet: %v", err)
	}

	if wallet.Balance != 10000 {
		t.Errorf("Expected default balance 10000, got %f", wallet.Balance)
	}

	betAmount := 1000.0
	if err := redisService.LockBalanceForRoll(userID, betAmount); err != nil {
		t.Errorf("Failed to lock balance: %v", err)
	}

	wallet, err = redisService.GetWallet(userID)
	if err != nil {
		t.Fatalf("Failed to get wallet after lock: %v", err)
	}

	if wallet.Balance != 9000 {
		t.Errorf("Expected balance 9000 after lock, got %f", wallet.Balance)
	}

	if wallet.LockedBalance != 1000 {
		t.Errorf("Expected locked balance 1000, got %f", wallet.LockedBalance)
	}

	// Winning release credits the full payout back onto the balance.
	if err := redisService.ReleaseBalanceFromRoll(userID, betAmount, true, 1980); err != nil {
		t.Errorf("Failed to release balance: %v", err)
	}

	wallet, _ = redisService.GetWallet(userID)
	if wallet.LockedBalance != 0 {
		t.Errorf("Expected locked balance 0 after release, got %f", wallet.LockedBalance)
	}
	if wallet.Balance != 10980 {
		t.Errorf("Expected balance 10980 after win, got %f", wallet.Balance)
	}

	session := &models.RollSession{
		ID:        "test_roll_123",
		UserID:    userID,
		BetAmount: betAmount,
		Target:    7,
		Over:      true,
		DieCount:  2,
		Status:    models.RollStatusActive,
		CreatedAt: time.Now().UnixMilli(),
		UpdatedAt: time.Now().UnixMilli(),
	}

	if err := redisService.SaveRollSession(session); err != nil {
		t.Errorf("Failed to save roll session: %v", err)
	}

	retrieved, err := redisService.GetRollSession("test_roll_123")
	if err != nil {
		t.Errorf("Failed to get roll session: %v", err)
	}

	if retrieved.ID != session.ID {
		t.Errorf("Roll session ID mismatch: expected %s, got %s", session.ID, retrieved.ID)
	}

	if err := redisService.CompleteRollSession(userID, session.ID); err != nil {
		t.Errorf("Failed to complete roll session: %v", err)
	}

	history, err := redisService.GetRollHistory(userID, 10)
	if err != nil {
		t.Errorf("Failed to get roll history: %v", err)
	}
	if len(history) == 0 || history[0].ID != session.ID {
		t.Error("Completed roll should appear in history")
	}

	preset := &models.RigRequest{Enabled: true, Faces: []int{6, 6}}
	if err := redisService.SaveRigPreset(userID, preset); err != nil {
		t.Errorf("Failed to save rig preset: %v", err)
	}

	stored, err := redisService.GetRigPreset(userID)
	if err != nil {
		t.Fatalf("Failed to get rig preset: %v", err)
	}
	if !stored.Enabled || len(stored.Faces) != 2 || stored.Faces[0] != 6 {
		t.Errorf("Rig preset round trip mismatch: %+v", stored)
	}

	allowed, err := redisService.CheckRateLimit(userID, "roll", 5, time.Minute)
	if err != nil {
		t.Errorf("Failed to check rate limit: %v", err)
	}

	if !allowed {
		t.Error("First roll should be allowed")
	}

	redisService.DeleteWallet(userID)
	redisService.DeleteRollSession(session.ID)
	redisService.DeleteRigPreset(userID)
	redisService.ClearRollRateLimit(userID)
}

func TestGetRigPresetDefaultsToDisabled(t *testing.T) {
	cfg := &config.Config{RedisURL: "localhost:6379"}

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer redisService.Close()

	preset, err := redisService.GetRigPreset(987654321)
	if err != nil {
		t.Fatalf("Failed to get missing rig preset: %v", err)
	}
	if preset.Enabled || len(preset.Faces) != 0 {
		t.Errorf("Missing preset should be disabled, got %+v", preset)
	}
}
