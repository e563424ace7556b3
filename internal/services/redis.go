package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dice-miniapp-backend/internal/config"
	"dice-miniapp-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

type RedisService struct {
	client *redis.Client
	ctx    context.Context
}

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx := context.Background()

	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %v", err)
	}

	service := &RedisService{
		client: client,
		ctx:    ctx,
	}

	return service, nil
}

func (s *RedisService) StoreUserSession(session *models.UserSession, expiry time.Duration) error {
	key := fmt.Sprintf(KeyUserSession, session.ID, session.SessionID)

	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	return s.client.Set(s.ctx, key, data, expiry).Err()
}

func (s *RedisService) GetUserSession(userID int64, sessionID string) (*models.UserSession, error) {
	key := fmt.Sprintf(KeyUserSession, userID, sessionID)

	data, err := s.client.Get(s.ctx, key).Result()
	if err != nil {
		return nil, err
	}

	var session models.UserSession
	err = json.Unmarshal([]byte(data), &session)
	if err != nil {
		return nil, err
	}

	session.LastAccessed = time.Now()
	updatedData, _ := json.Marshal(session)
	s.client.Set(s.ctx, key, updatedData, TTLUserSession)

	return &session, nil
}

func (s *RedisService) DeleteUserSession(userID int64, sessionID string) error {
	key := fmt.Sprintf(KeyUserSession, userID, sessionID)
	return s.client.Del(s.ctx, key).Err()
}

func (s *RedisService) StoreUser(user *models.TelegramUser) error {
	key := fmt.Sprintf(KeyUserInfo, user.ID)

	data, err := json.Marshal(user)
	if err != nil {
		return err
	}

	return s.client.Set(s.ctx, key, data, TTLUserInfo).Err()
}

func (s *RedisService) GetUser(userID int64) (*models.TelegramUser, error) {
	key := fmt.Sprintf(KeyUserInfo, userID)

	data, err := s.client.Get(s.ctx, key).Result()
	if err != nil {
		return nil, err
	}

	var user models.TelegramUser
	err = json.Unmarshal([]byte(data), &user)
	return &user, err
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

func (s *RedisService) GetWallet(userID int64) (*models.Wallet, error) {
	key := fmt.Sprintf(KeyWallet, userID)

	data, err := s.client.Get(s.ctx, key).Result()
	if err == redis.Nil {
		wallet, err := models.NewWallet(userID)
		if err != nil {
			return nil, fmt.Errorf("failed to create wallet: %v", err)
		}

		if err := s.SaveWallet(wallet); err != nil {
			return nil, fmt.Errorf("failed to create wallet: %v", err)
		}
		return wallet, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %v", err)
	}

	var wallet models.Wallet
	if err := json.Unmarshal([]byte(data), &wallet); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wallet: %v", err)
	}

	return &wallet, nil
}

func (s *RedisService) SaveWallet(wallet *models.Wallet) error {
	key := fmt.Sprintf(KeyWallet, wallet.UserID)

	data, err := json.Marshal(wallet)
	if err != nil {
		return fmt.Errorf("failed to marshal wallet: %v", err)
	}

	return s.client.Set(s.ctx, key, data, 0).Err()
}

var lockBalanceScript = redis.NewScript(`
	local key = KEYS[1]
	local amount = tonumber(ARGV[1])

	local data = redis.call("GET", key)
	if not data then
		return redis.error_reply("wallet not found")
	end

	local wallet = cjson.decode(data)

	if wallet.balance < amount then
		return redis.error_reply("insufficient balance")
	end

	wallet.balance = wallet.balance - amount
	wallet.locked_balance = wallet.locked_balance + amount
	wallet.total_wagered = wallet.total_wagered + amount

	local updated = cjson.encode(wallet)
	redis.call("SET", key, updated)

	return "OK"
`)

// LockBalanceForRoll escrows the bet while the roll plays out. The check and
// debit run in one Lua script so two concurrent rolls cannot both spend the
// same balance.
func (s *RedisService) LockBalanceForRoll(userID int64, amount float64) error {
	key := fmt.Sprintf(KeyWallet, userID)
	return lockBalanceScript.Run(s.ctx, s.client, []string{key}, amount).Err()
}

var releaseBalanceScript = redis.NewScript(`
	local key = KEYS[1]
	local amount = tonumber(ARGV[1])
	local won = ARGV[2] == "true"
	local winnings = tonumber(ARGV[3])

	local data = redis.call("GET", key)
	if not data then
		return redis.error_reply("wallet not found")
	end

	local wallet = cjson.decode(data)

	wallet.locked_balance = wallet.locked_balance - amount
	if wallet.locked_balance < 0 then
		wallet.locked_balance = 0
	end

	if won then
		wallet.balance = wallet.balance + winnings
		wallet.total_won = wallet.total_won + winnings
	end

	local updated = cjson.encode(wallet)
	redis.call("SET", key, updated)

	return "OK"
`)

// ReleaseBalanceFromRoll settles the escrow once a roll finalizes. On a win
// the payout lands on the balance; on a loss the locked stake is simply
// dropped.
func (s *RedisService) ReleaseBalanceFromRoll(userID int64, amount float64, won bool, winnings float64) error {
	key := fmt.Sprintf(KeyWallet, userID)
	return releaseBalanceScript.Run(s.ctx, s.client, []string{key}, amount, won, winnings).Err()
}

func (s *RedisService) SaveRollSession(session *models.RollSession) error {
	sessionKey := fmt.Sprintf(KeyRollSession, session.ID)

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal roll session: %v", err)
	}

	if err := s.client.Set(s.ctx, sessionKey, data, TTLRollSession).Err(); err != nil {
		return fmt.Errorf("failed to save roll session: %v", err)
	}

	userActiveKey := fmt.Sprintf(KeyUserActiveRolls, session.UserID)
	if err := s.client.SAdd(s.ctx, userActiveKey, session.ID).Err(); err != nil {
		return fmt.Errorf("failed to add to active rolls: %v", err)
	}

	s.client.Expire(s.ctx, userActiveKey, TTLRollSession)

	return nil
}

func (s *RedisService) GetRollSession(rollID string) (*models.RollSession, error) {
	key := fmt.Sprintf(KeyRollSession, rollID)

	data, err := s.client.Get(s.ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("roll not found: %s", rollID)
		}
		return nil, fmt.Errorf("failed to get roll session: %v", err)
	}

	var session models.RollSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal roll session: %v", err)
	}

	return &session, nil
}

func (s *RedisService) UpdateRollSession(session *models.RollSession) error {
	existing, err := s.GetRollSession(session.ID)
	if err != nil || existing == nil {
		return err
	}

	session.UpdatedAt = time.Now().UnixMilli()

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal updated roll session: %v", err)
	}

	key := fmt.Sprintf(KeyRollSession, session.ID)
	return s.client.Set(s.ctx, key, data, TTLRollSession).Err()
}

func (s *RedisService) GetUserActiveRolls(userID int64) ([]string, error) {
	key := fmt.Sprintf(KeyUserActiveRolls, userID)

	rolls, err := s.client.SMembers(s.ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get active rolls: %v", err)
	}

	return rolls, nil
}

func (s *RedisService) CompleteRollSession(userID int64, rollID string) error {
	userActiveKey := fmt.Sprintf(KeyUserActiveRolls, userID)
	if err := s.client.SRem(s.ctx, userActiveKey, rollID).Err(); err != nil {
		return fmt.Errorf("failed to remove from active rolls: %v", err)
	}

	completedKey := fmt.Sprintf(KeyUserCompletedRolls, userID)
	score := float64(time.Now().Unix())
	if err := s.client.ZAdd(s.ctx, completedKey, redis.Z{
		Score:  score,
		Member: rollID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to completed rolls: %v", err)
	}

	// Keep only the last 100 completed rolls per user
	s.client.ZRemRangeByRank(s.ctx, completedKey, 0, -101)

	return nil
}

// SaveRigPreset persists the operator preset. Presets have no TTL; a rig
// stays armed until it is changed or cleared.
func (s *RedisService) SaveRigPreset(userID int64, preset *models.RigRequest) error {
	key := fmt.Sprintf(KeyRigPreset, userID)

	data, err := json.Marshal(preset)
	if err != nil {
		return fmt.Errorf("failed to marshal rig preset: %v", err)
	}

	return s.client.Set(s.ctx, key, data, 0).Err()
}

func (s *RedisService) GetRigPreset(userID int64) (*models.RigRequest, error) {
	key := fmt.Sprintf(KeyRigPreset, userID)

	data, err := s.client.Get(s.ctx, key).Result()
	if err == redis.Nil {
		return &models.RigRequest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rig preset: %v", err)
	}

	var preset models.RigRequest
	if err := json.Unmarshal([]byte(data), &preset); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rig preset: %v", err)
	}

	return &preset, nil
}

func (s *RedisService) DeleteRigPreset(userID int64) error {
	key := fmt.Sprintf(KeyRigPreset, userID)
	return s.client.Del(s.ctx, key).Err()
}

func (s *RedisService) SaveTransaction(tx *models.Transaction) error {
	txKey := fmt.Sprintf(KeyTransaction, tx.ID)

	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %v", err)
	}

	if err := s.client.Set(s.ctx, txKey, data, TTLTransaction).Err(); err != nil {
		return fmt.Errorf("failed to save transaction: %v", err)
	}

	userTxKey := fmt.Sprintf(KeyUserTransactions, tx.UserID)
	score := float64(tx.CreatedAt.Unix())

	if err := s.client.ZAdd(s.ctx, userTxKey, redis.Z{
		Score:  score,
		Member: tx.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to user transactions: %v", err)
	}

	// Keep only last 100 transactions
	s.client.ZRemRangeByRank(s.ctx, userTxKey, 0, -101)

	return nil
}

func (s *RedisService) GetUserTransactions(userID int64, limit int64) ([]*models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	userTxKey := fmt.Sprintf(KeyUserTransactions, userID)

	txIDs, err := s.client.ZRevRange(s.ctx, userTxKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction IDs: %v", err)
	}

	var transactions []*models.Transaction
	for _, txID := range txIDs {
		txKey := fmt.Sprintf(KeyTransaction, txID)

		data, err := s.client.Get(s.ctx, txKey).Result()
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

func (s *RedisService) GetRollHistory(userID int64, limit int64) ([]*models.RollSession, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	completedKey := fmt.Sprintf(KeyUserCompletedRolls, userID)

	rollIDs, err := s.client.ZRevRange(s.ctx, completedKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get roll IDs: %v", err)
	}

	var rolls []*models.RollSession
	for _, rollID := range rollIDs {
		roll, err := s.GetRollSession(rollID)
		if err != nil {
			continue
		}

		rolls = append(rolls, roll)
	}

	return rolls, nil
}

func (s *RedisService) CheckRateLimit(userID int64, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, userID, action)

	count, err := s.client.Incr(s.ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %v", err)
	}

	if count == 1 {
		s.client.Expire(s.ctx, key, window)
	}

	return count <= int64(limit), nil
}

func (s *RedisService) RecordBetPattern(userID int64, amount float64, target int, over bool) error {
	patternKey := fmt.Sprintf(KeyBetPatterns, userID)

	patternData := map[string]interface{}{
		"amount":    amount,
		"target":    target,
		"over":      over,
		"timestamp": time.Now().Unix(),
	}

	data, err := json.Marshal(patternData)
	if err != nil {
		return err
	}

	s.client.LPush(s.ctx, patternKey, data)
	s.client.LTrim(s.ctx, patternKey, 0, 49)

	return nil
}

func (s *RedisService) DeleteWallet(userID int64) error {
	key := fmt.Sprintf(KeyWallet, userID)
	return s.client.Del(s.ctx, key).Err()
}

func (s *RedisService) DeleteRollSession(rollID string) error {
	key := fmt.Sprintf(KeyRollSession, rollID)
	return s.client.Del(s.ctx, key).Err()
}

func (s *RedisService) ClearRollRateLimit(userID int64) error {
	key := fmt.Sprintf(KeyRateLimit, userID, "roll")
	return s.client.Del(s.ctx, key).Err()
}

func (s *RedisService) BulkGetRollSessions(rollIDs []string) ([]*models.RollSession, error) {
	if len(rollIDs) == 0 {
		return []*models.RollSession{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(rollIDs))

	for i, rollID := range rollIDs {
		key := fmt.Sprintf(KeyRollSession, rollID)
		cmds[i] = pipe.Get(s.ctx, key)
	}

	_, err := pipe.Exec(s.ctx)
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("pipeline execution failed: %v", err)
	}

	var sessions []*models.RollSession
	for i, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			continue
		}

		var session models.RollSession
		if err := json.Unmarshal([]byte(data), &session); err != nil {
			continue
		}

		sessions = append(sessions, &session)

		key := fmt.Sprintf(KeyRollSession, rollIDs[i])
		s.client.Expire(s.ctx, key, TTLRollSession)
	}

	return sessions, nil
}
