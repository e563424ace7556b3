package services

import (
	"context"
	"crypto/hmac"
	cryptorand "crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"dice-miniapp-backend/internal/config"
	"dice-miniapp-backend/internal/models"
	"dice-miniapp-backend/internal/rig"
)

// playbackTickInterval paces the broadcast loop. Playback interpolates by
// wall-clock timestamp, so the tick rate only bounds how often clients hear
// from us, not how fast the dice move.
const playbackTickInterval = 16 * time.Millisecond

type GameEngine struct {
	redisService *RedisService
	cfg          *config.Config
	broadcaster  Broadcaster
	serverSeed   string

	mu          sync.Mutex
	activeRolls map[string]*RollInstance
	sessions    map[int64]*rig.Session
}

// RollInstance is one in-flight roll: the persisted session plus the live
// playback driving it.
type RollInstance struct {
	Session   *models.RollSession
	Dice      *rig.Session
	Recording *rig.Recording
	StartedAt time.Time
	StopChan  chan struct{}

	// lastUpdate and running are written by the playback goroutine and read
	// by the stale sweeper, so they take their own lock.
	mu         sync.Mutex
	lastUpdate time.Time
	running    bool
}

func (ri *RollInstance) touch() {
	ri.mu.Lock()
	ri.lastUpdate = time.Now()
	ri.mu.Unlock()
}

func (ri *RollInstance) stale(maxAge time.Duration) bool {
	ri.mu.Lock()
	defer ri.mu.Unlock()
	return time.Since(ri.lastUpdate) > maxAge
}

func (ri *RollInstance) setRunning(v bool) {
	ri.mu.Lock()
	ri.running = v
	ri.mu.Unlock()
}

// Running reports whether the playback loop is still driving this roll.
func (ri *RollInstance) Running() bool {
	ri.mu.Lock()
	defer ri.mu.Unlock()
	return ri.running
}

func NewGameEngine(redisService *RedisService, cfg *config.Config, broadcaster Broadcaster) *GameEngine {
	return &GameEngine{
		redisService: redisService,
		cfg:          cfg,
		broadcaster:  broadcaster,
		serverSeed:   generateServerSeed(),
		activeRolls:  make(map[string]*RollInstance),
		sessions:     make(map[int64]*rig.Session),
	}
}

func generateServerSeed() string {
	// Rotate this seed daily via RotateServerSeed
	bytes := make([]byte, 32)
	cryptorand.Read(bytes)
	return hex.EncodeToString(bytes)
}

func (ge *GameEngine) GetServerHash() string {
	hash := sha256.Sum256([]byte(ge.serverSeed))
	return hex.EncodeToString(hash[:])
}

func (ge *GameEngine) GetServerSeed() string {
	return ge.serverSeed
}

func (ge *GameEngine) RotateServerSeed(newSeed string) {
	ge.serverSeed = newSeed
}

// deriveRollSeed turns the provably-fair triple into the 64-bit seed that
// drives the throw jitter RNG. Anyone holding the revealed server seed can
// re-derive it and re-simulate the exact trajectory.
func deriveRollSeed(serverSeed, clientSeed string, nonce int64) int64 {
	message := fmt.Sprintf("roll:%s:%d", clientSeed, nonce)
	h := hmac.New(sha256.New, []byte(serverSeed))
	h.Write([]byte(message))
	sum := h.Sum(nil)
	return int64(binary.BigEndian.Uint64(sum[:8]) &^ (1 << 63))
}

// VerifyRoll re-derives the throw seed for a finished roll so a player can
// replay the simulation themselves.
func (ge *GameEngine) VerifyRoll(clientSeed, serverSeed string, nonce int64) (int64, string) {
	message := fmt.Sprintf("roll:%s:%d", clientSeed, nonce)
	h := hmac.New(sha256.New, []byte(serverSeed))
	h.Write([]byte(message))
	calculatedHash := hex.EncodeToString(h.Sum(nil))

	return deriveRollSeed(serverSeed, clientSeed, nonce), calculatedHash
}

// GetVerificationData returns what the client needs to verify upcoming rolls.
func (ge *GameEngine) GetVerificationData(userID int64) (*models.VerificationData, error) {
	wallet, err := ge.redisService.GetWallet(userID)
	if err != nil {
		return nil, err
	}

	return &models.VerificationData{
		ClientSeed:   wallet.ClientSeed,
		ServerHash:   ge.GetServerHash(),
		CurrentNonce: wallet.Nonce,
	}, nil
}

func (ge *GameEngine) shadowConfig() rig.ShadowConfig {
	cfg := rig.DefaultShadowConfig()
	cfg.DieCount = ge.cfg.DieCount
	cfg.SpeedMultiplier = ge.cfg.ShadowSpeed
	cfg.MaxFrames = ge.cfg.MaxShadowFrames
	cfg.SettleLinearSpeed = ge.cfg.SettleLinearSpeed
	cfg.SettleAngularSpeed = ge.cfg.SettleAngularSpeed
	cfg.GroundHeight = ge.cfg.GroundHeight
	return cfg
}

func (ge *GameEngine) rigConfig() rig.RigConfig {
	cfg := rig.DefaultRigConfig()
	cfg.MinFrames = ge.cfg.RigMinFrames
	cfg.SettleSpeed = ge.cfg.RigSettleSpeed
	cfg.GroundClearance = ge.cfg.RigGroundClearance
	return cfg
}

// diceSession returns the user's physics session, creating it on first use.
// One session per user; its reentrancy guard is what makes concurrent roll
// requests for the same user a no-op.
func (ge *GameEngine) diceSession(userID int64) *rig.Session {
	ge.mu.Lock()
	defer ge.mu.Unlock()

	if s, ok := ge.sessions[userID]; ok {
		return s
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano() ^ userID))
	s := rig.NewSession(ge.shadowConfig(), ge.rigConfig(), rng)
	ge.sessions[userID] = s
	return s
}

// RollDice runs the full bet-to-playback flow: validate, escrow the stake,
// pre-compute the throw (rigged if a preset is armed), persist the session,
// and hand playback to a background loop that streams frames and settles the
// payout when the dice come to rest.
func (ge *GameEngine) RollDice(ctx context.Context, userID int64, req *models.RollRequest) (*models.RollResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bet: %v", err)
	}
	if err := models.ValidateTarget(ge.cfg.DieCount, req.Target); err != nil {
		return nil, fmt.Errorf("invalid bet: %v", err)
	}

	multiplier := models.RollMultiplier(ge.cfg.DieCount, req.Target, req.Over)
	if multiplier == 0 {
		return nil, fmt.Errorf("bet can never win with target %d", req.Target)
	}

	allowed, err := ge.redisService.CheckRateLimit(userID, "roll", DefaultRateLimitRolls, time.Minute)
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %v", err)
	}
	if !allowed {
		return nil, fmt.Errorf("roll rate limit exceeded")
	}

	wallet, err := ge.redisService.GetWallet(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %v", err)
	}

	if wallet.Balance < req.Amount {
		return nil, fmt.Errorf("insufficient balance: have %.2f, need %.2f",
			wallet.Balance, req.Amount)
	}

	if err := ge.redisService.LockBalanceForRoll(userID, req.Amount); err != nil {
		return nil, fmt.Errorf("failed to lock balance: %v", err)
	}

	ge.redisService.RecordBetPattern(userID, req.Amount, req.Target, req.Over)

	dice := ge.diceSession(userID)

	// The stored preset was validated against the roster when it was set;
	// if the die count changed since, fall back to an unrigged roll.
	if preset, err := ge.redisService.GetRigPreset(userID); err == nil {
		p := rig.Preset{Enabled: preset.Enabled, Faces: preset.Faces}
		if dice.SetPreset(p) != nil {
			dice.SetPreset(rig.Preset{})
		}
	}

	strength := req.Strength
	if strength == 0 {
		strength = 1.0
	}

	seed := deriveRollSeed(ge.serverSeed, wallet.ClientSeed, wallet.Nonce)
	rng := rand.New(rand.NewSource(seed))
	nowMillis := float64(time.Now().UnixMilli())

	rec, err := dice.Roll(strength, rng, nowMillis)
	if err != nil {
		// The bet never happened: release the escrow AND credit the stake
		// back, the same as an abort. A won=false release would forfeit it.
		ge.refundStake(userID, req.Amount)
		if err == rig.ErrThrowInFlight {
			return nil, fmt.Errorf("roll already in flight")
		}
		return nil, fmt.Errorf("failed to roll: %v", err)
	}

	now := time.Now()
	session := &models.RollSession{
		ID:         models.GenerateRollID(),
		UserID:     userID,
		BetAmount:  req.Amount,
		Target:     req.Target,
		Over:       req.Over,
		Strength:   strength,
		DieCount:   dice.DieCount(),
		Multiplier: multiplier,
		Rigged:     rec.IsRigged,
		ClientSeed: wallet.ClientSeed,
		ServerHash: ge.GetServerHash(),
		Nonce:      wallet.Nonce,
		Status:     models.RollStatusActive,
		CreatedAt:  now.UnixMilli(),
		UpdatedAt:  now.UnixMilli(),
	}

	if err := ge.redisService.SaveRollSession(session); err != nil {
		dice.Abort()
		ge.refundStake(userID, req.Amount)
		return nil, fmt.Errorf("failed to save roll: %v", err)
	}

	wallet.Nonce++
	if err := ge.redisService.SaveWallet(wallet); err != nil {
		dice.Abort()
		ge.refundStake(userID, req.Amount)
		return nil, fmt.Errorf("failed to advance nonce: %v", err)
	}

	instance := &RollInstance{
		Session:    session,
		Dice:       dice,
		Recording:  rec,
		StartedAt:  now,
		lastUpdate: now,
		running:    true,
		StopChan:   make(chan struct{}),
	}

	ge.mu.Lock()
	ge.activeRolls[session.ID] = instance
	ge.mu.Unlock()

	go ge.runPlayback(instance)

	return &models.RollResponse{
		RollID:     session.ID,
		Status:     session.Status,
		Multiplier: multiplier,
		DurationMS: rec.Duration(),
		ServerHash: session.ServerHash,
		Nonce:      session.Nonce,
	}, nil
}

// runPlayback drives one roll to completion: tick the playback on a timer,
// stream the interpolated roster to the client, and settle when the playback
// reports its result.
func (ge *GameEngine) runPlayback(instance *RollInstance) {
	ticker := time.NewTicker(playbackTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			nowMillis := float64(time.Now().UnixMilli())
			result := instance.Dice.Tick(nowMillis)
			instance.touch()

			if ge.broadcaster != nil {
				frame := rig.Frame{
					Timestamp: nowMillis - float64(instance.StartedAt.UnixMilli()),
					Dice:      instance.Dice.VisibleStates(),
				}
				ge.broadcaster.BroadcastDiceFrame(instance.Session.UserID, instance.Session.ID, frame)
			}

			if result != nil {
				ge.finalizeRoll(instance, result)
				return
			}

		case <-instance.StopChan:
			return
		}
	}
}

// claimRoll removes the instance from tracking, returning false if another
// path (finalize or abort) already settled it.
func (ge *GameEngine) claimRoll(rollID string) bool {
	ge.mu.Lock()
	defer ge.mu.Unlock()
	if _, ok := ge.activeRolls[rollID]; !ok {
		return false
	}
	delete(ge.activeRolls, rollID)
	return true
}

func (ge *GameEngine) finalizeRoll(instance *RollInstance, result *rig.PlaybackResult) {
	session := instance.Session

	if !ge.claimRoll(session.ID) {
		return
	}

	win := (session.Over && result.Sum > session.Target) ||
		(!session.Over && result.Sum < session.Target)

	payout := 0.0
	if win {
		payout = models.CalculatePayout(session.BetAmount, session.Multiplier)
	}

	session.Faces = result.Faces
	session.Sum = result.Sum
	session.Win = win
	session.Payout = payout
	session.Rigged = result.Rigged
	session.Status = models.RollStatusCompleted
	session.EndedAt = time.Now().UnixMilli()
	instance.setRunning(false)

	ge.redisService.UpdateRollSession(session)
	ge.redisService.CompleteRollSession(session.UserID, session.ID)

	// The stake left the balance at lock time, so a win credits the full
	// payout, not just the profit.
	ge.redisService.ReleaseBalanceFromRoll(session.UserID, session.BetAmount, win, payout)

	ge.recordTransaction(session, win, payout)

	wallet, _ := ge.redisService.GetWallet(session.UserID)

	if ge.broadcaster != nil {
		balance := 0.0
		if wallet != nil {
			balance = wallet.Balance
		}
		ge.broadcaster.BroadcastDiceResult(session.UserID, &models.RollResult{
			RollID:     session.ID,
			Faces:      result.Faces,
			Sum:        result.Sum,
			Win:        win,
			Multiplier: session.Multiplier,
			Payout:     payout,
			NewBalance: balance,
		})
		ge.broadcaster.BroadcastBalanceUpdate(session.UserID, balance)
	}

	close(instance.StopChan)
}

// SetRigPreset validates and persists the operator preset, and applies it to
// the live session so an in-flight shadow roll picks it up.
func (ge *GameEngine) SetRigPreset(userID int64, req *models.RigRequest) error {
	p := rig.Preset{Enabled: req.Enabled, Faces: req.Faces}
	if err := p.Validate(ge.cfg.DieCount); err != nil {
		return err
	}

	if err := ge.redisService.SaveRigPreset(userID, req); err != nil {
		return err
	}

	return ge.diceSession(userID).SetPreset(p)
}

func (ge *GameEngine) GetRigPreset(userID int64) (*models.RigResponse, error) {
	preset, err := ge.redisService.GetRigPreset(userID)
	if err != nil {
		return nil, err
	}

	return &models.RigResponse{Enabled: preset.Enabled, Faces: preset.Faces}, nil
}

func (ge *GameEngine) GetRoll(rollID string) (*models.RollSession, error) {
	return ge.redisService.GetRollSession(rollID)
}

func (ge *GameEngine) GetActiveRoll(rollID string) (*RollInstance, bool) {
	ge.mu.Lock()
	defer ge.mu.Unlock()
	instance, exists := ge.activeRolls[rollID]
	return instance, exists
}

func (ge *GameEngine) GetUserActiveRolls(userID int64) ([]*models.RollSession, error) {
	rollIDs, err := ge.redisService.GetUserActiveRolls(userID)
	if err != nil {
		return nil, err
	}

	var sessions []*models.RollSession
	for _, rollID := range rollIDs {
		session, err := ge.redisService.GetRollSession(rollID)
		if err == nil && session.Status == models.RollStatusActive {
			sessions = append(sessions, session)
		}
	}

	return sessions, nil
}

func (ge *GameEngine) recordTransaction(session *models.RollSession, won bool, payout float64) error {
	txType := models.TransactionTypeBet
	amount := session.BetAmount
	description := fmt.Sprintf("Dice roll %s: bet %s on sum %s %d",
		session.ID, models.FormatCurrency(session.BetAmount), overUnder(session.Over), session.Target)

	if won {
		txType = models.TransactionTypeWin
		amount = payout
		description = fmt.Sprintf("Dice roll %s: won %s (%.2fx) on sum %d",
			session.ID, models.FormatCurrency(payout), session.Multiplier, session.Sum)
	}

	wallet, err := ge.redisService.GetWallet(session.UserID)
	if err != nil {
		return err
	}

	tx := &models.Transaction{
		ID:            models.GenerateTransactionID(),
		UserID:        session.UserID,
		Type:          txType,
		Amount:        amount,
		BalanceBefore: wallet.Balance - amount,
		BalanceAfter:  wallet.Balance,
		RollID:        session.ID,
		Description:   description,
		CreatedAt:     time.Now(),
	}

	return ge.redisService.SaveTransaction(tx)
}

func overUnder(over bool) string {
	if over {
		return "over"
	}
	return "under"
}

// refundStake settles the escrow with the stake credited back, for paths
// where the bet never completed. The won=false release is only for lost bets.
func (ge *GameEngine) refundStake(userID int64, amount float64) {
	ge.redisService.ReleaseBalanceFromRoll(userID, amount, true, amount)
}

// CleanupStaleRolls aborts playbacks that stopped ticking, refunding the
// stake. A healthy playback updates every tick, so a stale instance means
// the loop died.
func (ge *GameEngine) CleanupStaleRolls(maxAge time.Duration) {
	ge.mu.Lock()
	var stale []*RollInstance
	for _, instance := range ge.activeRolls {
		if instance.stale(maxAge) {
			stale = append(stale, instance)
		}
	}
	ge.mu.Unlock()

	for _, instance := range stale {
		ge.abortRoll(instance)
	}
}

func (ge *GameEngine) abortRoll(instance *RollInstance) {
	session := instance.Session

	if !ge.claimRoll(session.ID) {
		return
	}

	instance.Dice.Abort()
	instance.setRunning(false)

	session.Status = models.RollStatusAborted
	session.EndedAt = time.Now().UnixMilli()

	ge.redisService.UpdateRollSession(session)
	ge.redisService.CompleteRollSession(session.UserID, session.ID)

	ge.refundStake(session.UserID, session.BetAmount)

	close(instance.StopChan)
}
