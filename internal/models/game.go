package models

const (
	RollStatusActive    = "active"    // shadow roll done, playback streaming
	RollStatusCompleted = "completed" // finalized, payout settled
	RollStatusAborted   = "aborted"   // cleaned up before finalization
)

// RollSession is one physical dice roll from bet to payout.
type RollSession struct {
	ID        string  `json:"id" redis:"id"`
	UserID    int64   `json:"user_id" redis:"user_id"`
	BetAmount float64 `json:"bet_amount" redis:"bet_amount"`

	// Bet terms: the dice sum lands over or under Target.
	Target int  `json:"target" redis:"target"`
	Over   bool `json:"over" redis:"over"`

	Strength float64 `json:"strength" redis:"strength"`
	DieCount int     `json:"die_count" redis:"die_count"`

	// Outcome, filled at finalization.
	Faces      []int   `json:"faces,omitempty" redis:"faces"`
	Sum        int     `json:"sum" redis:"sum"`
	Win        bool    `json:"win" redis:"win"`
	Multiplier float64 `json:"multiplier" redis:"multiplier"`
	Payout     float64 `json:"payout" redis:"payout"`
	Rigged     bool    `json:"rigged" redis:"rigged"`

	// Replay seeds: the throw jitter RNG is derived from
	// HMAC(serverSeed, "roll:clientSeed:nonce"), so a roll's trajectory can
	// be re-simulated bit for bit.
	ClientSeed string `json:"client_seed" redis:"client_seed"`
	ServerHash string `json:"server_hash" redis:"server_hash"`
	Nonce      int64  `json:"nonce" redis:"nonce"`

	Status    string `json:"status" redis:"status"` // active, completed, aborted
	CreatedAt int64  `json:"created_at" redis:"created_at"`
	UpdatedAt int64  `json:"updated_at" redis:"updated_at"`
	EndedAt   int64  `json:"ended_at,omitempty" redis:"ended_at"`
}
