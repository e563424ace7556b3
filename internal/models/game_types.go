package models

// VerificationData is what a player needs to re-simulate their rolls: the
// throw-jitter RNG is seeded from these values.
type VerificationData struct {
	ClientSeed   string `json:"client_seed"`
	ServerHash   string `json:"server_hash"`
	CurrentNonce int64  `json:"current_nonce"`
}

// RollRequest starts a physical dice roll. Strength scales the throw
// impulse; zero falls back to the default flick.
type RollRequest struct {
	Amount   float64 `json:"amount" binding:"required,gt=0"`
	Target   int     `json:"target" binding:"required,min=2"`
	Over     bool    `json:"over"` // true = sum over target, false = under
	Strength float64 `json:"strength" binding:"omitempty,gte=0,lte=3"`
}

// RollResponse acknowledges a started roll; the settled result arrives over
// the websocket once playback finalizes, or by polling the roll endpoint.
type RollResponse struct {
	RollID     string  `json:"roll_id"`
	Status     string  `json:"status"`
	Multiplier float64 `json:"multiplier"`
	DurationMS float64 `json:"duration_ms"`
	ServerHash string  `json:"server_hash"`
	Nonce      int64   `json:"nonce"`
}

// RollResult is the settled readout returned to the client.
type RollResult struct {
	RollID     string  `json:"roll_id"`
	Faces      []int   `json:"faces"`
	Sum        int     `json:"sum"`
	Win        bool    `json:"win"`
	Multiplier float64 `json:"multiplier"`
	Payout     float64 `json:"payout"`
	NewBalance float64 `json:"new_balance"`
}

// RigRequest is the operator-facing rigging control: pin upcoming rolls to
// the given faces. Values outside 1..6 are rejected, never clamped.
type RigRequest struct {
	Enabled bool  `json:"enabled"`
	Faces   []int `json:"faces" binding:"omitempty,dive,min=1,max=6"`
}

// RigResponse reports the currently active preset.
type RigResponse struct {
	Enabled bool  `json:"enabled"`
	Faces   []int `json:"faces,omitempty"`
}
