package models

type Wallet struct {
	UserID        int64   `json:"user_id" redis:"user_id"`
	Balance       float64 `json:"balance" redis:"balance"`
	LockedBalance float64 `json:"locked_balance" redis:"locked_balance"`
	TotalWagered  float64 `json:"total_wagered" redis:"total_wagered"`
	TotalWon      float64 `json:"total_won" redis:"total_won"`

	// Roll replay seeds
	ClientSeed string `json:"client_seed" redis:"client_seed"`
	ServerHash string `json:"server_hash" redis:"server_hash"`
	Nonce      int64  `json:"nonce" redis:"nonce"`
}

type BalanceResponse struct {
	Balance       float64 `json:"balance"`
	LockedBalance float64 `json:"locked_balance"`
	TotalWagered  float64 `json:"total_wagered"`
	TotalWon      float64 `json:"total_won"`
	Available     float64 `json:"available"` // Balance - LockedBalance
}
