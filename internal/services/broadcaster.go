package services

import "dice-miniapp-backend/internal/rig"

// Broadcaster pushes roll playback to connected clients. The websocket hub
// implements it; the engine only knows this interface so it can be tested
// without a live connection.
type Broadcaster interface {
	BroadcastDiceFrame(userID int64, rollID string, frame rig.Frame)
	BroadcastDiceResult(userID int64, result interface{})
	BroadcastBalanceUpdate(userID int64, balance float64)
}
