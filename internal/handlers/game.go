package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dice-miniapp-backend/internal/models"
	"dice-miniapp-backend/internal/services"
)

type GameHandler struct {
	gameEngine   *services.GameEngine
	redisService *services.RedisService
}

func NewGameHandler(gameEngine *services.GameEngine, redisService *services.RedisService) *GameHandler {
	return &GameHandler{
		gameEngine:   gameEngine,
		redisService: redisService,
	}
}

// Roll starts a dice roll. The response acknowledges the bet; frames and the
// settled result stream over the websocket while playback runs.
func (h *GameHandler) Roll(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.RollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.gameEngine.RollDice(c.Request.Context(), userID, &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to roll",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"roll": gin.H{
			"id":          resp.RollID,
			"status":      resp.Status,
			"multiplier":  resp.Multiplier,
			"duration_ms": resp.DurationMS,
			"server_hash": resp.ServerHash,
			"nonce":       resp.Nonce,
		},
	})
}

func (h *GameHandler) GetRoll(c *gin.Context) {
	userID := c.GetInt64("user_id")
	rollID := c.Param("id")

	session, err := h.gameEngine.GetRoll(rollID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Roll not found",
			"details": err.Error(),
		})
		return
	}

	if session.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "You don't own this roll",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"roll": gin.H{
			"id":         session.ID,
			"bet_amount": session.BetAmount,
			"target":     session.Target,
			"over":       session.Over,
			"die_count":  session.DieCount,
			"faces":      session.Faces,
			"sum":        session.Sum,
			"win":        session.Win,
			"multiplier": session.Multiplier,
			"payout":     session.Payout,
			"nonce":      session.Nonce,
			"status":     session.Status,
			"created_at": session.CreatedAt,
			"ended_at":   session.EndedAt,
		},
	})
}

func (h *GameHandler) GetBalance(c *gin.Context) {
	userID := c.GetInt64("user_id")

	wallet, err := h.redisService.GetWallet(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get wallet",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"balance": gin.H{
			"available":     wallet.Balance - wallet.LockedBalance,
			"locked":        wallet.LockedBalance,
			"total":         wallet.Balance,
			"total_wagered": wallet.TotalWagered,
			"total_won":     wallet.TotalWon,
			"nonce":         wallet.Nonce,
			"client_seed":   wallet.ClientSeed,
			"server_hash":   wallet.ServerHash,
		},
	})
}

func (h *GameHandler) GetActiveRolls(c *gin.Context) {
	userID := c.GetInt64("user_id")

	rolls, err := h.gameEngine.GetUserActiveRolls(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to fetch active rolls",
			"details": err.Error(),
		})
		return
	}

	var response []gin.H
	for _, roll := range rolls {
		response = append(response, gin.H{
			"id":         roll.ID,
			"bet_amount": roll.BetAmount,
			"target":     roll.Target,
			"over":       roll.Over,
			"multiplier": roll.Multiplier,
			"status":     roll.Status,
			"created_at": roll.CreatedAt,
			"updated_at": roll.UpdatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"rolls":   response,
		"count":   len(response),
	})
}

func (h *GameHandler) GetRollHistory(c *gin.Context) {
	userID := c.GetInt64("user_id")

	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}

	rolls, err := h.redisService.GetRollHistory(userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get roll history",
			"details": err.Error(),
		})
		return
	}

	var response []gin.H
	for _, roll := range rolls {
		result := "lose"
		if roll.Win {
			result = "win"
		}

		response = append(response, gin.H{
			"id":         roll.ID,
			"bet_amount": roll.BetAmount,
			"target":     roll.Target,
			"over":       roll.Over,
			"faces":      roll.Faces,
			"sum":        roll.Sum,
			"multiplier": roll.Multiplier,
			"payout":     roll.Payout,
			"result":     result,
			"status":     roll.Status,
			"created_at": roll.CreatedAt,
			"ended_at":   roll.EndedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"rolls":   response,
		"count":   len(response),
	})
}

// SetRig arms or clears the rigging preset for this user's upcoming rolls.
func (h *GameHandler) SetRig(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.RigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if err := h.gameEngine.SetRigPreset(userID, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid rig preset",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"rig": gin.H{
			"enabled": req.Enabled,
			"faces":   req.Faces,
		},
	})
}

func (h *GameHandler) GetRig(c *gin.Context) {
	userID := c.GetInt64("user_id")

	preset, err := h.gameEngine.GetRigPreset(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get rig preset",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"rig": gin.H{
			"enabled": preset.Enabled,
			"faces":   preset.Faces,
		},
	})
}

func (h *GameHandler) GetVerificationData(c *gin.Context) {
	userID := c.GetInt64("user_id")

	data, err := h.gameEngine.GetVerificationData(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get verification data",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"client_seed":   data.ClientSeed,
			"server_hash":   data.ServerHash,
			"current_nonce": data.CurrentNonce,
			"user_id":       userID,
		},
	})
}

// VerifyRoll re-derives the throw seed from a revealed server seed so the
// player can re-simulate a past roll.
func (h *GameHandler) VerifyRoll(c *gin.Context) {
	// Nonce carries no binding tag: wallets start at nonce 0, and a
	// required tag would treat the first roll's nonce as missing.
	var req struct {
		ClientSeed string `json:"client_seed" binding:"required"`
		ServerSeed string `json:"server_seed" binding:"required"`
		Nonce      int64  `json:"nonce"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if req.Nonce < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nonce must not be negative"})
		return
	}

	seed, hash := h.gameEngine.VerifyRoll(req.ClientSeed, req.ServerSeed, req.Nonce)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"verification": gin.H{
			"valid":           true,
			"throw_seed":      seed,
			"calculated_hash": hash,
			"client_seed":     req.ClientSeed,
			"server_seed":     req.ServerSeed,
			"nonce":           req.Nonce,
		},
	})
}
