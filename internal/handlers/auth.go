package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dice-miniapp-backend/internal/models"
	"dice-miniapp-backend/internal/services"
)

// maxInitDataAge bounds replay of captured initData blobs.
const maxInitDataAge = 24 * time.Hour

type AuthHandler struct {
	redisService *services.RedisService
	jwtService   *services.JWTService
	botToken     string
}

func NewAuthHandler(redisService *services.RedisService, jwtService *services.JWTService, botToken string) *AuthHandler {
	return &AuthHandler{
		redisService: redisService,
		jwtService:   jwtService,
		botToken:     botToken,
	}
}

// Authenticate exchanges Telegram mini-app initData for a session token.
func (h *AuthHandler) Authenticate(c *gin.Context) {
	initData := c.Query("init_data")
	if initData == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "init_data is required"})
		return
	}

	user, err := h.validateInitData(initData)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Invalid init data",
			"details": err.Error(),
		})
		return
	}

	session := &models.UserSession{
		ID:           user.ID,
		SessionID:    uuid.New().String(),
		TelegramUser: *user,
		CreatedAt:    time.Now(),
		LastAccessed: time.Now(),
	}

	if err := h.redisService.StoreUser(user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store user"})
		return
	}

	if err := h.redisService.StoreUserSession(session, services.TTLUserSession); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	token, err := h.jwtService.GenerateToken(user.ID, session.SessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"user":    user,
	})
}

// validateInitData checks the Telegram signature: HMAC over the sorted
// key=value pairs, keyed by HMAC_SHA256("WebAppData", botToken).
func (h *AuthHandler) validateInitData(initData string) (*models.TelegramUser, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, fmt.Errorf("malformed init data: %v", err)
	}

	receivedHash := values.Get("hash")
	if receivedHash == "" {
		return nil, fmt.Errorf("missing hash")
	}
	values.Del("hash")

	pairs := make([]string, 0, len(values))
	for key := range values {
		pairs = append(pairs, key+"="+values.Get(key))
	}
	sort.Strings(pairs)
	dataCheckString := strings.Join(pairs, "\n")

	secretMac := hmac.New(sha256.New, []byte("WebAppData"))
	secretMac.Write([]byte(h.botToken))
	secret := secretMac.Sum(nil)

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(dataCheckString))
	expectedHash := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expectedHash), []byte(receivedHash)) {
		return nil, fmt.Errorf("signature mismatch")
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("missing auth_date")
	}
	if time.Since(time.Unix(authDate, 0)) > maxInitDataAge {
		return nil, fmt.Errorf("init data expired")
	}

	userJSON := values.Get("user")
	if userJSON == "" {
		return nil, fmt.Errorf("missing user")
	}

	var user models.TelegramUser
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		return nil, fmt.Errorf("malformed user payload: %v", err)
	}
	if user.ID == 0 {
		return nil, fmt.Errorf("missing user id")
	}

	return &user, nil
}
