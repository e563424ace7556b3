package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"dice-miniapp-backend/internal/config"
	"dice-miniapp-backend/internal/services"
)

func newVerifyRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		DieCount:           2,
		ShadowSpeed:        6,
		MaxShadowFrames:    600,
		SettleLinearSpeed:  0.15,
		SettleAngularSpeed: 0.25,
		GroundHeight:       1.2,
		RigMinFrames:       10,
		RigSettleSpeed:     0.8,
		RigGroundClearance: 1.5,
	}

	// Verification is pure seed math; no storage or broadcaster needed.
	handler := NewGameHandler(services.NewGameEngine(nil, cfg, nil), nil)

	router := gin.New()
	router.POST("/verify", handler.VerifyRoll)
	return router
}

func postVerify(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/verify", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestVerifyRollAcceptsNonceZero(t *testing.T) {
	router := newVerifyRouter()

	// Wallets start counting at nonce 0, so the very first roll verifies
	// with a zero nonce.
	w := postVerify(router, `{"client_seed":"abc","server_seed":"def","nonce":0}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Nonce 0 should verify, got status %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success      bool `json:"success"`
		Verification struct {
			Nonce int64 `json:"nonce"`
		} `json:"verification"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !resp.Success || resp.Verification.Nonce != 0 {
		t.Errorf("Expected a successful nonce-0 verification, got %s", w.Body.String())
	}
}

func TestVerifyRollRejectsBadRequests(t *testing.T) {
	router := newVerifyRouter()

	tests := []struct {
		name string
		body string
	}{
		{"missing client seed", `{"server_seed":"def","nonce":1}`},
		{"missing server seed", `{"client_seed":"abc","nonce":1}`},
		{"negative nonce", `{"client_seed":"abc","server_seed":"def","nonce":-1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := postVerify(router, tt.body); w.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}
