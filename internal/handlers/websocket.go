package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"dice-miniapp-backend/internal/models"
	"dice-miniapp-backend/internal/rig"
	"dice-miniapp-backend/internal/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	redisService *services.RedisService
	hub          *WebSocketHub
}

type WebSocketHub struct {
	clients    map[int64]*websocket.Conn
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
}

type Client struct {
	UserID int64
	Conn   *websocket.Conn
}

type Message struct {
	Type   string      `json:"type"`
	UserID int64       `json:"user_id,omitempty"`
	RollID string      `json:"roll_id,omitempty"`
	Data   interface{} `json:"data"`
}

// NewWebSocketHandler builds the hub that streams roll playback to clients.
// The handler doubles as the engine's Broadcaster.
func NewWebSocketHandler(redisService *services.RedisService) *WebSocketHandler {
	hub := &WebSocketHub{
		clients:    make(map[int64]*websocket.Conn),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 256),
	}

	go hub.run()

	return &WebSocketHandler{
		redisService: redisService,
		hub:          hub,
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID := c.GetInt64("user_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	client := &Client{
		UserID: userID,
		Conn:   conn,
	}

	h.hub.register <- client

	defer func() {
		h.hub.unregister <- client
		conn.Close()
	}()

	h.sendBalance(client)

	for {
		var msg Message
		err := conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		h.handleMessage(client, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(client *Client, msg *Message) {
	switch msg.Type {
	case "PING":
		h.sendPong(client)
	case "GET_BALANCE":
		h.sendBalance(client)
	}
}

func (h *WebSocketHandler) sendBalance(client *Client) {
	wallet, err := h.redisService.GetWallet(client.UserID)
	if err != nil {
		log.Printf("Failed to get wallet for WS: %v", err)
		return
	}

	msg := Message{
		Type: "BALANCE_UPDATE",
		Data: models.BalanceResponse{
			Balance:       wallet.Balance,
			LockedBalance: wallet.LockedBalance,
			TotalWagered:  wallet.TotalWagered,
			TotalWon:      wallet.TotalWon,
			Available:     wallet.Balance - wallet.LockedBalance,
		},
	}

	client.Conn.WriteJSON(msg)
}

func (h *WebSocketHandler) sendPong(client *Client) {
	msg := Message{
		Type: "PONG",
		Data: gin.H{
			"timestamp": time.Now().Unix(),
		},
	}

	client.Conn.WriteJSON(msg)
}

func (hub *WebSocketHub) run() {
	for {
		select {
		case client := <-hub.register:
			hub.clients[client.UserID] = client.Conn
			log.Printf("Client registered: %d", client.UserID)

		case client := <-hub.unregister:
			if _, ok := hub.clients[client.UserID]; ok {
				delete(hub.clients, client.UserID)
				log.Printf("Client unregistered: %d", client.UserID)
			}

		case message := <-hub.broadcast:
			hub.broadcastMessage(message)
		}
	}
}

func (hub *WebSocketHub) broadcastMessage(message *Message) {
	if message.UserID != 0 {
		if conn, ok := hub.clients[message.UserID]; ok {
			conn.WriteJSON(message)
		}
	} else {
		for _, conn := range hub.clients {
			conn.WriteJSON(message)
		}
	}
}

// BroadcastDiceFrame streams one interpolated playback frame. Frames are
// best-effort: if the hub's queue is full the frame is dropped, the settled
// result is what matters.
func (h *WebSocketHandler) BroadcastDiceFrame(userID int64, rollID string, frame rig.Frame) {
	msg := &Message{
		Type:   "DICE_FRAME",
		UserID: userID,
		RollID: rollID,
		Data:   frame,
	}

	select {
	case h.hub.broadcast <- msg:
	default:
	}
}

func (h *WebSocketHandler) BroadcastDiceResult(userID int64, result interface{}) {
	msg := &Message{
		Type:   "DICE_RESULT",
		UserID: userID,
		Data:   result,
	}

	h.hub.broadcast <- msg
}

func (h *WebSocketHandler) BroadcastBalanceUpdate(userID int64, balance float64) {
	msg := &Message{
		Type:   "BALANCE_UPDATE",
		UserID: userID,
		Data: gin.H{
			"balance": balance,
		},
	}

	h.hub.broadcast <- msg
}
