package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"committee_backend/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Hub хранит подключения клиентов, сгруппированные по slotID.
// Через него фронтенд получает живые обновления записей на смену.
type Hub struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan BroadcastMessage
	mu         sync.RWMutex
}

// BroadcastMessage представляет сообщение для рассылки подписчикам одного слота.
type BroadcastMessage struct {
	SlotID  string
	Message []byte
}

// WSMessage — событие по слоту для клиентов.
type WSMessage struct {
	EventType string                 `json:"event_type"` // attendance_marked, attendance_cancelled, attendance_confirmed, slot_updated
	SlotID    string                 `json:"slot_id"`
	Data      map[string]interface{} `json:"data"`
}

var HubInstance = NewHub()

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan BroadcastMessage),
	}
}

// Run запускает цикл обработки каналов хаба.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.SlotID] == nil {
				h.clients[client.SlotID] = make(map[*Client]bool)
			}
			h.clients[client.SlotID][client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.SlotID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.Send)
					if len(clients) == 0 {
						delete(h.clients, client.SlotID)
					}
				}
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.RLock()
			if clients, ok := h.clients[message.SlotID]; ok {
				for client := range clients {
					select {
					case client.Send <- message.Message:
					default:
						close(client.Send)
						delete(clients, client)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// BroadcastWSMessage сериализует событие и рассылает его подписчикам слота.
func (h *Hub) BroadcastWSMessage(msg WSMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		logger.Log.Warn("Ошибка сериализации WS сообщения: ", err)
		return
	}
	h.broadcast <- BroadcastMessage{SlotID: msg.SlotID, Message: payload}
}

// Client представляет одно подключение через WebSocket.
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte
	SlotID string
}

// readPump отслеживает разрыв соединения; входящие сообщения не обрабатываются.
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			break
		}
	}
}

// writePump отправляет сообщения клиенту из канала Send.
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			// Ping для поддержания соединения.
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// SlotWebSocketHandler обновляет соединение до WebSocket и регистрирует клиента в Hub.
// URL-пример: /api/slots/{id}/ws
func SlotWebSocketHandler(c *gin.Context) {
	slotID := c.Param("id")
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		http.Error(c.Writer, "Ошибка обновления до WebSocket", http.StatusInternalServerError)
		return
	}
	client := &Client{
		Hub:    HubInstance,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		SlotID: slotID,
	}
	HubInstance.register <- client

	go client.writePump()
	client.readPump()
}
