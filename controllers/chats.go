// ./controllers/chats.go
package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"

	"doctorAppointment/chatbot"
	"doctorAppointment/utils"

	"github.com/gorilla/websocket"
)

const maxFrameSize = 64 << 10

// ChatRequest is the body of POST /chat and of every /ws/chat frame.
// Both fields stay raw so a non-string message or a malformed history
// can be handled leniently.
type ChatRequest struct {
	Message     json.RawMessage `json:"message"`
	ChatHistory json.RawMessage `json:"chatHistory"`
}

// parse returns the message text and whatever history could be decoded.
func (req ChatRequest) parse() (string, []chatbot.Turn, bool) {
	var message string
	if err := json.Unmarshal(req.Message, &message); err != nil || strings.TrimSpace(message) == "" {
		return "", nil, false
	}

	var history []chatbot.Turn
	if len(req.ChatHistory) > 0 {
		if err := json.Unmarshal(req.ChatHistory, &history); err != nil {
			history = nil
		}
	}
	return message, history, true
}

// chatFailure maps an Ask error to a status and response body.
func (h *Handler) chatFailure(err error) (int, map[string]string) {
	switch {
	case errors.Is(err, chatbot.ErrInvalidMessage):
		return http.StatusBadRequest, map[string]string{"error": "Please enter a valid message about the project."}
	case errors.Is(err, chatbot.ErrNotReady):
		return http.StatusServiceUnavailable, map[string]string{"error": "Project data is still loading. Please try again shortly."}
	}
	body := map[string]string{"error": "Error processing your question"}
	if h.Dev {
		body["details"] = err.Error()
	}
	return http.StatusInternalServerError, body
}

// Chat handles POST /chat
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Please enter a valid message about the project.")
		return
	}

	message, history, ok := req.parse()
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "Please enter a valid message about the project.")
		return
	}

	answer, err := h.Chatbot.Ask(r.Context(), message, history)
	if err != nil {
		code, body := h.chatFailure(err)
		if code == http.StatusInternalServerError {
			logError(r, "answering chat message", err)
		}
		utils.RespondWithJSON(w, code, body)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, answer)
}

// Hub maintains the set of active chat Clients
type Hub struct {
	Clients    map[*Client]bool // Registered Clients
	register   chan *Client
	unregister chan *Client
	quit       chan struct{}
	closeOnce  sync.Once
	mu         sync.Mutex // Protects Clients

	upgrader websocket.Upgrader
}

// Client represents a WebSocket connection
type Client struct {
	hub  *Hub
	Conn *websocket.Conn
	send chan []byte
	done chan struct{}

	// key identifies the peer to the chat rate limiter.
	key string

	// ctx outlives the upgrade request and ends with the connection.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub initializes a new Hub accepting upgrades from allowedOrigin or
// from clients that send no Origin header.
func NewHub(allowedOrigin string) *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origin == allowedOrigin
			},
		},
	}
}

// Run starts the Hub. It returns after Close.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.Clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.remove(client)
		case <-h.quit:
			h.mu.Lock()
			for client := range h.Clients {
				delete(h.Clients, client)
				close(client.done)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.Clients[client]; ok {
		delete(h.Clients, client)
		close(client.done)
	}
}

// Close disconnects every client and stops Run.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.quit) })
}

// Len reports the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.Clients)
}

// ServeChatWs handles GET /ws/chat. The upgrade and every inbound frame
// draw from the same per-client budget as POST /chat.
func (h *Handler) ServeChatWs(w http.ResponseWriter, r *http.Request) {
	key := h.ChatLimit.Key(r)
	if !h.ChatLimit.Allow(key) {
		utils.RespondWithError(w, http.StatusTooManyRequests, utils.TooManyRequests)
		return
	}

	conn, err := h.Hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		logError(r, "upgrading chat connection", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		hub:    h.Hub,
		Conn:   conn,
		send:   make(chan []byte, 16),
		done:   make(chan struct{}),
		key:    key,
		ctx:    ctx,
		cancel: cancel,
	}

	select {
	case h.Hub.register <- client:
	case <-h.Hub.quit:
		cancel()
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump(h)
}

// readPump answers each inbound frame in order until the peer goes away.
func (c *Client) readPump(h *Handler) {
	defer func() {
		c.cancel()
		select {
		case c.hub.unregister <- c:
		case <-c.hub.quit:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxFrameSize)
	for {
		_, frame, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("chat websocket error: %v", err)
			}
			return
		}

		var reply interface{}
		var req ChatRequest
		if !h.ChatLimit.Allow(c.key) {
			reply = map[string]string{"error": utils.TooManyRequests}
		} else if err := json.Unmarshal(frame, &req); err != nil {
			reply = map[string]string{"error": "Please enter a valid message about the project."}
		} else if message, history, ok := req.parse(); !ok {
			reply = map[string]string{"error": "Please enter a valid message about the project."}
		} else if answer, err := h.Chatbot.Ask(c.ctx, message, history); err != nil {
			code, body := h.chatFailure(err)
			if code == http.StatusInternalServerError {
				log.Printf("chat websocket: error answering message: %v", err)
			}
			reply = body
		} else {
			reply = answer
		}

		payload, err := json.Marshal(reply)
		if err != nil {
			log.Printf("chat websocket: error encoding reply: %v", err)
			continue
		}

		select {
		case c.send <- payload:
		case <-c.done:
			return
		}
	}
}

// writePump writes queued replies to the WebSocket connection
func (c *Client) writePump() {
	defer c.Conn.Close()

	for {
		select {
		case message := <-c.send:
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-c.done:
			// The hub dropped this client
			c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		}
	}
}
