package roomws

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/ake144/e-tutor/internal/models"
	"github.com/ake144/e-tutor/internal/services"
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

const (
	TypeChatSend       = "chat:send"
	TypeChatMessage    = "chat:message"
	TypeNotebookUpdate = "notebook:update"
	TypeWhiteboardDraw = "whiteboard:draw"
	TypeError          = "error"
)

// Hub fans messages out to the members of each booking room.
type Hub struct {
	rooms      map[uuid.UUID]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan *delivery
	done       chan struct{}
}

type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	bookingID uuid.UUID
	userID    int64
	role      string
	send      chan []byte
	// closed by the hub when the client leaves the room; send is never closed
	dropped   chan struct{}
	dropOnce  sync.Once
}

type sender interface {
	SendMessage(
		ctx context.Context,
		actorID int64,
		role string,
		bookingID uuid.UUID,
		content string,
	) (*models.RoomMessage, error)
}

type Message struct {
	Type      string          `json:"type"`
	BookingID string          `json:"bookingId"`
	SenderID  string          `json:"senderId,omitempty"`
	Content   string          `json:"content,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp"`
}

type delivery struct {
	bookingID uuid.UUID
	exclude   *Client
	payload   []byte
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *delivery, 64),
		done:       make(chan struct{}),
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, bookingID uuid.UUID, userID int64, role string) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		bookingID: bookingID,
		userID:    userID,
		role:      role,
		send:      make(chan []byte, 32),
		dropped:   make(chan struct{}),
	}
}

// Run owns the room map; stop it by cancelling ctx.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			set, ok := h.rooms[client.bookingID]
			if !ok {
				set = make(map[*Client]struct{})
				h.rooms[client.bookingID] = set
			}
			set[client] = struct{}{}
		case client := <-h.unregister:
			h.remove(client)
		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.drop()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
		client.drop()
	}
}

func (h *Hub) remove(client *Client) {
	set, ok := h.rooms[client.bookingID]
	if !ok {
		return
	}
	if _, exists := set[client]; exists {
		delete(set, client)
		client.drop()
	}
	if len(set) == 0 {
		delete(h.rooms, client.bookingID)
	}
}

// deliver drops members whose send buffer is full.
func (h *Hub) deliver(message *delivery) {
	set, ok := h.rooms[message.bookingID]
	if !ok {
		return
	}

	for client := range set {
		if client == message.exclude {
			continue
		}
		select {
		case client.send <- message.payload:
		default:
			delete(set, client)
			client.drop()
		}
	}
	if len(set) == 0 {
		delete(h.rooms, message.bookingID)
	}
}

func (c *Client) ReadPump(service sender) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.handle(service, payload)
	}
}

func (c *Client) handle(service sender, payload []byte) {
	var incoming struct {
		Type    string          `json:"type"`
		Content string          `json:"content"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &incoming); err != nil {
		writeError(c, "invalid message payload")
		return
	}

	switch incoming.Type {
	case TypeChatSend:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		stored, err := service.SendMessage(ctx, c.userID, c.role, c.bookingID, incoming.Content)
		cancel()
		if err != nil {
			slog.Warn("room message rejected", "booking_id", c.bookingID, "user_id", c.userID, "error", err)
			writeError(c, "failed to send message")
			return
		}
		c.publish(nil, &Message{
			Type:      TypeChatMessage,
			BookingID: stored.BookingID.String(),
			SenderID:  strconv.FormatInt(stored.SenderID, 10),
			Content:   stored.Content,
			Timestamp: services.FormatRoomTimestamp(stored.CreatedAt),
		})
	case TypeNotebookUpdate, TypeWhiteboardDraw:
		c.publish(c, &Message{
			Type:      incoming.Type,
			BookingID: c.bookingID.String(),
			SenderID:  strconv.FormatInt(c.userID, 10),
			Data:      incoming.Data,
			Timestamp: services.FormatRoomTimestamp(time.Now()),
		})
	default:
		writeError(c, "unsupported message type")
	}
}

func (c *Client) publish(exclude *Client, message *Message) {
	encoded, err := json.Marshal(message)
	if err != nil {
		slog.Error("room hub encode message", "error", err)
		return
	}
	select {
	case c.hub.broadcast <- &delivery{bookingID: c.bookingID, exclude: exclude, payload: encoded}:
	case <-c.hub.done:
	}
}

func (c *Client) drop() {
	c.dropOnce.Do(func() {
		close(c.dropped)
	})
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.dropped:
			return
		case payload := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}

func writeError(client *Client, message string) {
	payload, err := json.Marshal(Message{
		Type:      TypeError,
		BookingID: client.bookingID.String(),
		Content:   message,
		Timestamp: services.FormatRoomTimestamp(time.Now()),
	})
	if err != nil {
		return
	}
	select {
	case <-client.dropped:
	case client.send <- payload:
	default:
	}
}
