package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/atomic"
)

const (
	writeWait          = 10 * time.Second
	pongWait           = 60 * time.Second
	pingPeriod         = (pongWait * 9) / 10
	maxMessageSize     = 4 * 1024
	maxSendChannelSize = 64
	defaultRoomSize    = 100
	roomIdleTimeout    = time.Hour
)

// Типы событий
const (
	EventTypeRecordUpdated = "record_updated"
	EventTypeRoomInfo      = "room_info"
	EventTypeError         = "error"
)

// OutEvent исходящее событие
type OutEvent struct {
	Type      string    `json:"type"`
	RecordID  uint      `json:"record_id,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// HubOptions опции хаба
type HubOptions struct {
	MaxRoomSize     int
	CleanupInterval time.Duration
}

// Hub рассылает изменения записей подписчикам, по комнате на запись
type Hub struct {
	mu       sync.RWMutex
	rooms    map[uint]*Room
	options  HubOptions
	shutdown chan struct{}
	sent     atomic.Int64
}

// NewHub создает новый хаб
func NewHub(options ...HubOptions) *Hub {
	opts := HubOptions{
		MaxRoomSize:     defaultRoomSize,
		CleanupInterval: 5 * time.Minute,
	}
	if len(options) > 0 {
		opts = options[0]
	}

	hub := &Hub{
		rooms:    make(map[uint]*Room),
		options:  opts,
		shutdown: make(chan struct{}),
	}

	go hub.cleanupLoop()

	return hub
}

// GetRoom возвращает комнату записи, создавая ее при необходимости
func (h *Hub) GetRoom(recordID uint) *Room {
	h.mu.RLock()
	room, exists := h.rooms[recordID]
	h.mu.RUnlock()

	if exists {
		return room
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// Двойная проверка
	if room, exists := h.rooms[recordID]; exists {
		return room
	}

	room = NewRoom(recordID, h.options.MaxRoomSize)
	h.rooms[recordID] = room
	return room
}

// RecordUpdated рассылает новое состояние записи всем подписчикам
func (h *Hub) RecordUpdated(recordID uint, payload any) {
	h.mu.RLock()
	room, exists := h.rooms[recordID]
	h.mu.RUnlock()
	if !exists {
		return
	}

	data, err := json.Marshal(OutEvent{
		Type:      EventTypeRecordUpdated,
		RecordID:  recordID,
		Payload:   payload,
		Timestamp: time.Now(),
	})
	if err != nil {
		log.Printf("hub: failed to marshal record update: %v", err)
		return
	}

	room.Broadcast(data)
	h.sent.Inc()
}

// SentCount число разосланных событий
func (h *Hub) SentCount() int64 {
	return h.sent.Load()
}

// Shutdown останавливает хаб
func (h *Hub) Shutdown() {
	close(h.shutdown)

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, room := range h.rooms {
		room.Shutdown()
	}
	h.rooms = make(map[uint]*Room)
}

func (h *Hub) cleanupLoop() {
	ticker := time.NewTicker(h.options.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.shutdown:
			return
		case <-ticker.C:
			h.cleanupInactiveRooms()
		}
	}
}

func (h *Hub) cleanupInactiveRooms() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for recordID, room := range h.rooms {
		if room.IsEmpty() && room.IsInactive() {
			room.Shutdown()
			delete(h.rooms, recordID)
		}
	}
}

// RoomInfo информация о комнате
type RoomInfo struct {
	RecordID      uint `json:"record_id"`
	ActiveClients int  `json:"active_clients"`
}

// Room управляет подписчиками одной записи
type Room struct {
	recordID    uint
	mu          sync.RWMutex
	clients     map[*Client]struct{}
	broadcast   chan []byte
	register    chan *Client
	unregister  chan *Client
	shutdown    chan struct{}
	closeOnce   sync.Once
	lastActive  atomic.Int64
	maxSize     int
	activeCount atomic.Int32
}

// NewRoom создает новую комнату
func NewRoom(recordID uint, maxSize int) *Room {
	room := &Room{
		recordID:   recordID,
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, maxSendChannelSize),
		register:   make(chan *Client, maxSize),
		unregister: make(chan *Client, maxSize),
		shutdown:   make(chan struct{}),
		maxSize:    maxSize,
	}
	room.touch()

	go room.run()

	return room
}

func (r *Room) run() {
	defer func() {
		r.mu.Lock()
		for client := range r.clients {
			client.Close()
		}
		r.mu.Unlock()
	}()

	for {
		select {
		case <-r.shutdown:
			return
		case client := <-r.register:
			r.handleRegister(client)
		case client := <-r.unregister:
			r.handleUnregister(client)
		case message := <-r.broadcast:
			r.handleBroadcast(message)
		}
	}
}

func (r *Room) handleRegister(client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.clients) >= r.maxSize {
		client.SendJSON(OutEvent{Type: EventTypeError, Payload: "room is full", Timestamp: time.Now()})
		client.Close()
		return
	}

	r.clients[client] = struct{}{}
	r.activeCount.Inc()
	r.touch()

	client.SendJSON(OutEvent{
		Type:      EventTypeRoomInfo,
		RecordID:  r.recordID,
		Payload:   RoomInfo{RecordID: r.recordID, ActiveClients: r.ActiveClients()},
		Timestamp: time.Now(),
	})
}

func (r *Room) handleUnregister(client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.clients[client]; exists {
		delete(r.clients, client)
		r.activeCount.Dec()
		client.Close()
		r.touch()
	}
}

func (r *Room) handleBroadcast(message []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for client := range r.clients {
		client.SendRaw(message)
	}
	r.touch()
}

// RegisterClient регистрирует клиента в комнате
func (r *Room) RegisterClient(client *Client) bool {
	select {
	case r.register <- client:
		return true
	default:
		return false // комната перегружена
	}
}

// UnregisterClient отключает клиента от комнаты
func (r *Room) UnregisterClient(client *Client) {
	select {
	case r.unregister <- client:
	case <-r.shutdown:
	}
}

// Broadcast отправляет сообщение всем клиентам
func (r *Room) Broadcast(message []byte) {
	select {
	case r.broadcast <- message:
	case <-r.shutdown:
	}
}

// ActiveClients число подключенных клиентов
func (r *Room) ActiveClients() int {
	return int(r.activeCount.Load())
}

func (r *Room) IsEmpty() bool {
	return r.activeCount.Load() == 0
}

func (r *Room) IsInactive() bool {
	return time.Since(time.Unix(0, r.lastActive.Load())) > roomIdleTimeout
}

func (r *Room) Shutdown() {
	r.closeOnce.Do(func() { close(r.shutdown) })
}

func (r *Room) touch() {
	r.lastActive.Store(time.Now().UnixNano())
}

// Client WebSocket-подписчик записи
type Client struct {
	RecordID uint
	ctx      context.Context
	cancel   context.CancelFunc
	conn     *websocket.Conn
	send     chan []byte
	mu       sync.RWMutex
	isClosed bool
}

// NewClient создает нового клиента
func NewClient(ctx context.Context, conn *websocket.Conn, recordID uint) *Client {
	ctx, cancel := context.WithCancel(ctx)

	return &Client{
		RecordID: recordID,
		ctx:      ctx,
		cancel:   cancel,
		conn:     conn,
		send:     make(chan []byte, maxSendChannelSize),
	}
}

// ReadPump читает (и отбрасывает) входящие сообщения, держит соединение живым
func (c *Client) ReadPump() {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				log.Printf("client read error: %v", err)
			}
			return
		}
	}
}

// WritePump отправляет сообщения клиенту
func (c *Client) WritePump() error {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			return nil
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return nil
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return err
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		}
	}
}

// SendJSON отправляет JSON сообщение
func (c *Client) SendJSON(v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("client marshal error: %v", err)
		return false
	}

	return c.SendRaw(data)
}

// SendRaw отправляет сырые данные
func (c *Client) SendRaw(data []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.isClosed {
		return false
	}

	select {
	case c.send <- data:
		return true
	default:
		// Перегруз - пропускаем сообщение
		return false
	}
}

// Close закрывает соединение
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isClosed {
		return
	}

	c.isClosed = true
	c.cancel()
	close(c.send)
	if c.conn != nil {
		c.conn.Close()
	}
}

func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isClosed
}
