package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"timeauction/backend/internal/auction"
	"timeauction/backend/internal/auction/events"
)

// ConnectionManager owns every websocket connection and fans broadcast
// events out to the connections subscribed to a topic. Topics are the
// broker subjects: the room list plus one topic per room.
type ConnectionManager struct {
	topics map[string]map[*Connection]bool
	mu     sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	broadcastCh chan broadcast

	// dispatcher handles inbound intents; set once at wiring time.
	dispatcher *Dispatcher
}

// Connection is one client's websocket. The player identity is fixed at
// upgrade time and never trusted from intent payloads.
type Connection struct {
	ID          string
	PlayerID    string
	DisplayName string
	Conn        *websocket.Conn
	Send        chan []byte
	Manager     *ConnectionManager

	mu     sync.Mutex
	roomID string

	ConnectedAt time.Time
	LastPing    time.Time
}

// ConnectionConfig holds websocket tuning knobs.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

type broadcast struct {
	topic string
	data  []byte
}

// DefaultConnectionConfig returns defaults suitable for development.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewConnectionManager creates a connection manager.
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		topics: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan broadcast, 1000),
	}
}

// SetDispatcher wires the intent dispatcher. Must be called before the
// first upgrade.
func (cm *ConnectionManager) SetDispatcher(d *Dispatcher) {
	cm.dispatcher = d
}

// Start processes broadcast messages until the context is done.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case b := <-cm.broadcastCh:
			cm.deliver(b)
		}
	}
}

// UpgradeConnection upgrades an HTTP request to a websocket and starts
// the read/write pumps. Every connection is subscribed to the lobby's
// room-list topic immediately.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, playerID, displayName string) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade websocket connection")
		return err
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		PlayerID:    playerID,
		DisplayName: displayName,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	cm.SubscribeTopic(connection, auction.SubjectRooms)
	if cm.dispatcher != nil {
		cm.dispatcher.HandleConnect(connection)
	}

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("player_id", playerID).
		Msg("websocket connection established")
	return nil
}

// SubscribeTopic registers a connection on a topic.
func (cm *ConnectionManager) SubscribeTopic(conn *Connection, topic string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.topics[topic] == nil {
		cm.topics[topic] = make(map[*Connection]bool)
	}
	cm.topics[topic][conn] = true
	log.Debug().
		Str("connection_id", conn.ID).
		Str("topic", topic).
		Int("subscribers", len(cm.topics[topic])).
		Msg("topic subscribed")
}

// UnsubscribeTopic removes a connection from a topic.
func (cm *ConnectionManager) UnsubscribeTopic(conn *Connection, topic string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.unsubscribeLocked(conn, topic)
}

func (cm *ConnectionManager) unsubscribeLocked(conn *Connection, topic string) {
	if subs, ok := cm.topics[topic]; ok {
		delete(subs, conn)
		if len(subs) == 0 {
			delete(cm.topics, topic)
		}
	}
}

// dropConnection removes a connection from every topic.
func (cm *ConnectionManager) dropConnection(conn *Connection) {
	cm.mu.Lock()
	for topic := range cm.topics {
		cm.unsubscribeLocked(conn, topic)
	}
	cm.mu.Unlock()
}

// Broadcast queues raw event bytes for every subscriber of the topic.
// Fire-and-forget; a full queue drops the message.
func (cm *ConnectionManager) Broadcast(topic string, data []byte) {
	select {
	case cm.broadcastCh <- broadcast{topic: topic, data: data}:
	default:
		log.Warn().Str("topic", topic).Msg("broadcast channel full, dropping message")
	}
}

func (cm *ConnectionManager) deliver(b broadcast) {
	cm.mu.RLock()
	subs, ok := cm.topics[b.topic]
	if !ok {
		cm.mu.RUnlock()
		return
	}
	targets := make([]*Connection, 0, len(subs))
	for conn := range subs {
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	for _, conn := range targets {
		select {
		case conn.Send <- b.data:
		default:
			// Connection is slow or dead, close it.
			log.Warn().
				Str("connection_id", conn.ID).
				Str("player_id", conn.PlayerID).
				Msg("connection send buffer full, closing connection")
			cm.dropConnection(conn)
			conn.Conn.Close()
		}
	}
}

// Stats returns active connection counts per topic.
func (cm *ConnectionManager) Stats() (total int, perTopic map[string]int) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	perTopic = make(map[string]int, len(cm.topics))
	seen := make(map[*Connection]bool)
	for topic, subs := range cm.topics {
		perTopic[topic] = len(subs)
		for conn := range subs {
			seen[conn] = true
		}
	}
	return len(seen), perTopic
}

// RoomID returns the room this connection is currently seated in.
func (c *Connection) RoomID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

// SetRoomID records the connection's current room.
func (c *Connection) SetRoomID(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = roomID
}

// SendEvent marshals an envelope straight to this connection only.
func (c *Connection) SendEvent(env events.Envelope) {
	data, err := env.Marshal()
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to marshal event")
		return
	}
	select {
	case c.Send <- data:
	default:
		log.Warn().Str("connection_id", c.ID).Msg("send buffer full, dropping event")
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.dropConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to write message")
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to send ping")
				return
			}
			c.LastPing = time.Now()
		}
	}
}

func (c *Connection) readPump() {
	defer func() {
		if c.Manager.dispatcher != nil {
			c.Manager.dispatcher.HandleDisconnect(c)
		}
		c.Manager.dropConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("unexpected websocket close")
			}
			break
		}
		if c.Manager.dispatcher != nil {
			c.Manager.dispatcher.Dispatch(c, message)
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
