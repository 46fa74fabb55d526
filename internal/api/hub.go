package api

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/LaunchDay-Studio-Inc/linesremain/internal/protocol"
	"github.com/LaunchDay-Studio-Inc/linesremain/internal/sim"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendQueueSize  = 64
)

// PlayerLoader fetches a saved player before spawn. Implemented by the
// persistence store; nil disables restore.
type PlayerLoader interface {
	LoadPlayer(playerID string) (*sim.PlayerRecord, error)
}

// GameEngine is the part of the engine the hub drives.
type GameEngine interface {
	Connect(clientID, playerID, name string, rec *sim.PlayerRecord)
	Disconnect(clientID, playerID string)
	Submit(playerID string, env *protocol.Envelope)
}

// session is one live WebSocket connection.
type session struct {
	id       string
	playerID string
	name     string
	ip       string
	conn     *websocket.Conn
	send     chan []byte

	closeOnce sync.Once
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.send)
	})
}

// Hub owns all WebSocket sessions and implements sim.Sink: the
// broadcaster hands it encoded payloads addressed by session id, and
// delivery never blocks; a client that cannot keep up loses messages
// and eventually the connection.
type Hub struct {
	engine GameEngine
	loader PlayerLoader

	upgrader websocket.Upgrader

	mu       sync.RWMutex
	sessions map[string]*session

	maxTotal    int
	connLimiter *ConnLimiter
}

// NewHub creates a hub for the engine. allowedOrigins extends the
// localhost default for browser clients.
func NewHub(engine GameEngine, loader PlayerLoader, maxTotal, maxPerIP int, allowedOrigins []string) *Hub {
	h := &Hub{
		engine:      engine,
		loader:      loader,
		sessions:    make(map[string]*session),
		maxTotal:    maxTotal,
		connLimiter: NewConnLimiter(maxPerIP),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Non-browser clients send no Origin.
				return true
			}
			if IsAllowedOrigin(origin, allowedOrigins) {
				return true
			}
			log.Printf("ws: rejected origin %s", origin)
			RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// Deliver implements sim.Sink. Called from the tick goroutine; it must
// never block, so a full send queue drops the payload.
func (h *Hub) Deliver(clientID string, payload []byte) {
	h.mu.RLock()
	s, ok := h.sessions[clientID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	select {
	case s.send <- payload:
		RecordWSMessageSent()
	default:
		RecordWSMessageDropped("outbound")
	}
}

// SessionCount returns the number of live connections.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// HandleWS upgrades a connection and binds it to a player. The player
// id comes from the query string so a reconnect resumes the same
// entity inside the grace window; omitting it creates a fresh player.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if h.SessionCount() >= h.maxTotal {
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}
	if !h.connLimiter.Allow(ip) {
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: upgrade failed: %v", err)
		h.connLimiter.Release(ip)
		return
	}

	playerID := r.URL.Query().Get("player")
	if playerID == "" {
		playerID = uuid.NewString()
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = playerID
	}

	var rec *sim.PlayerRecord
	if h.loader != nil {
		rec, err = h.loader.LoadPlayer(playerID)
		if err != nil {
			// A corrupt save never blocks entry; the player starts fresh.
			log.Printf("ws: load player %s failed, spawning fresh: %v", playerID, err)
			rec = nil
		}
	}

	s := &session{
		id:       uuid.NewString(),
		playerID: playerID,
		name:     name,
		ip:       ip,
		conn:     conn,
		send:     make(chan []byte, sendQueueSize),
	}

	h.mu.Lock()
	h.sessions[s.id] = s
	total := len(h.sessions)
	h.mu.Unlock()
	UpdateWSConnections(total)

	h.engine.Connect(s.id, s.playerID, s.name, rec)
	log.Printf("ws: player %s connected from %s (%d total)", playerID, ip, total)

	go h.writePump(s)
	go h.readPump(s)
}

// readPump consumes client messages until the connection dies. Every
// payload passes schema validation before it reaches the engine;
// malformed input is counted and dropped, never answered.
func (h *Hub) readPump(s *session) {
	defer h.drop(s)

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		env, err := protocol.ParseEnvelope(raw)
		if err != nil {
			RecordWSMessageDropped("inbound")
			continue
		}
		h.engine.Submit(s.playerID, env)
	}
}

// writePump flushes the send queue and keeps the connection alive with
// pings.
func (h *Hub) writePump(s *session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// drop unregisters a session and starts the player's disconnect grace.
func (h *Hub) drop(s *session) {
	h.mu.Lock()
	_, ok := h.sessions[s.id]
	if ok {
		delete(h.sessions, s.id)
	}
	total := len(h.sessions)
	h.mu.Unlock()
	if !ok {
		return
	}

	h.connLimiter.Release(s.ip)
	s.close()
	s.conn.Close()
	UpdateWSConnections(total)

	h.engine.Disconnect(s.id, s.playerID)
	log.Printf("ws: player %s disconnected (%d remaining)", s.playerID, total)
}
