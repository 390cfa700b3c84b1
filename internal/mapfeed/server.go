package mapfeed

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/chunksloader/server/internal/loader"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait   = 5 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = pongWait * 9 / 10
	clientQueue = 16
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Server keeps the latest per-world snapshots and fans changes out to
// websocket clients. OnRegistryChanged runs on the tick goroutine; HTTP
// handlers read the snapshots under mu.
type Server struct {
	src   Source
	label Labeler
	log   *zap.Logger

	mu      sync.RWMutex
	worlds  map[uuid.UUID]WorldSnapshot
	clients map[*client]struct{}

	upgrader websocket.Upgrader
	http     *http.Server
}

func NewServer(src Source, label Labeler, log *zap.Logger) *Server {
	if label == nil {
		label = func(v loader.View) string { return "Chunk Loader (" + v.WorldName + ")" }
	}
	return &Server{
		src:     src,
		label:   label,
		log:     log,
		worlds:  make(map[uuid.UUID]WorldSnapshot),
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// OnRegistryChanged rebuilds the affected worlds and broadcasts them.
// It makes Server a loader.Listener.
func (s *Server) OnRegistryChanged(world uuid.UUID) error {
	var ids []uuid.UUID
	if world == loader.AllWorlds {
		ids = s.src.KnownWorlds()
	} else {
		ids = []uuid.UUID{world}
	}
	changed := make([]WorldSnapshot, 0, len(ids))
	for _, id := range ids {
		changed = append(changed, buildWorld(s.src, s.label, id))
	}

	s.mu.Lock()
	if world == loader.AllWorlds {
		s.worlds = make(map[uuid.UUID]WorldSnapshot, len(changed))
	}
	for i, id := range ids {
		s.worlds[id] = changed[i]
	}
	s.mu.Unlock()

	data, err := json.Marshal(Message{Type: "update", Worlds: changed})
	if err != nil {
		return err
	}
	s.broadcast(data)
	return nil
}

// Snapshot returns the current state of every world, ordered by world id.
func (s *Server) Snapshot() []WorldSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Server) snapshotLocked() []WorldSnapshot {
	out := make([]WorldSnapshot, 0, len(s.worlds))
	for _, w := range s.worlds {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WorldID < out[j].WorldID })
	return out
}

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) broadcast(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			delete(s.clients, c)
			close(c.send)
			s.log.Warn("map feed client too slow, disconnecting", zap.String("remote", c.conn.RemoteAddr().String()))
		}
	}
}

// Handler serves GET /loaders and the /ws feed.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/loaders", s.handleLoaders)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

func (s *Server) handleLoaders(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(Message{Type: "snapshot", Worlds: s.Snapshot()})
}

func (s *Server) handleWS(rw http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		return
	}
	c := &client{conn: conn, send: make(chan []byte, clientQueue)}

	// Register and queue the snapshot under one lock so no update can slip in between.
	s.mu.Lock()
	initial, err := json.Marshal(Message{Type: "snapshot", Worlds: s.snapshotLocked()})
	if err != nil {
		s.mu.Unlock()
		conn.Close()
		return
	}
	c.send <- initial
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.log.Debug("map feed client connected", zap.String("remote", conn.RemoteAddr().String()))

	go s.writeLoop(c)
	s.readLoop(c)
}

// readLoop only services control frames; it returns when the peer goes away.
func (s *Server) readLoop(c *client) {
	defer func() {
		s.drop(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

// Start listens on addr and serves in the background.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.http = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	s.log.Info("map feed listening", zap.String("addr", ln.Addr().String()))
	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("map feed server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown stops the HTTP server and disconnects every client.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
	s.mu.Unlock()
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
