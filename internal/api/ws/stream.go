package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AiPlugs/backend/internal/api/middleware"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/navigation"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || middleware.IsLoopbackOrigin(origin)
	},
}

// message is one frame on the event stream
type message struct {
	Type      string               `json:"type"`
	Message   string               `json:"message,omitempty"`
	Delivery  *navigation.Delivery `json:"delivery,omitempty"`
	Timestamp int64                `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Stream fans delivery reports out to websocket subscribers.
// It implements navigation.Reporter; Report never blocks, and a subscriber
// that falls behind loses frames rather than stalling the hub.
type Stream struct {
	logger  *zap.Logger
	metrics *monitoring.Metrics

	mu      sync.Mutex
	clients map[*client]struct{}
	dropped uint64
}

// NewStream creates an empty stream
func NewStream(logger *zap.Logger, metrics *monitoring.Metrics) *Stream {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stream{
		logger:  logger.Named("events"),
		metrics: metrics,
		clients: make(map[*client]struct{}),
	}
}

// Report implements navigation.Reporter
func (s *Stream) Report(d navigation.Delivery) {
	data, err := sonic.Marshal(message{
		Type:      "delivery",
		Delivery:  &d,
		Timestamp: d.Time.Unix(),
	})
	if err != nil {
		s.logger.Warn("Failed to encode delivery", zap.Error(err))
		return
	}
	s.broadcast(data)
}

func (s *Stream) broadcast(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			s.dropped++
		}
	}
}

// Clients returns the number of connected subscribers
func (s *Stream) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Dropped returns how many frames were dropped for slow subscribers
func (s *Stream) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close disconnects every subscriber
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		c.close()
		delete(s.clients, c)
	}
}

// HandleConnection upgrades the request and streams deliveries until the
// peer goes away.
func (s *Stream) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Debug("WebSocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	welcome, _ := sonic.Marshal(message{
		Type:      "system",
		Message:   "subscribed to injection deliveries",
		Timestamp: time.Now().Unix(),
	})
	cl.send <- welcome

	s.add(cl)
	defer s.remove(cl)

	go s.writeLoop(cl)
	s.readLoop(cl)
}

func (s *Stream) add(cl *client) {
	s.mu.Lock()
	s.clients[cl] = struct{}{}
	s.mu.Unlock()
	s.metrics.StreamClientConnected(1)
}

func (s *Stream) remove(cl *client) {
	s.mu.Lock()
	_, ok := s.clients[cl]
	delete(s.clients, cl)
	s.mu.Unlock()
	if ok {
		cl.close()
	}
	s.metrics.StreamClientConnected(-1)
}

// readLoop only watches for pings and disconnects; clients send nothing else
func (s *Stream) readLoop(cl *client) {
	cl.conn.SetReadLimit(4096)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg struct {
			Type string `json:"type"`
		}
		if err := cl.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}
		if msg.Type == "ping" {
			pong, _ := sonic.Marshal(message{Type: "pong", Timestamp: time.Now().Unix()})
			s.broadcastTo(cl, pong)
		}
	}
}

func (s *Stream) broadcastTo(cl *client, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[cl]; !ok {
		return
	}
	select {
	case cl.send <- data:
	default:
		s.dropped++
	}
}

func (s *Stream) writeLoop(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()

	for {
		select {
		case data, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
