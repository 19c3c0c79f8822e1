package signal

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"neurohub/internal/core/domain"
	"neurohub/internal/core/ports"
	"neurohub/internal/core/services"
	"neurohub/pkg/utils"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Should be configured properly for production
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// Options tunes the transport behavior of the WebSocket server.
type Options struct {
	PingInterval      time.Duration
	PongTimeout       time.Duration
	WriteTimeout      time.Duration
	ReadLimitBytes    int64
	SendBufferSize    int
	MessagesPerSecond float64
	MessageBurst      int
}

// InboundMessage is the wire envelope for client messages.
type InboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type handlerFunc func(s *WebSocketServer, c *client, msg InboundMessage) error

// WebSocketServer authenticates transports, registers them with the
// coordinator and shuttles messages both ways. It implements ports.Sender
// for outbound delivery: sends are fire-and-forget onto a per-client
// buffered channel and dropped when the client cannot keep up.
type WebSocketServer struct {
	coordinator *services.Coordinator
	verifier    ports.TokenVerifier
	metrics     ports.MetricsCollector
	opts        Options
	logger      *zap.SugaredLogger

	handlers map[string]handlerFunc

	clients map[domain.ConnectionID]*client
	mu      sync.RWMutex
}

type client struct {
	id        domain.ConnectionID
	conn      *websocket.Conn
	send      chan domain.Event
	done      chan struct{}
	closeOnce sync.Once
	limiter   *rate.Limiter
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *client) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func NewWebSocketServer(coordinator *services.Coordinator, verifier ports.TokenVerifier, metrics ports.MetricsCollector, opts Options, logger *zap.SugaredLogger) *WebSocketServer {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	s := &WebSocketServer{
		coordinator: coordinator,
		verifier:    verifier,
		metrics:     metrics,
		opts:        opts,
		logger:      logger,
		clients:     make(map[domain.ConnectionID]*client),
	}
	s.handlers = map[string]handlerFunc{
		"device-pair-request":  (*WebSocketServer).handlePairRequest,
		"device-pair-response": (*WebSocketServer).handlePairResponse,
		"unpair":               (*WebSocketServer).handleUnpair,
		"join-as-controller":   (*WebSocketServer).handleJoinAsController,
		"join-as-participant":  (*WebSocketServer).handleJoinAsParticipant,
		"join-as-observer":     (*WebSocketServer).handleJoinAsObserver,
		"experiment-start":     (*WebSocketServer).handleControlEvent,
		"experiment-stop":      (*WebSocketServer).handleControlEvent,
		"experiment-pause":     (*WebSocketServer).handleControlEvent,
		"step-change":          (*WebSocketServer).handleControlEvent,
		"step-complete":        (*WebSocketServer).handleControlEvent,
		"eeg-stream-start":     (*WebSocketServer).handleStreamStart,
		"eeg-stream-stop":      (*WebSocketServer).handleStreamStop,
		"eeg-stream-config":    (*WebSocketServer).handleStreamConfig,
		"eeg-data":             (*WebSocketServer).handleStreamData,
		"eeg-get-buffer":       (*WebSocketServer).handleGetBuffer,
		"device-scan":          (*WebSocketServer).handleDeviceScan,
		"ping":                 (*WebSocketServer).handlePing,
	}
	return s
}

// HandleWebSocket authenticates the request, upgrades the transport and
// runs the read loop. Authentication happens before the upgrade: a failed
// credential closes the transport with an HTTP error and nothing is ever
// registered.
func (s *WebSocketServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	principal, err := s.verifier.Verify(bearerToken(r))
	if err != nil {
		s.metrics.AuthFailure()
		s.logger.Warnw("authentication failed", "remote", r.RemoteAddr, "error", err)
		writeAuthError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}

	connectionID := domain.ConnectionID(utils.GenerateConnectionID())
	displayName := r.URL.Query().Get("display_name")
	if displayName == "" {
		displayName = principal.Username
	}
	record := domain.NewConnection(connectionID, principal.UserID, principal.Role, displayName, domain.ClientMeta{
		RemoteAddr: r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	})

	cl := &client{
		id:      connectionID,
		conn:    conn,
		send:    make(chan domain.Event, s.opts.SendBufferSize),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(rate.Limit(s.opts.MessagesPerSecond), s.opts.MessageBurst),
	}

	s.mu.Lock()
	s.clients[connectionID] = cl
	s.mu.Unlock()

	s.coordinator.Register(record, func() bool { return !cl.closed() })
	s.logger.Infow("device connected",
		"connection_id", connectionID,
		"user_id", principal.UserID,
		"role", principal.Role,
	)

	go s.writePump(cl)
	s.readPump(cl)

	// Teardown cascades through pairing, rooms and sessions inside one
	// coordinator dispatch step.
	cl.close()
	s.mu.Lock()
	delete(s.clients, connectionID)
	s.mu.Unlock()
	s.coordinator.Deregister(connectionID)
	s.logger.Infow("device disconnected", "connection_id", connectionID)
}

func (s *WebSocketServer) readPump(cl *client) {
	cl.conn.SetReadLimit(s.opts.ReadLimitBytes)
	cl.conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
	cl.conn.SetPongHandler(func(string) error {
		cl.conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
		return nil
	})

	for {
		_, data, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Infow("read error", "connection_id", cl.id, "error", err)
			}
			return
		}
		cl.conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))

		if !cl.limiter.Allow() {
			s.metrics.MessageDiscarded()
			s.logger.Warnw("message rate exceeded, discarding", "connection_id", cl.id)
			continue
		}

		// Malformed and unrecognized messages are logged and discarded;
		// they never terminate the connection or the dispatcher.
		var msg InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.metrics.MessageDiscarded()
			s.logger.Warnw("malformed message discarded", "connection_id", cl.id, "error", err)
			continue
		}
		handler, ok := s.handlers[msg.Type]
		if !ok {
			s.metrics.MessageDiscarded()
			s.logger.Warnw("unknown message type discarded", "connection_id", cl.id, "type", msg.Type)
			continue
		}

		if err := handler(s, cl, msg); err != nil {
			// Errors go back to the originating connection as an event,
			// never across connections.
			s.Send(cl.id, domain.Event{Type: domain.EventError, Payload: domain.ErrorPayload{
				Code:    domain.ErrorCode(err),
				Message: err.Error(),
			}})
		}
	}
}

func (s *WebSocketServer) writePump(cl *client) {
	ping := time.NewTicker(s.opts.PingInterval)
	defer ping.Stop()

	for {
		select {
		case ev := <-cl.send:
			cl.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if err := cl.conn.WriteJSON(ev); err != nil {
				cl.close()
				return
			}
		case <-ping.C:
			cl.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				cl.close()
				return
			}
		case <-cl.done:
			return
		}
	}
}

// Send implements ports.Sender. Delivery is best-effort: when the client's
// buffer is full the event is dropped so the coordinator never blocks.
func (s *WebSocketServer) Send(to domain.ConnectionID, ev domain.Event) {
	s.mu.RLock()
	cl, ok := s.clients[to]
	s.mu.RUnlock()
	if !ok || cl.closed() {
		return
	}

	select {
	case cl.send <- ev:
	default:
		s.metrics.MessageDiscarded()
		s.logger.Warnw("send buffer full, dropping event",
			"connection_id", to,
			"event", ev.Type,
		)
	}
}

// ConnectedCount reports the number of open transports.
func (s *WebSocketServer) ConnectedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

func writeAuthError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"code":  domain.ErrorCode(err),
		"error": err.Error(),
	})
}
