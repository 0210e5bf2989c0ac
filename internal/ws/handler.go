package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/Playground/backend/internal/logging"
	"github.com/GriffinCanCode/Playground/backend/internal/monitoring"
	"github.com/GriffinCanCode/Playground/backend/internal/playground"
	"github.com/GriffinCanCode/Playground/backend/internal/protocol"
	"github.com/GriffinCanCode/Playground/backend/internal/sandbox"
	"github.com/GriffinCanCode/Playground/backend/internal/shared/id"
	"github.com/GriffinCanCode/Playground/backend/internal/snippets"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // The editor UI may be served from a different port in dev
	},
}

// Message is one client->server command.
type Message struct {
	Type   string `json:"type"`
	Source string `json:"source,omitempty"`
	ID     string `json:"id,omitempty"`
}

// Handler manages WebSocket playground sessions
type Handler struct {
	config   playground.Config
	gate     *sandbox.Gate
	snippets *snippets.Registry
	metrics  *monitoring.Metrics
	logger   *logging.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(config playground.Config, gate *sandbox.Gate, registry *snippets.Registry, metrics *monitoring.Metrics, logger *logging.Logger) *Handler {
	return &Handler{
		config:   config,
		gate:     gate,
		snippets: registry,
		metrics:  metrics,
		logger:   logger.Named("ws"),
	}
}

// session is one live connection and its controller.
type session struct {
	id      id.SessionID
	conn    *websocket.Conn
	writeMu sync.Mutex
	handler *Handler
	ctrl    *playground.Controller
}

// HandleConnection handles WebSocket upgrade and messages
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	s := &session{
		id:      id.NewSessionID(),
		conn:    conn,
		handler: h,
	}
	s.ctrl = playground.New(h.config).
		WithGate(h.gate).
		WithMetrics(h.metrics).
		WithLogger(h.logger).
		WithObserver(s)

	if h.metrics != nil {
		h.metrics.WSConnected()
		defer h.metrics.WSDisconnected()
	}
	h.logger.Info("Session connected", zap.String("session_id", s.id.String()))
	defer h.logger.Info("Session disconnected", zap.String("session_id", s.id.String()))

	s.send(map[string]interface{}{
		"type":       "system",
		"session_id": s.id.String(),
		"message":    "Connected to JS Playground",
	})
	s.sendSnapshot()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg Message
		if err := sonic.Unmarshal(raw, &msg); err != nil {
			s.sendError("malformed message")
			continue
		}
		if h.metrics != nil {
			h.metrics.RecordWSMessage("in", msg.Type)
		}
		s.dispatch(msg)
	}
}

func (s *session) dispatch(msg Message) {
	switch msg.Type {
	case "set_source":
		s.ctrl.SetSource(msg.Source)
	case "run":
		s.ctrl.Run()
	case "reset":
		s.ctrl.Reset()
		s.sendSnapshot()
	case "clear":
		s.ctrl.ClearOutput()
	case "snippet":
		snip, ok := s.handler.snippets.Get(msg.ID)
		if !ok {
			s.sendError("unknown snippet")
			return
		}
		s.ctrl.SetSource(snip.Source)
		s.sendSnapshot()
	case "ping":
		s.send(map[string]interface{}{"type": "pong"})
	default:
		s.sendError("unknown message type")
	}
}

// RunStarted implements playground.Observer.
func (s *session) RunStarted(runID string) {
	s.send(map[string]interface{}{
		"type":      "run_started",
		"run_id":    runID,
		"timestamp": time.Now().Unix(),
	})
}

// OutputAppended implements playground.Observer.
func (s *session) OutputAppended(runID string, ev protocol.OutputEvent) {
	s.send(map[string]interface{}{
		"type":   "output",
		"run_id": runID,
		"kind":   string(ev.Kind),
		"text":   ev.Text,
	})
}

// BannerChanged implements playground.Observer.
func (s *session) BannerChanged(banner string) {
	s.send(map[string]interface{}{
		"type":   "banner",
		"banner": banner,
	})
}

// StateChanged implements playground.Observer.
func (s *session) StateChanged() {}

// RunFinished implements playground.Observer.
func (s *session) RunFinished(runID string) {
	s.send(map[string]interface{}{
		"type":      "run_complete",
		"run_id":    runID,
		"timestamp": time.Now().Unix(),
	})
}

func (s *session) sendSnapshot() {
	s.send(map[string]interface{}{
		"type":   "snapshot",
		"source": s.ctrl.Source(),
		"output": s.ctrl.Output(),
		"banner": s.ctrl.Banner(),
	})
}

func (s *session) sendError(msg string) {
	s.send(map[string]interface{}{
		"type":    "error",
		"message": msg,
	})
}

// send serializes one outbound message. Observer callbacks arrive from run
// collector goroutines while the read loop replies to pings, so writes are
// serialized by a mutex.
func (s *session) send(data map[string]interface{}) {
	payload, err := sonic.Marshal(data)
	if err != nil {
		s.handler.logger.Error("Failed to encode message", zap.Error(err))
		return
	}

	if s.handler.metrics != nil {
		if t, ok := data["type"].(string); ok {
			s.handler.metrics.RecordWSMessage("out", t)
		}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		s.handler.logger.Debug("Write failed", zap.Error(err))
	}
}
