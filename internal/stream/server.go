package stream

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/sprintdeck/sprintdeck/internal/event"
)

const writeTimeout = 10 * time.Second

// Server is the push side of the sync channel. Each connection subscribes to
// the fanout bus for its lifetime; the subscription is dropped as soon as
// the transport closes, so no broadcast is attempted on a torn-down viewer.
type Server struct {
	bus      *event.Bus
	upgrader websocket.Upgrader
}

func NewServer(bus *event.Bus) *Server {
	return &Server{
		bus: bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/ws", s.handleSocket)
}

// inboundFrame is a client-to-server message. Only ping is meaningful.
type inboundFrame struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// Handshake acknowledgment before the event pump starts, so the viewer
	// observes connected before any state event.
	if err := writeEnvelope(conn, event.Envelope{Type: event.KindConnected, Timestamp: time.Now().UnixMilli()}); err != nil {
		return
	}

	subID, events := s.bus.Subscribe(64)
	defer s.bus.Unsubscribe(subID)

	replies := make(chan event.Envelope, 8)
	done := make(chan struct{})
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for {
			select {
			case env, ok := <-events:
				if !ok {
					return
				}
				if err := writeEnvelope(conn, env); err != nil {
					return
				}
			case env := <-replies:
				if err := writeEnvelope(conn, env); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			// A single bad frame must not disconnect the viewer.
			slog.DebugContext(r.Context(), "ignoring malformed websocket frame", "error", err)
			continue
		}
		switch frame.Type {
		case "ping":
			select {
			case replies <- event.Envelope{Type: event.KindPong, Timestamp: time.Now().UnixMilli()}:
			case <-writerDone:
			}
		default:
			slog.DebugContext(r.Context(), "ignoring unknown websocket frame", "type", frame.Type)
		}
	}

	close(done)
	<-writerDone
}

func writeEnvelope(conn *websocket.Conn, env event.Envelope) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(env)
}
