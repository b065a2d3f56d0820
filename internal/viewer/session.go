package viewer

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sourcegraph/conc"

	"github.com/sprintdeck/sprintdeck/internal/event"
)

const pingInterval = 30 * time.Second

// Session is one connected viewer: it receives push events, reconciles the
// local cache, and forwards each envelope to an optional handler. Missed
// events are never replayed; a reconnecting session starts with a stale
// cache that the normal fetch-on-invalidate path repairs.
type Session struct {
	conn      *websocket.Conn
	cache     *Cache
	handler   func(event.IncomingEnvelope)
	connected atomic.Bool
	cancel    context.CancelFunc
	wg        conc.WaitGroup
}

type SessionOption func(*Session)

// WithHandler registers a callback invoked for every received envelope,
// after cache reconciliation.
func WithHandler(h func(event.IncomingEnvelope)) SessionOption {
	return func(s *Session) {
		s.handler = h
	}
}

// Dial connects to the push endpoint and starts the receive and keep-alive
// loops.
func Dial(ctx context.Context, url string, cache *Cache, opts ...SessionOption) (*Session, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		conn:   conn,
		cache:  cache,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.wg.Go(func() { s.readLoop() })
	s.wg.Go(func() { s.pingLoop(ctx) })
	return s, nil
}

func (s *Session) Connected() bool {
	return s.connected.Load()
}

func (s *Session) Cache() *Cache {
	return s.cache
}

func (s *Session) Close() error {
	s.cancel()
	err := s.conn.Close()
	s.wg.Wait()
	return err
}

func (s *Session) readLoop() {
	defer s.connected.Store(false)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var env event.IncomingEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			slog.Debug("ignoring malformed push frame", "error", err)
			continue
		}
		s.Apply(env)
		if s.handler != nil {
			s.handler(env)
		}
	}
}

func (s *Session) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame := map[string]any{"type": "ping", "timestamp": time.Now().UnixMilli()}
			if err := s.conn.WriteJSON(frame); err != nil {
				return
			}
		}
	}
}

// taskRef and sprintRef pull out only the fields reconciliation needs.
type taskRef struct {
	ID int `json:"id"`
}

type sprintRef struct {
	ID       int  `json:"id"`
	IsActive bool `json:"isActive"`
}

// Apply reconciles one push event into the cache. Embedded entities are
// written straight into their per-id slot; list keys are invalidated so the
// next read refetches.
func (s *Session) Apply(env event.IncomingEnvelope) {
	switch env.Type {
	case event.KindConnected:
		s.connected.Store(true)

	case event.KindPong:
		// Liveness acknowledgment, not a state event.

	case event.KindTaskCreated:
		s.cache.Invalidate(TasksKey)

	case event.KindTaskUpdated:
		var ref taskRef
		if err := json.Unmarshal(env.Data, &ref); err != nil || ref.ID == 0 {
			s.cache.Invalidate(TasksKey)
			return
		}
		s.cache.Set(TaskKey(ref.ID), env.Data)
		s.cache.Invalidate(TasksKey)

	case event.KindTaskStatusChanged:
		var data struct {
			TaskID int             `json:"taskId"`
			Task   json.RawMessage `json:"task"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil || data.TaskID == 0 {
			s.cache.Invalidate(TasksKey)
			return
		}
		s.cache.Set(TaskKey(data.TaskID), data.Task)
		s.cache.Invalidate(TasksKey)

	case event.KindTaskDeleted:
		var data struct {
			TaskID int `json:"taskId"`
		}
		if err := json.Unmarshal(env.Data, &data); err == nil && data.TaskID != 0 {
			s.cache.Evict(TaskKey(data.TaskID))
		}
		s.cache.Invalidate(TasksKey)

	case event.KindSprintCreated:
		s.cache.Invalidate(SprintsKey)

	case event.KindSprintUpdated:
		var ref sprintRef
		if err := json.Unmarshal(env.Data, &ref); err != nil || ref.ID == 0 {
			s.cache.Invalidate(SprintsKey)
			return
		}
		s.applySprint(ref, env.Data)

	case event.KindSprintHackathonModeToggled:
		var data struct {
			SprintID int             `json:"sprintId"`
			Sprint   json.RawMessage `json:"sprint"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil || data.SprintID == 0 {
			s.cache.Invalidate(SprintsKey)
			return
		}
		var ref sprintRef
		if err := json.Unmarshal(data.Sprint, &ref); err != nil {
			s.cache.Invalidate(SprintsKey)
			return
		}
		s.applySprint(ref, data.Sprint)

	case event.KindDeploymentCreated:
		var data struct {
			Task taskRef `json:"task"`
		}
		if err := json.Unmarshal(env.Data, &data); err == nil && data.Task.ID != 0 {
			s.cache.Invalidate(TaskKey(data.Task.ID))
		}

	case event.KindDeploymentStatusUpdated:
		var data struct {
			TaskID int `json:"taskId"`
		}
		if err := json.Unmarshal(env.Data, &data); err == nil && data.TaskID != 0 {
			s.cache.Invalidate(TaskKey(data.TaskID))
		}

	default:
		slog.Debug("ignoring unknown push event", "type", env.Type)
	}
}

func (s *Session) applySprint(ref sprintRef, raw json.RawMessage) {
	s.cache.Set(SprintKey(ref.ID), raw)
	s.cache.Invalidate(SprintsKey)
	if ref.IsActive {
		s.cache.Invalidate(ActiveSprintKey)
	}
}
