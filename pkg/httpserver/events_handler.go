package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"tradesim/internal/bus"
	"tradesim/internal/taskstore"
	"tradesim/pkg/types"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPongTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

// eventsHandler bridges a task's pub/sub channel to a WebSocket. The driver
// publishes MESSAGE and EVENT envelopes as JSON; they are forwarded verbatim
// as text frames.
type eventsHandler struct {
	bus      *bus.Bus
	store    *taskstore.Store
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func newEventsHandler(b *bus.Bus, store *taskstore.Store, logger *zap.Logger) *eventsHandler {
	return &eventsHandler{
		bus:    b,
		store:  store,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The API fronts an internal tool; browsers connect from
			// whatever host serves the UI.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// stream serves GET /api/v1/tasks/{id}/events.
func (h *eventsHandler) stream(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	if _, err := h.store.Load(r.Context(), id); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			respondError(w, http.StatusNotFound, "task not found")
			return
		}
		h.logger.Error("load task for events", zap.Int64("task_id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "task store")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written its own error response.
		h.logger.Warn("websocket upgrade", zap.Int64("task_id", id), zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub := h.bus.Subscribe(ctx, h.store.MessageChannel(id))
	defer sub.Close()

	logger := h.logger.With(zap.Int64("task_id", id))
	logger.Debug("events socket opened", zap.String("remote", r.RemoteAddr))
	wsConnections.Inc()
	defer wsConnections.Dec()

	// Reader loop: the client sends nothing meaningful, but reading is what
	// surfaces close frames and pongs.
	_ = conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case msg, chOpen := <-ch:
			if !chOpen {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				logger.Debug("events socket write", zap.Error(err))
				return
			}
			wsEnvelopesForwarded.Inc()
		}
	}
}
