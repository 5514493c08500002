package notify

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/internal/apierrors"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 512
)

// wsSubscriber delivers events over one WebSocket connection.
type wsSubscriber struct {
	id   string
	conn *websocket.Conn
	out  *outbox
}

func newWSSubscriber(conn *websocket.Conn, queue int) *wsSubscriber {
	return &wsSubscriber{
		id:   uuid.NewString(),
		conn: conn,
		out:  newOutbox(queue),
	}
}

func (s *wsSubscriber) ID() string {
	return s.id
}

func (s *wsSubscriber) Send(ev Event) error {
	return s.out.push(ev)
}

func (s *wsSubscriber) Close() error {
	s.out.close()
	return nil
}

// writePump is the only goroutine writing to the connection.
func (s *wsSubscriber) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case ev := <-s.out.ch:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(ev); err != nil {
				s.out.close()
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.out.close()
				return
			}
		case <-s.out.done:
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing")
			s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return
		}
	}
}

// readPump discards inbound messages and returns once the peer goes away.
func (s *wsSubscriber) readPump() {
	s.conn.SetReadLimit(maxInboundSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// WSHandler upgrades HTTP requests into notification subscribers.
type WSHandler struct {
	channel  *Channel
	upgrader websocket.Upgrader
	queue    int
	logger   *slog.Logger

	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

// NewWSHandler creates a WebSocket endpoint for ch.
func NewWSHandler(ch *Channel, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		channel: ch,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Plugin hosts load from arbitrary dev origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		queue:  64,
		logger: logger,
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.channel.Accepting() || !h.track() {
		apierrors.Write(w, apierrors.CodeServiceUnavailable)
		return
	}
	defer h.wg.Done()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	sub := newWSSubscriber(conn, h.queue)
	if err := h.channel.Connect(sub); err != nil {
		sub.Close()
		conn.Close()
		return
	}

	go sub.writePump()
	sub.readPump()
	h.channel.Disconnect(sub.ID())
}

// track counts a connection unless Wait has started.
func (h *WSHandler) track() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return false
	}
	h.wg.Add(1)
	return true
}

// Wait refuses new connections and blocks until every connection served by
// h has returned.
func (h *WSHandler) Wait() {
	h.mu.Lock()
	h.closing = true
	h.mu.Unlock()
	h.wg.Wait()
}
