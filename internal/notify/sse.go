package notify

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/internal/apierrors"
)

type sseSubscriber struct {
	id  string
	out *outbox
}

func (s *sseSubscriber) ID() string {
	return s.id
}

func (s *sseSubscriber) Send(ev Event) error {
	return s.out.push(ev)
}

func (s *sseSubscriber) Close() error {
	s.out.close()
	return nil
}

// SSEHandler streams notification events as Server-Sent Events.
type SSEHandler struct {
	channel *Channel
	queue   int
}

// NewSSEHandler creates an SSE endpoint for ch.
func NewSSEHandler(ch *Channel) *SSEHandler {
	return &SSEHandler{channel: ch, queue: 64}
}

func (h *SSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		apierrors.Write(w, apierrors.CodeInternalError)
		return
	}

	sub := &sseSubscriber{id: uuid.NewString(), out: newOutbox(h.queue)}
	if err := h.channel.Connect(sub); err != nil {
		apierrors.Write(w, apierrors.CodeServiceUnavailable)
		return
	}
	defer h.channel.Disconnect(sub.id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-sub.out.done:
			return
		case ev := <-sub.out.ch:
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
