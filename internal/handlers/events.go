package handlers

import (
	"encoding/json"
	"io"
	"sync"

	"tasktrophy/internal/tracker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EventHub fans tracker events out to the hosted page over Server-Sent
// Events. It is the tracker.Sink for the whole process: trackers publish
// fire-and-forget, and a slow or gone subscriber loses events rather than
// blocking a tracker.
type EventHub struct {
	log *zap.Logger

	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

func NewEventHub(log *zap.Logger) *EventHub {
	return &EventHub{
		log:  log,
		subs: make(map[chan []byte]struct{}),
	}
}

// Publish implements tracker.Sink. Delivery failures are logged and dropped,
// never retried and never surfaced to the publisher.
func (h *EventHub) Publish(evt tracker.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		h.log.Error("Failed to encode event",
			zap.String("bridge", evt.Bridge), zap.String("event", evt.Name), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- data:
		default:
			h.log.Warn("Dropping event for slow subscriber",
				zap.String("bridge", evt.Bridge), zap.String("event", evt.Name))
		}
	}
}

func (h *EventHub) subscribe() chan []byte {
	ch := make(chan []byte, 32)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *EventHub) unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

// Stream is the GET /bridge/events handler. The page opens one EventSource
// and demultiplexes on the bridge field.
func (h *EventHub) Stream(c *gin.Context) {
	ch := h.subscribe()
	defer h.unsubscribe(ch)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case data, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("message", string(data))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// SubscriberCount reports active SSE subscribers, for the status endpoint.
func (h *EventHub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
