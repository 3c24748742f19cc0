package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"time"
)

// OutboundEvent is one message from the bot to a user, as delivered on the
// SSE stream.
type OutboundEvent struct {
	Type      string `json:"type"` // "text" or "media"
	Text      string `json:"text,omitempty"`
	Mime      string `json:"mime,omitempty"`
	Data      string `json:"data,omitempty"` // base64 payload for media
	Caption   string `json:"caption,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Hub fans bot replies out to per-user SSE subscribers. It is the
// process's domain.Messenger: the session engine and its deadline timers
// publish here. A user with no open stream still gets the most recent
// messages on their next connect, from a capped backlog.
type Hub struct {
	mu      sync.Mutex
	clients map[string]map[chan []byte]struct{} // user id → subscriber channels
	backlog map[string][][]byte                 // user id → undelivered recent events
	cap     int
}

// backlogCap bounds how many undelivered events are kept per user.
const backlogCap = 32

// NewHub creates an outbound message hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[chan []byte]struct{}),
		backlog: make(map[string][][]byte),
		cap:     backlogCap,
	}
}

// Reply implements domain.Messenger.
func (h *Hub) Reply(ctx context.Context, userID, text string) error {
	return h.publish(userID, OutboundEvent{
		Type:      "text",
		Text:      text,
		Timestamp: time.Now().Unix(),
	})
}

// SendMedia implements domain.Messenger.
func (h *Hub) SendMedia(ctx context.Context, userID, mime string, data []byte, caption string) error {
	return h.publish(userID, OutboundEvent{
		Type:      "media",
		Mime:      mime,
		Data:      base64.StdEncoding.EncodeToString(data),
		Caption:   caption,
		Timestamp: time.Now().Unix(),
	})
}

func (h *Hub) publish(userID string, ev OutboundEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.clients[userID]
	if len(subs) == 0 {
		b := append(h.backlog[userID], data)
		if len(b) > h.cap {
			b = b[len(b)-h.cap:]
		}
		h.backlog[userID] = b
		return nil
	}
	for ch := range subs {
		select {
		case ch <- data:
		default:
			// Subscriber too slow; drop rather than block a timer callback.
		}
	}
	return nil
}

// Subscribe registers a stream for the user and returns the channel plus
// an unsubscribe func. Any backlog accumulated while the user was offline
// is preloaded onto the channel, oldest first.
func (h *Hub) Subscribe(userID string) (<-chan []byte, func()) {
	ch := make(chan []byte, h.cap+8)

	h.mu.Lock()
	for _, data := range h.backlog[userID] {
		ch <- data
	}
	delete(h.backlog, userID)

	subs, ok := h.clients[userID]
	if !ok {
		subs = make(map[chan []byte]struct{})
		h.clients[userID] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(subs, ch)
		if len(subs) == 0 {
			delete(h.clients, userID)
		}
		h.mu.Unlock()
	}
}

// ClientCount returns the number of open streams across all users.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, subs := range h.clients {
		n += len(subs)
	}
	return n
}
