// Package realtime provides a lightweight in-process publish/subscribe hub
// used to fan out pipeline events to dashboard streams. Fan-out is
// best-effort: a slow subscriber drops messages rather than backpressuring
// the pipeline. Cross-process consumers (overlay, plugin clients) are fed
// via Redis pub/sub in the event-log repository instead.
package realtime

import "sync"

// Message types published on the hub.
const (
	TypeLog    = "log"
	TypeNewJob = "new_job"
	TypeStatus = "account:status"
)

// Message is the envelope broadcast to subscribers. Only the fields
// relevant to the message type are set.
type Message struct {
	Type      string `json:"type"`
	AccountID string `json:"accountId,omitempty"`

	// log fields
	Time  int64  `json:"time,omitempty"`
	Level string `json:"level,omitempty"`
	Text  string `json:"text,omitempty"`

	// new_job fields
	User     string `json:"user,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
	JobID    string `json:"jobId,omitempty"`

	// account:status fields
	Status string `json:"status,omitempty"`
}

// AccountTopic returns the topic carrying one account's log and job events.
func AccountTopic(accountID string) string {
	return "account:" + accountID
}

// UserTopic returns the topic carrying one tenant's status events.
func UserTopic(userID string) string {
	return "user:" + userID
}

// Hub broadcasts messages to per-topic subscribers.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[chan Message]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[chan Message]struct{})}
}

// Publish sends a message to every subscriber of the topic. Never blocks.
func (h *Hub) Publish(topic string, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.topics[topic] {
		select {
		case ch <- msg:
		default:
			// Slow subscriber; drop rather than block the pipeline.
		}
	}
}

// Subscribe returns a channel of messages for the topic and an
// unsubscribe function. The channel is buffered; callers must drain it.
func (h *Hub) Subscribe(topic string) (<-chan Message, func()) {
	ch := make(chan Message, 64)

	h.mu.Lock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[chan Message]struct{})
		h.topics[topic] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		if subs, ok := h.topics[topic]; ok {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(h.topics, topic)
			}
		}
		h.mu.Unlock()
	}

	return ch, unsubscribe
}

// SubscriberCount returns the number of subscribers on a topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
