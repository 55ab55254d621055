// Package bus provides the in-process publish/subscribe registry that
// decouples the registration flow components from the screens observing them.
package bus

import "sync"

// Topic identifies an event stream.
type Topic string

// Topics broadcast by the registration flow.
const (
	TopicQueuePosition Topic = "queue-position"
	TopicStage         Topic = "stage"
	TopicOfferings     Topic = "offerings"
	TopicEnrollments   Topic = "enrollments"
	TopicStudent       Topic = "student"
)

// Handler consumes a published payload.
type Handler func(payload interface{})

// Bus delivers events synchronously to all current subscribers of a topic.
// Each (topic, subscriber id) pair holds at most one handler; subscribing
// again under the same id replaces the previous handler.
type Bus struct {
	mu   sync.RWMutex
	subs map[Topic]map[string]Handler
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[Topic]map[string]Handler)}
}

// Subscribe registers fn under (topic, id), replacing any existing handler
// for the same pair.
func (b *Bus) Subscribe(topic Topic, id string, fn Handler) {
	if fn == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	handlers, ok := b.subs[topic]
	if !ok {
		handlers = make(map[string]Handler)
		b.subs[topic] = handlers
	}
	handlers[id] = fn
}

// Unsubscribe removes the handler registered under (topic, id), if any.
func (b *Bus) Unsubscribe(topic Topic, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if handlers, ok := b.subs[topic]; ok {
		delete(handlers, id)
		if len(handlers) == 0 {
			delete(b.subs, topic)
		}
	}
}

// Publish delivers payload to every subscriber of topic before returning.
func (b *Bus) Publish(topic Topic, payload interface{}) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[topic]))
	for _, fn := range b.subs[topic] {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(payload)
	}
}
