package ws

import (
	"sync"

	"github.com/rs/zerolog"

	"trustpay-sync/internal/core/domain"
)

type listener struct {
	id int64
	fn func(domain.EventEnvelope)
}

// Dispatcher fans inbound envelopes out to per-topic listeners. Listeners
// for a topic run synchronously in registration order; a panicking listener
// is logged and skipped so the remaining listeners still see the event.
type Dispatcher struct {
	log    zerolog.Logger
	mu     sync.RWMutex
	nextID int64
	topics map[string][]listener
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher(log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		log:    log,
		topics: make(map[string][]listener),
	}
}

// On registers fn for a topic and returns its removal func. The removal
// func is idempotent and never disturbs other listeners on the topic.
func (d *Dispatcher) On(topic string, fn func(domain.EventEnvelope)) func() {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.topics[topic] = append(d.topics[topic], listener{id: id, fn: fn})
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		ls := d.topics[topic]
		for i, l := range ls {
			if l.id == id {
				d.topics[topic] = append(ls[:i:i], ls[i+1:]...)
				break
			}
		}
		if len(d.topics[topic]) == 0 {
			delete(d.topics, topic)
		}
	}
}

// Emit delivers env to every listener registered for topic.
func (d *Dispatcher) Emit(topic string, env domain.EventEnvelope) {
	d.mu.RLock()
	ls := make([]listener, len(d.topics[topic]))
	copy(ls, d.topics[topic])
	d.mu.RUnlock()

	for _, l := range ls {
		d.invoke(topic, l, env)
	}
}

func (d *Dispatcher) invoke(topic string, l listener, env domain.EventEnvelope) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().
				Str("topic", topic).
				Interface("panic", r).
				Msg("event listener panicked")
		}
	}()
	l.fn(env)
}

// Route delivers an envelope to its type topic and, when it names an escrow,
// to that escrow's channel topic as well.
func (d *Dispatcher) Route(env domain.EventEnvelope) {
	if env.Type != "" {
		d.Emit(env.Type, env)
	}
	if env.EscrowID != "" {
		d.Emit(domain.EscrowTopic(env.EscrowID), env)
	}
}
