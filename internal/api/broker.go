package api

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Event is the payload published to plan streams and webhooks.
type Event struct {
	Type   string          `json:"type"`
	Tenant string          `json:"tenant"`
	PlanID string          `json:"plan_id"`
	At     time.Time       `json:"at"`
	Data   json.RawMessage `json:"data,omitempty"`
}

func planTopic(id string) string       { return "plan:" + id }
func tenantTopic(tenant string) string { return "plans:" + tenant }

// Broker fans published payloads out to topic subscribers. The memory
// implementation is the default; Redis takes over when configured so
// events reach subscribers on every replica.
type Broker interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(topic string) (<-chan []byte, func())
	Close() error
}

type MemoryBroker struct {
	mu   sync.Mutex
	subs map[string]map[int]chan []byte
	next int
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: map[string]map[int]chan []byte{}}
}

func (b *MemoryBroker) Publish(_ context.Context, topic string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[topic] {
		// Slow consumers drop events rather than block the publisher.
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(topic string) (<-chan []byte, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan []byte, 16)
	id := b.next
	b.next++
	m := b.subs[topic]
	if m == nil {
		m = map[int]chan []byte{}
		b.subs[topic] = m
	}
	m[id] = ch
	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if m := b.subs[topic]; m != nil {
			if c, ok := m[id]; ok {
				delete(m, id)
				close(c)
			}
			if len(m) == 0 {
				delete(b.subs, topic)
			}
		}
	}
	return ch, cancel
}

func (b *MemoryBroker) Close() error { return nil }
