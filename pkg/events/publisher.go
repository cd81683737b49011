package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/rs/xid"
)

// Sink receives every emitted envelope after local fan-out.
type Sink interface {
	Publish(ctx context.Context, env Envelope) error
}

// Publisher emits typed events to an optional sink and to local
// in-process subscribers.
type Publisher struct {
	sink   Sink
	source string

	subMu       sync.RWMutex
	subscribers map[string]chan Envelope
}

// NewPublisher creates a publisher. sink may be nil.
func NewPublisher(sink Sink, source string) *Publisher {
	return &Publisher{
		sink:        sink,
		source:      source,
		subscribers: make(map[string]chan Envelope),
	}
}

// Emit wraps data in an envelope, fans it out to local subscribers and
// hands it to the sink.
func (p *Publisher) Emit(ctx context.Context, eventType EventType, conversationID string, data any) error {
	envelope := Envelope{
		ID:             xid.New().String(),
		Type:           eventType,
		Source:         p.source,
		ConversationID: conversationID,
		Timestamp:      time.Now().UTC(),
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	envelope.Data = raw

	// Fan out to local subscribers (non-blocking).
	p.subMu.RLock()
	for id, ch := range p.subscribers {
		select {
		case ch <- envelope:
		default:
			slog.Warn("event dropped: subscriber buffer full",
				slog.String("subscriber", id), slog.String("event_type", string(eventType)))
		}
	}
	p.subMu.RUnlock()

	if p.sink == nil {
		return nil
	}
	return p.sink.Publish(ctx, envelope)
}

// Subscribe creates a local subscription. The caller must call
// Unsubscribe with the same id to clean up.
func (p *Publisher) Subscribe(id string, bufSize int) <-chan Envelope {
	if bufSize <= 0 {
		bufSize = 64
	}
	ch := make(chan Envelope, bufSize)
	p.subMu.Lock()
	if old, ok := p.subscribers[id]; ok {
		close(old)
	}
	p.subscribers[id] = ch
	p.subMu.Unlock()
	return ch
}

// Unsubscribe removes a local subscription and closes its channel.
func (p *Publisher) Unsubscribe(id string) {
	p.subMu.Lock()
	if ch, ok := p.subscribers[id]; ok {
		close(ch)
		delete(p.subscribers, id)
	}
	p.subMu.Unlock()
}
