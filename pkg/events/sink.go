package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// JSONLSink writes one JSON envelope per line. It is the transcript
// format written by --events-log.
type JSONLSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONLSink returns a sink writing to w.
func NewJSONLSink(w io.Writer) *JSONLSink {
	return &JSONLSink{enc: json.NewEncoder(w)}
}

func (s *JSONLSink) Publish(_ context.Context, env Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(env); err != nil {
		return fmt.Errorf("write event %s: %w", env.ID, err)
	}
	return nil
}

// LogSink records each envelope as a debug log line.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Publish(ctx context.Context, env Envelope) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.DebugContext(ctx, "conversation event",
		slog.String("event_id", env.ID),
		slog.String("event_type", string(env.Type)),
		slog.String("conversation_id", env.ConversationID),
		slog.String("data", string(env.Data)))
	return nil
}

// MultiSink publishes to every sink, returning the first error.
type MultiSink []Sink

func (m MultiSink) Publish(ctx context.Context, env Envelope) error {
	var first error
	for _, s := range m {
		if err := s.Publish(ctx, env); err != nil && first == nil {
			first = err
		}
	}
	return first
}
