package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"votum/internal/platform/kafka/consumer"
)

// TopicHandler handles the records of one topic.
type TopicHandler interface {
	Handle(ctx context.Context, msg *consumer.Message) error
}

// Router lets one consumer group serve the events topic (end result
// projection) and the audit topic (audit persistence).
type Router struct {
	handlers map[string]TopicHandler
	fallback TopicHandler
	logger   *slog.Logger
}

// NewRouter creates a router. Records of unregistered topics go to fallback,
// or are skipped when fallback is nil.
func NewRouter(logger *slog.Logger, fallback TopicHandler) *Router {
	return &Router{
		handlers: make(map[string]TopicHandler),
		fallback: fallback,
		logger:   logger,
	}
}

func (r *Router) Register(topic string, handler TopicHandler) {
	r.handlers[topic] = handler
}

// Topics lists the registered topics, for the consumer subscription.
func (r *Router) Topics() []string {
	topics := make([]string, 0, len(r.handlers))
	for topic := range r.handlers {
		topics = append(topics, topic)
	}
	return topics
}

func (r *Router) Handle(ctx context.Context, msg *consumer.Message) error {
	handler, ok := r.handlers[msg.Topic]
	if !ok {
		handler = r.fallback
	}
	if handler == nil {
		r.logger.WarnContext(ctx, "skipping record of unrouted topic",
			"topic", msg.Topic,
			"partition_key", string(msg.Key),
			"offset", msg.Offset,
		)
		return nil
	}
	if err := handler.Handle(ctx, msg); err != nil {
		return fmt.Errorf("topic %s offset %d: %w", msg.Topic, msg.Offset, err)
	}
	return nil
}
