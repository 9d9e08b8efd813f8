package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/seu-repo/tochka-pay/internal/ports"
)

const (
	DriverNATS     = "nats"
	DriverRabbitMQ = "rabbitmq"

	// DefaultSubjectPrefix is prepended to the webhook action
	DefaultSubjectPrefix = "payments.webhook"
)

// MessageQueue defines the interface for a message queue adapter
type MessageQueue interface {
	Publish(subject string, data []byte) error
	Healthy() bool
	Close() error
}

// New connects to the broker selected by driver
func New(driver, url string, log *zap.Logger) (MessageQueue, error) {
	switch driver {
	case DriverNATS:
		return NewNATSQueue(url, log)
	case DriverRabbitMQ:
		return NewRabbitMQQueue(url, log)
	default:
		return nil, fmt.Errorf("unknown queue driver: %q", driver)
	}
}

// WebhookPublisher publishes webhook events as JSON on
// "<prefix>.<action>" subjects.
type WebhookPublisher struct {
	queue  MessageQueue
	prefix string
	log    *zap.Logger
}

var _ ports.EventPublisher = (*WebhookPublisher)(nil)

func NewWebhookPublisher(queue MessageQueue, prefix string, log *zap.Logger) *WebhookPublisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &WebhookPublisher{queue: queue, prefix: prefix, log: log}
}

// Subject returns the subject events with action are published on
func (p *WebhookPublisher) Subject(action string) string {
	return p.prefix + "." + action
}

func (p *WebhookPublisher) PublishWebhookEvent(ctx context.Context, event *ports.WebhookEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal webhook event: %w", err)
	}

	subject := p.Subject(event.Action)
	if err := p.queue.Publish(subject, data); err != nil {
		return fmt.Errorf("publish webhook event: %w", err)
	}

	p.log.Debug("Webhook event published",
		zap.String("subject", subject),
		zap.String("provider", event.Provider),
		zap.String("session_id", event.SessionID),
	)
	return nil
}

func (p *WebhookPublisher) Close() error {
	return p.queue.Close()
}
