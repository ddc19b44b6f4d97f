package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"policy-lifecycle/internal/models"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AuditPublisher appends committed transitions to the durable audit queue.
// It is the AuditSink consumed by the workflow engines: the engines log and
// swallow publish failures, so nothing here may block a transition.
type AuditPublisher struct {
	conn              *RabbitMQConnection
	messagesPublished int64
	messagesFailed    int64
	lastPublishTime   time.Time
}

func NewAuditPublisher(conn *RabbitMQConnection) *AuditPublisher {
	return &AuditPublisher{
		conn:            conn,
		lastPublishTime: time.Now(),
	}
}

// Append publishes one transition record to the policy_audit_events queue.
func (p *AuditPublisher) Append(ctx context.Context, event models.AuditEvent) error {
	_, err := p.conn.Channel.QueueDeclare(
		AuditQueue, // queue name
		true,       // durable
		false,      // delete when unused
		false,      // exclusive
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		p.messagesFailed++
		return fmt.Errorf("failed to declare audit queue: %w", err)
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.messagesFailed++
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	err = p.conn.Channel.PublishWithContext(
		ctx,
		"",         // exchange
		AuditQueue, // routing key (queue name)
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		p.messagesFailed++
		return fmt.Errorf("failed to publish audit event: %w", err)
	}

	p.messagesPublished++
	p.lastPublishTime = time.Now()

	slog.Debug("Audit event published",
		"entity_type", event.EntityType,
		"entity_id", event.EntityID,
		"to_status", event.ToStatus,
	)

	return nil
}

// GetMetrics returns publisher metrics
func (p *AuditPublisher) GetMetrics() map[string]any {
	return map[string]any{
		"messages_published": p.messagesPublished,
		"messages_failed":    p.messagesFailed,
		"last_publish_time":  p.lastPublishTime,
		"queue":              AuditQueue,
	}
}
