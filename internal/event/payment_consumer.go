package event

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"policy-lifecycle/internal/models"
	"policy-lifecycle/internal/services"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// PaymentOutcomeEvent is the payment executor's report. The executor runs the
// actual money movement outside this service and reports the result here; the
// engines only record it.
type PaymentOutcomeEvent struct {
	// EntityType is "payout" (claim settlement) or "cancel_request"
	// (compensation for an approved cancellation).
	EntityType    string    `json:"entity_type"`
	EntityID      uuid.UUID `json:"entity_id"`
	Succeeded     bool      `json:"succeeded"`
	FailureReason string    `json:"failure_reason,omitempty"`
	ExecutorID    string    `json:"executor_id"`
}

const (
	paymentEntityPayout        = "payout"
	paymentEntityCancelRequest = "cancel_request"
)

// PaymentConsumer consumes payment outcome events from RabbitMQ and feeds
// them into the workflow engines.
type PaymentConsumer struct {
	conn          *RabbitMQConnection
	claimService  *services.ClaimService
	cancelService *services.CancelRequestService
}

func NewPaymentConsumer(conn *RabbitMQConnection, claimService *services.ClaimService, cancelService *services.CancelRequestService) *PaymentConsumer {
	return &PaymentConsumer{
		conn:          conn,
		claimService:  claimService,
		cancelService: cancelService,
	}
}

// Start begins consuming payment events
func (c *PaymentConsumer) Start(ctx context.Context) error {
	_, err := c.conn.Channel.QueueDeclare(
		PaymentEventsQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return err
	}

	msgs, err := c.conn.Channel.Consume(
		PaymentEventsQueue,
		"",    // consumer tag (auto-generated)
		false, // auto-ack (we ack after processing)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return err
	}

	slog.Info("Payment consumer started", "queue", PaymentEventsQueue)

	go func() {
		for {
			select {
			case <-ctx.Done():
				slog.Info("Payment consumer stopped")
				return
			case msg, ok := <-msgs:
				if !ok {
					slog.Warn("Payment consumer channel closed")
					return
				}
				c.processMessage(ctx, msg)
			}
		}
	}()

	return nil
}

func (c *PaymentConsumer) processMessage(ctx context.Context, msg amqp.Delivery) {
	var outcome PaymentOutcomeEvent
	if err := json.Unmarshal(msg.Body, &outcome); err != nil {
		slog.Error("failed to unmarshal payment outcome", "error", err)
		// malformed message, don't requeue
		msg.Nack(false, false)
		return
	}

	slog.Info("Received payment outcome",
		"entity_type", outcome.EntityType,
		"entity_id", outcome.EntityID,
		"succeeded", outcome.Succeeded,
	)

	if err := c.apply(ctx, outcome); err != nil {
		// A transition error means the outcome is stale or duplicated; a
		// requeue cannot fix that, so only infrastructure errors are retried.
		if isTransitionError(err) {
			slog.Warn("payment outcome discarded",
				"entity_type", outcome.EntityType,
				"entity_id", outcome.EntityID,
				"error", err,
			)
			msg.Ack(false)
			return
		}
		slog.Error("failed to apply payment outcome",
			"entity_id", outcome.EntityID,
			"error", err,
		)
		msg.Nack(false, true)
		return
	}

	msg.Ack(false)
}

func (c *PaymentConsumer) apply(ctx context.Context, outcome PaymentOutcomeEvent) error {
	switch outcome.EntityType {
	case paymentEntityPayout:
		_, err := c.claimService.RecordPaymentOutcome(ctx, outcome.EntityID, outcome.ExecutorID,
			models.RecordPaymentOutcomeRequest{
				Succeeded:     outcome.Succeeded,
				FailureReason: outcome.FailureReason,
			})
		return err
	case paymentEntityCancelRequest:
		var err error
		if outcome.Succeeded {
			_, err = c.cancelService.MarkPaid(ctx, outcome.EntityID, outcome.ExecutorID)
		} else {
			_, err = c.cancelService.MarkPaymentFailed(ctx, outcome.EntityID, outcome.ExecutorID, outcome.FailureReason)
		}
		return err
	default:
		slog.Error("unknown payment outcome entity type", "entity_type", outcome.EntityType)
		return nil
	}
}

func isTransitionError(err error) bool {
	return errors.Is(err, models.ErrNotFound) ||
		errors.Is(err, models.ErrConflict) ||
		errors.Is(err, models.ErrInvalidTransition) ||
		errors.Is(err, models.ErrInvalidActor)
}
