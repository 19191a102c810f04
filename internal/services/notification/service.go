// Package notification publishes transfer history events. Publishing is
// fire-and-forget: Notify returns immediately and a failed delivery is
// logged, never surfaced to the transfer that produced the event.
package notification

import (
	"context"
	"time"

	"walletsaga/internal/utils/background"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event is the message sent to the history channel.
type Event struct {
	EventID       string    `json:"event_id"`
	TransactionID uint      `json:"transaction_id"`
	Status        string    `json:"status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher delivers one event to the history channel.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Service hands events to a Publisher in the background.
type Service struct {
	publisher Publisher
	runner    *background.Runner
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a new notification service.
func NewService(publisher Publisher, runner *background.Runner, logger *zap.Logger) *Service {
	if publisher == nil {
		panic("publisher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if runner == nil {
		runner = background.NewRunner(0, logger)
	}
	return &Service{
		publisher: publisher,
		runner:    runner,
		logger:    logger,
		now:       time.Now,
	}
}

// Notify schedules delivery of the event for transactionID.
func (s *Service) Notify(_ context.Context, transactionID uint, status string) {
	event := Event{
		EventID:       uuid.NewString(),
		TransactionID: transactionID,
		Status:        status,
		OccurredAt:    s.now().UTC(),
	}
	s.runner.Go("notify_history", func(ctx context.Context) error {
		return s.publisher.Publish(ctx, event)
	}, zap.Uint("transaction_id", transactionID), zap.String("status", status))
}

// Wait blocks until pending deliveries finished or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	return s.runner.Wait(ctx)
}

// LogPublisher writes events to the log. It stands in for Kafka when no
// brokers are configured.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, event Event) error {
	p.logger.Info("history event",
		zap.String("event_id", event.EventID),
		zap.Uint("transaction_id", event.TransactionID),
		zap.String("status", event.Status),
		zap.Time("occurred_at", event.OccurredAt))
	return nil
}
