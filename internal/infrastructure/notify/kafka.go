package notify

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/focusmate/settlement/domain"
	"github.com/focusmate/settlement/usecase"
)

// Config holds Kafka connection settings for notification dispatch.
type Config struct {
	Brokers []string
	Topic   string
}

// KafkaNotifier publishes reminder notifications to the dispatch topic.
// Delivery is at-least-once; the dispatch consumer owns rendering and sending
// the actual email/push.
type KafkaNotifier struct {
	writer *kafka.Writer
	logger *zap.Logger
}

func NewKafkaNotifier(cfg Config, logger *zap.Logger) *KafkaNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
		logger: logger,
	}
}

func (n *KafkaNotifier) Notify(ctx context.Context, notification domain.Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return err
	}
	// Key by task so retries for the same reminder land on one partition.
	return n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(notification.TaskID),
		Value: payload,
	})
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

var _ usecase.Notifier = (*KafkaNotifier)(nil)

// LogNotifier is the fallback dispatcher when no brokers are configured; it
// records the notification and drops it.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, notification domain.Notification) error {
	n.logger.Info("reminder due",
		zap.String("task_id", notification.TaskID),
		zap.String("owner", notification.OwnerEmail),
		zap.Time("remind_at", notification.RemindAt))
	return nil
}

var _ usecase.Notifier = (*LogNotifier)(nil)
