package events

import (
	"context"

	"github.com/shopspring/decimal"

	"tradejournal/internal/adapters/kafka"
	"tradejournal/pkg/errors"
	"tradejournal/pkg/logger"
)

// TradeLoggedEvent is emitted after a journaled trade is committed
type TradeLoggedEvent struct {
	BaseEvent
	TradeID    int64           `json:"trade_id"`
	TelegramID int64           `json:"telegram_id"`
	Pair       string          `json:"pair"`
	Result     string          `json:"result"`
	ProfitLoss decimal.Decimal `json:"profit_loss"`
	Balance    decimal.Decimal `json:"balance"`
	TradeDate  string          `json:"trade_date"`
}

// BroadcastCompletedEvent is emitted once an operator broadcast finishes
type BroadcastCompletedEvent struct {
	BaseEvent
	OperatorID int64  `json:"operator_id"`
	Recipients int    `json:"recipients"`
	Sent       int    `json:"sent"`
	Failed     int    `json:"failed"`
	Preview    string `json:"preview"`
}

// Publisher emits domain events. Implementations must not block the chat
// turn for long; failures are reported, never fatal to the caller.
type Publisher interface {
	PublishTradeLogged(ctx context.Context, event TradeLoggedEvent) error
	PublishBroadcastCompleted(ctx context.Context, event BroadcastCompletedEvent) error
}

// Producer is the slice of the Kafka producer the publisher needs
type Producer interface {
	Publish(ctx context.Context, topic string, key string, event interface{}) error
}

var (
	_ Publisher = (*KafkaPublisher)(nil)
	_ Publisher = NoopPublisher{}
	_ Producer  = (*kafka.Producer)(nil)
)

// KafkaPublisher writes events as JSON, keyed by user so one user's events
// stay ordered on a single partition
type KafkaPublisher struct {
	producer Producer
	log      *logger.Logger
}

// NewKafkaPublisher creates a new event publisher
func NewKafkaPublisher(producer Producer, log *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		log:      log.With("component", "event_publisher"),
	}
}

// PublishTradeLogged publishes a trade logged event
func (p *KafkaPublisher) PublishTradeLogged(ctx context.Context, event TradeLoggedEvent) error {
	event.Pair = SanitizeUTF8(event.Pair)
	return p.publish(ctx, kafka.TopicTradesLogged, event.UserID, event)
}

// PublishBroadcastCompleted publishes a broadcast completed event
func (p *KafkaPublisher) PublishBroadcastCompleted(ctx context.Context, event BroadcastCompletedEvent) error {
	event.Preview = Preview(event.Preview)
	return p.publish(ctx, kafka.TopicBroadcastsCompleted, event.UserID, event)
}

func (p *KafkaPublisher) publish(ctx context.Context, topic, key string, event interface{}) error {
	if err := p.producer.Publish(ctx, topic, key, event); err != nil {
		p.log.Errorw("Failed to publish event", "topic", topic, "error", err)
		return errors.Wrap(err, "send to kafka")
	}

	p.log.Debugw("Event published", "topic", topic, "key", key)
	return nil
}

// NoopPublisher drops every event. Used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishTradeLogged(context.Context, TradeLoggedEvent) error { return nil }

func (NoopPublisher) PublishBroadcastCompleted(context.Context, BroadcastCompletedEvent) error {
	return nil
}
