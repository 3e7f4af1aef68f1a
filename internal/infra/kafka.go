package infra

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// StockEvent is the message published for every committed ledger movement.
type StockEvent struct {
	MovementID  string    `json:"movement_id"`
	ItemID      string    `json:"item_id"`
	Type        string    `json:"type"`
	Quantity    int       `json:"quantity"`
	StockBefore int       `json:"stock_before"`
	StockAfter  int       `json:"stock_after"`
	ReferenceID string    `json:"reference_id,omitempty"`
	At          time.Time `json:"at"`
}

// StockEventPublisher writes stock events to Kafka keyed by item id, so every
// consumer sees one item's movements in ledger order. A nil publisher is a no-op.
type StockEventPublisher struct {
	writer *kafka.Writer
}

// NewStockEventPublisher returns nil when no brokers are configured.
func NewStockEventPublisher(brokers []string, topic string) *StockEventPublisher {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	return &StockEventPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}}
}

func (p *StockEventPublisher) Publish(ctx context.Context, events ...StockEvent) error {
	if p == nil || len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, ev := range events {
		body, err := json.Marshal(ev)
		if err != nil {
			return errors.Wrap(err, "marshal stock event")
		}
		carrier := propagation.MapCarrier{}
		otel.GetTextMapPropagator().Inject(ctx, carrier)
		headers := make([]kafka.Header, 0, len(carrier))
		for k, v := range carrier {
			headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
		}
		msgs = append(msgs, kafka.Message{Key: []byte(ev.ItemID), Value: body, Headers: headers})
	}
	return errors.Wrap(p.writer.WriteMessages(ctx, msgs...), "publish stock events")
}

func (p *StockEventPublisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
