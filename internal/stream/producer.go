// Package stream publishes ticket-sale records to Kafka for downstream
// analytics. The producer is optional; a nil producer records nothing.
package stream

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

type TicketSale struct {
	EventId   int       `json:"event_id"`
	EventName string    `json:"event_name"`
	UserId    int       `json:"user_id"`
	Quantity  int       `json:"quantity"`
	Reference string    `json:"reference"`
	SoldAt    time.Time `json:"sold_at"`
}

type TicketSalesProducer struct {
	writer *kafka.Writer
}

func NewTicketSalesProducer(brokers []string, topic string) *TicketSalesProducer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}
	return &TicketSalesProducer{writer: w}
}

// Record publishes one sale keyed by event id, so a partition holds a single
// event's sales in order.
func (p *TicketSalesProducer) Record(ctx context.Context, sale TicketSale) error {
	if p == nil {
		return nil
	}

	value, err := json.Marshal(sale)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.Itoa(sale.EventId)),
		Value: value,
	})
}

func (p *TicketSalesProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
