package events

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

const TopicOrderEvents = "order-events"

// 注文ライフサイクルイベント
type OrderEvent struct {
	Type        string    `json:"type"` // order.created / order.paid / order.canceled
	OrderID     int64     `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Status      string    `json:"status"`
	TotalCents  int64     `json:"total_cents"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// 注文イベントの発行口。ブローカー未設定ならno-op。
type OrderEventPublisher interface {
	Publish(ctx context.Context, ev OrderEvent)
}

type kafkaPublisher struct {
	writer *kafka.Writer
}

// brokersCSVが空ならnil writer（無効）のpublisherを返す
func NewKafkaPublisher(brokersCSV string) OrderEventPublisher {
	brokers := []string{}
	for _, b := range strings.Split(brokersCSV, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return &kafkaPublisher{}
	}

	return &kafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        TopicOrderEvents,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// 発行失敗はログだけ残してリクエストは失敗させない
func (p *kafkaPublisher) Publish(ctx context.Context, ev OrderEvent) {
	if p.writer == nil {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("order event marshal failed: %v", err)
		return
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.OrderNumber),
		Value: data,
		Time:  time.Now().UTC(),
	})
	if err != nil {
		log.Printf("order event publish failed: order=%s type=%s err=%v", ev.OrderNumber, ev.Type, err)
	}
}
