// Package scheduler publishes named events to the background-job bus.
// Delivery is best-effort: a publish failure must never fail the request
// that triggered it.
package scheduler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"
)

// Event is a named payload, optionally deferred until DeliverAt. Consumers
// holding an event with a future DeliverAt wait before acting on it.
type Event struct {
	Name      string          `json:"name"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	DeliverAt *time.Time      `json:"deliverAt,omitempty"`
}

// Well-known event names.
const (
	EventCouponExpired = "coupon.expired"
)

// CouponExpiredPayload carries the data for a deferred coupon deletion.
type CouponExpiredPayload struct {
	Code string `json:"code"`
}

// CouponExpired builds the event that deletes a coupon once it expires.
func CouponExpired(code string, expiresAt time.Time) Event {
	payload, _ := json.Marshal(CouponExpiredPayload{Code: code})
	return Event{
		Name:      EventCouponExpired,
		Payload:   payload,
		DeliverAt: &expiresAt,
	}
}

// Publisher delivers events to the scheduler bus.
type Publisher interface {
	Publish(ctx context.Context, key string, event Event) error
	Close() error
}

// KafkaPublisher implements Publisher over a Kafka topic.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a Publisher writing to the given brokers/topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Publish writes the event keyed for per-key ordering.
func (p *KafkaPublisher) Publish(ctx context.Context, key string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher discards events. Wired when no brokers are configured so
// callers never need a nil check.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, Event) error { return nil }
func (NopPublisher) Close() error                                 { return nil }
