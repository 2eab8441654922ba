// Package events publishes asset job lifecycle transitions.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"studio/internal/domain"
)

// Event is emitted each time a job record changes state.
type Event struct {
	SessionID string             `json:"session_id"`
	JobID     string             `json:"job_id"`
	Kind      domain.AssetKind   `json:"kind"`
	Status    domain.AssetStatus `json:"status"`
	Location  string             `json:"location,omitempty"`
	ErrorKind string             `json:"error_kind,omitempty"`
	At        time.Time          `json:"at"`
}

// Publisher delivers events. Implementations must not block the caller for long.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events as JSON keyed by session id so a consumer sees
// one session's transitions in order.
type KafkaPublisher struct {
	w messageWriter
}

// NewKafkaPublisher connects an async writer to the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.Hash{},
		Async:    true,
	})
	return &KafkaPublisher{w: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{Key: []byte(ev.SessionID), Value: payload, Time: ev.At}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
