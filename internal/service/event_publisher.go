package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/domain"
	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/repository"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/kafka"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/telemetry"
)

// DefaultRedemptionTopic carries redemption outcomes to the activity worker
const DefaultRedemptionTopic = "ticket-redemptions"

// MessageProducer is the subset of the Kafka producer the publisher needs
type MessageProducer interface {
	Produce(ctx context.Context, msg *kafka.Message) error
	Close()
}

// RedemptionPublisherConfig contains configuration for the Kafka publisher
type RedemptionPublisherConfig struct {
	Topic       string
	ServiceName string
}

// KafkaRedemptionPublisher implements RedemptionPublisher using Kafka
type KafkaRedemptionPublisher struct {
	producer    MessageProducer
	topic       string
	serviceName string
}

// NewKafkaRedemptionPublisher creates a new Kafka redemption publisher
func NewKafkaRedemptionPublisher(producer MessageProducer, cfg *RedemptionPublisherConfig) *KafkaRedemptionPublisher {
	topic := DefaultRedemptionTopic
	serviceName := "ticket-scanner"
	if cfg != nil {
		if cfg.Topic != "" {
			topic = cfg.Topic
		}
		if cfg.ServiceName != "" {
			serviceName = cfg.ServiceName
		}
	}
	return &KafkaRedemptionPublisher{
		producer:    producer,
		topic:       topic,
		serviceName: serviceName,
	}
}

// PublishRedemption publishes one outcome keyed by ticket ID
func (p *KafkaRedemptionPublisher) PublishRedemption(ctx context.Context, entry *domain.ActivityEntry) error {
	event := domain.NewRedemptionEvent(entry)

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	headers := map[string]string{
		"event_type":   event.EventType,
		"event_id":     event.EventID,
		"source":       p.serviceName,
		"content_type": "application/json",
	}
	telemetry.InjectHeaders(ctx, headers)

	msg := &kafka.Message{
		Topic:   p.topic,
		Key:     []byte(event.Key()),
		Value:   value,
		Headers: headers,
	}

	if err := p.producer.Produce(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.EventType, err)
	}

	return nil
}

// Close closes the underlying producer
func (p *KafkaRedemptionPublisher) Close() error {
	if p.producer != nil {
		p.producer.Close()
	}
	return nil
}

// DirectRedemptionPublisher writes outcomes straight to the activity feed.
// Used when Kafka is disabled.
type DirectRedemptionPublisher struct {
	activity repository.ActivityRepository
}

// NewDirectRedemptionPublisher creates a new DirectRedemptionPublisher
func NewDirectRedemptionPublisher(activity repository.ActivityRepository) *DirectRedemptionPublisher {
	return &DirectRedemptionPublisher{activity: activity}
}

// PublishRedemption pushes the entry to the feed
func (p *DirectRedemptionPublisher) PublishRedemption(ctx context.Context, entry *domain.ActivityEntry) error {
	return p.activity.Push(ctx, entry)
}

// Close is a no-op
func (p *DirectRedemptionPublisher) Close() error {
	return nil
}

// NoOpRedemptionPublisher drops outcomes
type NoOpRedemptionPublisher struct{}

// NewNoOpRedemptionPublisher creates a new no-op publisher
func NewNoOpRedemptionPublisher() *NoOpRedemptionPublisher {
	return &NoOpRedemptionPublisher{}
}

// PublishRedemption is a no-op
func (p *NoOpRedemptionPublisher) PublishRedemption(ctx context.Context, entry *domain.ActivityEntry) error {
	return nil
}

// Close is a no-op
func (p *NoOpRedemptionPublisher) Close() error {
	return nil
}
