package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Record is a consumed Kafka record
type Record = kgo.Record

// Message is a record to be produced
type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// ProducerConfig holds producer settings
type ProducerConfig struct {
	Brokers       []string
	ClientID      string
	MaxRetries    int
	RetryInterval time.Duration
	// ProduceTimeout bounds a single synchronous produce
	ProduceTimeout time.Duration
}

// Producer publishes messages synchronously
type Producer struct {
	client *kgo.Client
	config *ProducerConfig
}

// NewProducer creates a producer and verifies the brokers are reachable
func NewProducer(ctx context.Context, cfg *ProducerConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if cfg.ProduceTimeout == 0 {
		cfg.ProduceTimeout = 10 * time.Second
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(5*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka client: %w", err)
	}

	if err := pingWithRetry(ctx, client, cfg.MaxRetries, cfg.RetryInterval); err != nil {
		client.Close()
		return nil, err
	}

	return &Producer{client: client, config: cfg}, nil
}

// Produce writes one message and waits for the broker acknowledgement
func (p *Producer) Produce(ctx context.Context, msg *Message) error {
	ctx, cancel := context.WithTimeout(ctx, p.config.ProduceTimeout)
	defer cancel()

	record := &kgo.Record{
		Topic:   msg.Topic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: toRecordHeaders(msg.Headers),
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", msg.Topic, err)
	}
	return nil
}

// ProduceJSON marshals data and produces it with the given headers
func (p *Producer) ProduceJSON(ctx context.Context, topic string, key string, data interface{}, headers map[string]string) error {
	value, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal message for %s: %w", topic, err)
	}
	return p.Produce(ctx, &Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   value,
		Headers: headers,
	})
}

// Ping checks broker connectivity
func (p *Producer) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Close flushes buffered records and closes the client
func (p *Producer) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = p.client.Flush(ctx)
	p.client.Close()
}

func pingWithRetry(ctx context.Context, client *kgo.Client, maxRetries int, interval time.Duration) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("connecting to kafka: %w", ctx.Err())
			case <-time.After(interval):
			}
		}
		if lastErr = client.Ping(ctx); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("failed to connect to kafka after %d attempts: %w", maxRetries+1, lastErr)
}

func toRecordHeaders(headers map[string]string) []kgo.RecordHeader {
	if len(headers) == 0 {
		return nil
	}
	out := make([]kgo.RecordHeader, 0, len(headers))
	for k, v := range headers {
		out = append(out, kgo.RecordHeader{Key: k, Value: []byte(v)})
	}
	return out
}

// HeadersToMap flattens record headers; later duplicates win
func HeadersToMap(record *Record) map[string]string {
	out := make(map[string]string, len(record.Headers))
	for _, h := range record.Headers {
		out[h.Key] = string(h.Value)
	}
	return out
}
