package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// ErrClientClosed is returned by Poll after Close
var ErrClientClosed = errors.New("kafka client closed")

// ConsumerConfig holds consumer group settings
type ConsumerConfig struct {
	Brokers          []string
	GroupID          string
	Topics           []string
	ClientID         string
	MaxRetries       int
	RetryInterval    time.Duration
	SessionTimeout   time.Duration
	RebalanceTimeout time.Duration
	// MaxPollRecords caps records returned per Poll; 0 means no cap
	MaxPollRecords int
}

// Consumer is a group consumer with manual commits
type Consumer struct {
	client *kgo.Client
	config *ConsumerConfig
}

// NewConsumer joins the consumer group and verifies broker connectivity
func NewConsumer(ctx context.Context, cfg *ConsumerConfig) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if cfg.GroupID == "" || len(cfg.Topics) == 0 {
		return nil, fmt.Errorf("consumer group and topics are required")
	}
	if cfg.SessionTimeout == 0 {
		cfg.SessionTimeout = 30 * time.Second
	}
	if cfg.RebalanceTimeout == 0 {
		cfg.RebalanceTimeout = 60 * time.Second
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.GroupID),
		kgo.ConsumeTopics(cfg.Topics...),
		kgo.ClientID(cfg.ClientID),
		kgo.DisableAutoCommit(),
		kgo.SessionTimeout(cfg.SessionTimeout),
		kgo.RebalanceTimeout(cfg.RebalanceTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka client: %w", err)
	}

	if err := pingWithRetry(ctx, client, cfg.MaxRetries, cfg.RetryInterval); err != nil {
		client.Close()
		return nil, err
	}

	return &Consumer{client: client, config: cfg}, nil
}

// Poll blocks until records are available or ctx is done
func (c *Consumer) Poll(ctx context.Context) ([]*Record, error) {
	var fetches kgo.Fetches
	if c.config.MaxPollRecords > 0 {
		fetches = c.client.PollRecords(ctx, c.config.MaxPollRecords)
	} else {
		fetches = c.client.PollFetches(ctx)
	}
	if fetches.IsClientClosed() {
		return nil, ErrClientClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var errs []error
	fetches.EachError(func(topic string, partition int32, err error) {
		errs = append(errs, fmt.Errorf("fetch %s[%d]: %w", topic, partition, err))
	})
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return fetches.Records(), nil
}

// CommitRecords commits the offsets of the given records
func (c *Consumer) CommitRecords(ctx context.Context, records []*Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := c.client.CommitRecords(ctx, records...); err != nil {
		return fmt.Errorf("commit offsets: %w", err)
	}
	return nil
}

// Close leaves the group and closes the client
func (c *Consumer) Close() {
	c.client.Close()
}
