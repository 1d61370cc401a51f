package retry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

const (
	defaultDLQSuffix = ".dlq"
	defaultSource    = "unknown"
)

// DLQMessage is the envelope written to a dead letter topic
type DLQMessage struct {
	ID             string                 `json:"id"`
	OriginalTopic  string                 `json:"original_topic"`
	OriginalKey    string                 `json:"original_key"`
	Payload        json.RawMessage        `json:"payload"`
	Headers        map[string]string      `json:"headers,omitempty"`
	Error          string                 `json:"error"`
	Attempts       int                    `json:"attempts"`
	FirstAttemptAt time.Time              `json:"first_attempt_at"`
	LastAttemptAt  time.Time              `json:"last_attempt_at"`
	MovedToDLQAt   time.Time              `json:"moved_to_dlq_at"`
	Source         string                 `json:"source"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// headers are the Kafka headers for the parked copy. Original headers
// are kept under an "original_" prefix so they cannot shadow ours.
func (m *DLQMessage) headers() map[string]string {
	h := map[string]string{
		"content_type":    "application/json",
		"original_topic":  m.OriginalTopic,
		"error":           m.Error,
		"attempts":        strconv.Itoa(m.Attempts),
		"moved_to_dlq_at": m.MovedToDLQAt.Format(time.RFC3339),
		"source":          m.Source,
	}
	for k, v := range m.Headers {
		h["original_"+k] = v
	}
	return h
}

// DLQPublisher publishes failed messages to a dead letter queue
type DLQPublisher interface {
	PublishToDLQ(ctx context.Context, msg *DLQMessage) error
	GetDLQTopic(originalTopic string) string
}

// JSONProducer is the subset of the Kafka producer the DLQ needs
type JSONProducer interface {
	ProduceJSON(ctx context.Context, topic string, key string, data interface{}, headers map[string]string) error
}

// DLQConfig contains configuration for DLQ publishing
type DLQConfig struct {
	// TopicSuffix is appended to the original topic (default: ".dlq")
	TopicSuffix string
	// Source names the service that gave up on the message
	Source string
}

// KafkaDLQPublisher publishes failed messages to "<topic><suffix>"
type KafkaDLQPublisher struct {
	producer JSONProducer
	suffix   string
	source   string
}

// NewKafkaDLQPublisher creates a new Kafka DLQ publisher
func NewKafkaDLQPublisher(producer JSONProducer, cfg *DLQConfig) *KafkaDLQPublisher {
	p := &KafkaDLQPublisher{producer: producer, suffix: defaultDLQSuffix, source: defaultSource}
	if cfg != nil {
		if cfg.TopicSuffix != "" {
			p.suffix = cfg.TopicSuffix
		}
		if cfg.Source != "" {
			p.source = cfg.Source
		}
	}
	return p
}

// PublishToDLQ stamps msg and produces it keyed by the original key
func (p *KafkaDLQPublisher) PublishToDLQ(ctx context.Context, msg *DLQMessage) error {
	if msg == nil {
		return errors.New("DLQ message cannot be nil")
	}
	msg.MovedToDLQAt = time.Now()
	msg.Source = p.source
	return p.producer.ProduceJSON(ctx, p.GetDLQTopic(msg.OriginalTopic), msg.OriginalKey, msg, msg.headers())
}

// GetDLQTopic returns the DLQ topic name for a given original topic
func (p *KafkaDLQPublisher) GetDLQTopic(originalTopic string) string {
	return originalTopic + p.suffix
}

// DLQHandlerConfig contains configuration for DLQ handler
type DLQHandlerConfig struct {
	// RetryConfig defaults to DefaultConfig
	RetryConfig *Config
	Source      string
	// OnDLQ is called when a message is moved to DLQ
	OnDLQ func(msg *DLQMessage)
}

// DLQHandler retries an operation and parks the message on the DLQ when
// it fails for good
type DLQHandler struct {
	retrier   *Retrier
	publisher DLQPublisher
	source    string
	onDLQ     func(msg *DLQMessage)
}

// NewDLQHandler creates a new DLQ handler
func NewDLQHandler(publisher DLQPublisher, cfg *DLQHandlerConfig) *DLQHandler {
	if cfg == nil {
		cfg = &DLQHandlerConfig{}
	}
	h := &DLQHandler{
		retrier:   New(cfg.RetryConfig),
		publisher: publisher,
		source:    cfg.Source,
		onDLQ:     cfg.OnDLQ,
	}
	if h.source == "" {
		h.source = defaultSource
	}
	return h
}

// MessageContext describes the message being processed
type MessageContext struct {
	ID             string
	Topic          string
	Key            string
	Payload        json.RawMessage
	Headers        map[string]string
	FirstAttemptAt time.Time
	Metadata       map[string]interface{}
}

// ProcessWithDLQ processes a message with retry and DLQ support. It returns
// the processing error after the message has been parked, or the publish
// error when parking failed too.
func (h *DLQHandler) ProcessWithDLQ(ctx context.Context, msgCtx *MessageContext, op Operation) error {
	first := msgCtx.FirstAttemptAt
	if first.IsZero() {
		first = time.Now()
	}

	result := h.retrier.Do(ctx, op)
	if result.Err == nil {
		return nil
	}

	cause := result.Err
	if result.LastError != nil {
		cause = result.LastError
	}
	parked := &DLQMessage{
		ID:             msgCtx.ID,
		OriginalTopic:  msgCtx.Topic,
		OriginalKey:    msgCtx.Key,
		Payload:        msgCtx.Payload,
		Headers:        msgCtx.Headers,
		Error:          cause.Error(),
		Attempts:       result.Attempts,
		FirstAttemptAt: first,
		LastAttemptAt:  time.Now(),
		Source:         h.source,
		Metadata:       msgCtx.Metadata,
	}
	if h.onDLQ != nil {
		h.onDLQ(parked)
	}

	if err := h.publisher.PublishToDLQ(ctx, parked); err != nil {
		return fmt.Errorf("failed to publish to DLQ: %w (original error: %s)", err, parked.Error)
	}
	return result.Err
}

// NoOpDLQPublisher drops messages; used when Kafka is disabled
type NoOpDLQPublisher struct{}

// NewNoOpDLQPublisher creates a new no-op DLQ publisher
func NewNoOpDLQPublisher() *NoOpDLQPublisher {
	return &NoOpDLQPublisher{}
}

// PublishToDLQ does nothing
func (p *NoOpDLQPublisher) PublishToDLQ(ctx context.Context, msg *DLQMessage) error {
	return nil
}

// GetDLQTopic returns the DLQ topic name
func (p *NoOpDLQPublisher) GetDLQTopic(originalTopic string) string {
	return originalTopic + defaultDLQSuffix
}
