package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/domain"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/kafka"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/logger"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/retry"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/telemetry"
)

// errMalformedEvent marks records that can never be stored
var errMalformedEvent = errors.New("malformed redemption event")

// RecordSource is the subset of the Kafka consumer the worker needs
type RecordSource interface {
	Poll(ctx context.Context) ([]*kafka.Record, error)
	CommitRecords(ctx context.Context, records []*kafka.Record) error
}

// EntryRecorder stores one activity entry
type EntryRecorder interface {
	Record(ctx context.Context, entry *domain.ActivityEntry) error
}

// WorkerMetrics counts consumed entries
type WorkerMetrics interface {
	ActivityEntry(result string)
}

// ActivityWorkerConfig holds configuration for the activity worker
type ActivityWorkerConfig struct {
	// PollBackoff is the pause after a failed poll
	PollBackoff time.Duration
}

// ActivityWorker consumes redemption events and appends them to the
// activity feed. Records that keep failing are parked on the DLQ and
// committed so one poison message cannot stall the partition.
type ActivityWorker struct {
	source   RecordSource
	recorder EntryRecorder
	dlq      *retry.DLQHandler
	metrics  WorkerMetrics
	backoff  time.Duration
}

// NewActivityWorker creates a new activity worker
func NewActivityWorker(
	source RecordSource,
	recorder EntryRecorder,
	dlq *retry.DLQHandler,
	metrics WorkerMetrics,
	cfg *ActivityWorkerConfig,
) *ActivityWorker {
	backoff := time.Second
	if cfg != nil && cfg.PollBackoff > 0 {
		backoff = cfg.PollBackoff
	}
	if dlq == nil {
		dlq = retry.NewDLQHandler(retry.NewNoOpDLQPublisher(), nil)
	}
	return &ActivityWorker{
		source:   source,
		recorder: recorder,
		dlq:      dlq,
		metrics:  metrics,
		backoff:  backoff,
	}
}

// Run polls until ctx is cancelled or the consumer is closed
func (w *ActivityWorker) Run(ctx context.Context) error {
	log := logger.Get()
	for {
		records, err := w.source.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, kafka.ErrClientClosed) {
				return nil
			}
			log.Error(fmt.Sprintf("Failed to poll Kafka: %v", err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.backoff):
			}
			continue
		}

		if len(records) == 0 {
			continue
		}

		w.ProcessRecords(ctx, records)

		if err := w.source.CommitRecords(ctx, records); err != nil {
			log.Error(fmt.Sprintf("Failed to commit offsets: %v", err))
		}
	}
}

// ProcessRecords handles one polled batch in order
func (w *ActivityWorker) ProcessRecords(ctx context.Context, records []*kafka.Record) {
	for _, record := range records {
		if err := w.processRecord(ctx, record); err != nil {
			logger.Get().Warn(fmt.Sprintf("Activity record %s[%d]@%d not stored: %v",
				record.Topic, record.Partition, record.Offset, err))
		}
	}
}

func (w *ActivityWorker) processRecord(ctx context.Context, record *kafka.Record) error {
	headers := kafka.HeadersToMap(record)
	ctx = telemetry.ExtractHeaders(ctx, headers)
	ctx, span := telemetry.StartSpan(ctx, "worker.activity.record")
	defer span.End()

	span.SetAttributes(
		attribute.String("topic", record.Topic),
		attribute.Int64("offset", record.Offset),
	)

	msgCtx := &retry.MessageContext{
		ID:      headers["event_id"],
		Topic:   record.Topic,
		Key:     string(record.Key),
		Payload: json.RawMessage(record.Value),
		Headers: headers,
		Metadata: map[string]interface{}{
			"partition": strconv.Itoa(int(record.Partition)),
			"offset":    strconv.FormatInt(record.Offset, 10),
		},
	}

	err := w.dlq.ProcessWithDLQ(ctx, msgCtx, func(ctx context.Context) error {
		entry, err := decodeEntry(record.Value)
		if err != nil {
			return retry.Permanent(err)
		}
		return w.recorder.Record(ctx, entry)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		w.count("dlq")
		return err
	}

	span.SetStatus(codes.Ok, "")
	w.count("stored")
	return nil
}

func (w *ActivityWorker) count(result string) {
	if w.metrics != nil {
		w.metrics.ActivityEntry(result)
	}
}

// decodeEntry unwraps the feed entry from a redemption event
func decodeEntry(value []byte) (*domain.ActivityEntry, error) {
	var event domain.RedemptionEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedEvent, err)
	}
	if event.EventType != domain.RedemptionEventType {
		return nil, fmt.Errorf("%w: unexpected event type %q", errMalformedEvent, event.EventType)
	}
	if event.Entry == nil || event.Entry.TicketID == "" {
		return nil, fmt.Errorf("%w: missing entry", errMalformedEvent)
	}
	return event.Entry, nil
}
