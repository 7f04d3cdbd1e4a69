package changelog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/inventory"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/infrastructure/config"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

// Message header names
const (
	HeaderAction = "stock-action"
	HeaderSource = "stock-source"
	HeaderOrder  = "order-id"
)

// MessageWriter is the subset of *kafka.Writer the sink needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes change records as JSON, keyed by scope and SKU so that
// all changes of one record land on the same partition in order.
type KafkaSink struct {
	writer  MessageWriter
	timeout time.Duration
	logger  *zap.Logger
}

// NewKafkaSink creates a sink backed by a kafka-go writer
func NewKafkaSink(cfg config.ChangeLogConfig, logger *zap.Logger) *KafkaSink {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: cfg.WriteTimeout,
		ReadTimeout:  cfg.WriteTimeout,
	}
	return NewKafkaSinkWithWriter(writer, cfg.WriteTimeout, logger)
}

// NewKafkaSinkWithWriter creates a sink over an existing writer
func NewKafkaSinkWithWriter(writer MessageWriter, timeout time.Duration, logger *zap.Logger) *KafkaSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaSink{writer: writer, timeout: timeout, logger: logger}
}

// Append writes one message per record in a single batch
func (s *KafkaSink) Append(ctx context.Context, records ...inventory.ChangeRecord) error {
	if len(records) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(records))
	for _, record := range records {
		value, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal change record %s: %w", record.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:     []byte(messageKey(record)),
			Value:   value,
			Time:    record.RecordedAt,
			Headers: messageHeaders(ctx, record),
		})
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if err := s.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write change records to kafka: %w", err)
	}

	s.logger.Debug("change records published",
		zap.Int("count", len(msgs)),
		zap.String("order_id", records[0].OrderID),
	)
	return nil
}

// Close flushes and closes the writer
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

func messageKey(r inventory.ChangeRecord) string {
	return r.ScopeID.String() + ":" + r.SKU
}

// headerCarrier lets the OTel propagator write trace context into message headers
type headerCarrier struct {
	headers *[]kafka.Header
}

func (c headerCarrier) Get(key string) string {
	for _, h := range *c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	*c.headers = append(*c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, len(*c.headers))
	for i, h := range *c.headers {
		keys[i] = h.Key
	}
	return keys
}

var _ propagation.TextMapCarrier = headerCarrier{}

func messageHeaders(ctx context.Context, r inventory.ChangeRecord) []kafka.Header {
	headers := []kafka.Header{
		{Key: HeaderAction, Value: []byte(r.Action)},
		{Key: HeaderSource, Value: []byte(r.Source)},
		{Key: HeaderOrder, Value: []byte(r.OrderID)},
	}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{headers: &headers})
	return headers
}

var _ inventory.ChangeLogger = (*KafkaSink)(nil)
