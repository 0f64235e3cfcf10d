package events

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/segmentio/kafka-go"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/xenking/online-nursery/internal/domain/order"
)

// ErrBufferFull is returned when the publish buffer cannot take another
// event.
var ErrBufferFull = errors.New("event buffer full")

// MessageWriter writes messages to Kafka. *kafka.Writer satisfies it.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewWriter returns a Kafka writer that routes each message to its own
// topic and partitions by key.
func NewWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
}

var _ order.EventPublisher = (*Publisher)(nil)

// Publisher buffers order events and writes them from a background loop so
// order placement never waits on the broker.
type Publisher struct {
	w     MessageWriter
	topic string
	inbox chan kafka.Message
	lg    *zap.Logger
}

// NewPublisher creates a Publisher writing to topic with a buffer of buf
// messages.
func NewPublisher(w MessageWriter, topic string, buf int, lg *zap.Logger) *Publisher {
	return &Publisher{
		w:     w,
		topic: topic,
		inbox: make(chan kafka.Message, buf),
		lg:    lg,
	}
}

// OrderPlaced enqueues an OrderPlaced event keyed by order ID.
func (p *Publisher) OrderPlaced(_ context.Context, o *order.Order) error {
	value, err := newEnvelope(EventOrderPlaced, o.ID, o.CreatedAt, o)
	if err != nil {
		return errors.Wrap(err, "encode order event")
	}
	msg := kafka.Message{Topic: p.topic, Key: []byte(o.ID), Value: value, Time: o.CreatedAt}
	select {
	case p.inbox <- msg:
		return nil
	default:
		return ErrBufferFull
	}
}

// Run writes buffered events until ctx is done, then flushes what is left
// and closes the writer.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return p.flush()
		case m := <-p.inbox:
			p.write(ctx, m)
		}
	}
}

func (p *Publisher) flush() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case m := <-p.inbox:
			p.write(ctx, m)
		default:
			return p.w.Close()
		}
	}
}

func (p *Publisher) write(ctx context.Context, m kafka.Message) {
	if err := p.w.WriteMessages(ctx, m); err != nil {
		p.lg.Error("Write event",
			zap.String("topic", m.Topic),
			zap.ByteString("key", m.Key),
			zap.Error(err),
		)
	}
}

var _ order.CompensationRecorder = (*CompensationRecorder)(nil)

// CompensationRecorder writes failed compensations to a Kafka topic for an
// out-of-band reconciler. Writes are synchronous.
type CompensationRecorder struct {
	w     MessageWriter
	topic string
}

// NewCompensationRecorder creates a CompensationRecorder writing to topic.
func NewCompensationRecorder(w MessageWriter, topic string) *CompensationRecorder {
	return &CompensationRecorder{w: w, topic: topic}
}

func (r *CompensationRecorder) RecordCompensationFailure(ctx context.Context, f order.CompensationFailure) error {
	value, err := newEnvelope(EventCompensationFailed, f.ProductID, f.OccurredAt, f)
	if err != nil {
		return errors.Wrap(err, "encode compensation event")
	}
	err = r.w.WriteMessages(ctx, kafka.Message{
		Topic: r.topic,
		Key:   []byte(f.ProductID),
		Value: value,
		Time:  f.OccurredAt,
	})
	if err != nil {
		return errors.Wrap(err, "write compensation event")
	}
	zctx.From(ctx).Debug("Compensation failure published", zap.String("product_id", f.ProductID))
	return nil
}

// Recorders fans a failure out to several recorders and joins their errors.
type Recorders []order.CompensationRecorder

func (rs Recorders) RecordCompensationFailure(ctx context.Context, f order.CompensationFailure) error {
	var err error
	for _, r := range rs {
		err = multierr.Append(err, r.RecordCompensationFailure(ctx, f))
	}
	return err
}
