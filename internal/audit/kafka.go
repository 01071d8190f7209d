package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/segyhp/loan-engine/internal/domain"
	"github.com/segyhp/loan-engine/pkg/logger"
)

// MessageWriter is the part of *kafkago.Writer the sink uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// defaultQueueSize bounds the events waiting for delivery.
const defaultQueueSize = 256

// KafkaSink publishes events as JSON, keyed by loan id, from a single
// background worker. Events arriving while the queue is full or after Close
// are dropped, as are delivery failures; all three are logged.
type KafkaSink struct {
	writer  MessageWriter
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan outbound
	done   chan struct{}
}

type outbound struct {
	msg     kafkago.Message
	eventID string
	action  string
}

// NewKafkaWriter builds the writer for the audit topic.
func NewKafkaWriter(brokers []string, topic string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafkago.RequireAll,
	}
}

func NewKafkaSink(writer MessageWriter, timeout time.Duration, log *zap.Logger) *KafkaSink {
	return newKafkaSink(writer, timeout, defaultQueueSize, log)
}

func newKafkaSink(writer MessageWriter, timeout time.Duration, queueSize int, log *zap.Logger) *KafkaSink {
	s := &KafkaSink{
		writer:  writer,
		timeout: timeout,
		logger:  logger.OrNop(log).Named("audit_kafka"),
		queue:   make(chan outbound, queueSize),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// Publish never blocks the caller; the request context is not used for delivery.
func (s *KafkaSink) Publish(_ context.Context, event domain.AuditEvent) {
	value, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("encode audit event", zap.String("action", string(event.Action)), zap.Error(err))
		return
	}

	out := outbound{
		msg: kafkago.Message{
			Key:   []byte(event.LoanID.String()),
			Value: value,
			Headers: []kafkago.Header{
				{Key: "action", Value: []byte(event.Action)},
			},
		},
		eventID: event.EventID.String(),
		action:  string(event.Action),
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.drop(out, "sink closed")
		return
	}

	select {
	case s.queue <- out:
	default:
		s.drop(out, "queue full")
	}
}

func (s *KafkaSink) run() {
	defer close(s.done)

	for out := range s.queue {
		s.deliver(out)
	}
}

func (s *KafkaSink) deliver(out outbound) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.writer.WriteMessages(ctx, out.msg); err != nil {
		s.logger.Warn("audit event dropped",
			zap.String("event_id", out.eventID),
			zap.String("action", out.action),
			zap.Error(err))
	}
}

func (s *KafkaSink) drop(out outbound, reason string) {
	s.logger.Warn("audit event dropped",
		zap.String("event_id", out.eventID),
		zap.String("action", out.action),
		zap.String("reason", reason))
}

// Close stops accepting events, delivers the queued ones and closes the
// writer. Calling it again is a no-op.
func (s *KafkaSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	<-s.done
	return s.writer.Close()
}
