package appkafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"example.com/minitweet/internal/models"
	"github.com/segmentio/kafka-go"
)

// KafkaWriter defines an interface for writing messages to Kafka.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, messages ...kafka.Message) error
	Close() error
}

// KafkaReader defines an interface for reading messages from Kafka.
type KafkaReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaConfig holds configuration parameters for Kafka.
type KafkaConfig struct {
	Brokers      []string      // list of Kafka brokers
	Topic        string        // topic name
	Partition    int           // partition used when no consumer group is set
	WriteTimeout time.Duration // write timeout duration
	ReadTimeout  time.Duration // max wait for a fetch to fill
	GroupID      string        // consumer group ID
}

func (c KafkaConfig) withDefaults() KafkaConfig {
	if len(c.Brokers) == 0 {
		c.Brokers = []string{"localhost:9092"}
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	return c
}

// writerBatchTimeout flushes single events almost at once; the kafka-go default of 1s
// would hold every publishing request for up to a second.
const writerBatchTimeout = 10 * time.Millisecond

// RealKafkaWriter implements KafkaWriter with kafka.Writer, which is safe for use by
// concurrent request handlers.
type RealKafkaWriter struct {
	writer *kafka.Writer
}

// NewKafkaWriter creates a new Kafka writer for the configured topic.
func NewKafkaWriter(cfg KafkaConfig) (*RealKafkaWriter, error) {
	cfg = cfg.withDefaults()
	if cfg.Topic == "" {
		return nil, errors.New("kafka topic is required")
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		WriteTimeout:           cfg.WriteTimeout,
		BatchTimeout:           writerBatchTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &RealKafkaWriter{writer: w}, nil
}

func (w *RealKafkaWriter) WriteMessages(ctx context.Context, messages ...kafka.Message) error {
	if w.writer == nil {
		return errors.New("kafka writer is nil")
	}
	return w.writer.WriteMessages(ctx, messages...)
}

func (w *RealKafkaWriter) Close() error {
	if w.writer != nil {
		return w.writer.Close()
	}
	return nil
}

// RealKafkaReader implements KafkaReader using kafka.Reader (consumer group).
type RealKafkaReader struct {
	reader *kafka.Reader
}

// NewKafkaReader creates a new Kafka consumer group reader.
func NewKafkaReader(cfg KafkaConfig) KafkaReader {
	cfg = cfg.withDefaults()

	rc := kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          cfg.Topic,
		MinBytes:       1,    // activity events are small; deliver them promptly
		MaxBytes:       10e6, // 10MB
		MaxWait:        cfg.ReadTimeout,
		CommitInterval: time.Second,
	}
	if cfg.GroupID == "" {
		rc.Partition = cfg.Partition
	}
	return &RealKafkaReader{reader: kafka.NewReader(rc)}
}

func (r *RealKafkaReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	return r.reader.ReadMessage(ctx)
}

func (r *RealKafkaReader) Close() error {
	return r.reader.Close()
}

// Publisher encodes social events as JSON messages keyed by the recipient, so every
// user's activity lands on one partition in order.
type Publisher struct {
	writer KafkaWriter
}

func NewPublisher(w KafkaWriter) *Publisher {
	return &Publisher{writer: w}
}

func (p *Publisher) Publish(ctx context.Context, ev models.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.TargetUserID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(ev.Kind)},
		},
	})
}

// DecodeEvent parses a message written by Publisher.
func DecodeEvent(msg kafka.Message) (models.Event, error) {
	var ev models.Event
	err := json.Unmarshal(msg.Value, &ev)
	return ev, err
}
