package kafka

import (
	"context"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Source reads command lines from a Kafka topic, one command per message.
// With a group id, offsets are committed as messages are read.
type Source struct {
	reader *kafka.Reader
	log    *zap.Logger
}

func NewSource(brokers []string, topic, group string, log *zap.Logger) *Source {
	return &Source{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  group,
			MinBytes: 1,
			MaxBytes: 1 << 20,
			MaxWait:  100 * time.Millisecond,
		}),
		log: log.Named("kafka-source"),
	}
}

// Next blocks until a message arrives or ctx is done.
func (s *Source) Next(ctx context.Context) (string, error) {
	msg, err := s.reader.ReadMessage(ctx)
	if err != nil {
		return "", err
	}
	s.log.Debug("command",
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
	)
	return lineOf(msg), nil
}

func (s *Source) Close() error {
	return s.reader.Close()
}

func lineOf(msg kafka.Message) string {
	return strings.TrimRight(string(msg.Value), "\r\n")
}
