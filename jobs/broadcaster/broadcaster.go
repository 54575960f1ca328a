package broadcaster

import (
	"context"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	exitwal "clob/infra/wal/exit"
)

const defaultMaxRetries = 5

type Config struct {
	Topic      string
	Interval   time.Duration
	MaxRetries uint32
}

// Broadcaster drains the result outbox into Kafka.
type Broadcaster struct {
	outbox   *exitwal.Outbox
	producer sarama.SyncProducer
	cfg      Config
	log      *zap.Logger
}

// ------------------------------------------------
// CONSTRUCTOR
// ------------------------------------------------

// NewProducer builds a sync producer that waits for all in-sync replicas.
func NewProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	return sarama.NewSyncProducer(brokers, cfg)
}

func New(
	outbox *exitwal.Outbox,
	producer sarama.SyncProducer,
	cfg Config,
	log *zap.Logger,
) *Broadcaster {
	if cfg.Interval <= 0 {
		cfg.Interval = 250 * time.Millisecond
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	return &Broadcaster{
		outbox:   outbox,
		producer: producer,
		cfg:      cfg,
		log:      log.Named("broadcaster"),
	}
}

// ------------------------------------------------
// LOOP
// ------------------------------------------------

// Run publishes pending results every interval until ctx is done, then
// makes one last pass so results written just before shutdown still go out.
func (b *Broadcaster) Run(ctx context.Context) {
	b.log.Info("started", zap.String("topic", b.cfg.Topic), zap.Duration("interval", b.cfg.Interval))

	ticker := time.NewTicker(b.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if _, err := b.Flush(); err != nil {
				b.log.Warn("final flush", zap.Error(err))
			}
			b.log.Info("stopped")
			return
		case <-ticker.C:
			if _, err := b.Flush(); err != nil {
				b.log.Warn("flush", zap.Error(err))
			}
		}
	}
}

// Flush makes one pass over pending records and returns how many were
// acked. SENT records left by an earlier process are sent again. A failed
// send puts the record back to NEW until its retry budget is spent, after
// which it is parked as FAILED.
func (b *Broadcaster) Flush() (int, error) {
	var pending []exitwal.Record
	err := b.outbox.ScanPending(func(rec exitwal.Record) error {
		pending = append(pending, rec)
		return nil
	})
	if err != nil {
		return 0, err
	}

	acked := 0
	for _, rec := range pending {
		// results outlive their session; key by the one that produced them
		ev, err := DecodeEvent(rec.Payload)
		if err != nil {
			b.log.Error("unreadable result, parking", zap.Uint64("seq", rec.Seq), zap.Error(err))
			if err := b.outbox.MarkFailed(rec.Seq); err != nil {
				return acked, err
			}
			continue
		}

		if err := b.outbox.MarkSent(rec.Seq); err != nil {
			return acked, err
		}

		msg := &sarama.ProducerMessage{
			Topic: b.cfg.Topic,
			Key:   sarama.StringEncoder(ev.Session),
			Value: sarama.ByteEncoder(rec.Payload),
		}
		if _, _, err := b.producer.SendMessage(msg); err != nil {
			state, merr := b.outbox.MarkRetry(rec.Seq, b.cfg.MaxRetries)
			if merr != nil {
				return acked, merr
			}
			b.log.Warn("publish failed",
				zap.Uint64("seq", rec.Seq),
				zap.Uint32("retries", rec.Retries+1),
				zap.Stringer("state", state),
				zap.Error(err),
			)
			continue
		}

		if err := b.outbox.MarkAcked(rec.Seq); err != nil {
			return acked, err
		}
		acked++
	}

	if acked > 0 {
		b.log.Debug("published", zap.Int("count", acked))
		if _, err := b.outbox.DeleteAcked(); err != nil {
			return acked, err
		}
	}
	return acked, nil
}

// ------------------------------------------------
// SHUTDOWN
// ------------------------------------------------

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
