package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"clob/api/grpcserver"
	"clob/config"
	"clob/infra/kafka"
	entrywal "clob/infra/wal/entry"
	exitwal "clob/infra/wal/exit"
	"clob/jobs/broadcaster"
	"clob/service"
)

func main() {
	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("exiting", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

// logs go to stderr; stdout carries session output only
func newLogger(cfg config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.DevLog {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(cfg.Level())
	zc.OutputPaths = []string{"stderr"}
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zc.Build()
}

func run(cfg config.Config, log *zap.Logger) error {
	// ---------------- Replay (audit) ----------------

	if cfg.ReplayDir != "" {
		res, err := service.Replay(cfg.ReplayDir, log)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(os.Stdout, res.Render)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessionID := uuid.NewString()
	opts := service.Options{
		Out:       os.Stdout,
		SessionID: sessionID,
		Logger:    log,
	}

	// ---------------- Entry WAL ----------------

	if cfg.JournalDir != "" {
		journal, err := entrywal.Open(entrywal.Config{
			Dir:             cfg.JournalDir,
			SegmentSize:     2 * 1024 * 1024,
			SegmentDuration: time.Minute,
		})
		if err != nil {
			return fmt.Errorf("journal: %w", err)
		}
		defer journal.Close()
		opts.Journal = journal
	}

	// ---------------- Exit WAL ----------------

	// background jobs outlive the session so they can drain after END
	var bg sync.WaitGroup
	bgCtx, stopBackground := context.WithCancel(context.Background())
	var outbox *exitwal.Outbox
	defer func() {
		stopBackground()
		bg.Wait()
		if outbox != nil {
			_ = outbox.Close()
		}
	}()

	if cfg.OutboxDir != "" {
		ob, err := exitwal.Open(cfg.OutboxDir)
		if err != nil {
			return err
		}
		outbox = ob
		opts.Outbox = ob

		if cfg.ResultTopic != "" {
			producer, err := broadcaster.NewProducer(cfg.KafkaBrokers)
			if err != nil {
				return fmt.Errorf("kafka producer: %w", err)
			}
			bc := broadcaster.New(ob, producer, broadcaster.Config{
				Topic:      cfg.ResultTopic,
				Interval:   cfg.BroadcastInterval,
				MaxRetries: uint32(cfg.MaxRetries),
			}, log)

			bg.Add(1)
			go func() {
				defer bg.Done()
				bc.Run(bgCtx)
				if err := bc.Close(); err != nil {
					log.Warn("closing producer", zap.Error(err))
				}
			}()
		}
	}

	// ---------------- Session ----------------

	sess, err := service.New(opts)
	if err != nil {
		return err
	}

	var src service.Source
	if cfg.CommandTopic != "" {
		ks := kafka.NewSource(cfg.KafkaBrokers, cfg.CommandTopic, cfg.ConsumerGroup, log)
		defer ks.Close()
		src = ks
	} else {
		in := os.Stdin
		if cfg.Input != "-" {
			f, err := os.Open(cfg.Input)
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		src = service.NewLineSource(in)
	}

	// ---------------- gRPC ----------------

	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		gw := grpcserver.NewGateway(sess, log)
		defer gw.Stop()

		go func() {
			if err := gw.Serve(lis); err != nil {
				log.Error("grpc server exited", zap.Error(err))
			}
		}()
		gw.SetServing(true)
		go func() {
			<-sess.Done()
			gw.SetServing(false)
		}()
	}

	err = sess.Run(ctx, src)
	if errors.Is(err, context.Canceled) {
		log.Info("interrupted")
		return nil
	}
	return err
}
