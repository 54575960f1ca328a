// Package config reads process settings from flags, with CLOB_*
// environment variables as defaults.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	// Input is a file of command lines, "-" for stdin. Ignored when
	// CommandTopic is set.
	Input string

	JournalDir string
	OutboxDir  string
	ReplayDir  string

	KafkaBrokers  []string
	CommandTopic  string
	ConsumerGroup string
	ResultTopic   string

	BroadcastInterval time.Duration
	MaxRetries        uint

	GRPCAddr string

	LogLevel string
	DevLog   bool
}

var (
	ErrNoBrokers = errors.New("config: kafka topic set without brokers")
	ErrNoOutbox  = errors.New("config: result topic set without outbox dir")
)

// Load parses args (without the program name). getenv is os.Getenv
// outside tests.
func Load(args []string, getenv func(string) string) (Config, error) {
	env := func(key, def string) string {
		if v := getenv("CLOB_" + key); v != "" {
			return v
		}
		return def
	}

	fs := flag.NewFlagSet("clob", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var c Config
	var brokers string
	fs.StringVar(&c.Input, "input", env("INPUT", "-"), "command file, - for stdin")
	fs.StringVar(&c.JournalDir, "journal-dir", env("JOURNAL_DIR", ""), "command journal directory, empty disables it")
	fs.StringVar(&c.OutboxDir, "outbox-dir", env("OUTBOX_DIR", ""), "result outbox directory, empty disables it")
	fs.StringVar(&c.ReplayDir, "replay", env("REPLAY_DIR", ""), "replay this journal, print the book and exit")
	fs.StringVar(&brokers, "kafka-brokers", env("KAFKA_BROKERS", ""), "comma separated broker list")
	fs.StringVar(&c.CommandTopic, "command-topic", env("COMMAND_TOPIC", ""), "read commands from this topic instead of -input")
	fs.StringVar(&c.ConsumerGroup, "consumer-group", env("CONSUMER_GROUP", "clob"), "kafka consumer group")
	fs.StringVar(&c.ResultTopic, "result-topic", env("RESULT_TOPIC", ""), "publish results to this topic")
	fs.StringVar(&c.GRPCAddr, "grpc-addr", env("GRPC_ADDR", ""), "gRPC listen address, empty disables it")
	fs.StringVar(&c.LogLevel, "log-level", env("LOG_LEVEL", "info"), "debug, info, warn or error")

	interval, err := time.ParseDuration(env("BROADCAST_INTERVAL", "250ms"))
	if err != nil {
		return Config{}, fmt.Errorf("config: CLOB_BROADCAST_INTERVAL: %w", err)
	}
	fs.DurationVar(&c.BroadcastInterval, "broadcast-interval", interval, "outbox scan interval")

	retries, err := strconv.ParseUint(env("MAX_RETRIES", "5"), 10, 32)
	if err != nil {
		return Config{}, fmt.Errorf("config: CLOB_MAX_RETRIES: %w", err)
	}
	fs.UintVar(&c.MaxRetries, "max-retries", uint(retries), "publish attempts before a result is parked")

	devLog, err := strconv.ParseBool(env("DEV_LOG", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("config: CLOB_DEV_LOG: %w", err)
	}
	fs.BoolVar(&c.DevLog, "dev-log", devLog, "human readable console logs")

	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("config: unexpected arguments %q", fs.Args())
	}

	c.KafkaBrokers = splitList(brokers)
	return c, c.Validate()
}

func (c Config) Validate() error {
	if (c.CommandTopic != "" || c.ResultTopic != "") && len(c.KafkaBrokers) == 0 {
		return ErrNoBrokers
	}
	if c.ResultTopic != "" && c.OutboxDir == "" {
		return ErrNoOutbox
	}
	if c.BroadcastInterval <= 0 {
		return fmt.Errorf("config: broadcast interval must be positive, got %s", c.BroadcastInterval)
	}
	if c.MaxRetries == 0 {
		return errors.New("config: max retries must be at least 1")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Level is the parsed LogLevel. Only valid after Validate.
func (c Config) Level() zapcore.Level {
	lvl, _ := zapcore.ParseLevel(c.LogLevel)
	return lvl
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
