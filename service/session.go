package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"clob/domain/orderbook"
	"clob/infra/sequence"
	entrywal "clob/infra/wal/entry"
	exitwal "clob/infra/wal/exit"
	"clob/jobs/broadcaster"
	"clob/protocol"
)

// Options wires a Session. Journal and Outbox are optional.
type Options struct {
	Out       io.Writer
	Journal   *entrywal.WAL
	Outbox    *exitwal.Outbox
	SessionID string
	Logger    *zap.Logger
}

// Stats counts what the session did with its input.
type Stats struct {
	Commands   uint64
	Malformed  uint64
	Duplicates uint64
}

/*
Session is the ONLY writer of its engine.

Every command, from whatever source, and every snapshot query goes
through Run's goroutine, so the engine needs no locks.
*/
type Session struct {
	id       string
	engine   *orderbook.Engine
	commands *sequence.Sequencer
	out      io.Writer
	journal  *entrywal.WAL
	outbox   *exitwal.Outbox
	log      *zap.Logger

	renders chan chan string
	done    chan struct{}
	stats   Stats
}

// New builds a session. Command numbers continue after the highest one
// already in the journal or the outbox, so a restart never reuses a
// journal sequence or overwrites an unpublished result.
func New(opts Options) (*Session, error) {
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}

	var start uint64
	if opts.Journal != nil {
		start = opts.Journal.LastSeq()
	}
	if opts.Outbox != nil {
		last, err := opts.Outbox.LastSeq()
		if err != nil {
			return nil, fmt.Errorf("session: outbox: %w", err)
		}
		start = max(start, last)
	}

	return &Session{
		id:       opts.SessionID,
		engine:   orderbook.NewEngine(),
		commands: sequence.New(start),
		out:      opts.Out,
		journal:  opts.Journal,
		outbox:   opts.Outbox,
		log:      opts.Logger.With(zap.String("session", opts.SessionID)),
		renders:  make(chan chan string),
		done:     make(chan struct{}),
	}, nil
}

func (s *Session) ID() string { return s.id }

// Done is closed when Run returns.
func (s *Session) Done() <-chan struct{} { return s.done }

// Stats is only meaningful once Run has returned.
func (s *Session) Stats() Stats { return s.stats }

type input struct {
	line string
	err  error
}

// Run applies commands from src until END, input exhaustion, ctx
// cancellation or a journal, outbox or output failure. END and exhaustion
// return nil. Run must be called once.
//
// src is read on its own goroutine. When Run returns early that goroutine
// is abandoned inside src.Next until Next observes the cancelled context
// or returns; a LineSource over stdin stays blocked until the process
// exits.
func (s *Session) Run(ctx context.Context, src Source) error {
	defer close(s.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.journal != nil {
		seq := s.commands.Next()
		if err := s.journal.Append(entrywal.NewRecord(entrywal.RecordStart, seq, EncodeStart(s.id))); err != nil {
			return fmt.Errorf("session: journal start: %w", err)
		}
	}

	lines := make(chan input)
	go pump(ctx, src, lines)

	s.log.Info("session started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info("session cancelled", zap.Error(ctx.Err()))
			return ctx.Err()

		case reply := <-s.renders:
			reply <- s.engine.Render()

		case in := <-lines:
			if in.err != nil {
				if errors.Is(in.err, io.EOF) {
					s.log.Info("input exhausted", s.statsFields()...)
					return nil
				}
				return fmt.Errorf("session: read: %w", in.err)
			}

			stop, err := s.apply(in.line)
			if err != nil {
				s.log.Error("session aborted", zap.Error(err))
				return err
			}
			if stop {
				s.log.Info("session ended", s.statsFields()...)
				return nil
			}
		}
	}
}

// Render returns the current book rendering, taken between commands.
// After Run has returned it renders the final book.
func (s *Session) Render(ctx context.Context) (string, error) {
	reply := make(chan string, 1)
	select {
	case s.renders <- reply:
	case <-s.done:
		return s.engine.Render(), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}

	select {
	case r := <-reply:
		return r, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func pump(ctx context.Context, src Source, out chan<- input) {
	for {
		line, err := src.Next(ctx)
		select {
		case out <- input{line: line, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

// apply handles one raw line. stop reports END.
func (s *Session) apply(line string) (stop bool, err error) {
	cmd, err := protocol.Parse(line)
	if errors.Is(err, protocol.ErrBlank) {
		return false, nil
	}
	if err != nil {
		s.stats.Malformed++
		s.log.Warn("skipping malformed command", zap.Error(err))
		return false, nil
	}

	seq := s.commands.Next()
	s.stats.Commands++

	if s.journal != nil {
		rec := entrywal.NewRecord(recordType(cmd.Kind), seq, EncodeCommand(cmd))
		if err := s.journal.Append(rec); err != nil {
			return false, fmt.Errorf("session: journal seq %d: %w", seq, err)
		}
	}

	switch cmd.Kind {
	case protocol.Submit:
		return false, s.submit(seq, cmd)

	case protocol.Cancel:
		if !s.engine.Cancel(cmd.ID) {
			s.log.Debug("cancel of unknown order", zap.String("id", string(cmd.ID)))
		}
		return false, nil

	default:
		snap := s.engine.Render()
		if _, err := fmt.Fprintln(s.out, snap); err != nil {
			return true, fmt.Errorf("session: write: %w", err)
		}
		return true, s.publish(broadcaster.SnapshotEvent(s.id, seq, snap))
	}
}

func (s *Session) submit(seq uint64, cmd protocol.Command) error {
	o := cmd.Order
	rep, err := s.engine.Submit(o)
	if errors.Is(err, orderbook.ErrDuplicateOrderID) {
		s.stats.Duplicates++
		s.log.Warn("rejecting duplicate order id", zap.String("id", string(o.ID)))
		return nil
	}
	if err != nil {
		return err
	}

	s.log.Debug("submitted",
		zap.Uint64("seq", seq),
		zap.String("id", string(o.ID)),
		zap.Stringer("status", rep.Status),
		zap.Int("fills", len(rep.Fills)),
		zap.Uint64("notional", rep.Notional),
	)

	if _, err := fmt.Fprintln(s.out, rep.Notional); err != nil {
		return fmt.Errorf("session: write: %w", err)
	}
	return s.publish(broadcaster.NotionalEvent(s.id, seq, protocol.Format(cmd), rep.Notional))
}

func (s *Session) publish(ev broadcaster.Event) error {
	if s.outbox == nil {
		return nil
	}
	payload, err := ev.Encode()
	if err != nil {
		return err
	}
	if err := s.outbox.PutNew(ev.Seq, payload); err != nil {
		return fmt.Errorf("session: outbox seq %d: %w", ev.Seq, err)
	}
	return nil
}

func (s *Session) statsFields() []zap.Field {
	return []zap.Field{
		zap.Uint64("last_seq", s.commands.Current()),
		zap.Uint64("commands", s.stats.Commands),
		zap.Uint64("malformed", s.stats.Malformed),
		zap.Uint64("duplicates", s.stats.Duplicates),
		zap.Int("resting", s.engine.Len()),
	}
}
