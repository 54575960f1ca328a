package service

import (
	"go.uber.org/zap"

	"clob/domain/orderbook"
	entrywal "clob/infra/wal/entry"
	"clob/protocol"
)

// ReplayResult is the outcome of re-executing a journal.
type ReplayResult struct {
	LastSeq  uint64
	Commands int
	Sessions int    // start records seen
	Session  string // id of the last session
	Render   string
}

/*
Replay re-executes the journal in dir and returns the rendering of the
last session's book: the END snapshot if it has one, else the book as the
journal leaves it.

Every start record opens a session on an empty book, as the live process
did, whether the previous session ended with END or ran out of input.
Replay is an audit tool. It never feeds a live session.
*/
func Replay(dir string, log *zap.Logger) (ReplayResult, error) {
	var (
		res       ReplayResult
		engine    = orderbook.NewEngine()
		ended     bool
		endRender string
	)

	lastSeq, err := entrywal.Replay(dir, func(rec *entrywal.Record) error {
		if rec.Type == entrywal.RecordStart {
			id, err := DecodeStart(rec.Data)
			if err != nil {
				return err
			}
			engine = orderbook.NewEngine()
			ended = false
			res.Sessions++
			res.Session = id
			return nil
		}

		cmd, err := DecodeCommand(rec.Type, rec.Data)
		if err != nil {
			return err
		}
		res.Commands++

		switch cmd.Kind {
		case protocol.Submit:
			// duplicates were rejected live too; the error is the outcome
			_, _ = engine.Submit(cmd.Order)
		case protocol.Cancel:
			engine.Cancel(cmd.ID)
		case protocol.End:
			endRender = engine.Render()
			ended = true
			engine = orderbook.NewEngine()
		}
		return nil
	})
	res.LastSeq = lastSeq
	if err != nil {
		return res, err
	}

	res.Render = engine.Render()
	if ended {
		res.Render = endRender
	}

	log.Info("journal replayed",
		zap.String("dir", dir),
		zap.Uint64("last_seq", res.LastSeq),
		zap.Int("commands", res.Commands),
		zap.Int("sessions", res.Sessions),
		zap.String("last_session", res.Session),
	)
	return res, nil
}
