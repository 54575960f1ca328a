package exit

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

// -------------------- State --------------------

type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// -------------------- Record --------------------

// Record is one session result waiting to be published.
type Record struct {
	Seq         uint64
	State       State
	Retries     uint32
	LastAttempt int64
	Payload     []byte
}

var (
	ErrNotFound     = errors.New("outbox: record not found")
	errShortRecord  = errors.New("outbox: record too short")
	keyPrefix       = []byte("result/")
	keyUpperBound   = []byte("result/~")
	recordHeaderLen = 1 + 4 + 8
)

// binary encoding: [state:1][retries:4][lastAttempt:8][payload]
func encodeRecord(r Record) []byte {
	buf := make([]byte, recordHeaderLen+len(r.Payload))
	buf[0] = byte(r.State)
	binary.BigEndian.PutUint32(buf[1:5], r.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(r.LastAttempt))
	copy(buf[recordHeaderLen:], r.Payload)
	return buf
}

// decodeRecord copies b; pebble only lends values until the next call.
func decodeRecord(seq uint64, b []byte) (Record, error) {
	if len(b) < recordHeaderLen {
		return Record{}, errShortRecord
	}
	return Record{
		Seq:         seq,
		State:       State(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Payload:     bytes.Clone(b[recordHeaderLen:]),
	}, nil
}

// -------------------- Outbox --------------------

// Outbox is a durable queue of session results keyed by command
// sequence. The session writes NEW records; the broadcaster moves them
// through SENT to ACKED or FAILED.
type Outbox struct {
	db *pebble.DB
}

type Option func(*pebble.Options)

// WithFS swaps the filesystem, e.g. vfs.NewMem() in tests.
func WithFS(fs vfs.FS) Option {
	return func(o *pebble.Options) { o.FS = fs }
}

func Open(dir string, opts ...Option) (*Outbox, error) {
	po := &pebble.Options{}
	for _, opt := range opts {
		opt(po)
	}
	db, err := pebble.Open(dir, po)
	if err != nil {
		return nil, fmt.Errorf("outbox: open %s: %w", dir, err)
	}
	return &Outbox{db: db}, nil
}

func (w *Outbox) Close() error {
	return w.db.Close()
}

// PutNew stores a fresh result.
func (w *Outbox) PutNew(seq uint64, payload []byte) error {
	return w.put(Record{Seq: seq, State: StateNew, Payload: payload})
}

func (w *Outbox) MarkSent(seq uint64) error {
	return w.transition(seq, func(r *Record) { r.State = StateSent })
}

func (w *Outbox) MarkAcked(seq uint64) error {
	return w.transition(seq, func(r *Record) { r.State = StateAcked })
}

// MarkFailed parks a record that can never be published.
func (w *Outbox) MarkFailed(seq uint64) error {
	return w.transition(seq, func(r *Record) { r.State = StateFailed })
}

// MarkRetry records a failed publish attempt. After maxRetries attempts
// the record is parked as FAILED, otherwise it goes back to NEW.
func (w *Outbox) MarkRetry(seq uint64, maxRetries uint32) (State, error) {
	var next State
	err := w.transition(seq, func(r *Record) {
		r.Retries++
		r.State = StateNew
		if r.Retries >= maxRetries {
			r.State = StateFailed
		}
		next = r.State
	})
	return next, err
}

// Get returns the current record for seq.
func (w *Outbox) Get(seq uint64) (Record, error) {
	val, closer, err := w.db.Get(keyFor(seq))
	if errors.Is(err, pebble.ErrNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	defer closer.Close()

	return decodeRecord(seq, val)
}

// DeleteAcked removes every ACKED record and returns how many it dropped.
func (w *Outbox) DeleteAcked() (int, error) {
	var seqs []uint64
	err := w.ScanByState(StateAcked, func(r Record) error {
		seqs = append(seqs, r.Seq)
		return nil
	})
	if err != nil {
		return 0, err
	}

	b := w.db.NewBatch()
	defer b.Close()
	for _, seq := range seqs {
		if err := b.Delete(keyFor(seq), nil); err != nil {
			return 0, err
		}
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return 0, err
	}
	return len(seqs), nil
}

// -------------------- Scan --------------------

// ScanByState visits records in the given state in sequence order.
func (w *Outbox) ScanByState(state State, fn func(Record) error) error {
	return w.scan(func(s State) bool { return s == state }, fn)
}

// ScanPending visits every record still owed to the broker: NEW ones and
// SENT ones whose ack never landed, e.g. after a crash mid-publish.
func (w *Outbox) ScanPending(fn func(Record) error) error {
	return w.scan(func(s State) bool { return s == StateNew || s == StateSent }, fn)
}

// LastSeq is the highest sequence stored, 0 when empty.
func (w *Outbox) LastSeq() (uint64, error) {
	iter, err := w.db.NewIter(&pebble.IterOptions{
		LowerBound: keyPrefix,
		UpperBound: keyUpperBound,
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, iter.Error()
	}
	return parseKey(iter.Key())
}

func (w *Outbox) scan(match func(State) bool, fn func(Record) error) error {
	iter, err := w.db.NewIter(&pebble.IterOptions{
		LowerBound: keyPrefix,
		UpperBound: keyUpperBound,
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		val := iter.Value()
		if len(val) == 0 || !match(State(val[0])) {
			continue
		}

		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		rec, err := decodeRecord(seq, val)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

// -------------------- Helpers --------------------

func (w *Outbox) put(r Record) error {
	return w.db.Set(keyFor(r.Seq), encodeRecord(r), pebble.Sync)
}

func (w *Outbox) transition(seq uint64, fn func(*Record)) error {
	rec, err := w.Get(seq)
	if err != nil {
		return err
	}
	fn(&rec)
	rec.LastAttempt = time.Now().UnixNano()
	return w.put(rec)
}

// keys are zero padded so byte order equals sequence order
func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("result/%020d", seq))
}

func parseKey(b []byte) (uint64, error) {
	var seq uint64
	_, err := fmt.Sscanf(string(bytes.TrimPrefix(b, keyPrefix)), "%d", &seq)
	return seq, err
}
