package entry

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"
)

type Config struct {
	Dir             string
	SegmentSize     int64
	SegmentDuration time.Duration
	// SyncEveryAppend fsyncs after each record.
	SyncEveryAppend bool
}

// WAL is an append-only, segmented command journal. Every Open starts a
// fresh segment after any existing ones, and sequence numbers continue
// from the highest already on disk.
type WAL struct {
	cfg        Config
	current    *segment
	segIndex   int
	lastRotate time.Time
	lastSeq    uint64
}

func Open(cfg Config) (*WAL, error) {
	if cfg.SegmentSize <= 0 {
		cfg.SegmentSize = 2 << 20
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("journal: create dir: %w", err)
	}

	files, err := segments(cfg.Dir)
	if err != nil {
		return nil, err
	}
	var lastSeq uint64
	next := 0
	for _, path := range files {
		idx, err := segmentIndex(path)
		if err != nil {
			return nil, fmt.Errorf("journal: bad segment name %s: %w", path, err)
		}
		next = idx + 1
		seq, err := maxSeqInSegment(path)
		if err != nil {
			return nil, fmt.Errorf("journal: scan %s: %w", path, err)
		}
		lastSeq = max(lastSeq, seq)
	}

	seg, err := openSegment(cfg.Dir, next)
	if err != nil {
		return nil, fmt.Errorf("journal: open segment: %w", err)
	}
	return &WAL{
		cfg:        cfg,
		current:    seg,
		segIndex:   next,
		lastRotate: time.Now(),
		lastSeq:    lastSeq,
	}, nil
}

// LastSeq is the highest sequence number written so far.
func (w *WAL) LastSeq() uint64 { return w.lastSeq }

func (w *WAL) Append(r *Record) error {
	if r.Seq <= w.lastSeq {
		return fmt.Errorf("%w: %d after %d", ErrNonMonotonic, r.Seq, w.lastSeq)
	}

	if err := w.current.append(encodeFrame(r)); err != nil {
		return fmt.Errorf("journal: append seq %d: %w", r.Seq, err)
	}
	w.lastSeq = r.Seq

	if w.cfg.SyncEveryAppend {
		if err := w.current.sync(); err != nil {
			return fmt.Errorf("journal: sync: %w", err)
		}
	}
	if w.shouldRotate() {
		return w.rotate()
	}
	return nil
}

func (w *WAL) Sync() error {
	return w.current.sync()
}

func (w *WAL) Close() error {
	if err := w.current.sync(); err != nil {
		_ = w.current.close()
		return err
	}
	return w.current.close()
}

func (w *WAL) shouldRotate() bool {
	if w.current.offset >= w.cfg.SegmentSize {
		return true
	}
	return w.cfg.SegmentDuration > 0 && time.Since(w.lastRotate) >= w.cfg.SegmentDuration
}

func (w *WAL) rotate() error {
	if err := w.current.sync(); err != nil {
		return err
	}
	_ = w.current.close()
	w.segIndex++

	seg, err := openSegment(w.cfg.Dir, w.segIndex)
	if err != nil {
		return fmt.Errorf("journal: rotate: %w", err)
	}
	w.current = seg
	w.lastRotate = time.Now()
	return nil
}

func encodeFrame(r *Record) []byte {
	payloadLen := uint32(len(r.Data))
	buf := make([]byte, headerSize+int(payloadLen)+crcSize)

	buf[0] = byte(r.Type)
	binary.BigEndian.PutUint64(buf[1:9], r.Seq)
	binary.BigEndian.PutUint64(buf[9:17], uint64(r.Time))
	binary.BigEndian.PutUint32(buf[17:21], payloadLen)
	copy(buf[headerSize:], r.Data)

	crc := CRC32(buf[:headerSize+int(payloadLen)])
	binary.BigEndian.PutUint32(buf[headerSize+int(payloadLen):], crc)
	return buf
}
