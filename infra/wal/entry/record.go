package entry

import (
	"errors"
	"time"
)

// RecordType tags the command a journal record carries.
type RecordType uint8

const (
	RecordSubmit RecordType = iota + 1
	RecordCancel
	RecordEnd
	RecordStart // opens a session; the payload names it
)

// Frame layout: [type:1][seq:8][time:8][len:4][payload][crc:4], big-endian.
// The CRC covers header and payload.
const (
	headerSize = 1 + 8 + 8 + 4
	crcSize    = 4
)

var (
	ErrCorruptRecord = errors.New("journal: corrupt record")
	ErrNonMonotonic  = errors.New("journal: non-monotonic sequence")
)

// Record is one journaled command.
type Record struct {
	Type RecordType
	Seq  uint64
	Time int64
	Data []byte
}

func NewRecord(t RecordType, seq uint64, data []byte) *Record {
	return &Record{
		Type: t,
		Seq:  seq,
		Time: time.Now().UnixNano(),
		Data: data,
	}
}
