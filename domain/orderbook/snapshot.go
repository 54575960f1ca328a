package orderbook

import (
	"strconv"
	"strings"
)

// Entry is one resting order as it appears in a snapshot.
type Entry struct {
	Qty   uint64  `json:"qty"`
	Price uint64  `json:"price"`
	ID    OrderID `json:"id"`
}

// Snapshot lists both sides in priority order.
type Snapshot struct {
	Bids []Entry `json:"bids"`
	Asks []Entry `json:"asks"`
}

// Snapshot copies the resting orders out of the book. It never mutates
// the book and may be called at any point between commands.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Bids: entries(e.bids),
		Asks: entries(e.asks),
	}
}

// Render formats the book as
//
//	B: qty@price#id qty@price#id ...
//	S: qty@price#id ...
func (e *Engine) Render() string {
	return e.Snapshot().String()
}

func (s Snapshot) String() string {
	var b strings.Builder
	writeSide(&b, "B:", s.Bids)
	b.WriteByte('\n')
	writeSide(&b, "S:", s.Asks)
	return b.String()
}

func entries(side *BookSide) []Entry {
	out := make([]Entry, 0, side.Len())
	for o := range side.All() {
		out = append(out, Entry{Qty: o.Qty, Price: o.Price(), ID: o.ID})
	}
	return out
}

func writeSide(b *strings.Builder, label string, es []Entry) {
	b.WriteString(label)
	for _, e := range es {
		b.WriteByte(' ')
		b.WriteString(strconv.FormatUint(e.Qty, 10))
		b.WriteByte('@')
		b.WriteString(strconv.FormatUint(e.Price, 10))
		b.WriteByte('#')
		b.WriteString(string(e.ID))
	}
}
