package orderbook

import (
	"errors"

	"clob/infra/memory"
	"clob/infra/sequence"
)

var ErrDuplicateOrderID = errors.New("orderbook: order id is already resting")

// Fill is one execution of an incoming order against a resting one.
// Trades always print at the maker's price.
type Fill struct {
	MakerID OrderID
	Price   uint64
	Qty     uint64
}

// Report describes what Submit did with an incoming order.
type Report struct {
	OrderID   OrderID
	Notional  uint64 // sum of Qty*Price over Fills
	Fills     []Fill
	Remaining uint64 // quantity left on the incoming order after matching
	Seq       uint64 // arrival sequence, set only when the order rested
	Status    Status
}

// Filled is the quantity executed by the submission.
func (r Report) Filled() uint64 {
	var n uint64
	for _, f := range r.Fills {
		n += f.Qty
	}
	return n
}

// Engine is the matching engine for a single instrument. It owns both
// book sides, the cancellation index and the arrival sequencer.
// Engine is single-writer and not safe for concurrent use.
type Engine struct {
	bids     *BookSide
	asks     *BookSide
	index    *Index
	arrivals *sequence.Sequencer
	pool     *memory.Pool[Order]
}

func NewEngine() *Engine {
	return &Engine{
		bids:     NewBookSide(Buy),
		asks:     NewBookSide(Sell),
		index:    NewIndex(),
		arrivals: sequence.New(0),
		pool:     memory.NewPool(func() *Order { return &Order{} }),
	}
}

// Submit matches o against the opposite side and rests any limit
// remainder. An unmatched market remainder is dropped.
func (e *Engine) Submit(o Order) (Report, error) {
	rep := Report{OrderID: o.ID, Remaining: o.Qty, Status: Pending}
	if o.Qty == 0 {
		rep.Status = Discarded
		return rep, nil
	}
	if _, dup := e.index.Lookup(o.ID); dup {
		return rep, ErrDuplicateOrderID
	}

	opposite := e.side(o.Side.Opposite())
	for rep.Remaining > 0 {
		best, ok := opposite.PeekBest()
		if !ok || !crosses(o, best) {
			break
		}

		qty := min(rep.Remaining, best.Qty)
		price := best.Price()
		rep.Notional += qty * price
		rep.Fills = append(rep.Fills, Fill{MakerID: best.ID, Price: price, Qty: qty})

		rep.Remaining -= qty
		opposite.fill(best, qty)
		if best.Qty == 0 {
			e.retire(opposite, best.ID)
		}
	}

	switch {
	case rep.Remaining == 0:
		rep.Status = Filled
	case o.Kind.IsMarket():
		rep.Status = Discarded
	default:
		rest := e.pool.Get()
		*rest = Order{
			ID:     o.ID,
			Side:   o.Side,
			Kind:   o.Kind,
			Qty:    rep.Remaining,
			Seq:    e.arrivals.Next(),
			Status: Resting,
		}
		e.side(o.Side).Insert(rest)
		e.index.Put(rest.ID, rest.Side)
		rep.Seq = rest.Seq
		rep.Status = Resting
	}
	return rep, nil
}

// Cancel removes a resting order. Unknown ids are ignored; the result
// reports whether anything was removed.
func (e *Engine) Cancel(id OrderID) bool {
	side, ok := e.index.Lookup(id)
	if !ok {
		return false
	}
	e.retire(e.side(side), id)
	return true
}

// Lookup returns a copy of a resting order.
func (e *Engine) Lookup(id OrderID) (Order, bool) {
	side, ok := e.index.Lookup(id)
	if !ok {
		return Order{}, false
	}
	o := e.side(side).byID[id]
	return Order{ID: o.ID, Side: o.Side, Kind: o.Kind, Qty: o.Qty, Seq: o.Seq, Status: o.Status}, true
}

// BestBid is the highest resting bid price.
func (e *Engine) BestBid() (uint64, bool) { return bestPrice(e.bids) }

// BestAsk is the lowest resting ask price.
func (e *Engine) BestAsk() (uint64, bool) { return bestPrice(e.asks) }

// Len is the number of resting orders on both sides.
func (e *Engine) Len() int { return e.bids.Len() + e.asks.Len() }

func (e *Engine) side(s Side) *BookSide {
	if s == Buy {
		return e.bids
	}
	return e.asks
}

// retire takes an order out of the book and the index and recycles it.
func (e *Engine) retire(side *BookSide, id OrderID) {
	o, ok := side.Remove(id)
	if !ok {
		return
	}
	e.index.Delete(id)
	e.pool.Put(o)
}

// crosses applies the same non-strict test to both sides: a buy limit
// trades at or below its price, a sell limit at or above it.
func crosses(taker Order, maker *Order) bool {
	limit, ok := taker.Kind.Price()
	if !ok {
		return true
	}
	if taker.Side == Buy {
		return limit >= maker.Price()
	}
	return limit <= maker.Price()
}

func bestPrice(s *BookSide) (uint64, bool) {
	o, ok := s.PeekBest()
	if !ok {
		return 0, false
	}
	return o.Price(), true
}
