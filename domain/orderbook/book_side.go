package orderbook

import "iter"

// BookSide holds the resting orders of one side in price-time priority.
// Levels live in a red-black tree keyed by price; each level is a FIFO.
// Orders are also indexed by id so removal never depends on price.
type BookSide struct {
	side   Side
	levels *RBTree
	byID   map[OrderID]*Order
}

func NewBookSide(side Side) *BookSide {
	return &BookSide{
		side:   side,
		levels: NewRBTree(),
		byID:   make(map[OrderID]*Order),
	}
}

func (s *BookSide) Side() Side { return s.side }

// Len is the number of resting orders.
func (s *BookSide) Len() int { return len(s.byID) }

// Levels is the number of distinct prices.
func (s *BookSide) Levels() int { return s.levels.Size() }

// Insert appends o to the back of its price level. The caller assigns
// o.Seq beforehand; Insert never changes it.
func (s *BookSide) Insert(o *Order) {
	s.levels.UpsertLevel(o.Price()).Enqueue(o)
	s.byID[o.ID] = o
}

// PeekBest returns the highest-priority order without removing it.
func (s *BookSide) PeekBest() (*Order, bool) {
	lvl := s.bestLevel()
	if lvl == nil {
		return nil, false
	}
	return lvl.Head(), true
}

// Remove unlinks the order with the given id. Empty levels are dropped.
func (s *BookSide) Remove(id OrderID) (*Order, bool) {
	o, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	lvl := o.level
	lvl.Unlink(o)
	if lvl.Empty() {
		s.levels.DeleteLevel(lvl.Price)
	}
	delete(s.byID, id)
	return o, true
}

// All yields resting orders in priority order. The sequence is lazy and
// can be ranged over any number of times; it must not be interleaved
// with mutations of the side. Yielded orders are read-only.
func (s *BookSide) All() iter.Seq[*Order] {
	return func(yield func(*Order) bool) {
		visit := func(lvl *PriceLevel) bool {
			for o := lvl.Head(); o != nil; o = o.Next() {
				if !yield(o) {
					return false
				}
			}
			return true
		}
		if s.side == Buy {
			s.levels.ForEachDescending(visit)
		} else {
			s.levels.ForEachAscending(visit)
		}
	}
}

// fill takes qty off a resting order in place.
func (s *BookSide) fill(o *Order, qty uint64) {
	o.Qty -= qty
	o.level.reduce(qty)
}

func (s *BookSide) bestLevel() *PriceLevel {
	if s.side == Buy {
		return s.levels.MaxLevel()
	}
	return s.levels.MinLevel()
}
