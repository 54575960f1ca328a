package orderbook

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restingOrder(id string, side Side, qty, price, seq uint64) *Order {
	return &Order{ID: OrderID(id), Side: side, Kind: Limit(price), Qty: qty, Seq: seq, Status: Resting}
}

func ids(s *BookSide) []OrderID {
	var out []OrderID
	for o := range s.All() {
		out = append(out, o.ID)
	}
	return out
}

func TestBookSidePriorityOrder(t *testing.T) {
	bids := NewBookSide(Buy)
	bids.Insert(restingOrder("a", Buy, 1, 100, 1))
	bids.Insert(restingOrder("b", Buy, 1, 101, 2))
	bids.Insert(restingOrder("c", Buy, 1, 100, 3))
	bids.Insert(restingOrder("d", Buy, 1, 99, 4))

	assert.Equal(t, []OrderID{"b", "a", "c", "d"}, ids(bids))
	best, ok := bids.PeekBest()
	require.True(t, ok)
	assert.EqualValues(t, "b", best.ID)

	asks := NewBookSide(Sell)
	asks.Insert(restingOrder("x", Sell, 1, 105, 5))
	asks.Insert(restingOrder("y", Sell, 1, 103, 6))
	asks.Insert(restingOrder("z", Sell, 1, 105, 7))

	assert.Equal(t, []OrderID{"y", "x", "z"}, ids(asks))
	assert.Equal(t, 2, asks.Levels())
}

func TestBookSideRemoveWithDuplicatePrices(t *testing.T) {
	s := NewBookSide(Sell)
	for i, id := range []string{"o1", "o2", "o3"} {
		s.Insert(restingOrder(id, Sell, 10, 50, uint64(i+1)))
	}

	o, ok := s.Remove("o2")
	require.True(t, ok)
	assert.EqualValues(t, "o2", o.ID)
	assert.Equal(t, []OrderID{"o1", "o3"}, ids(s))
	assert.Equal(t, 1, s.Levels())
	assert.EqualValues(t, 20, s.levels.FindLevel(50).TotalQty)

	_, ok = s.Remove("o2")
	assert.False(t, ok, "second removal must be a no-op")

	s.Remove("o1")
	s.Remove("o3")
	assert.Zero(t, s.Len())
	assert.Zero(t, s.Levels(), "empty levels are dropped")
	_, ok = s.PeekBest()
	assert.False(t, ok)
}

func TestBookSideAllIsRestartableAndLazy(t *testing.T) {
	s := NewBookSide(Buy)
	for i := range 5 {
		s.Insert(restingOrder(string(rune('a'+i)), Buy, 1, uint64(100-i), uint64(i+1)))
	}

	first := slices.Collect(s.All())
	second := slices.Collect(s.All())
	assert.Equal(t, first, second)

	n := 0
	for range s.All() {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
	assert.Equal(t, 5, s.Len())
}

func TestBookSideEmpty(t *testing.T) {
	s := NewBookSide(Buy)
	_, ok := s.PeekBest()
	assert.False(t, ok)
	assert.Empty(t, slices.Collect(s.All()))
}
