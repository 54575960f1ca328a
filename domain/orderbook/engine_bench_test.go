package orderbook

import (
	"strconv"
	"testing"
)

func benchIDs(n int) []OrderID {
	out := make([]OrderID, n)
	for i := range out {
		out[i] = OrderID("o" + strconv.Itoa(i))
	}
	return out
}

func BenchmarkSubmitResting(b *testing.B) {
	e := NewEngine()
	id := benchIDs(b.N)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Submit(NewLimit(id[i], Buy, 10, uint64(100+i%64)))
	}
}

func BenchmarkSubmitCrossing(b *testing.B) {
	e := NewEngine()
	id := benchIDs(2 * b.N)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Submit(NewLimit(id[2*i], Sell, 10, 100))
		_, _ = e.Submit(NewMarket(id[2*i+1], Buy, 10))
	}
}

func BenchmarkCancel(b *testing.B) {
	e := NewEngine()
	id := benchIDs(b.N)
	for i := 0; i < b.N; i++ {
		_, _ = e.Submit(NewLimit(id[i], Sell, 10, uint64(100+i%64)))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Cancel(id[i])
	}
}
