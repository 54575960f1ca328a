// Package orderbook implements the single-instrument matching engine.
//
// Each side of the book is a red-black tree of price levels, and each
// level is a FIFO of resting orders, which gives price-time priority.
// A cancellation index maps order ids to the side holding them so that
// cancels and fills remove exactly one order even when many share a
// price.
//
// The package is pure and single-writer: no goroutines, locks, clocks or
// I/O. Callers serialize access.
package orderbook
