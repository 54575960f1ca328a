package orderbook

import "fmt"

type Side uint8
type Status uint8

// OrderID is the externally supplied identifier of an order.
type OrderID string

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "B"
	case Sell:
		return "S"
	default:
		return fmt.Sprintf("Side(%d)", uint8(s))
	}
}

// Opposite returns the side an order of s matches against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

const (
	Pending Status = iota
	Resting
	Filled
	Cancelled
	Discarded
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case Resting:
		return "RESTING"
	case Filled:
		return "FILLED"
	case Cancelled:
		return "CANCELLED"
	case Discarded:
		return "DISCARDED"
	default:
		return "UNKNOWN"
	}
}

// Kind is either Limit(price) or Market. The price only exists for limits.
type Kind struct {
	market bool
	price  uint64
}

func Limit(price uint64) Kind { return Kind{price: price} }
func Market() Kind            { return Kind{market: true} }

func (k Kind) IsMarket() bool { return k.market }

// Price returns the limit price; ok is false for market orders.
func (k Kind) Price() (price uint64, ok bool) {
	if k.market {
		return 0, false
	}
	return k.price, true
}

func (k Kind) String() string {
	if k.market {
		return "MO"
	}
	return fmt.Sprintf("LO(%d)", k.price)
}

// Order is a pure domain entity. Once accepted by the Engine only Qty
// changes, and only the Engine changes it.
type Order struct {
	ID     OrderID
	Side   Side
	Kind   Kind
	Qty    uint64
	Seq    uint64
	Status Status

	level *PriceLevel
	next  *Order
	prev  *Order
}

// NewLimit builds a pending limit order.
func NewLimit(id OrderID, side Side, qty, price uint64) Order {
	return Order{ID: id, Side: side, Kind: Limit(price), Qty: qty}
}

// NewMarket builds a pending market order.
func NewMarket(id OrderID, side Side, qty uint64) Order {
	return Order{ID: id, Side: side, Kind: Market(), Qty: qty}
}

// Price is the limit price, zero for market orders.
func (o *Order) Price() uint64 {
	p, _ := o.Kind.Price()
	return p
}

// Next walks the FIFO of the order's price level. Read-only.
func (o *Order) Next() *Order {
	return o.next
}

// Reset clears the order before it goes back to the pool.
func (o *Order) Reset() { *o = Order{} }

func (o *Order) String() string {
	return fmt.Sprintf("%d@%d#%s", o.Qty, o.Price(), o.ID)
}
