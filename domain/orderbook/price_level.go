package orderbook

import "fmt"

// PriceLevel is a FIFO queue of resting orders at a single price.
// Arrival order inside a level is time priority.
type PriceLevel struct {
	Price uint64

	head *Order
	tail *Order

	TotalQty   uint64
	OrderCount int
}

func (p *PriceLevel) Enqueue(o *Order) {
	o.level = p
	if p.head == nil {
		p.head = o
		p.tail = o
	} else {
		p.tail.next = o
		o.prev = p.tail
		p.tail = o
	}
	p.TotalQty += o.Qty
	p.OrderCount++
}

// Unlink removes o from anywhere in the queue.
func (p *PriceLevel) Unlink(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		p.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		p.tail = o.prev
	}
	o.next, o.prev, o.level = nil, nil, nil

	p.TotalQty -= min(o.Qty, p.TotalQty)
	p.OrderCount--
}

// reduce keeps TotalQty in step with a partial fill of one of its orders.
func (p *PriceLevel) reduce(qty uint64) {
	p.TotalQty -= min(qty, p.TotalQty)
}

func (p *PriceLevel) Empty() bool {
	return p.head == nil
}

// Head is the oldest order at this price.
func (p *PriceLevel) Head() *Order {
	return p.head
}

func (p *PriceLevel) String() string {
	return fmt.Sprintf("PriceLevel{Price=%d, Orders=%d, TotalQty=%d}", p.Price, p.OrderCount, p.TotalQty)
}
