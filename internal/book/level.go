package book

import "container/list"

// PriceLevel is the FIFO queue of resting orders at a single price, with
// their aggregate unfilled quantity, per spec.md §4.2. A level exists iff it
// holds at least one resting order; OrderBook removes levels that empty out.
type PriceLevel struct {
	Price  float64
	Total  uint64
	orders *list.List // of *Order, head = earliest arrival
}

// NewPriceLevel constructs an empty level at price.
func NewPriceLevel(price float64) *PriceLevel {
	return &PriceLevel{
		Price:  price,
		orders: list.New(),
	}
}

// PushBack appends order to the tail of the level's FIFO list and updates
// the aggregate quantity. Returns the list element so the caller can record
// it in an id -> (level, element) index for O(1) cancellation.
func (lvl *PriceLevel) PushBack(order *Order) *list.Element {
	lvl.Total += order.Remaining()
	return lvl.orders.PushBack(order)
}

// Remove unlinks the order at elem from the level's FIFO list and decrements
// the aggregate quantity by its unfilled remainder.
func (lvl *PriceLevel) Remove(elem *list.Element) {
	order := elem.Value.(*Order)
	lvl.Total -= order.Remaining()
	lvl.orders.Remove(elem)
}

// Front returns the earliest-arrived resting order, or nil if the level is
// empty.
func (lvl *PriceLevel) Front() *list.Element {
	return lvl.orders.Front()
}

// Empty reports whether the level has no resting orders.
func (lvl *PriceLevel) Empty() bool {
	return lvl.orders.Len() == 0
}

// Orders returns a snapshot slice of the resting orders, head to tail. It is
// not on any matching hot path; Depth reads Total instead.
func (lvl *PriceLevel) Orders() []*Order {
	out := make([]*Order, 0, lvl.orders.Len())
	for e := lvl.orders.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*Order))
	}
	return out
}
