package engine

import "slices"

// PriceLevel holds every live order resting at one exact price (or, for a
// stop index, one exact trigger price), preserving arrival order.
//
// Grounded on awstasiuk-market-simulator's levelQueue: a head index is
// advanced on removal instead of reslicing from the front, so dequeue stays
// O(1) amortized without repeated reallocation. Unlike levelQueue, which
// stores Order values and requires updateFront to persist a fill, this level
// stores *Order pointers into the book's single order arena, so a fill
// mutates the one logical order in place — visible from the id index, the
// owner index, and this queue simultaneously (spec §9's "single logical
// identity" recommendation).
type PriceLevel struct {
	Price  int64
	orders []*Order
	head   int
}

func newPriceLevel(price int64) *PriceLevel {
	return &PriceLevel{Price: price}
}

// push appends an order to the tail of the FIFO. O(1).
func (l *PriceLevel) push(o *Order) {
	l.orders = append(l.orders, o)
}

// empty reports whether any order remains resident.
func (l *PriceLevel) empty() bool {
	return l.head >= len(l.orders)
}

// front returns the oldest resident order without removing it. O(1).
func (l *PriceLevel) front() *Order {
	return l.orders[l.head]
}

// popHead discards the current head. Callers must have already driven its
// remaining quantity to zero (or otherwise decided to evict it).
func (l *PriceLevel) popHead() {
	l.head++
	if l.head > 0 && l.head > len(l.orders)/2 {
		l.orders = l.orders[l.head:]
		l.head = 0
	}
}

// remove deletes the order with the given id from anywhere in the FIFO.
// O(n) linear scan, used only by cancel — reachable via the book's id index,
// which already knows which level to scan.
func (l *PriceLevel) remove(id string) (*Order, bool) {
	for i := l.head; i < len(l.orders); i++ {
		if l.orders[i].ID == id {
			o := l.orders[i]
			l.orders = slices.Delete(l.orders, i, i+1)
			return o, true
		}
	}
	return nil, false
}

// totalQty sums the remaining quantity of every resident order.
func (l *PriceLevel) totalQty() int64 {
	var total int64
	for i := l.head; i < len(l.orders); i++ {
		total += l.orders[i].RemainingQty
	}
	return total
}

// count returns the number of resident orders.
func (l *PriceLevel) count() int {
	return len(l.orders) - l.head
}
