package book

import (
	"container/list"
	"errors"
	"sync"

	"github.com/tidwall/btree"
)

// Errors returned by OrderBook's public operations. These are validation
// failures per spec.md §7: reported to the caller, no internal state change.
var (
	ErrInvalidQuantity = errors.New("book: quantity must be positive")
	ErrInvalidPrice    = errors.New("book: limit price must be positive")
)

// PriceLevels is the ordered-map contract spec.md §4.3 requires: O(log n)
// insert/delete/find/min-extract. tidwall/btree's generic BTreeG satisfies
// it directly, exactly as the teacher repo wires it.
type PriceLevels = btree.BTreeG[*PriceLevel]

// orderLocation is the id -> (level, node) index spec.md §4.3 recommends in
// place of the reference's linear scan, for O(1) cancellation.
type orderLocation struct {
	side  Side
	level *PriceLevel
	elem  *list.Element
}

// ExecutionReport describes one side of one fill, per spec.md §3.
type ExecutionReport struct {
	OrderID      uint64
	Counterparty uint64
	Symbol       string
	Price        float64
	Quantity     uint64
	Status       Status
	Timestamp    int64 // microseconds since epoch
}

// OrderBook holds one symbol's bid and ask sides. All mutating and
// querying public operations acquire its exclusive lock for their
// duration, per spec.md §4.3/§5.
type OrderBook struct {
	mu sync.Mutex

	Symbol string

	bids *PriceLevels // leftmost = highest price
	asks *PriceLevels // leftmost = lowest price

	bestBid float64
	bestAsk float64

	lastTradePrice float64
	lastTradeQty   uint64

	nextOrderID uint64

	index map[uint64]*orderLocation
}

// NewOrderBook constructs an empty book for symbol, with lastTradePrice
// seeded to initialLastPrice (used by mid_price's fallback before any trade
// has occurred).
func NewOrderBook(symbol string, initialLastPrice float64) *OrderBook {
	bids := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price > b.Price // leftmost = max price
	})
	asks := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price < b.Price // leftmost = min price
	})
	return &OrderBook{
		Symbol:         symbol,
		bids:           bids,
		asks:           asks,
		lastTradePrice: initialLastPrice,
		index:          make(map[uint64]*orderLocation),
	}
}

// Submit creates a new order, runs the cross algorithm against resting
// liquidity, and disposes of the order per spec.md §4.4's post-cross rules.
// It returns the new order's id (the stable handle for Cancel, valid
// whether or not the order is still resting) and the accumulated list of
// execution reports (possibly empty).
func (b *OrderBook) Submit(side Side, otype OrderType, price float64, qty uint64) (uint64, []ExecutionReport, error) {
	if qty == 0 {
		return 0, nil, ErrInvalidQuantity
	}
	if otype == Limit && price <= 0 {
		return 0, nil, ErrInvalidPrice
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextOrderID++
	order := &Order{
		ID:        b.nextOrderID,
		Symbol:    b.Symbol,
		Side:      side,
		Type:      otype,
		Price:     price,
		Quantity:  qty,
		CreatedAt: nowMicros(),
	}

	reports := b.cross(order)

	switch {
	case order.Remaining() == 0:
		order.Status = Filled
		// Already unlinked (or never linked, for a market order): nothing
		// further to do.
	case otype == Market:
		order.Status = Cancelled // market order with leftover: terminated, never rests
	default:
		// Limit order with remaining quantity: rests on its side.
		if order.Filled == 0 {
			order.Status = New
		} else {
			order.Status = Partial
		}
		b.restLimit(order)
	}

	return order.ID, reports, nil
}

// restLimit links a limit order with remaining quantity onto its side at
// its limit price, creating the price level if necessary, and refreshes the
// cached best price on that side.
func (b *OrderBook) restLimit(order *Order) {
	levels, _ := b.sideLevels(order.Side)

	search := &PriceLevel{Price: order.Price}
	level, ok := levels.GetMut(search)
	if !ok {
		level = NewPriceLevel(order.Price)
		levels.Set(level)
	}
	elem := level.PushBack(order)
	b.index[order.ID] = &orderLocation{side: order.Side, level: level, elem: elem}
	b.refreshBest(order.Side)
}

// Cancel locates order_id on either side, unlinks it, destroys it, and
// removes its level if it becomes empty, per spec.md §4.3. Returns whether a
// live order with that id existed.
func (b *OrderBook) Cancel(orderID uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	loc, ok := b.index[orderID]
	if !ok {
		return false
	}
	delete(b.index, orderID)

	levels, _ := b.sideLevels(loc.side)
	loc.level.Remove(loc.elem)
	if loc.level.Empty() {
		levels.Delete(loc.level)
	}
	b.refreshBest(loc.side)
	return true
}

func (b *OrderBook) sideLevels(side Side) (*PriceLevels, *PriceLevels) {
	if side == Buy {
		return b.bids, b.asks
	}
	return b.asks, b.bids
}

// refreshBest recomputes the cached best price on side from the extremal
// key of its map, or 0 if the side is now empty.
func (b *OrderBook) refreshBest(side Side) {
	if side == Buy {
		if top, ok := b.bids.Min(); ok {
			b.bestBid = top.Price
		} else {
			b.bestBid = 0
		}
		return
	}
	if top, ok := b.asks.Min(); ok {
		b.bestAsk = top.Price
	} else {
		b.bestAsk = 0
	}
}

// BestBid returns the highest resting buy price, or 0 if the bid side is
// empty.
func (b *OrderBook) BestBid() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bestBid
}

// BestAsk returns the lowest resting sell price, or 0 if the ask side is
// empty.
func (b *OrderBook) BestAsk() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bestAsk
}

// LastTrade returns the most recent trade price and quantity.
func (b *OrderBook) LastTrade() (price float64, qty uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastTradePrice, b.lastTradeQty
}

// MidPrice returns the average of best bid/ask when both sides are present,
// whichever side is present when only one is, or last_trade_price when both
// are empty, per spec.md §9's mandated fallback.
func (b *OrderBook) MidPrice() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case b.bestBid > 0 && b.bestAsk > 0:
		return (b.bestBid + b.bestAsk) / 2
	case b.bestBid > 0:
		return b.bestBid
	case b.bestAsk > 0:
		return b.bestAsk
	default:
		return b.lastTradePrice
	}
}

// Spread returns ask-bid when both sides are present, else 0.
func (b *OrderBook) Spread() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bestBid > 0 && b.bestAsk > 0 {
		return b.bestAsk - b.bestBid
	}
	return 0
}

// LevelSnapshot is an immutable, point-in-time copy of one price level,
// returned by Depth.
type LevelSnapshot struct {
	Price    float64
	Quantity uint64
}

// Depth returns an ordered snapshot of the top maxLevels price levels on
// side, best price first.
func (b *OrderBook) Depth(side Side, maxLevels int) []LevelSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	levels, _ := b.sideLevels(side)
	out := make([]LevelSnapshot, 0, maxLevels)
	levels.Scan(func(lvl *PriceLevel) bool {
		if len(out) >= maxLevels {
			return false
		}
		out = append(out, LevelSnapshot{Price: lvl.Price, Quantity: lvl.Total})
		return true
	})
	return out
}
