// Package feed implements the trade tape and periodic market-data broadcast
// that downstream subscribers (the TCP protocol, a websocket push channel)
// consume, per the external interface in spec.md §6.
package feed

import (
	"sync"

	"matchbook/internal/book"
)

// Trade is a single completed fill, merged from the resting and aggressor
// execution reports cross() emits for it.
type Trade struct {
	Symbol      string
	Price       float64
	Quantity    uint64
	BuyOrderID  uint64
	SellOrderID uint64
	Timestamp   int64 // microseconds since epoch
}

// tapeCapacity bounds how many trades the tape retains; the oldest trade is
// overwritten once the ring fills, matching a bounded circular buffer rather
// than an unbounded append-only log.
const tapeCapacity = 1 << 12

// Tape is a fixed-capacity circular buffer of recent trades, shared by all
// symbols. Unlike a single-producer/single-consumer ring, several server
// workers can push fills concurrently and Recent may be called at any time,
// so pushes and snapshots share one mutex instead of the lock-free
// producer/consumer split a single-writer tape would use.
type Tape struct {
	mu     sync.Mutex
	buf    []Trade
	next   int // index the next Push writes to
	filled bool
	count  uint64 // total trades ever pushed, for sequence numbering
}

// NewTape constructs an empty tape with room for tapeCapacity trades.
func NewTape() *Tape {
	return &Tape{buf: make([]Trade, tapeCapacity)}
}

// Push appends t to the tape, overwriting the oldest entry once full.
func (tp *Tape) Push(t Trade) {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	tp.buf[tp.next] = t
	tp.next = (tp.next + 1) % len(tp.buf)
	if tp.next == 0 {
		tp.filled = true
	}
	tp.count++
}

// PushFromReports merges one matched pair of execution reports (the
// aggressor's report and its counterparty's, as cross() emits them in
// lockstep per spec.md §4.4) into a single Trade and pushes it. aggressorSide
// is the side of the order that was submitted — the other side rested.
func (tp *Tape) PushFromReports(symbol string, aggressorSide book.Side, aggressor, resting book.ExecutionReport) {
	t := Trade{
		Symbol:    symbol,
		Price:     aggressor.Price,
		Quantity:  aggressor.Quantity,
		Timestamp: aggressor.Timestamp,
	}
	if aggressorSide == book.Buy {
		t.BuyOrderID, t.SellOrderID = aggressor.OrderID, resting.OrderID
	} else {
		t.BuyOrderID, t.SellOrderID = resting.OrderID, aggressor.OrderID
	}
	tp.Push(t)
}

// PushAllFromReports walks reports in the [aggressor, resting] pairs cross()
// produces and pushes one Trade per pair.
func (tp *Tape) PushAllFromReports(symbol string, aggressorSide book.Side, reports []book.ExecutionReport) {
	for i := 0; i+1 < len(reports); i += 2 {
		tp.PushFromReports(symbol, aggressorSide, reports[i], reports[i+1])
	}
}

// Recent returns up to n of the most recently pushed trades, newest last.
func (tp *Tape) Recent(n int) []Trade {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	size := tp.next
	if tp.filled {
		size = len(tp.buf)
	}
	if n > size {
		n = size
	}
	if n == 0 {
		return nil
	}

	out := make([]Trade, n)
	for i := 0; i < n; i++ {
		idx := (tp.next - n + i + len(tp.buf)) % len(tp.buf)
		out[i] = tp.buf[idx]
	}
	return out
}

// Count returns the total number of trades ever pushed, including ones
// since overwritten.
func (tp *Tape) Count() uint64 {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	return tp.count
}
