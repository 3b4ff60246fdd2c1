// Package matching implements the registry of per-symbol order books and the
// submit/cancel entry points described in spec.md §4.4 and exposed in §6.
package matching

import (
	"errors"
	"sync"

	"matchbook/internal/book"
)

// DefaultCapacity is the reference symbol-set sizing from spec.md §3.
const DefaultCapacity = 16

// MaxSymbolLen is the longest symbol identifier the registry accepts.
const MaxSymbolLen = 15

var (
	ErrUnknownSymbol       = errors.New("matching: unknown symbol")
	ErrDuplicateSymbol     = errors.New("matching: symbol already registered")
	ErrRegistryFull        = errors.New("matching: symbol registry at capacity")
	ErrSymbolTooLong       = errors.New("matching: symbol must be 1 to 15 characters")
	ErrInvalidInitialPrice = errors.New("matching: initial price must be positive")
)

// Side and OrderType are re-exported so callers of this package never need to
// import internal/book directly.
type Side = book.Side
type OrderType = book.OrderType
type ExecutionReport = book.ExecutionReport

const (
	Buy  = book.Buy
	Sell = book.Sell
)

const (
	LimitOrder  = book.Limit
	MarketOrder = book.Market
)

// Engine is the bounded registry of symbol -> order book, plus the
// submit/cancel operations that resolve a symbol to its book and delegate
// under that book's own lock, per spec.md §4.4.
type Engine struct {
	mu       sync.Mutex
	capacity int
	symbols  []string
	books    []*book.OrderBook
}

// New constructs an empty registry with the given capacity (reference
// sizing: 16 symbols, spec.md §3).
func New(capacity int) *Engine {
	return &Engine{
		capacity: capacity,
		symbols:  make([]string, 0, capacity),
		books:    make([]*book.OrderBook, 0, capacity),
	}
}

// AddSymbol registers a new book for symbol if it is not already present and
// capacity remains. Returns an error otherwise.
func (e *Engine) AddSymbol(symbol string, initialPrice float64) error {
	if len(symbol) == 0 || len(symbol) > MaxSymbolLen {
		return ErrSymbolTooLong
	}
	if initialPrice <= 0 {
		return ErrInvalidInitialPrice
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.indexLocked(symbol) >= 0 {
		return ErrDuplicateSymbol
	}
	if len(e.symbols) >= e.capacity {
		return ErrRegistryFull
	}

	e.symbols = append(e.symbols, symbol)
	e.books = append(e.books, book.NewOrderBook(symbol, initialPrice))
	return nil
}

// indexLocked performs the reference's linear scan for symbol; e.mu must
// already be held.
func (e *Engine) indexLocked(symbol string) int {
	for i, s := range e.symbols {
		if s == symbol {
			return i
		}
	}
	return -1
}

// GetBook resolves symbol to its order book.
func (e *Engine) GetBook(symbol string) (*book.OrderBook, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.indexLocked(symbol)
	if idx < 0 {
		return nil, false
	}
	return e.books[idx], true
}

// Symbols returns a snapshot of every registered symbol, in registration
// order.
func (e *Engine) Symbols() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]string, len(e.symbols))
	copy(out, e.symbols)
	return out
}

// Submit resolves sym's book and runs the full submit path: create the
// order, cross it against resting liquidity, and dispose of it per
// spec.md §4.4. Returns the new order's id, the accumulated execution
// reports, and ErrUnknownSymbol for an unregistered symbol.
func (e *Engine) Submit(sym string, side Side, otype OrderType, price float64, qty uint64) (uint64, []ExecutionReport, error) {
	b, ok := e.GetBook(sym)
	if !ok {
		return 0, nil, ErrUnknownSymbol
	}
	return b.Submit(side, otype, price, qty)
}

// Cancel resolves sym's book and delegates cancellation to it. Returns
// false for an unknown symbol or an unknown/already-cancelled order id.
func (e *Engine) Cancel(sym string, orderID uint64) bool {
	b, ok := e.GetBook(sym)
	if !ok {
		return false
	}
	return b.Cancel(orderID)
}

// BestBid, BestAsk, LastTrade and Depth are thin pass-throughs onto the
// resolved book, matching the external interface in spec.md §6.

func (e *Engine) BestBid(sym string) (float64, bool) {
	b, ok := e.GetBook(sym)
	if !ok {
		return 0, false
	}
	return b.BestBid(), true
}

func (e *Engine) BestAsk(sym string) (float64, bool) {
	b, ok := e.GetBook(sym)
	if !ok {
		return 0, false
	}
	return b.BestAsk(), true
}

func (e *Engine) LastTrade(sym string) (price float64, qty uint64, ok bool) {
	b, found := e.GetBook(sym)
	if !found {
		return 0, 0, false
	}
	price, qty = b.LastTrade()
	return price, qty, true
}

func (e *Engine) Depth(sym string, side Side, maxLevels int) ([]book.LevelSnapshot, bool) {
	b, ok := e.GetBook(sym)
	if !ok {
		return nil, false
	}
	return b.Depth(side, maxLevels), true
}
