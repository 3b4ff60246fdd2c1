package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchbook/internal/book"
)

func TestTape_RecentReturnsNewestLast(t *testing.T) {
	tp := NewTape()
	for i := 1; i <= 3; i++ {
		tp.Push(Trade{Symbol: "AAPL", Price: float64(i), Quantity: 1})
	}

	recent := tp.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, 2.0, recent[0].Price)
	assert.Equal(t, 3.0, recent[1].Price)
}

func TestTape_RecentCappedByActualCount(t *testing.T) {
	tp := NewTape()
	tp.Push(Trade{Symbol: "AAPL", Price: 1})

	recent := tp.Recent(50)
	require.Len(t, recent, 1)
}

func TestTape_RecentEmptyTape(t *testing.T) {
	tp := NewTape()
	assert.Empty(t, tp.Recent(10))
}

func TestTape_WrapsAroundCapacity(t *testing.T) {
	tp := NewTape()
	for i := 0; i < tapeCapacity+5; i++ {
		tp.Push(Trade{Symbol: "AAPL", Price: float64(i)})
	}

	assert.Equal(t, uint64(tapeCapacity+5), tp.Count())

	recent := tp.Recent(3)
	require.Len(t, recent, 3)
	assert.Equal(t, float64(tapeCapacity+2), recent[0].Price)
	assert.Equal(t, float64(tapeCapacity+4), recent[2].Price)
}

func TestTape_PushFromReportsMapsBuySellBySide(t *testing.T) {
	tp := NewTape()

	aggressor := book.ExecutionReport{OrderID: 10, Counterparty: 5, Price: 100, Quantity: 20, Timestamp: 1}
	resting := book.ExecutionReport{OrderID: 5, Counterparty: 10, Price: 100, Quantity: 20, Timestamp: 1}

	tp.PushFromReports("AAPL", book.Buy, aggressor, resting)
	trade := tp.Recent(1)[0]
	assert.Equal(t, uint64(10), trade.BuyOrderID)
	assert.Equal(t, uint64(5), trade.SellOrderID)

	tp.PushFromReports("AAPL", book.Sell, aggressor, resting)
	trade = tp.Recent(1)[0]
	assert.Equal(t, uint64(5), trade.BuyOrderID)
	assert.Equal(t, uint64(10), trade.SellOrderID)
}

func TestTape_PushAllFromReportsHandlesMultiLevelSweep(t *testing.T) {
	tp := NewTape()
	reports := []book.ExecutionReport{
		{OrderID: 1, Counterparty: 2, Price: 100, Quantity: 10, Timestamp: 1},
		{OrderID: 2, Counterparty: 1, Price: 100, Quantity: 10, Timestamp: 1},
		{OrderID: 1, Counterparty: 3, Price: 101, Quantity: 5, Timestamp: 2},
		{OrderID: 3, Counterparty: 1, Price: 101, Quantity: 5, Timestamp: 2},
	}

	tp.PushAllFromReports("AAPL", book.Buy, reports)
	assert.Equal(t, uint64(2), tp.Count())

	recent := tp.Recent(2)
	assert.Equal(t, 100.0, recent[0].Price)
	assert.Equal(t, 101.0, recent[1].Price)
}
