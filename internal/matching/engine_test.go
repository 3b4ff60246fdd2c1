package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_AddSymbolAndSubmit(t *testing.T) {
	e := New(DefaultCapacity)

	require.NoError(t, e.AddSymbol("AAPL", 150.0))

	id, reports, err := e.Submit("AAPL", Sell, LimitOrder, 100.0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
	assert.Empty(t, reports)

	bid, ok := e.BestAsk("AAPL")
	require.True(t, ok)
	assert.Equal(t, 100.0, bid)
}

func TestEngine_DuplicateSymbolRejected(t *testing.T) {
	e := New(DefaultCapacity)
	require.NoError(t, e.AddSymbol("AAPL", 150.0))
	assert.ErrorIs(t, e.AddSymbol("AAPL", 151.0), ErrDuplicateSymbol)
}

func TestEngine_RegistryFull(t *testing.T) {
	e := New(2)
	require.NoError(t, e.AddSymbol("A", 1.0))
	require.NoError(t, e.AddSymbol("B", 1.0))
	assert.ErrorIs(t, e.AddSymbol("C", 1.0), ErrRegistryFull)
}

func TestEngine_SymbolTooLong(t *testing.T) {
	e := New(DefaultCapacity)
	err := e.AddSymbol("THIS-SYMBOL-IS-FAR-TOO-LONG", 1.0)
	assert.ErrorIs(t, err, ErrSymbolTooLong)
}

func TestEngine_InvalidInitialPrice(t *testing.T) {
	e := New(DefaultCapacity)
	assert.ErrorIs(t, e.AddSymbol("AAPL", 0), ErrInvalidInitialPrice)
	assert.ErrorIs(t, e.AddSymbol("AAPL", -5), ErrInvalidInitialPrice)
}

func TestEngine_UnknownSymbolOperations(t *testing.T) {
	e := New(DefaultCapacity)

	_, _, err := e.Submit("GHOST", Buy, LimitOrder, 10.0, 1)
	assert.ErrorIs(t, err, ErrUnknownSymbol)

	assert.False(t, e.Cancel("GHOST", 1))

	_, ok := e.BestBid("GHOST")
	assert.False(t, ok)
	_, ok = e.BestAsk("GHOST")
	assert.False(t, ok)
	_, _, ok = e.LastTrade("GHOST")
	assert.False(t, ok)
	_, ok = e.Depth("GHOST", Buy, 5)
	assert.False(t, ok)
}

func TestEngine_CancelDelegates(t *testing.T) {
	e := New(DefaultCapacity)
	require.NoError(t, e.AddSymbol("AAPL", 150.0))

	_, _, err := e.Submit("AAPL", Buy, LimitOrder, 100.0, 10)
	require.NoError(t, err)

	assert.True(t, e.Cancel("AAPL", 1))
	assert.False(t, e.Cancel("AAPL", 1))
}

func TestEngine_IsolatedBooksPerSymbol(t *testing.T) {
	e := New(DefaultCapacity)
	require.NoError(t, e.AddSymbol("AAPL", 150.0))
	require.NoError(t, e.AddSymbol("MSFT", 300.0))

	_, _, err := e.Submit("AAPL", Buy, LimitOrder, 100.0, 10)
	require.NoError(t, err)

	bid, ok := e.BestBid("AAPL")
	require.True(t, ok)
	assert.Equal(t, 100.0, bid)

	bid, ok = e.BestBid("MSFT")
	require.True(t, ok)
	assert.Equal(t, 0.0, bid)
}

func TestEngine_SymbolsSnapshotIsRegistrationOrder(t *testing.T) {
	e := New(DefaultCapacity)
	require.NoError(t, e.AddSymbol("AAPL", 150.0))
	require.NoError(t, e.AddSymbol("MSFT", 300.0))
	require.NoError(t, e.AddSymbol("GOOG", 140.0))

	assert.Equal(t, []string{"AAPL", "MSFT", "GOOG"}, e.Symbols())
}
