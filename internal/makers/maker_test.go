package makers

import (
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchbook/internal/matching"
)

func testEngine(t *testing.T, symbol string, initialPrice float64) *matching.Engine {
	t.Helper()
	e := matching.New(matching.DefaultCapacity)
	require.NoError(t, e.AddSymbol(symbol, initialPrice))
	return e
}

func silentLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func baseConfig(symbol string) Config {
	return Config{
		Symbol:          symbol,
		S0:              100.0,
		Mu:              0,
		Sigma:           0.2,
		Dt:              ReferenceDt,
		SpreadBps:       20,
		LevelSpacingBps: 5,
		Levels:          3,
		OrderSize:       100,
		Seed:            1,
	}
}

func TestMaker_UpdatePostsLadderBothSides(t *testing.T) {
	e := testEngine(t, "AAPL", 100.0)
	m := New(baseConfig("AAPL"), e, silentLogger())

	m.Update()

	bidDepth, ok := e.Depth("AAPL", matching.Buy, 10)
	require.True(t, ok)
	askDepth, ok := e.Depth("AAPL", matching.Sell, 10)
	require.True(t, ok)

	assert.Len(t, bidDepth, baseConfig("AAPL").Levels)
	assert.Len(t, askDepth, baseConfig("AAPL").Levels)

	for _, slot := range m.bidIDs {
		assert.NotZero(t, slot)
	}
	for _, slot := range m.askIDs {
		assert.NotZero(t, slot)
	}
}

func TestMaker_SecondCycleCancelsFirstLadder(t *testing.T) {
	e := testEngine(t, "AAPL", 100.0)
	m := New(baseConfig("AAPL"), e, silentLogger())

	m.Update()
	firstBidIDs := append([]uint64(nil), m.bidIDs...)
	firstAskIDs := append([]uint64(nil), m.askIDs...)

	m.Update()

	// The prior cycle's ids must no longer be live: cancelling them again
	// must report nothing to cancel.
	for _, id := range firstBidIDs {
		if id != 0 {
			assert.False(t, e.Cancel("AAPL", id), "stale bid id %d should already be cancelled", id)
		}
	}
	for _, id := range firstAskIDs {
		if id != 0 {
			assert.False(t, e.Cancel("AAPL", id), "stale ask id %d should already be cancelled", id)
		}
	}

	// But the book should still be quoting a fresh ladder of the same
	// shape from the second cycle.
	bidDepth, _ := e.Depth("AAPL", matching.Buy, 10)
	assert.Len(t, bidDepth, baseConfig("AAPL").Levels)
}

func TestMaker_LadderStraddlesFairPrice(t *testing.T) {
	e := testEngine(t, "AAPL", 100.0)
	m := New(baseConfig("AAPL"), e, silentLogger())

	m.Update()

	bid, ok := e.BestBid("AAPL")
	require.True(t, ok)
	ask, ok := e.BestAsk("AAPL")
	require.True(t, ok)

	assert.Less(t, bid, ask)
	fair := m.FairPrice()
	assert.Less(t, bid, fair)
	assert.Greater(t, ask, fair)
}

func TestMaker_DeterministicGivenSameSeed(t *testing.T) {
	e1 := testEngine(t, "AAPL", 100.0)
	e2 := testEngine(t, "AAPL", 100.0)

	m1 := New(baseConfig("AAPL"), e1, silentLogger())
	m2 := New(baseConfig("AAPL"), e2, silentLogger())

	m1.Update()
	m2.Update()

	assert.Equal(t, m1.FairPrice(), m2.FairPrice())

	bid1, _ := e1.BestBid("AAPL")
	bid2, _ := e2.BestBid("AAPL")
	assert.Equal(t, bid1, bid2)
}

func TestPool_UpdateAllDrivesEveryMaker(t *testing.T) {
	e := matching.New(matching.DefaultCapacity)
	require.NoError(t, e.AddSymbol("AAPL", 100.0))
	require.NoError(t, e.AddSymbol("MSFT", 300.0))

	pool := NewPool([]Config{baseConfig("AAPL"), baseConfig("MSFT")}, e, silentLogger())
	pool.UpdateAll()

	for _, sym := range []string{"AAPL", "MSFT"} {
		bid, ok := e.BestBid(sym)
		require.True(t, ok)
		assert.Greater(t, bid, 0.0)
	}
}
