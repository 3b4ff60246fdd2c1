package feed

import (
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchbook/internal/matching"
)

type recordingSink struct {
	mu   chan struct{}
	last []Snapshot
}

func newRecordingSink() *recordingSink {
	return &recordingSink{mu: make(chan struct{}, 8)}
}

func (s *recordingSink) Publish(snapshots []Snapshot) {
	s.last = snapshots
	select {
	case s.mu <- struct{}{}:
	default:
	}
}

func TestBroadcaster_TicksProduceSnapshotsForEverySymbol(t *testing.T) {
	engine := matching.New(matching.DefaultCapacity)
	require.NoError(t, engine.AddSymbol("AAPL", 150.0))
	require.NoError(t, engine.AddSymbol("MSFT", 300.0))

	_, _, err := engine.Submit("AAPL", matching.Buy, matching.LimitOrder, 100.0, 10)
	require.NoError(t, err)

	sink := newRecordingSink()
	bc := NewBroadcaster(engine, 5*time.Millisecond, zerolog.New(io.Discard))
	bc.Attach(sink)

	stop := make(chan struct{})
	go bc.Run(stop)
	defer close(stop)

	select {
	case <-sink.mu:
	case <-time.After(time.Second):
		t.Fatal("broadcaster never ticked")
	}

	require.Len(t, sink.last, 2)
	bySymbol := map[string]Snapshot{}
	for _, s := range sink.last {
		bySymbol[s.Symbol] = s
	}
	assert.Equal(t, 100.0, bySymbol["AAPL"].BestBid)
	assert.Equal(t, 0.0, bySymbol["MSFT"].BestBid)
}
