package feed

import (
	"time"

	"github.com/rs/zerolog"

	"matchbook/internal/matching"
)

// Snapshot is a single symbol's top-of-book view at the moment it was
// sampled, per spec.md §6's MARKET_DATA message.
type Snapshot struct {
	Symbol         string
	BestBid        float64
	BestAsk        float64
	LastTradePrice float64
	LastTradeQty   uint64
	Timestamp      int64
}

// Sink receives each tick's snapshots. The TCP protocol encoder and the
// websocket hub both implement it.
type Sink interface {
	Publish(snapshots []Snapshot)
}

// Broadcaster samples every registered symbol's top-of-book on a fixed
// cadence and fans the resulting snapshots out to every attached sink, per
// spec.md §2's periodic market-data tick.
type Broadcaster struct {
	engine *matching.Engine
	sinks  []Sink
	period time.Duration
	log    zerolog.Logger
}

// NewBroadcaster constructs a broadcaster sampling engine every period.
func NewBroadcaster(engine *matching.Engine, period time.Duration, logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{engine: engine, period: period, log: logger}
}

// Attach registers a sink to receive every future tick's snapshots.
func (bc *Broadcaster) Attach(sink Sink) {
	bc.sinks = append(bc.sinks, sink)
}

// Run ticks every bc.period, sampling and publishing, until stopCh closes.
func (bc *Broadcaster) Run(stopCh <-chan struct{}) {
	ticker := time.NewTicker(bc.period)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			bc.tick()
		}
	}
}

func (bc *Broadcaster) tick() {
	symbols := bc.engine.Symbols()
	snapshots := make([]Snapshot, 0, len(symbols))

	for _, sym := range symbols {
		bid, _ := bc.engine.BestBid(sym)
		ask, _ := bc.engine.BestAsk(sym)
		price, qty, _ := bc.engine.LastTrade(sym)

		snapshots = append(snapshots, Snapshot{
			Symbol:         sym,
			BestBid:        bid,
			BestAsk:        ask,
			LastTradePrice: price,
			LastTradeQty:   qty,
			Timestamp:      nowMicros(),
		})
	}

	for _, sink := range bc.sinks {
		sink.Publish(snapshots)
	}

	bc.log.Debug().Int("symbols", len(snapshots)).Msg("market data tick")
}
