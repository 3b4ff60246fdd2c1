// Package makers implements the synthetic liquidity generator: one market
// maker per symbol, each driven by its own GBM fair-price process, quoting a
// multi-level bid/ask ladder that it cancels and reposts every cycle, per
// spec.md §4.5.
package makers

import (
	"time"

	"github.com/rs/zerolog"

	"matchbook/internal/matching"
	"matchbook/internal/quant"
)

// Config holds one maker's static parameters, set at construction and
// immutable thereafter.
type Config struct {
	Symbol          string
	S0              float64 // initial fair price
	Mu              float64 // GBM drift
	Sigma           float64 // GBM volatility
	Dt              float64 // GBM time step, in years
	SpreadBps       float64 // half-spread = fair * SpreadBps / 20000
	LevelSpacingBps float64 // extra spacing per level = fair * LevelSpacingBps / 10000
	Levels          int     // number of price levels per side
	OrderSize       uint64  // resting quantity per level
	Seed            uint32  // per-maker RNG seed, spec.md §5's isolation fix
}

// tradingSecondsPerYear is 252 trading days of 6.5 trading hours each, the
// denominator spec.md §4.5 uses to express GBM's Δt in years.
const tradingSecondsPerYear = 252 * 6.5 * 3600

// ReferenceDt is the reference cadence: Δt = 0.1 / (252 * 6.5 * 3600) years
// per update, i.e. a tenth of a trading second, per spec.md §4.5.
const ReferenceDt = 0.1 / tradingSecondsPerYear

// YearsFromWallClock converts a wall-clock update interval into the Δt (in
// years) spec.md §4.5 expects the GBM model to be driven with, so a config
// cadence given in ordinary time.Duration units still lands on the model's
// trading-year timescale.
func YearsFromWallClock(d time.Duration) float64 {
	return d.Seconds() / tradingSecondsPerYear
}

// Maker owns one symbol's fair-price model and its currently-resting ladder
// of order identifiers. bidIDs/askIDs are fixed-length (Config.Levels), 0
// denoting an empty slot, exactly as spec.md §3 describes.
type Maker struct {
	cfg    Config
	model  *quant.GBM
	engine *matching.Engine

	bidIDs []uint64
	askIDs []uint64

	log zerolog.Logger
}

// New constructs a maker for cfg.Symbol, wired to engine and logging under
// logger. engine must already have cfg.Symbol registered.
func New(cfg Config, engine *matching.Engine, logger zerolog.Logger) *Maker {
	rng := quant.NewRNG(cfg.Seed)
	model := quant.NewGBM(cfg.S0, cfg.Mu, cfg.Sigma, cfg.Dt, rng)

	return &Maker{
		cfg:    cfg,
		model:  model,
		engine: engine,
		bidIDs: make([]uint64, cfg.Levels),
		askIDs: make([]uint64, cfg.Levels),
		log:    logger.With().Str("symbol", cfg.Symbol).Logger(),
	}
}

// Update runs one full cancel-and-repost cycle, per spec.md §4.5:
//  1. draw a new fair price from the GBM model.
//  2. cancel every currently-resting order from the previous cycle.
//  3. compute half-spread and level spacing from the new fair price.
//  4. submit a fresh N-level bid/ask ladder, recording the returned ids.
//
// Recording the ids returned by Submit (step 4) is the fix spec.md §9
// mandates over the reference, which never retains them and so cannot
// actually cancel its own stale ladder.
func (m *Maker) Update() {
	fair := m.model.NextPrice()

	m.cancelLadder()

	halfSpread := fair * m.cfg.SpreadBps / 20000
	levelSpacing := fair * m.cfg.LevelSpacingBps / 10000

	for i := 0; i < m.cfg.Levels; i++ {
		bidPrice := fair - halfSpread - float64(i)*levelSpacing
		askPrice := fair + halfSpread + float64(i)*levelSpacing

		if bidPrice > 0 {
			if id, ok := m.submitLevel(matching.Buy, bidPrice); ok {
				m.bidIDs[i] = id
			}
		}
		if id, ok := m.submitLevel(matching.Sell, askPrice); ok {
			m.askIDs[i] = id
		}
	}

	m.log.Debug().Float64("fair", fair).Msg("ladder reposted")
}

// submitLevel places one resting limit order and returns its assigned id.
// A submission that crosses immediately and fully fills leaves nothing
// resting, so there is nothing left to track in the ladder slot (ok=false);
// Cancel on that id next cycle would be a harmless no-op regardless, but
// there is no reason to carry it forward.
func (m *Maker) submitLevel(side matching.Side, price float64) (uint64, bool) {
	id, reports, err := m.engine.Submit(m.cfg.Symbol, side, matching.LimitOrder, price, m.cfg.OrderSize)
	if err != nil {
		m.log.Warn().Err(err).Str("side", side.String()).Float64("price", price).Msg("ladder submit rejected")
		return 0, false
	}

	filledQty := uint64(0)
	for _, r := range reports {
		if r.OrderID == id {
			filledQty += r.Quantity
		}
	}
	if filledQty >= m.cfg.OrderSize {
		return 0, false // fully crossed on entry, never rested
	}
	return id, true
}

// cancelLadder cancels every id currently tracked in bidIDs/askIDs and clears
// the slots. A zero slot or an id that the book no longer recognizes (already
// filled) is a silent no-op, matching spec.md §4.5 step 2.
func (m *Maker) cancelLadder() {
	for i, id := range m.bidIDs {
		if id != 0 {
			m.engine.Cancel(m.cfg.Symbol, id)
			m.bidIDs[i] = 0
		}
	}
	for i, id := range m.askIDs {
		if id != 0 {
			m.engine.Cancel(m.cfg.Symbol, id)
			m.askIDs[i] = 0
		}
	}
}

// FairPrice returns the maker's current modeled price without advancing it.
func (m *Maker) FairPrice() float64 {
	return m.model.Current()
}

// Symbol returns the symbol this maker quotes.
func (m *Maker) Symbol() string {
	return m.cfg.Symbol
}
