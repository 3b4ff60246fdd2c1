package makers

import (
	"github.com/rs/zerolog"

	"matchbook/internal/matching"
)

// Pool owns a set of makers, one per symbol, and drives them sequentially
// each tick. The reference driver runs every maker on a single thread, which
// is also why each Maker gets its own RNG instance rather than sharing one
// process-wide generator (spec.md §5).
type Pool struct {
	makers []*Maker
	log    zerolog.Logger
}

// NewPool constructs a pool and a Maker for every cfg in cfgs, each wired to
// engine. Every cfg.Symbol must already be registered on engine.
func NewPool(cfgs []Config, engine *matching.Engine, logger zerolog.Logger) *Pool {
	makers := make([]*Maker, 0, len(cfgs))
	for _, cfg := range cfgs {
		makers = append(makers, New(cfg, engine, logger))
	}
	return &Pool{makers: makers, log: logger}
}

// UpdateAll runs one cancel-and-repost cycle for every maker in the pool, in
// order. Sequential (not concurrent) by construction: every maker's Update
// ultimately takes its own book's lock, and running them one at a time keeps
// the driver thread the sole owner of each maker's RNG and id slots.
func (p *Pool) UpdateAll() {
	for _, m := range p.makers {
		m.Update()
	}
}

// Makers returns the pool's makers, in construction order.
func (p *Pool) Makers() []*Maker {
	return p.makers
}
