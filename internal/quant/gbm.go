package quant

import "math"

// minPrice is the floor applied to every GBM step so that prices remain
// strictly positive, per spec.md §4.1.
const minPrice = 0.01

// GBM models a single symbol's fair-value price process under geometric
// Brownian motion: dS = mu*S*dt + sigma*S*dW, discretized as
// S(t+dt) = S(t) * exp((mu - sigma^2/2)*dt + sigma*sqrt(dt)*Z).
type GBM struct {
	S0      float64
	Mu      float64
	Sigma   float64
	Dt      float64
	current float64
	rng     *RNG
}

// NewGBM constructs a GBM model initialized to S0, driven by rng.
func NewGBM(s0, mu, sigma, dt float64, rng *RNG) *GBM {
	return &GBM{
		S0:      s0,
		Mu:      mu,
		Sigma:   sigma,
		Dt:      dt,
		current: s0,
		rng:     rng,
	}
}

// Current returns the model's current price without advancing it.
func (g *GBM) Current() float64 {
	return g.current
}

// NextPrice advances the model one time step and returns the new price. The
// result is always >= 0.01.
func (g *GBM) NextPrice() float64 {
	z := g.rng.Normal()
	drift := (g.Mu - g.Sigma*g.Sigma/2) * g.Dt
	diffusion := g.Sigma * math.Sqrt(g.Dt) * z
	next := g.current * math.Exp(drift+diffusion)
	if next < minPrice {
		next = minPrice
	}
	g.current = next
	return g.current
}

// Reset restores the model's current price to S0.
func (g *GBM) Reset() {
	g.current = g.S0
}
