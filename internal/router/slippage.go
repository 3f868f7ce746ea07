package router

import (
	"strings"
	"sync"
)

const (
	maxSlippageBps   = 1000
	slippageHistoryN = 1000
)

// OrderbookSnapshot is an optional depth view used to refine a prediction.
type OrderbookSnapshot struct {
	SpreadPct  float64 // percent spread between best bid and ask
	DepthRatio float64 // trade size relative to visible depth at the touch
}

type executionSample struct {
	predictedBps float64
	actualBps    float64
}

// SlippagePredictor estimates slippage for a trade from its size relative
// to pool liquidity, optionally refined by orderbook depth, and corrected
// by the historical prediction error for the token.
type SlippagePredictor struct {
	mu      sync.Mutex
	history map[string][]executionSample
}

func NewSlippagePredictor() *SlippagePredictor {
	return &SlippagePredictor{
		history: make(map[string][]executionSample),
	}
}

// baseSlippageBps maps the trade/liquidity ratio to a base estimate.
func baseSlippageBps(ratio float64) float64 {
	switch {
	case ratio < 0.001:
		return 30
	case ratio < 0.01:
		return 50 + ratio*5000
	case ratio < 0.05:
		return 100 + ratio*2000
	case ratio < 0.1:
		return 200 + ratio*3000
	default:
		bps := 100 + ratio*5000
		if bps > 500 {
			bps = 500
		}
		return bps
	}
}

// Predict estimates slippage in basis points for a trade of sizeSOL
// against a pool with the given liquidity (any unit, as long as it is
// consistent across calls). book may be nil when no depth data is
// available. The result is capped at 1000 bps.
func (p *SlippagePredictor) Predict(tokenMint string, sizeSOL, liquidity float64, book *OrderbookSnapshot) float64 {
	if liquidity <= 0 {
		return maxSlippageBps
	}

	ratio := sizeSOL / liquidity
	bps := baseSlippageBps(ratio)

	if book != nil {
		bps += book.SpreadPct * 100
		if book.DepthRatio > 0.1 {
			bps *= 1 + book.DepthRatio
		}
	}

	bps *= p.historicalAdjustment(tokenMint)

	if bps > maxSlippageBps {
		bps = maxSlippageBps
	}
	return bps
}

// historicalAdjustment returns the mean actual/predicted ratio for the
// token, bounded to [0.5, 2.0]. No history means no correction.
func (p *SlippagePredictor) historicalAdjustment(tokenMint string) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	samples := p.history[normalizeMint(tokenMint)]
	if len(samples) == 0 {
		return 1.0
	}

	var sum float64
	var n int
	for _, s := range samples {
		if s.predictedBps <= 0 {
			continue
		}
		sum += s.actualBps / s.predictedBps
		n++
	}
	if n == 0 {
		return 1.0
	}

	adj := sum / float64(n)
	if adj < 0.5 {
		adj = 0.5
	}
	if adj > 2.0 {
		adj = 2.0
	}
	return adj
}

// RecordExecution feeds back the realized slippage of a fill. History is
// bounded per token; the oldest samples are dropped first.
func (p *SlippagePredictor) RecordExecution(tokenMint string, predictedBps, actualBps float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := normalizeMint(tokenMint)
	samples := append(p.history[key], executionSample{predictedBps: predictedBps, actualBps: actualBps})
	if len(samples) > slippageHistoryN {
		samples = samples[len(samples)-slippageHistoryN:]
	}
	p.history[key] = samples
}

func normalizeMint(mint string) string {
	return strings.TrimSpace(mint)
}
