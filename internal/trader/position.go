package trader

import (
	"time"

	"github.com/0xxCool/SolanaMemeCoin-bot/internal/oracle"
)

// Close reason codes attached to trade records.
const (
	ReasonStopLoss     = "STOP_LOSS"
	ReasonProfitTarget = "PROFIT_TARGET"
	ReasonTrailingStop = "TRAILING_STOP"
	ReasonTimeLimit    = "TIME_LIMIT"
	ReasonOracleExit   = "ORACLE_EXIT"
	ReasonForced       = "FORCED"
)

// Position is one open holding. All fields are owned by the trader and
// mutated only under its lock; monitor loops work on snapshots.
type Position struct {
	TokenMint      string
	Symbol         string
	EntryPrice     float64 // SOL per token
	CurrentPrice   float64
	PeakPrice      float64
	InvestedSOL    float64
	TokenAmount    float64
	EntryTime      time.Time
	EntrySignature string
	Prediction     *oracle.Prediction

	// pending marks a slot reservation whose buy is still in flight.
	// A pending entry blocks rivals for the same token but is not an
	// open position: it is hidden from snapshots and cannot be closed.
	pending bool
}

// GainPct is the unrealized gain relative to entry, in percent.
func (p *Position) GainPct() float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return (p.CurrentPrice - p.EntryPrice) / p.EntryPrice * 100
}

// positionView is the immutable snapshot evaluateExit works on.
type positionView struct {
	entryPrice    float64
	currentPrice  float64
	peakPrice     float64
	heldFor       time.Duration
	predictedPeak time.Duration
	predictedRet  float64
}

func (p *Position) view(now time.Time) positionView {
	v := positionView{
		entryPrice:   p.EntryPrice,
		currentPrice: p.CurrentPrice,
		peakPrice:    p.PeakPrice,
		heldFor:      now.Sub(p.EntryTime),
	}
	if p.Prediction != nil {
		v.predictedPeak = p.Prediction.PredictedPeakIn
		v.predictedRet = p.Prediction.PredictedReturn
	}
	return v
}

// evaluateExit applies the exit rules in strict precedence order:
// stop-loss, take-profit, trailing stop, time limit, oracle exit.
// It returns the reason code for the first rule that fires.
func evaluateExit(s Settings, v positionView) (string, bool) {
	if v.entryPrice == 0 {
		return "", false
	}
	gainPct := (v.currentPrice - v.entryPrice) / v.entryPrice * 100

	if gainPct <= -s.StopLossPct {
		return ReasonStopLoss, true
	}

	if gainPct >= s.TakeProfitPct {
		return ReasonProfitTarget, true
	}

	if v.peakPrice > 0 {
		drawdownPct := (v.peakPrice - v.currentPrice) / v.peakPrice * 100
		if drawdownPct > s.TrailingStopPct && gainPct > s.TrailingMinGainPct {
			return ReasonTrailingStop, true
		}
	}

	if v.heldFor > s.MaxHold && gainPct < s.TrailingMinGainPct {
		return ReasonTimeLimit, true
	}

	if v.predictedPeak > 0 && v.heldFor > v.predictedPeak && gainPct < v.predictedRet/2 {
		return ReasonOracleExit, true
	}

	return "", false
}
