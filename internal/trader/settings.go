package trader

import (
	"sync"
	"time"

	"github.com/0xxCool/SolanaMemeCoin-bot/internal/config"
)

// Settings are the live auto-trade thresholds. They start from config
// and can be changed at runtime through the control surface.
type Settings struct {
	AutoBuyEnabled     bool
	AutoSellEnabled    bool
	MinConfidence      float64
	MaxRisk            float64
	MinPredictedReturn float64
	MaxPerTradeSOL     float64
	DailyLimitSOL      float64
	StopLossPct        float64
	TakeProfitPct      float64
	TrailingStopPct    float64
	TrailingMinGainPct float64
	MaxHold            time.Duration
}

func settingsFromConfig(cfg config.TradingConfig) Settings {
	return Settings{
		AutoBuyEnabled:     cfg.AutoBuyEnabled,
		AutoSellEnabled:    cfg.AutoSellEnabled,
		MinConfidence:      cfg.MinConfidence,
		MaxRisk:            cfg.MaxRisk,
		MinPredictedReturn: cfg.MinPredictedReturn,
		MaxPerTradeSOL:     cfg.MaxPerTradeSOL,
		DailyLimitSOL:      cfg.DailyLimitSOL,
		StopLossPct:        cfg.StopLossPct,
		TakeProfitPct:      cfg.TakeProfitPct,
		TrailingStopPct:    cfg.TrailingStopPct,
		TrailingMinGainPct: cfg.TrailingMinGainPct,
		MaxHold:            time.Duration(cfg.MaxHoldMinutes) * time.Minute,
	}
}

// settingsStore guards the live settings. Readers take a snapshot; no
// caller ever holds a reference into the store.
type settingsStore struct {
	mu sync.RWMutex
	s  Settings
}

func (st *settingsStore) get() Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s
}

func (st *settingsStore) update(fn func(*Settings)) Settings {
	st.mu.Lock()
	defer st.mu.Unlock()
	fn(&st.s)
	return st.s
}
