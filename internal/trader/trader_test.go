package trader

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/0xxCool/SolanaMemeCoin-bot/internal/config"
	"github.com/0xxCool/SolanaMemeCoin-bot/internal/domain"
	"github.com/0xxCool/SolanaMemeCoin-bot/internal/events"
	"github.com/0xxCool/SolanaMemeCoin-bot/internal/oracle"
	"github.com/0xxCool/SolanaMemeCoin-bot/internal/router"
)

type fakeExecutor struct {
	mu       sync.Mutex
	slip     *router.SlippagePredictor
	buyOut   uint64        // token base units returned for a buy
	sellOut  uint64        // lamports returned for a sell
	buyGate  chan struct{} // when set, buy quotes block until it closes
	quoteErr error
	execErr  error
	prices   []float64
	priceIdx int
	priceErr error
	buys     int
	sells    int
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{slip: router.NewSlippagePredictor()}
}

func (f *fakeExecutor) BestQuote(_ context.Context, inputMint, outputMint string, amount uint64, _ int) (*router.Decision, error) {
	f.mu.Lock()
	if f.quoteErr != nil {
		f.mu.Unlock()
		return nil, f.quoteErr
	}
	out := f.buyOut
	gate := f.buyGate
	if outputMint == domain.WrappedSOL {
		out = f.sellOut
		gate = nil
	}
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return &router.Decision{
		InputMint:  inputMint,
		OutputMint: outputMint,
		InAmount:   amount,
		OutAmount:  out,
	}, nil
}

func (f *fakeExecutor) Execute(_ context.Context, decision *router.Decision) (*router.ExecResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.execErr != nil {
		return nil, f.execErr
	}
	if decision.OutputMint == domain.WrappedSOL {
		f.sells++
	} else {
		f.buys++
	}
	return &router.ExecResult{Signatures: []string{"sig-fake"}}, nil
}

func (f *fakeExecutor) TokenPrice(_ context.Context, _ string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.priceErr != nil {
		return 0, f.priceErr
	}
	if len(f.prices) == 0 {
		return 0, errors.New("no prices configured")
	}
	price := f.prices[f.priceIdx]
	if f.priceIdx < len(f.prices)-1 {
		f.priceIdx++
	}
	return price, nil
}

func (f *fakeExecutor) Slippage() *router.SlippagePredictor { return f.slip }

func (f *fakeExecutor) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buys, f.sells
}

func testTradingConfig() config.TradingConfig {
	return config.TradingConfig{
		AutoBuyEnabled:     true,
		AutoSellEnabled:    false,
		MinConfidence:      0.7,
		MaxRisk:            0.5,
		MinPredictedReturn: 20,
		MaxPerTradeSOL:     0.5,
		DailyLimitSOL:      2,
		StopLossPct:        30,
		TakeProfitPct:      50,
		TrailingStopPct:    20,
		TrailingMinGainPct: 10,
		MaxHoldMinutes:     60,
		MonitorIntervalMS:  5000,
	}
}

func goodPrediction() *oracle.Prediction {
	return &oracle.Prediction{
		PredictedReturn:     40,
		Confidence:          0.8,
		RiskScore:           0.3,
		RugProbability:      0.1,
		HoneypotProbability: 0.05,
		RecommendedAction:   oracle.ActionBuySmall,
		SuggestedAmountSOL:  1.0,
		PredictedPeakIn:     30 * time.Minute,
	}
}

func candidate(token string) domain.Analysis {
	return domain.Analysis{
		TokenAddress: token,
		Symbol:       "TKN",
		LiquidityUSD: 20000,
	}
}

func newTestTrader(t *testing.T, cfg config.TradingConfig, exec Executor) *Trader {
	t.Helper()
	tr := New(cfg, exec, nil, zaptest.NewLogger(t))
	require.NoError(t, tr.Start(context.Background()))
	t.Cleanup(tr.Stop)
	return tr
}

func TestProcessCandidate_OpensPosition(t *testing.T) {
	exec := newFakeExecutor()
	exec.buyOut = 500_000 // 0.5 tokens for the clipped 0.5 SOL buy
	tr := newTestTrader(t, testTradingConfig(), exec)

	opened, err := tr.ProcessCandidate(context.Background(), candidate("mintA"), goodPrediction())
	require.NoError(t, err)
	require.True(t, opened)

	positions := tr.Positions()
	require.Len(t, positions, 1)
	pos := positions[0]
	assert.Equal(t, "mintA", pos.TokenMint)
	assert.Equal(t, 0.5, pos.InvestedSOL, "suggested 1.0 * confidence 0.8 clipped to max per trade")
	assert.InDelta(t, 1.0, pos.EntryPrice, 1e-9)
	assert.Equal(t, "sig-fake", pos.EntrySignature)

	stats := tr.Stats()
	assert.Equal(t, uint64(1), stats.AutoBuys)
	assert.Equal(t, 1, stats.OpenPositions)
	assert.InDelta(t, 0.5, stats.DailySpentSOL, 1e-9)
}

func TestProcessCandidate_EntryGate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*oracle.Prediction)
	}{
		{"low confidence", func(p *oracle.Prediction) { p.Confidence = 0.5 }},
		{"high risk", func(p *oracle.Prediction) { p.RiskScore = 0.6 }},
		{"low predicted return", func(p *oracle.Prediction) { p.PredictedReturn = 10 }},
		{"skip action", func(p *oracle.Prediction) { p.RecommendedAction = oracle.ActionSkip }},
		{"rug probability", func(p *oracle.Prediction) { p.RugProbability = 0.35 }},
		{"honeypot probability", func(p *oracle.Prediction) { p.HoneypotProbability = 0.25 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := newFakeExecutor()
			exec.buyOut = 500_000
			tr := newTestTrader(t, testTradingConfig(), exec)

			pred := goodPrediction()
			tt.mutate(pred)

			opened, err := tr.ProcessCandidate(context.Background(), candidate("mintA"), pred)
			require.NoError(t, err)
			assert.False(t, opened)
			assert.Empty(t, tr.Positions())
		})
	}
}

func TestProcessCandidate_NilPredictionSkips(t *testing.T) {
	exec := newFakeExecutor()
	tr := newTestTrader(t, testTradingConfig(), exec)

	opened, err := tr.ProcessCandidate(context.Background(), candidate("mintA"), nil)
	require.NoError(t, err)
	assert.False(t, opened, "missing oracle verdict must never trade")
}

func TestProcessCandidate_OnePositionPerToken(t *testing.T) {
	exec := newFakeExecutor()
	exec.buyOut = 500_000
	tr := newTestTrader(t, testTradingConfig(), exec)

	opened, err := tr.ProcessCandidate(context.Background(), candidate("mintA"), goodPrediction())
	require.NoError(t, err)
	require.True(t, opened)

	again, err := tr.ProcessCandidate(context.Background(), candidate("mintA"), goodPrediction())
	require.NoError(t, err)
	assert.False(t, again)

	buys, _ := exec.counts()
	assert.Equal(t, 1, buys)
}

func TestProcessCandidate_AutoBuyDisabled(t *testing.T) {
	exec := newFakeExecutor()
	cfg := testTradingConfig()
	cfg.AutoBuyEnabled = false
	tr := newTestTrader(t, cfg, exec)

	opened, err := tr.ProcessCandidate(context.Background(), candidate("mintA"), goodPrediction())
	require.NoError(t, err)
	assert.False(t, opened)
}

func TestProcessCandidate_BuyFailureReleasesSlot(t *testing.T) {
	exec := newFakeExecutor()
	exec.buyOut = 500_000
	exec.execErr = errors.New("swap rejected")
	tr := newTestTrader(t, testTradingConfig(), exec)

	opened, err := tr.ProcessCandidate(context.Background(), candidate("mintA"), goodPrediction())
	require.Error(t, err)
	assert.False(t, opened)
	assert.Empty(t, tr.Positions())

	// The slot is free again once the failed buy is unwound.
	exec.mu.Lock()
	exec.execErr = nil
	exec.mu.Unlock()
	opened, err = tr.ProcessCandidate(context.Background(), candidate("mintA"), goodPrediction())
	require.NoError(t, err)
	assert.True(t, opened)
}

func TestProcessCandidate_DailyBudget(t *testing.T) {
	exec := newFakeExecutor()
	exec.buyOut = 500_000
	cfg := testTradingConfig()
	cfg.DailyLimitSOL = 1.2
	tr := newTestTrader(t, cfg, exec)

	current := time.Unix(50_000, 0)
	tr.now = func() time.Time { return current }

	// 0.5 + 0.5 spent, 0.2 left; the third buy is clipped to the
	// remainder, the fourth has nothing left.
	for i, token := range []string{"m1", "m2", "m3"} {
		opened, err := tr.ProcessCandidate(context.Background(), candidate(token), goodPrediction())
		require.NoError(t, err, "buy %d", i)
		require.True(t, opened, "buy %d", i)
	}
	positions := tr.Positions()
	var total float64
	for _, p := range positions {
		total += p.InvestedSOL
	}
	assert.InDelta(t, 1.2, total, 1e-9)

	opened, err := tr.ProcessCandidate(context.Background(), candidate("m4"), goodPrediction())
	require.NoError(t, err)
	assert.False(t, opened, "daily budget exhausted")

	// The budget window rolls: a day later the spends expire.
	current = current.Add(25 * time.Hour)
	opened, err = tr.ProcessCandidate(context.Background(), candidate("m5"), goodPrediction())
	require.NoError(t, err)
	assert.True(t, opened)
}

func TestSizePosition(t *testing.T) {
	s := settingsFromConfig(testTradingConfig())

	pred := goodPrediction()
	assert.Equal(t, 0.5, sizePosition(s, pred, 10), "clipped to max per trade")

	pred.SuggestedAmountSOL = 0.2
	assert.InDelta(t, 0.16, sizePosition(s, pred, 10), 1e-9)

	pred.SuggestedAmountSOL = 0.001
	assert.Equal(t, minPositionSOL, sizePosition(s, pred, 10), "clipped up to the minimum")

	pred.SuggestedAmountSOL = 0.2
	assert.InDelta(t, 0.05, sizePosition(s, pred, 0.05), 1e-9, "capped by remaining budget")
}

func TestClosePosition_NoOpWhenAbsent(t *testing.T) {
	exec := newFakeExecutor()
	tr := newTestTrader(t, testTradingConfig(), exec)

	require.NoError(t, tr.ClosePosition(context.Background(), "ghost", ReasonForced))
	assert.Equal(t, uint64(0), tr.Stats().Trades)
}

func TestClosePosition_RealizesPnL(t *testing.T) {
	exec := newFakeExecutor()
	exec.buyOut = 500_000      // 0.5 tokens at entry price 1.0
	exec.sellOut = 750_000_000 // 0.75 SOL back
	tr := newTestTrader(t, testTradingConfig(), exec)

	opened, err := tr.ProcessCandidate(context.Background(), candidate("mintA"), goodPrediction())
	require.NoError(t, err)
	require.True(t, opened)

	require.NoError(t, tr.ClosePosition(context.Background(), "mintA", ReasonProfitTarget))
	assert.Empty(t, tr.Positions())

	stats := tr.Stats()
	assert.Equal(t, uint64(1), stats.Trades)
	assert.Equal(t, uint64(1), stats.Wins)
	assert.InDelta(t, 0.25, stats.RealizedSOL, 1e-9)

	// Closing again is a no-op.
	require.NoError(t, tr.ClosePosition(context.Background(), "mintA", ReasonForced))
	assert.Equal(t, uint64(1), tr.Stats().Trades)
}

func TestEvaluateExit_Precedence(t *testing.T) {
	s := settingsFromConfig(testTradingConfig())

	tests := []struct {
		name       string
		view       positionView
		wantReason string
		wantExit   bool
	}{
		{
			name:       "stop loss",
			view:       positionView{entryPrice: 1, currentPrice: 0.6, peakPrice: 1},
			wantReason: ReasonStopLoss,
			wantExit:   true,
		},
		{
			// Stop-loss wins even when the drawdown from peak is huge.
			name:       "stop loss beats trailing stop",
			view:       positionView{entryPrice: 1, currentPrice: 0.7, peakPrice: 3},
			wantReason: ReasonStopLoss,
			wantExit:   true,
		},
		{
			name:       "take profit",
			view:       positionView{entryPrice: 1, currentPrice: 1.6, peakPrice: 1.6},
			wantReason: ReasonProfitTarget,
			wantExit:   true,
		},
		{
			name:       "trailing stop",
			view:       positionView{entryPrice: 1, currentPrice: 1.2, peakPrice: 1.6},
			wantReason: ReasonTrailingStop,
			wantExit:   true,
		},
		{
			name:       "trailing needs minimum gain",
			view:       positionView{entryPrice: 1, currentPrice: 1.05, peakPrice: 1.4},
			wantExit:   false,
		},
		{
			name:       "time limit on flat position",
			view:       positionView{entryPrice: 1, currentPrice: 1.02, peakPrice: 1.05, heldFor: 2 * time.Hour},
			wantReason: ReasonTimeLimit,
			wantExit:   true,
		},
		{
			name:       "past predicted peak underperforming",
			view:       positionView{entryPrice: 1, currentPrice: 1.12, peakPrice: 1.13, heldFor: 40 * time.Minute, predictedPeak: 30 * time.Minute, predictedRet: 40},
			wantReason: ReasonOracleExit,
			wantExit:   true,
		},
		{
			name:     "healthy position holds",
			view:     positionView{entryPrice: 1, currentPrice: 1.2, peakPrice: 1.25, heldFor: 10 * time.Minute, predictedPeak: 30 * time.Minute, predictedRet: 40},
			wantExit: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, exit := evaluateExit(s, tt.view)
			assert.Equal(t, tt.wantExit, exit)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestMonitor_TrailingStopEndToEnd(t *testing.T) {
	exec := newFakeExecutor()
	exec.buyOut = 500_000      // entry price 1.0
	exec.sellOut = 750_000_000 // exit at 1.5
	exec.prices = []float64{2.0, 1.5}

	cfg := testTradingConfig()
	cfg.AutoSellEnabled = true
	cfg.TakeProfitPct = 200 // keep take-profit out of the way
	cfg.MonitorIntervalMS = 10

	logger := zaptest.NewLogger(t)
	bus := events.NewBus(logger, 16)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = bus.Shutdown(ctx)
	}()

	closed := make(chan domain.TradeRecord, 1)
	bus.SubscribeFunc(events.TradeClosed, func(_ context.Context, ev events.Event) error {
		closed <- ev.(events.TradeClosedEvent).Record
		return nil
	})

	tr := New(cfg, exec, bus, logger)
	require.NoError(t, tr.Start(context.Background()))
	defer tr.Stop()

	opened, err := tr.ProcessCandidate(context.Background(), candidate("mintA"), goodPrediction())
	require.NoError(t, err)
	require.True(t, opened)

	select {
	case record := <-closed:
		assert.Equal(t, ReasonTrailingStop, record.Reason)
		assert.InDelta(t, 0.25, record.PnLSOL, 1e-9)
		assert.InDelta(t, 50, record.PnLPercent, 1e-9)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for trailing stop close")
	}

	assert.Empty(t, tr.Positions())
	assert.Equal(t, uint64(1), tr.Stats().AutoSells)
}

func TestToggles(t *testing.T) {
	exec := newFakeExecutor()
	tr := newTestTrader(t, testTradingConfig(), exec)

	tr.EnableAutoBuy(false)
	assert.False(t, tr.Settings().AutoBuyEnabled)
	tr.EnableAutoSell(true)
	assert.True(t, tr.Settings().AutoSellEnabled)

	updated := tr.UpdateSettings(func(s *Settings) { s.MaxPerTradeSOL = 1.5 })
	assert.Equal(t, 1.5, updated.MaxPerTradeSOL)
	assert.Equal(t, 1.5, tr.Settings().MaxPerTradeSOL)
}

func TestMonitor_AutoSellEnabledAfterOpen(t *testing.T) {
	exec := newFakeExecutor()
	exec.buyOut = 500_000      // entry price 1.0
	exec.sellOut = 250_000_000 // exit at 0.5
	exec.prices = []float64{0.5}

	cfg := testTradingConfig()
	cfg.AutoSellEnabled = false
	cfg.MonitorIntervalMS = 10

	logger := zaptest.NewLogger(t)
	bus := events.NewBus(logger, 16)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = bus.Shutdown(ctx)
	}()

	closed := make(chan domain.TradeRecord, 1)
	bus.SubscribeFunc(events.TradeClosed, func(_ context.Context, ev events.Event) error {
		closed <- ev.(events.TradeClosedEvent).Record
		return nil
	})

	tr := New(cfg, exec, bus, logger)
	require.NoError(t, tr.Start(context.Background()))
	defer tr.Stop()

	opened, err := tr.ProcessCandidate(context.Background(), candidate("mintA"), goodPrediction())
	require.NoError(t, err)
	require.True(t, opened)

	// The price is already through the stop loss, but exits stay off
	// until the flag flips.
	time.Sleep(50 * time.Millisecond)
	require.Len(t, tr.Positions(), 1)

	tr.EnableAutoSell(true)

	select {
	case record := <-closed:
		assert.Equal(t, ReasonStopLoss, record.Reason)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for stop loss after enabling auto-sell")
	}

	assert.Empty(t, tr.Positions())
	assert.Equal(t, uint64(1), tr.Stats().AutoSells)
}

func TestProcessCandidate_PendingReservationHidden(t *testing.T) {
	exec := newFakeExecutor()
	exec.buyOut = 500_000
	exec.prices = []float64{1.0}
	gate := make(chan struct{})
	exec.buyGate = gate

	tr := newTestTrader(t, testTradingConfig(), exec)

	type result struct {
		opened bool
		err    error
	}
	done := make(chan result, 1)
	go func() {
		opened, err := tr.ProcessCandidate(context.Background(), candidate("mintA"), goodPrediction())
		done <- result{opened, err}
	}()

	// Wait for the slot reservation to land while the buy is blocked.
	require.Eventually(t, func() bool {
		tr.mu.Lock()
		defer tr.mu.Unlock()
		_, ok := tr.positions["mintA"]
		return ok
	}, time.Second, 5*time.Millisecond)

	// The reservation is not an open position.
	assert.Empty(t, tr.Positions())
	assert.Equal(t, 0, tr.Stats().OpenPositions)

	// Closing during the fill window is a no-op and keeps the slot.
	require.NoError(t, tr.ForceClose(context.Background(), "mintA"))
	assert.Equal(t, uint64(0), tr.Stats().Trades)
	tr.mu.Lock()
	_, held := tr.positions["mintA"]
	tr.mu.Unlock()
	assert.True(t, held, "reservation must survive a close attempt")

	// A rival candidate for the same token cannot double-book.
	opened, err := tr.ProcessCandidate(context.Background(), candidate("mintA"), goodPrediction())
	require.NoError(t, err)
	assert.False(t, opened)

	close(gate)
	res := <-done
	require.NoError(t, res.err)
	require.True(t, res.opened)
	require.Len(t, tr.Positions(), 1)
	assert.Equal(t, 1, tr.Stats().OpenPositions)
}
