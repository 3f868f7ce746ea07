package trader

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/0xxCool/SolanaMemeCoin-bot/internal/config"
	"github.com/0xxCool/SolanaMemeCoin-bot/internal/domain"
	"github.com/0xxCool/SolanaMemeCoin-bot/internal/events"
	"github.com/0xxCool/SolanaMemeCoin-bot/internal/oracle"
	"github.com/0xxCool/SolanaMemeCoin-bot/internal/router"
)

const (
	minPositionSOL  = 0.01
	lamportsPerSOL  = 1e9
	tokenBaseUnits  = 1e6 // fresh meme mints ship with 6 decimals
	dailyBudgetSpan = 24 * time.Hour
	errorBackoff    = 10 * time.Second
)

// Executor is the slice of the order router the trader needs.
// Satisfied by *router.Router.
type Executor interface {
	BestQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*router.Decision, error)
	Execute(ctx context.Context, decision *router.Decision) (*router.ExecResult, error)
	TokenPrice(ctx context.Context, tokenMint string) (float64, error)
	Slippage() *router.SlippagePredictor
}

// Stats is a snapshot of trading counters.
type Stats struct {
	OpenPositions int     `json:"open_positions"`
	AutoBuys      uint64  `json:"auto_buys"`
	AutoSells     uint64  `json:"auto_sells"`
	Trades        uint64  `json:"trades"`
	Wins          uint64  `json:"wins"`
	WinRate       float64 `json:"win_rate"`
	RealizedSOL   float64 `json:"realized_sol"`
	DailySpentSOL float64 `json:"daily_spent_sol"`
}

type spend struct {
	amount float64
	at     time.Time
}

// Trader owns all positions. At most one position per token; every
// mutation goes through the trader's lock, and each open position has
// one monitor goroutine driving the exit rules.
type Trader struct {
	settings settingsStore
	exec     Executor
	bus      *events.Bus
	logger   *zap.Logger

	mu        sync.Mutex
	positions map[string]*Position
	spends    []spend
	realized  float64

	autoBuys  atomic.Uint64
	autoSells atomic.Uint64
	trades    atomic.Uint64
	wins      atomic.Uint64

	monitorInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time
}

func New(cfg config.TradingConfig, exec Executor, bus *events.Bus, logger *zap.Logger) *Trader {
	t := &Trader{
		exec:            exec,
		bus:             bus,
		logger:          logger.Named("trader"),
		positions:       make(map[string]*Position),
		monitorInterval: time.Duration(cfg.MonitorIntervalMS) * time.Millisecond,
		now:             time.Now,
	}
	t.settings.s = settingsFromConfig(cfg)
	return t
}

// Start arms the trader. Position monitors inherit this context.
func (t *Trader) Start(ctx context.Context) error {
	if t.cancel != nil {
		return fmt.Errorf("trader already started")
	}
	t.ctx, t.cancel = context.WithCancel(ctx)
	t.logger.Info("🤖 Auto-trader armed",
		zap.Bool("auto_buy", t.settings.get().AutoBuyEnabled),
		zap.Bool("auto_sell", t.settings.get().AutoSellEnabled))
	return nil
}

// Stop cancels all monitors and waits for them.
func (t *Trader) Stop() {
	if t.cancel == nil {
		return
	}
	t.cancel()
	t.wg.Wait()
	t.logger.Info("Trader stopped")
}

// Settings returns the live settings snapshot.
func (t *Trader) Settings() Settings {
	return t.settings.get()
}

// UpdateSettings applies a mutation to the live settings.
func (t *Trader) UpdateSettings(fn func(*Settings)) Settings {
	updated := t.settings.update(fn)
	t.logger.Info("Trade settings updated",
		zap.Bool("auto_buy", updated.AutoBuyEnabled),
		zap.Bool("auto_sell", updated.AutoSellEnabled),
		zap.Float64("max_per_trade_sol", updated.MaxPerTradeSOL))
	return updated
}

// EnableAutoBuy toggles entries without touching other settings.
func (t *Trader) EnableAutoBuy(enabled bool) {
	t.settings.update(func(s *Settings) { s.AutoBuyEnabled = enabled })
	t.logger.Info("Auto-buy toggled", zap.Bool("enabled", enabled))
}

// EnableAutoSell toggles the exit rules.
func (t *Trader) EnableAutoSell(enabled bool) {
	t.settings.update(func(s *Settings) { s.AutoSellEnabled = enabled })
	t.logger.Info("Auto-sell toggled", zap.Bool("enabled", enabled))
}

// passesGate applies the entry thresholds to an oracle verdict.
func passesGate(s Settings, pred *oracle.Prediction) bool {
	if pred.Confidence < s.MinConfidence {
		return false
	}
	if pred.RiskScore > s.MaxRisk {
		return false
	}
	if pred.PredictedReturn < s.MinPredictedReturn {
		return false
	}
	if pred.RecommendedAction == oracle.ActionSkip {
		return false
	}
	if pred.RugProbability > 0.3 {
		return false
	}
	if pred.HoneypotProbability > 0.2 {
		return false
	}
	return true
}

// sizePosition clips suggested*confidence into [0.01, max per trade],
// then caps it by the remaining rolling daily budget.
func sizePosition(s Settings, pred *oracle.Prediction, dailyRemaining float64) float64 {
	amount := pred.SuggestedAmountSOL * pred.Confidence
	if amount > s.MaxPerTradeSOL {
		amount = s.MaxPerTradeSOL
	}
	if amount < minPositionSOL {
		amount = minPositionSOL
	}
	if amount > dailyRemaining {
		amount = dailyRemaining
	}
	return amount
}

// dailyRemainingLocked prunes expired spends and returns the budget left.
func (t *Trader) dailyRemainingLocked(s Settings) float64 {
	cutoff := t.now().Add(-dailyBudgetSpan)
	kept := t.spends[:0]
	spent := 0.0
	for _, sp := range t.spends {
		if sp.at.After(cutoff) {
			kept = append(kept, sp)
			spent += sp.amount
		}
	}
	t.spends = kept
	return s.DailyLimitSOL - spent
}

// ProcessCandidate runs the entry gate and, when it passes, buys the
// token through the router and starts the position monitor. It reports
// whether a position was opened.
func (t *Trader) ProcessCandidate(ctx context.Context, analysis domain.Analysis, pred *oracle.Prediction) (bool, error) {
	if pred == nil {
		pred = oracle.ConservativeSkip()
	}
	s := t.settings.get()

	if !s.AutoBuyEnabled {
		return false, nil
	}
	if !passesGate(s, pred) {
		t.logger.Debug("Candidate rejected by entry gate",
			zap.String("token", analysis.TokenAddress),
			zap.Float64("confidence", pred.Confidence),
			zap.Float64("risk", pred.RiskScore),
			zap.Float64("rug", pred.RugProbability))
		return false, nil
	}

	// Reserve the slot under the lock so two candidates for the same
	// token can never both buy.
	t.mu.Lock()
	if _, open := t.positions[analysis.TokenAddress]; open {
		t.mu.Unlock()
		return false, nil
	}
	remaining := t.dailyRemainingLocked(s)
	size := sizePosition(s, pred, remaining)
	if size < minPositionSOL {
		t.mu.Unlock()
		t.logger.Info("Daily budget exhausted, skipping candidate",
			zap.String("token", analysis.TokenAddress),
			zap.Float64("remaining_sol", remaining))
		return false, nil
	}
	placeholder := &Position{TokenMint: analysis.TokenAddress, pending: true}
	t.positions[analysis.TokenAddress] = placeholder
	t.mu.Unlock()

	pos, err := t.openPosition(ctx, analysis, pred, size)
	if err != nil {
		t.mu.Lock()
		delete(t.positions, analysis.TokenAddress)
		t.mu.Unlock()
		return false, err
	}

	t.mu.Lock()
	t.positions[analysis.TokenAddress] = pos
	t.spends = append(t.spends, spend{amount: pos.InvestedSOL, at: pos.EntryTime})
	t.mu.Unlock()

	t.autoBuys.Add(1)
	t.publish(events.TradeOpenedEvent{
		BaseEvent:   events.BaseEvent{EventType: events.TradeOpened, EventTime: pos.EntryTime},
		TokenMint:   pos.TokenMint,
		Symbol:      pos.Symbol,
		EntryPrice:  pos.EntryPrice,
		InvestedSOL: pos.InvestedSOL,
		Signature:   pos.EntrySignature,
	})

	// Every open position is supervised; the auto-sell flag only gates
	// the exit action, checked per tick, so enabling it later takes
	// effect on positions already open.
	t.wg.Add(1)
	go t.monitorPosition(pos.TokenMint)
	return true, nil
}

func (t *Trader) openPosition(ctx context.Context, analysis domain.Analysis, pred *oracle.Prediction, sizeSOL float64) (*Position, error) {
	slippageBps := int(t.exec.Slippage().Predict(analysis.TokenAddress, sizeSOL, analysis.LiquidityUSD, nil))
	lamports := uint64(sizeSOL * lamportsPerSOL)

	decision, err := t.exec.BestQuote(ctx, domain.WrappedSOL, analysis.TokenAddress, lamports, slippageBps)
	if err != nil {
		return nil, fmt.Errorf("quote %s: %w", analysis.TokenAddress, err)
	}

	result, err := t.exec.Execute(ctx, decision)
	if err != nil {
		return nil, fmt.Errorf("buy %s: %w", analysis.TokenAddress, err)
	}

	tokens := float64(decision.OutAmount) / tokenBaseUnits
	if tokens <= 0 {
		return nil, fmt.Errorf("buy %s: zero tokens out", analysis.TokenAddress)
	}
	entryPrice := sizeSOL / tokens

	sig := ""
	if len(result.Signatures) > 0 {
		sig = result.Signatures[0]
	}

	now := t.now()
	t.logger.Info("🤖 Position opened",
		zap.String("token", analysis.TokenAddress),
		zap.String("symbol", analysis.Symbol),
		zap.Float64("invested_sol", sizeSOL),
		zap.Float64("entry_price", entryPrice),
		zap.String("signature", sig))

	return &Position{
		TokenMint:      analysis.TokenAddress,
		Symbol:         analysis.Symbol,
		EntryPrice:     entryPrice,
		CurrentPrice:   entryPrice,
		PeakPrice:      entryPrice,
		InvestedSOL:    sizeSOL,
		TokenAmount:    tokens,
		EntryTime:      now,
		EntrySignature: sig,
		Prediction:     pred,
	}, nil
}

// monitorPosition drives the exit rules for one position. Price lookup
// failures are logged and retried after a backoff; the loop ends when
// the position is gone or the trader stops.
func (t *Trader) monitorPosition(tokenMint string) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.ctx.Done():
			return
		case <-ticker.C:
		}

		t.mu.Lock()
		pos, open := t.positions[tokenMint]
		t.mu.Unlock()
		if !open {
			return
		}

		price, err := t.exec.TokenPrice(t.ctx, tokenMint)
		if err != nil {
			t.logger.Warn("Price check failed, backing off",
				zap.String("token", tokenMint),
				zap.Error(err))
			select {
			case <-t.ctx.Done():
				return
			case <-time.After(errorBackoff):
			}
			continue
		}

		t.mu.Lock()
		pos.CurrentPrice = price
		if price > pos.PeakPrice {
			pos.PeakPrice = price
		}
		view := pos.view(t.now())
		t.mu.Unlock()

		s := t.settings.get()
		if !s.AutoSellEnabled {
			continue
		}

		if reason, exit := evaluateExit(s, view); exit {
			t.autoSells.Add(1)
			if err := t.ClosePosition(t.ctx, tokenMint, reason); err != nil {
				t.logger.Error("Auto-sell failed",
					zap.String("token", tokenMint),
					zap.String("reason", reason),
					zap.Error(err))
			}
			return
		}
	}
}

// ClosePosition sells the holding, records realized P&L and removes the
// position. Closing a token with no open position is a no-op.
func (t *Trader) ClosePosition(ctx context.Context, tokenMint, reason string) error {
	t.mu.Lock()
	pos, open := t.positions[tokenMint]
	if !open || pos.pending {
		t.mu.Unlock()
		return nil
	}
	delete(t.positions, tokenMint)
	t.mu.Unlock()

	exitPrice := pos.CurrentPrice
	receivedSOL := pos.TokenAmount * exitPrice

	baseUnits := uint64(pos.TokenAmount * tokenBaseUnits)
	if baseUnits > 0 {
		if decision, err := t.exec.BestQuote(ctx, tokenMint, domain.WrappedSOL, baseUnits, 100); err == nil {
			if _, err := t.exec.Execute(ctx, decision); err == nil {
				receivedSOL = float64(decision.OutAmount) / lamportsPerSOL
				if pos.TokenAmount > 0 {
					exitPrice = receivedSOL / pos.TokenAmount
				}
			} else {
				t.logger.Warn("Sell execution failed, recording close at mark price",
					zap.String("token", tokenMint),
					zap.Error(err))
			}
		} else {
			t.logger.Warn("Sell quote failed, recording close at mark price",
				zap.String("token", tokenMint),
				zap.Error(err))
		}
	}

	pnlSOL := receivedSOL - pos.InvestedSOL
	pnlPct := 0.0
	if pos.InvestedSOL > 0 {
		pnlPct = pnlSOL / pos.InvestedSOL * 100
	}

	t.trades.Add(1)
	if pnlSOL > 0 {
		t.wins.Add(1)
	}
	t.mu.Lock()
	t.realized += pnlSOL
	t.mu.Unlock()

	now := t.now()
	record := domain.TradeRecord{
		ID:          uuid.NewString(),
		TokenMint:   pos.TokenMint,
		Symbol:      pos.Symbol,
		EntryPrice:  pos.EntryPrice,
		ExitPrice:   exitPrice,
		InvestedSOL: pos.InvestedSOL,
		PnLSOL:      pnlSOL,
		PnLPercent:  pnlPct,
		Reason:      reason,
		EntryTime:   pos.EntryTime,
		ExitTime:    now,
	}

	t.logger.Info("💰 Position closed",
		zap.String("token", pos.TokenMint),
		zap.String("reason", reason),
		zap.Float64("pnl_sol", pnlSOL),
		zap.Float64("pnl_pct", pnlPct))

	t.publish(events.NewTradeClosedEvent(record))
	return nil
}

// ForceClose closes a position on operator request.
func (t *Trader) ForceClose(ctx context.Context, tokenMint string) error {
	return t.ClosePosition(ctx, tokenMint, ReasonForced)
}

// Positions returns snapshots of all open positions.
func (t *Trader) Positions() []Position {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Position, 0, len(t.positions))
	for _, pos := range t.positions {
		if pos.pending {
			continue
		}
		out = append(out, *pos)
	}
	return out
}

// Stats returns a counter snapshot.
func (t *Trader) Stats() Stats {
	s := t.settings.get()

	t.mu.Lock()
	openCount := 0
	for _, pos := range t.positions {
		if !pos.pending {
			openCount++
		}
	}
	realized := t.realized
	spent := s.DailyLimitSOL - t.dailyRemainingLocked(s)
	t.mu.Unlock()

	trades := t.trades.Load()
	wins := t.wins.Load()
	winRate := 0.0
	if trades > 0 {
		winRate = float64(wins) / float64(trades)
	}

	return Stats{
		OpenPositions: openCount,
		AutoBuys:      t.autoBuys.Load(),
		AutoSells:     t.autoSells.Load(),
		Trades:        trades,
		Wins:          wins,
		WinRate:       winRate,
		RealizedSOL:   realized,
		DailySpentSOL: spent,
	}
}

func (t *Trader) publish(event events.Event) {
	if t.bus == nil {
		return
	}
	if err := t.bus.Publish(event); err != nil {
		t.logger.Warn("Event dropped", zap.Error(err))
	}
}
