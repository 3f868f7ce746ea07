package bot

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/0xxCool/SolanaMemeCoin-bot/internal/domain"
	"github.com/0xxCool/SolanaMemeCoin-bot/internal/events"
	"github.com/0xxCool/SolanaMemeCoin-bot/internal/oracle"
	"github.com/0xxCool/SolanaMemeCoin-bot/internal/scanner"
	"github.com/0xxCool/SolanaMemeCoin-bot/internal/trader"
)

// pipelineAnalyzer bridges scanner output to the oracle and the
// trader: score the pair, ask the oracle for a prediction, raise an
// alert and hand the candidate to the auto-trader.
type pipelineAnalyzer struct {
	priority  scanner.PriorityConfig
	predictor oracle.Predictor
	trader    *trader.Trader
	bus       *events.Bus
	logger    *zap.Logger
	now       func() time.Time
}

func newPipelineAnalyzer(priority scanner.PriorityConfig, predictor oracle.Predictor, tr *trader.Trader, bus *events.Bus, logger *zap.Logger) *pipelineAnalyzer {
	return &pipelineAnalyzer{
		priority:  priority,
		predictor: predictor,
		trader:    tr,
		bus:       bus,
		logger:    logger.Named("analyzer"),
		now:       time.Now,
	}
}

func (a *pipelineAnalyzer) Analyze(ctx context.Context, ev domain.ListingEvent) error {
	now := a.now()
	score := scanner.ComputePriority(a.priority, ev, now)

	pred := a.predict(ctx, ev, score, now)

	alert := domain.AlertRecord{
		ID:        uuid.NewString(),
		TokenMint: ev.BaseToken,
		Symbol:    ev.BaseSymbol,
		Score:     score,
		Action:    string(pred.RecommendedAction),
		Timestamp: now,
	}
	if err := a.bus.Publish(events.NewAlertEvent(alert)); err != nil {
		a.logger.Warn("Alert dropped", zap.String("token", ev.BaseToken), zap.Error(err))
	}

	analysis := domain.Analysis{
		TokenAddress: ev.BaseToken,
		PairAddress:  ev.PairAddress,
		Symbol:       ev.BaseSymbol,
		Score:        score,
		LiquidityUSD: ev.LiquidityUSD,
		Volume5m:     ev.Volume5m,
		TxCount5m:    ev.TxCount5m,
		PairAge:      now.Sub(ev.CreatedAt),
		AnalyzedAt:   now,
	}

	opened, err := a.trader.ProcessCandidate(ctx, analysis, pred)
	if err != nil {
		return err
	}
	if opened {
		a.logger.Info("✅ Candidate accepted",
			zap.String("token", ev.BaseToken),
			zap.String("symbol", ev.BaseSymbol),
			zap.Float64("score", score))
	}
	return nil
}

func (a *pipelineAnalyzer) predict(ctx context.Context, ev domain.ListingEvent, score float64, now time.Time) *oracle.Prediction {
	if a.predictor == nil {
		return oracle.ConservativeSkip()
	}

	features := oracle.Features{
		TokenAddress:   ev.BaseToken,
		Symbol:         ev.BaseSymbol,
		LiquidityUSD:   ev.LiquidityUSD,
		Volume5m:       ev.Volume5m,
		TxCount5m:      ev.TxCount5m,
		PairAgeSeconds: now.Sub(ev.CreatedAt).Seconds(),
		PriorityScore:  score,
	}
	pred, err := a.predictor.Predict(ctx, features)
	if err != nil {
		a.logger.Warn("Oracle unavailable, skipping conservatively",
			zap.String("token", ev.BaseToken),
			zap.Error(err))
		return oracle.ConservativeSkip()
	}
	return pred
}
