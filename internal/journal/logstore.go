package journal

import (
	"context"

	"go.uber.org/zap"

	"github.com/0xxCool/SolanaMemeCoin-bot/internal/domain"
)

// LogStore is the fallback sink used when no database is configured:
// records land in the structured log and nowhere else.
type LogStore struct {
	logger *zap.Logger
}

func NewLogStore(logger *zap.Logger) *LogStore {
	return &LogStore{logger: logger.Named("journal_log")}
}

var _ Store = (*LogStore)(nil)

func (s *LogStore) SaveTrade(_ context.Context, rec domain.TradeRecord) error {
	s.logger.Info("Trade recorded",
		zap.String("id", rec.ID),
		zap.String("token", rec.TokenMint),
		zap.String("reason", rec.Reason),
		zap.Float64("pnl_sol", rec.PnLSOL),
		zap.Float64("pnl_pct", rec.PnLPercent))
	return nil
}

func (s *LogStore) SaveAlert(_ context.Context, rec domain.AlertRecord) error {
	s.logger.Info("Alert recorded",
		zap.String("id", rec.ID),
		zap.String("token", rec.TokenMint),
		zap.Float64("score", rec.Score),
		zap.String("action", rec.Action))
	return nil
}

func (s *LogStore) Close() {}
