package bot

import (
	"context"
	"time"

	"github.com/0xxCool/SolanaMemeCoin-bot/internal/journal"
	"github.com/0xxCool/SolanaMemeCoin-bot/internal/mempool"
	"github.com/0xxCool/SolanaMemeCoin-bot/internal/scanner"
	"github.com/0xxCool/SolanaMemeCoin-bot/internal/trader"
)

// Status is a point-in-time snapshot of the whole pipeline, safe to
// serialize for an operator front end.
type Status struct {
	Running       bool              `json:"running"`
	Uptime        time.Duration     `json:"uptime"`
	OpenPositions int               `json:"open_positions"`
	TotalPnLSOL   float64           `json:"total_pnl_sol"`
	WinRate       float64           `json:"win_rate"`
	Trader        trader.Stats      `json:"trader"`
	Scanner       scanner.Stats     `json:"scanner"`
	Mempool       mempool.Stats     `json:"mempool"`
	Breakers      map[string]string `json:"breakers"`
}

// Service is the command surface for operator front ends. It holds no
// state of its own; every call delegates to the owning subsystem.
type Service struct {
	runner *Runner
}

func newService(r *Runner) *Service {
	return &Service{runner: r}
}

// Status reports the pipeline snapshot.
func (s *Service) Status() Status {
	r := s.runner
	tstats := r.trader.Stats()
	running := !r.started.IsZero()

	var uptime time.Duration
	if running {
		uptime = time.Since(r.started)
	}
	return Status{
		Running:       running,
		Uptime:        uptime,
		OpenPositions: tstats.OpenPositions,
		TotalPnLSOL:   tstats.RealizedSOL,
		WinRate:       tstats.WinRate,
		Trader:        tstats,
		Scanner:       r.scanner.Stats(),
		Mempool:       r.mempool.Stats(),
		Breakers:      r.router.BreakerStates(),
	}
}

// Positions lists the currently open positions.
func (s *Service) Positions() []trader.Position {
	return s.runner.trader.Positions()
}

// Settings reports the live auto-trade thresholds.
func (s *Service) Settings() trader.Settings {
	return s.runner.trader.Settings()
}

// UpdateSettings applies fn to a copy of the live settings and swaps
// the result in atomically.
func (s *Service) UpdateSettings(fn func(*trader.Settings)) trader.Settings {
	return s.runner.trader.UpdateSettings(fn)
}

// EnableAutoBuy toggles automated entries.
func (s *Service) EnableAutoBuy(enabled bool) {
	s.runner.trader.EnableAutoBuy(enabled)
}

// EnableAutoSell toggles automated exits.
func (s *Service) EnableAutoSell(enabled bool) {
	s.runner.trader.EnableAutoSell(enabled)
}

// ForceClose liquidates one position immediately.
func (s *Service) ForceClose(ctx context.Context, tokenMint string) error {
	return s.runner.trader.ForceClose(ctx, tokenMint)
}

// ExportTrades writes the recent closed trades to disk and returns
// the written file path.
func (s *Service) ExportTrades(options journal.ExportOptions) (string, error) {
	return s.runner.exporter.Export(s.runner.journal.Recent(), options)
}
