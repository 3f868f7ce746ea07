// internal/bot/runner.go
package bot

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/0xxCool/SolanaMemeCoin-bot/internal/config"
	"github.com/0xxCool/SolanaMemeCoin-bot/internal/dex"
	"github.com/0xxCool/SolanaMemeCoin-bot/internal/events"
	"github.com/0xxCool/SolanaMemeCoin-bot/internal/journal"
	"github.com/0xxCool/SolanaMemeCoin-bot/internal/mempool"
	"github.com/0xxCool/SolanaMemeCoin-bot/internal/oracle"
	"github.com/0xxCool/SolanaMemeCoin-bot/internal/router"
	"github.com/0xxCool/SolanaMemeCoin-bot/internal/scanner"
	"github.com/0xxCool/SolanaMemeCoin-bot/internal/trader"
	"github.com/0xxCool/SolanaMemeCoin-bot/internal/wallet"
)

const busBufferSize = 256

// Runner owns the whole pipeline: it builds every subsystem from the
// configuration, wires them through the event bus and supervises
// startup and shutdown ordering.
type Runner struct {
	cfg      *config.Config
	logger   *zap.Logger
	bus      *events.Bus
	journal  *journal.Journal
	exporter *journal.Exporter
	router   *router.Router
	trader   *trader.Trader
	scanner  *scanner.Scanner
	feed     *scanner.ListingsFeed
	mempool  *mempool.Monitor
	service  *Service
	started  time.Time
}

// NewRunner assembles the pipeline. Nothing is started yet; Run does
// that.
func NewRunner(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Runner, error) {
	bus := events.NewBus(log, busBufferSize)

	store, err := buildStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	jnl := journal.New(store, log)
	jnl.Attach(bus)

	rpcClient := rpc.New(cfg.RPCURL)

	var w *wallet.Wallet
	if cfg.WalletPrivateKey != "" {
		w, err = wallet.New(cfg.WalletPrivateKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load wallet: %w", err)
		}
		log.Info("💰 Wallet loaded", zap.String("pubkey", w.PublicKey.String()))
	} else {
		log.Warn("⚠️ No wallet configured, swaps will fail at submission")
	}

	var walletPub solana.PublicKey
	if w != nil {
		walletPub = w.PublicKey
	}
	submitter := newRPCSubmitter(rpcClient, w, log)

	adapters := make([]dex.Adapter, 0, len(cfg.Router.Venues))
	for _, venue := range cfg.Router.Venues {
		adapter, err := dex.NewAdapter(venue, submitter, walletPub, log)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s adapter: %w", venue, err)
		}
		adapters = append(adapters, adapter)
	}

	rtr := router.New(cfg.Router, adapters, router.NewSlippagePredictor(), log)
	tr := trader.New(cfg.Trading, rtr, bus, log)

	var predictor oracle.Predictor
	if cfg.OracleURL != "" {
		predictor = oracle.NewHTTPPredictor(cfg.OracleURL, log)
	} else {
		log.Warn("⚠️ No oracle configured, every candidate is skipped conservatively")
	}

	priority := scanner.DefaultPriorityConfig()
	analyzer := newPipelineAnalyzer(priority, predictor, tr, bus, log)
	sc := scanner.New(cfg.Scanner, priority, analyzer, log)

	var feed *scanner.ListingsFeed
	if cfg.ListingsWSURL != "" {
		feed = scanner.NewListingsFeed(cfg.ListingsWSURL, sc, log)
	}

	mon := mempool.NewMonitor(cfg.Mempool, cfg.MempoolWSURL, rpcClient, bus, log)

	r := &Runner{
		cfg:      cfg,
		logger:   log.Named("runner"),
		bus:      bus,
		journal:  jnl,
		exporter: journal.NewExporter(log),
		router:   rtr,
		trader:   tr,
		scanner:  sc,
		feed:     feed,
		mempool:  mon,
	}
	r.service = newService(r)
	r.subscribeSignals()
	return r, nil
}

func buildStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (journal.Store, error) {
	if cfg.PostgresURL == "" {
		log.Info("No Postgres configured, journaling to the log only")
		return journal.NewLogStore(log), nil
	}
	store, err := journal.NewPostgresStore(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal store: %w", err)
	}
	return store, nil
}

// subscribeSignals surfaces mempool early signals in the log. Entries
// into positions go exclusively through the scanner → oracle → trader
// path; signals inform, they do not trade.
func (r *Runner) subscribeSignals() {
	r.bus.SubscribeFunc(events.EarlySignalDetected, func(_ context.Context, ev events.Event) error {
		sig, ok := ev.(events.EarlySignalEvent)
		if !ok {
			return nil
		}
		fields := []zap.Field{
			zap.String("type", string(sig.Signal.Type)),
			zap.String("token", sig.Signal.TokenAddress),
			zap.Float64("confidence", sig.Signal.Confidence),
		}
		if sig.Signal.AmountSOL > 0 {
			fields = append(fields, zap.Float64("amount_sol", sig.Signal.AmountSOL))
		}
		if sig.Signal.ActionRequired {
			r.logger.Warn("🚨 Actionable early signal", fields...)
		} else {
			r.logger.Info("🔍 Early signal", fields...)
		}
		return nil
	})
}

// Service exposes the status and command surface.
func (r *Runner) Service() *Service {
	return r.service
}

// Run starts every subsystem and blocks until the context is
// cancelled or SIGINT/SIGTERM arrives, then shuts the pipeline down
// in reverse order.
func (r *Runner) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r.started = time.Now()
	r.logger.Info("🤖 Starting trading pipeline",
		zap.Strings("venues", r.cfg.Router.Venues),
		zap.Bool("auto_buy", r.cfg.Trading.AutoBuyEnabled),
		zap.Bool("auto_sell", r.cfg.Trading.AutoSellEnabled))

	if err := r.trader.Start(ctx); err != nil {
		return fmt.Errorf("failed to start trader: %w", err)
	}
	if err := r.scanner.Start(ctx); err != nil {
		r.trader.Stop()
		return fmt.Errorf("failed to start scanner: %w", err)
	}
	if r.feed != nil {
		if err := r.feed.Start(ctx); err != nil {
			r.scanner.Stop()
			r.trader.Stop()
			return fmt.Errorf("failed to start listings feed: %w", err)
		}
	}
	if err := r.mempool.Start(ctx); err != nil {
		if r.feed != nil {
			r.feed.Stop()
		}
		r.scanner.Stop()
		r.trader.Stop()
		return fmt.Errorf("failed to start mempool monitor: %w", err)
	}

	r.logger.Info("✅ Pipeline running")
	<-ctx.Done()
	r.logger.Info("📡 Shutdown requested")

	r.shutdown()
	return nil
}

// shutdown stops producers before consumers so nothing publishes into
// a closed bus.
func (r *Runner) shutdown() {
	r.mempool.Stop()
	if r.feed != nil {
		r.feed.Stop()
	}
	r.scanner.Stop()
	r.trader.Stop()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.bus.Shutdown(flushCtx); err != nil {
		r.logger.Warn("Event bus did not drain cleanly", zap.Error(err))
	}
	r.journal.Detach()
	if err := r.router.Close(); err != nil {
		r.logger.Warn("Venue adapter close failed", zap.Error(err))
	}

	r.logger.Info("✅ Pipeline stopped",
		zap.Duration("uptime", time.Since(r.started)),
		zap.Int("open_positions", len(r.trader.Positions())))
}

// ForceCloseAll liquidates every open position, used on operator
// request before shutdown.
func (r *Runner) ForceCloseAll(ctx context.Context) {
	for _, pos := range r.trader.Positions() {
		if err := r.trader.ForceClose(ctx, pos.TokenMint); err != nil {
			r.logger.Error("Failed to force-close position",
				zap.String("token", pos.TokenMint),
				zap.Error(err))
		}
	}
}
