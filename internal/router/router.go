package router

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/0xxCool/SolanaMemeCoin-bot/internal/config"
	"github.com/0xxCool/SolanaMemeCoin-bot/internal/dex"
	"github.com/0xxCool/SolanaMemeCoin-bot/internal/domain"
)

// ErrNoQuotes is returned when every venue failed or was excluded.
var ErrNoQuotes = errors.New("no venue produced a quote")

// venueReliability is a static prior added to the route score.
var venueReliability = map[string]float64{
	"jupiter": 10,
	"raydium": 8,
	"orca":    8,
	"serum":   6,
}

// Decision is the routing outcome for one requested trade.
type Decision struct {
	InputMint  string
	OutputMint string
	InAmount   uint64
	Split      bool
	Best       *dex.Quote   // single-venue route; nil when Split
	Legs       []*dex.Quote // populated when Split
	OutAmount  uint64       // total expected output
	Score      float64
}

// ExecResult reports the outcome of executing a routing decision.
type ExecResult struct {
	Signatures []string
	Partial    bool // some but not all legs of a split landed
}

type cachedDecision struct {
	decision *Decision
	storedAt time.Time
}

type venueStats struct {
	success int
	total   int
}

func (s venueStats) rate() float64 {
	if s.total == 0 {
		return 1.0
	}
	return float64(s.success) / float64(s.total)
}

// Router fans a quote request across venues in parallel, scores the
// results, and evaluates a 50/50 split across the top two venues. Each
// venue sits behind its own circuit breaker.
type Router struct {
	adapters []dex.Adapter
	breakers map[string]*CircuitBreaker
	slippage *SlippagePredictor
	logger   *zap.Logger

	quoteTimeout     time.Duration
	cacheTTL         time.Duration
	splitImprovement float64

	mu    sync.RWMutex
	cache map[string]cachedDecision
	stats map[string]venueStats

	now func() time.Time
}

func New(cfg config.RouterConfig, adapters []dex.Adapter, slippage *SlippagePredictor, logger *zap.Logger) *Router {
	breakers := make(map[string]*CircuitBreaker, len(adapters))
	for _, a := range adapters {
		breakers[a.Name()] = NewCircuitBreaker(cfg.FailureThreshold, time.Duration(cfg.RecoveryTimeoutS)*time.Second)
	}
	if slippage == nil {
		slippage = NewSlippagePredictor()
	}
	return &Router{
		adapters:         adapters,
		breakers:         breakers,
		slippage:         slippage,
		logger:           logger.Named("router"),
		quoteTimeout:     time.Duration(cfg.QuoteTimeoutMS) * time.Millisecond,
		cacheTTL:         time.Duration(cfg.CacheTTLMS) * time.Millisecond,
		splitImprovement: cfg.SplitImprovement,
		cache:            make(map[string]cachedDecision),
		stats:            make(map[string]venueStats),
		now:              time.Now,
	}
}

// Slippage exposes the predictor so position sizing can share its feedback loop.
func (r *Router) Slippage() *SlippagePredictor {
	return r.slippage
}

// score ranks a quote: bigger outputs and reliable venues win, price
// impact and extra hops cost points.
func (r *Router) score(q *dex.Quote) float64 {
	s := 100.0
	s += float64(q.OutAmount) / 1e9 * 10
	s -= math.Abs(q.PriceImpactPct) * 5
	s += venueReliability[strings.ToLower(q.Venue)]

	extraHops := q.Hops() - 1
	if extraHops > 0 {
		s -= 2 * float64(extraHops)
	}

	r.mu.RLock()
	s += r.stats[q.Venue].rate() * 5
	r.mu.RUnlock()

	return s
}

func cacheKey(inputMint, outputMint string, amount uint64) string {
	return inputMint + "|" + outputMint + "|" + strconv.FormatUint(amount, 10)
}

// BestQuote returns the routing decision for the requested trade. Results
// are cached briefly so bursts of identical requests do not hammer the
// venue APIs.
func (r *Router) BestQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*Decision, error) {
	if amount == 0 {
		return nil, fmt.Errorf("amount must be positive")
	}

	key := cacheKey(inputMint, outputMint, amount)
	r.mu.RLock()
	if entry, ok := r.cache[key]; ok && r.now().Sub(entry.storedAt) < r.cacheTTL {
		r.mu.RUnlock()
		return entry.decision, nil
	}
	r.mu.RUnlock()

	quotes := r.collectQuotes(ctx, inputMint, outputMint, amount, slippageBps)
	if len(quotes) == 0 {
		return nil, ErrNoQuotes
	}

	sort.Slice(quotes, func(i, j int) bool {
		return r.score(quotes[i]) > r.score(quotes[j])
	})
	best := quotes[0]

	decision := &Decision{
		InputMint:  inputMint,
		OutputMint: outputMint,
		InAmount:   amount,
		Best:       best,
		OutAmount:  best.OutAmount,
		Score:      r.score(best),
	}

	if split := r.evaluateSplit(ctx, quotes, inputMint, outputMint, amount, slippageBps); split != nil {
		decision = split
	}

	r.mu.Lock()
	r.cache[key] = cachedDecision{decision: decision, storedAt: r.now()}
	r.mu.Unlock()

	return decision, nil
}

// collectQuotes queries all venues whose breakers admit the call. Venue
// failures are isolated: a venue that errors is skipped, not fatal.
func (r *Router) collectQuotes(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) []*dex.Quote {
	results := make([]*dex.Quote, len(r.adapters))
	g, ctx := errgroup.WithContext(ctx)

	for i, adapter := range r.adapters {
		breaker := r.breakers[adapter.Name()]
		if !breaker.Allow() {
			r.logger.Debug("Venue excluded by circuit breaker", zap.String("venue", adapter.Name()))
			continue
		}

		i, adapter := i, adapter
		g.Go(func() error {
			quoteCtx, cancel := context.WithTimeout(ctx, r.quoteTimeout)
			defer cancel()

			quote, err := adapter.GetQuote(quoteCtx, inputMint, outputMint, amount, slippageBps)
			if err != nil {
				breaker.OnFailure()
				r.logger.Warn("Quote failed",
					zap.String("venue", adapter.Name()),
					zap.Error(err))
				return nil
			}
			breaker.OnSuccess()
			results[i] = quote
			return nil
		})
	}
	_ = g.Wait()

	quotes := make([]*dex.Quote, 0, len(results))
	for _, q := range results {
		if q != nil {
			quotes = append(quotes, q)
		}
	}
	return quotes
}

// evaluateSplit requotes half the amount on the two top-scored venues and
// adopts the split only when the combined output beats the single best
// route by the configured margin.
func (r *Router) evaluateSplit(ctx context.Context, ranked []*dex.Quote, inputMint, outputMint string, amount uint64, slippageBps int) *Decision {
	if len(ranked) < 2 || amount < 2 {
		return nil
	}

	half := amount / 2
	legs := make([]*dex.Quote, 2)
	g, ctx := errgroup.WithContext(ctx)

	for i, venue := range []string{ranked[0].Venue, ranked[1].Venue} {
		adapter := r.adapterByName(venue)
		if adapter == nil {
			return nil
		}

		i, adapter := i, adapter
		g.Go(func() error {
			quoteCtx, cancel := context.WithTimeout(ctx, r.quoteTimeout)
			defer cancel()

			quote, err := adapter.GetQuote(quoteCtx, inputMint, outputMint, half, slippageBps)
			if err != nil {
				return err
			}
			legs[i] = quote
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil
	}

	combined := legs[0].OutAmount + legs[1].OutAmount
	if float64(combined) <= float64(ranked[0].OutAmount)*(1+r.splitImprovement) {
		return nil
	}

	r.logger.Info("Split route adopted",
		zap.String("venues", legs[0].Venue+"+"+legs[1].Venue),
		zap.Uint64("combined_out", combined),
		zap.Uint64("single_out", ranked[0].OutAmount))

	return &Decision{
		InputMint:  inputMint,
		OutputMint: outputMint,
		InAmount:   amount,
		Split:      true,
		Legs:       legs,
		OutAmount:  combined,
		Score:      (r.score(legs[0]) + r.score(legs[1])) / 2,
	}
}

func (r *Router) adapterByName(name string) dex.Adapter {
	for _, a := range r.adapters {
		if a.Name() == name {
			return a
		}
	}
	return nil
}

// Execute carries out a routing decision. For split routes each leg is
// executed independently; a single landed leg yields a partial result.
func (r *Router) Execute(ctx context.Context, decision *Decision) (*ExecResult, error) {
	if decision == nil {
		return nil, fmt.Errorf("decision cannot be nil")
	}

	legs := decision.Legs
	if !decision.Split {
		legs = []*dex.Quote{decision.Best}
	}

	// Legs run concurrently; a failed leg never cancels its sibling.
	type legResult struct {
		sig string
		err error
	}
	results := make([]legResult, len(legs))
	g := new(errgroup.Group)

	for i, leg := range legs {
		i, leg := i, leg
		g.Go(func() error {
			adapter := r.adapterByName(leg.Venue)
			if adapter == nil {
				results[i] = legResult{err: fmt.Errorf("venue %s not available", leg.Venue)}
				return nil
			}

			sig, err := adapter.ExecuteSwap(ctx, leg)
			breaker := r.breakers[leg.Venue]
			if err != nil {
				if breaker != nil {
					breaker.OnFailure()
				}
				r.recordOutcome(leg.Venue, false)
				results[i] = legResult{err: fmt.Errorf("%s: %w", leg.Venue, err)}
				return nil
			}
			if breaker != nil {
				breaker.OnSuccess()
			}
			r.recordOutcome(leg.Venue, true)
			results[i] = legResult{sig: sig}
			return nil
		})
	}
	_ = g.Wait()

	result := &ExecResult{}
	var failures []error
	for _, res := range results {
		if res.err != nil {
			failures = append(failures, res.err)
			continue
		}
		result.Signatures = append(result.Signatures, res.sig)
	}

	if len(result.Signatures) == 0 {
		return nil, errors.Join(failures...)
	}
	result.Partial = len(failures) > 0
	return result, nil
}

func (r *Router) recordOutcome(venue string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.stats[venue]
	s.total++
	if ok {
		s.success++
	}
	r.stats[venue] = s
}

const (
	priceProbeLamports = 100_000_000 // 0.1 SOL
	lamportsPerSOL     = 1e9
	tokenBaseUnits     = 1e6
)

// TokenPrice derives the SOL price of one token by quoting a small probe
// trade against the router. Token accounts are assumed to use 6 decimals.
func (r *Router) TokenPrice(ctx context.Context, tokenMint string) (float64, error) {
	decision, err := r.BestQuote(ctx, domain.WrappedSOL, tokenMint, priceProbeLamports, 100)
	if err != nil {
		return 0, err
	}
	if decision.OutAmount == 0 {
		return 0, fmt.Errorf("zero output for price probe on %s", tokenMint)
	}

	inSOL := float64(priceProbeLamports) / lamportsPerSOL
	outTokens := float64(decision.OutAmount) / tokenBaseUnits
	return inSOL / outTokens, nil
}

// BreakerStates reports the effective state of every venue breaker.
func (r *Router) BreakerStates() map[string]string {
	states := make(map[string]string, len(r.breakers))
	for venue, cb := range r.breakers {
		states[venue] = cb.State().String()
	}
	return states
}

// Close releases every venue adapter.
func (r *Router) Close() error {
	var errs []error
	for _, a := range r.adapters {
		if err := a.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.Name(), err))
		}
	}
	return errors.Join(errs...)
}
