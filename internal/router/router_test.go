package router

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
	"github.com/0xxCool/SolanaMemeCoin-bot/internal/dex"
)

type mockAdapter struct {
	name string

	mu         sync.Mutex
	quoteCalls int
	quoteFn    func(amount uint64) (*dex.Quote, error)
	swapFn     func(q *dex.Quote) (string, error)
}

func (m *mockAdapter) Name() string { return m.name }

func (m *mockAdapter) GetQuote(_ context.Context, inputMint, outputMint string, amount uint64, _ int) (*dex.Quote, error) {
	m.mu.Lock()
	m.quoteCalls++
	m.mu.Unlock()

	q, err := m.quoteFn(amount)
	if err != nil {
		return nil, err
	}
	q.Venue = m.name
	q.InputMint = inputMint
	q.OutputMint = outputMint
	q.InAmount = amount
	return q, nil
}

func (m *mockAdapter) ExecuteSwap(_ context.Context, q *dex.Quote) (string, error) {
	if m.swapFn != nil {
		return m.swapFn(q)
	}
	return "sig-" + m.name, nil
}

func (m *mockAdapter) Close() error { return nil }

func (m *mockAdapter) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quoteCalls
}

// linearQuotes returns outputs proportional to the input at the given
// rate, so half-amount requotes never beat the single best venue.
func linearQuotes(rate float64, impact float64) func(amount uint64) (*dex.Quote, error) {
	return func(amount uint64) (*dex.Quote, error) {
		return &dex.Quote{
			OutAmount:      uint64(float64(amount) * rate),
			PriceImpactPct: impact,
			Route:          []string{"pool"},
		}, nil
	}
}

func testRouterConfig() config.RouterConfig {
	return config.RouterConfig{
		Venues:           []string{"jupiter", "raydium"},
		QuoteTimeoutMS:   3000,
		CacheTTLMS:       5000,
		FailureThreshold: 5,
		RecoveryTimeoutS: 60,
		SplitImprovement: 0.01,
	}
}

func newTestRouter(t *testing.T, adapters ...dex.Adapter) *Router {
	t.Helper()
	return New(testRouterConfig(), adapters, nil, zaptest.NewLogger(t))
}

func TestRouter_BestQuote_PicksHighestScore(t *testing.T) {
	jupiter := &mockAdapter{name: "jupiter", quoteFn: linearQuotes(2.0, 0.5)}
	raydium := &mockAdapter{name: "raydium", quoteFn: linearQuotes(1.5, 0.5)}
	r := newTestRouter(t, jupiter, raydium)

	decision, err := r.BestQuote(context.Background(), "in", "out", 1_000_000_000, 50)
	require.NoError(t, err)

	assert.False(t, decision.Split)
	assert.Equal(t, "jupiter", decision.Best.Venue)
	assert.Equal(t, uint64(2_000_000_000), decision.OutAmount)
	assert.Greater(t, decision.Score, 100.0)
}

func TestRouter_BestQuote_ImpactPenalty(t *testing.T) {
	// Same output, but raydium has far lower price impact; its score must
	// win despite jupiter's higher reliability prior.
	jupiter := &mockAdapter{name: "jupiter", quoteFn: linearQuotes(1.0, 12.0)}
	raydium := &mockAdapter{name: "raydium", quoteFn: linearQuotes(1.0, 0.1)}
	r := newTestRouter(t, jupiter, raydium)

	decision, err := r.BestQuote(context.Background(), "in", "out", 1_000_000, 50)
	require.NoError(t, err)
	assert.Equal(t, "raydium", decision.Best.Venue)
}

func TestRouter_BestQuote_Cache(t *testing.T) {
	jupiter := &mockAdapter{name: "jupiter", quoteFn: linearQuotes(2.0, 0)}
	r := newTestRouter(t, jupiter)

	current := time.Unix(5000, 0)
	r.now = func() time.Time { return current }

	_, err := r.BestQuote(context.Background(), "in", "out", 1000, 50)
	require.NoError(t, err)
	first := jupiter.calls()

	// Within the TTL the cached decision is served.
	current = current.Add(4 * time.Second)
	_, err = r.BestQuote(context.Background(), "in", "out", 1000, 50)
	require.NoError(t, err)
	assert.Equal(t, first, jupiter.calls())

	// A different amount is a different key.
	_, err = r.BestQuote(context.Background(), "in", "out", 2000, 50)
	require.NoError(t, err)
	assert.Greater(t, jupiter.calls(), first)

	// After expiry the original key is requoted.
	current = current.Add(2 * time.Second)
	before := jupiter.calls()
	_, err = r.BestQuote(context.Background(), "in", "out", 1000, 50)
	require.NoError(t, err)
	assert.Greater(t, jupiter.calls(), before)
}

func TestRouter_BestQuote_SplitAdopted(t *testing.T) {
	// Sublinear venue: quoting half the size yields much better than half
	// the output, so splitting beats the single route by over 1%.
	sublinear := func(fullOut, halfOut uint64) func(amount uint64) (*dex.Quote, error) {
		return func(amount uint64) (*dex.Quote, error) {
			out := fullOut
			if amount < 1000 {
				out = halfOut
			}
			return &dex.Quote{OutAmount: out, Route: []string{"pool"}}, nil
		}
	}

	jupiter := &mockAdapter{name: "jupiter", quoteFn: sublinear(1000, 600)}
	raydium := &mockAdapter{name: "raydium", quoteFn: sublinear(900, 550)}
	r := newTestRouter(t, jupiter, raydium)

	decision, err := r.BestQuote(context.Background(), "in", "out", 1000, 50)
	require.NoError(t, err)

	require.True(t, decision.Split)
	require.Len(t, decision.Legs, 2)
	assert.Equal(t, uint64(1150), decision.OutAmount)
}

func TestRouter_BestQuote_SplitRejectedBelowMargin(t *testing.T) {
	jupiter := &mockAdapter{name: "jupiter", quoteFn: linearQuotes(2.0, 0)}
	raydium := &mockAdapter{name: "raydium", quoteFn: linearQuotes(1.9, 0)}
	r := newTestRouter(t, jupiter, raydium)

	decision, err := r.BestQuote(context.Background(), "in", "out", 1_000_000, 50)
	require.NoError(t, err)
	assert.False(t, decision.Split)
}

func TestRouter_BestQuote_AllVenuesFail(t *testing.T) {
	failing := func(uint64) (*dex.Quote, error) { return nil, errors.New("api down") }
	jupiter := &mockAdapter{name: "jupiter", quoteFn: failing}
	raydium := &mockAdapter{name: "raydium", quoteFn: failing}
	r := newTestRouter(t, jupiter, raydium)

	_, err := r.BestQuote(context.Background(), "in", "out", 1000, 50)
	assert.ErrorIs(t, err, ErrNoQuotes)
}

func TestRouter_BreakerExcludesFailingVenue(t *testing.T) {
	jupiter := &mockAdapter{name: "jupiter", quoteFn: func(uint64) (*dex.Quote, error) {
		return nil, errors.New("api down")
	}}
	raydium := &mockAdapter{name: "raydium", quoteFn: linearQuotes(1.0, 0)}
	r := newTestRouter(t, jupiter, raydium)

	// Distinct amounts defeat the cache so every call reaches the venues.
	for i := uint64(0); i < 5; i++ {
		_, err := r.BestQuote(context.Background(), "in", "out", 10_000+i, 50)
		require.NoError(t, err)
	}
	assert.Equal(t, "OPEN", r.BreakerStates()["jupiter"])

	tripped := jupiter.calls()
	_, err := r.BestQuote(context.Background(), "in", "out", 99_999, 50)
	require.NoError(t, err)
	assert.Equal(t, tripped, jupiter.calls(), "open breaker must skip the venue")
}

func TestRouter_Execute_Single(t *testing.T) {
	jupiter := &mockAdapter{name: "jupiter", quoteFn: linearQuotes(2.0, 0)}
	r := newTestRouter(t, jupiter)

	decision, err := r.BestQuote(context.Background(), "in", "out", 1000, 50)
	require.NoError(t, err)

	result, err := r.Execute(context.Background(), decision)
	require.NoError(t, err)
	assert.Equal(t, []string{"sig-jupiter"}, result.Signatures)
	assert.False(t, result.Partial)
}

func TestRouter_Execute_PartialSplit(t *testing.T) {
	jupiter := &mockAdapter{name: "jupiter", quoteFn: linearQuotes(2.0, 0)}
	raydium := &mockAdapter{
		name:    "raydium",
		quoteFn: linearQuotes(1.9, 0),
		swapFn:  func(*dex.Quote) (string, error) { return "", errors.New("blockhash expired") },
	}
	r := newTestRouter(t, jupiter, raydium)

	decision := &Decision{
		Split: true,
		Legs: []*dex.Quote{
			{Venue: "jupiter", InAmount: 500, OutAmount: 1000},
			{Venue: "raydium", InAmount: 500, OutAmount: 950},
		},
	}

	result, err := r.Execute(context.Background(), decision)
	require.NoError(t, err)
	assert.Equal(t, []string{"sig-jupiter"}, result.Signatures)
	assert.True(t, result.Partial)
}

func TestRouter_Execute_SplitLegsRunConcurrently(t *testing.T) {
	started := make(chan string, 2)
	release := make(chan struct{})
	swap := func(name string) func(*dex.Quote) (string, error) {
		return func(*dex.Quote) (string, error) {
			started <- name
			<-release
			return "sig-" + name, nil
		}
	}
	jupiter := &mockAdapter{name: "jupiter", quoteFn: linearQuotes(2.0, 0), swapFn: swap("jupiter")}
	raydium := &mockAdapter{name: "raydium", quoteFn: linearQuotes(1.9, 0), swapFn: swap("raydium")}
	r := newTestRouter(t, jupiter, raydium)

	decision := &Decision{
		Split: true,
		Legs: []*dex.Quote{
			{Venue: "jupiter", InAmount: 500, OutAmount: 1000},
			{Venue: "raydium", InAmount: 500, OutAmount: 950},
		},
	}

	type out struct {
		result *ExecResult
		err    error
	}
	done := make(chan out, 1)
	go func() {
		result, err := r.Execute(context.Background(), decision)
		done <- out{result, err}
	}()

	// Both legs must be in flight before either is released.
	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatal("split legs did not execute in parallel")
		}
	}
	close(release)

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, []string{"sig-jupiter", "sig-raydium"}, res.result.Signatures)
	assert.False(t, res.result.Partial)
}

func TestRouter_Execute_AllLegsFail(t *testing.T) {
	jupiter := &mockAdapter{
		name:    "jupiter",
		quoteFn: linearQuotes(2.0, 0),
		swapFn:  func(*dex.Quote) (string, error) { return "", errors.New("rejected") },
	}
	r := newTestRouter(t, jupiter)

	decision := &Decision{Best: &dex.Quote{Venue: "jupiter", InAmount: 100, OutAmount: 200}}
	_, err := r.Execute(context.Background(), decision)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")
}
