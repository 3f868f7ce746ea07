package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/0xxCool/SolanaMemeCoin-bot/internal/domain"
)

// Ingester accepts parsed listings. Satisfied by *Scanner.
type Ingester interface {
	Ingest(ev domain.ListingEvent) bool
}

// ListingsFeed streams new-pair events from the listings websocket into
// an Ingester, reconnecting with exponential backoff.
type ListingsFeed struct {
	wsURL    string
	ingester Ingester
	logger   *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewListingsFeed(wsURL string, ingester Ingester, logger *zap.Logger) *ListingsFeed {
	return &ListingsFeed{
		wsURL:    wsURL,
		ingester: ingester,
		logger:   logger.Named("listings_feed"),
	}
}

func (f *ListingsFeed) Start(ctx context.Context) error {
	if f.cancel != nil {
		return fmt.Errorf("feed already started")
	}
	ctx, f.cancel = context.WithCancel(ctx)

	f.wg.Add(1)
	go f.run(ctx)
	return nil
}

func (f *ListingsFeed) Stop() {
	if f.cancel == nil {
		return
	}
	f.cancel()
	f.wg.Wait()
	f.logger.Info("Listings feed stopped")
}

func (f *ListingsFeed) run(ctx context.Context) {
	defer f.wg.Done()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxInterval = 30 * time.Second

	op := func() (struct{}, error) {
		err := f.runConnection(ctx)
		if err != nil && ctx.Err() == nil {
			f.logger.Warn("⚠️ Listings feed disconnected, reconnecting", zap.Error(err))
			return struct{}{}, err
		}
		return struct{}{}, nil
	}
	_, _ = backoff.Retry(ctx, op, backoff.WithBackOff(policy))
}

func (f *ListingsFeed) runConnection(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", f.wsURL, err)
	}
	defer conn.Close()

	closed := make(chan struct{})
	defer close(closed)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-closed:
		}
	}()

	sub := map[string]interface{}{
		"method": "subscribe",
		"params": []string{"newPairs", "solana"},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	f.logger.Info("✅ Listings feed connected", zap.String("url", f.wsURL))

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		f.handleMessage(message)
	}
}

type feedPair struct {
	PairAddress string `json:"pairAddress"`
	BaseToken   struct {
		Address string `json:"address"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	QuoteToken struct {
		Address string `json:"address"`
	} `json:"quoteToken"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	PairCreatedAt int64 `json:"pairCreatedAt"` // ms since epoch
	Volume        struct {
		M5 float64 `json:"m5"`
	} `json:"volume"`
	Txns struct {
		M5 struct {
			Buys int `json:"buys"`
		} `json:"m5"`
	} `json:"txns"`
}

type feedMessage struct {
	Type    string   `json:"type"`
	Network string   `json:"network"`
	Pair    feedPair `json:"pair"`
}

func (f *ListingsFeed) handleMessage(message []byte) {
	var msg feedMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}
	if msg.Type != "pair" || msg.Network != "solana" || msg.Pair.PairAddress == "" {
		return
	}
	f.ingester.Ingest(toListingEvent(msg.Pair))
}

func toListingEvent(p feedPair) domain.ListingEvent {
	return domain.ListingEvent{
		PairAddress:  p.PairAddress,
		BaseToken:    p.BaseToken.Address,
		QuoteToken:   p.QuoteToken.Address,
		BaseSymbol:   p.BaseToken.Symbol,
		LiquidityUSD: p.Liquidity.USD,
		CreatedAt:    time.UnixMilli(p.PairCreatedAt),
		Volume5m:     p.Volume.M5,
		TxCount5m:    p.Txns.M5.Buys,
	}
}
