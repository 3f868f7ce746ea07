// Package journal persists trade and alert records. Persistence is
// best-effort: the trading pipeline publishes events and never blocks
// on, or reads back from, the journal.
package journal

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/0xxCool/SolanaMemeCoin-bot/internal/domain"
	"github.com/0xxCool/SolanaMemeCoin-bot/internal/events"
)

// Store is a sink for trade and alert records.
type Store interface {
	SaveTrade(ctx context.Context, rec domain.TradeRecord) error
	SaveAlert(ctx context.Context, rec domain.AlertRecord) error
	Close()
}

// historySize bounds the in-memory trade history kept for exports.
const historySize = 1000

// Journal subscribes a Store to the event bus. It also keeps a bounded
// in-memory history of closed trades so exports do not require a
// round-trip to the store.
type Journal struct {
	store  Store
	logger *zap.Logger
	subs   []events.Subscription

	mu      sync.Mutex
	history []domain.TradeRecord
}

func New(store Store, logger *zap.Logger) *Journal {
	return &Journal{store: store, logger: logger.Named("journal")}
}

// Attach registers the journal's subscribers on the bus.
func (j *Journal) Attach(bus *events.Bus) {
	j.subs = append(j.subs,
		bus.SubscribeFunc(events.TradeClosed, func(ctx context.Context, ev events.Event) error {
			closed, ok := ev.(events.TradeClosedEvent)
			if !ok {
				return nil
			}
			j.remember(closed.Record)
			if err := j.store.SaveTrade(ctx, closed.Record); err != nil {
				j.logger.Warn("Trade record not persisted",
					zap.String("trade_id", closed.Record.ID),
					zap.Error(err))
			}
			return nil
		}),
		bus.SubscribeFunc(events.AlertRaised, func(ctx context.Context, ev events.Event) error {
			alert, ok := ev.(events.AlertEvent)
			if !ok {
				return nil
			}
			if err := j.store.SaveAlert(ctx, alert.Record); err != nil {
				j.logger.Warn("Alert record not persisted",
					zap.String("alert_id", alert.Record.ID),
					zap.Error(err))
			}
			return nil
		}),
	)
}

func (j *Journal) remember(rec domain.TradeRecord) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.history = append(j.history, rec)
	if len(j.history) > historySize {
		j.history = j.history[len(j.history)-historySize:]
	}
}

// Recent returns a copy of the in-memory trade history, oldest first.
func (j *Journal) Recent() []domain.TradeRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]domain.TradeRecord, len(j.history))
	copy(out, j.history)
	return out
}

// Detach unsubscribes and closes the store.
func (j *Journal) Detach() {
	for _, sub := range j.subs {
		sub.Unsubscribe()
	}
	j.subs = nil
	j.store.Close()
}
