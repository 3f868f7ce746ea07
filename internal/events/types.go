// internal/events/types.go
package events

import (
	"time"

	"github.com/0xxCool/SolanaMemeCoin-bot/internal/domain"
)

// EventType represents the type of event.
type EventType string

const (
	// Mempool events
	EarlySignalDetected EventType = "mempool.early_signal"

	// Trading events
	TradeOpened EventType = "trade.opened"
	TradeClosed EventType = "trade.closed"

	// Candidate events
	AlertRaised EventType = "candidate.alert"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// EarlySignalEvent carries a signal derived from pending transactions.
type EarlySignalEvent struct {
	BaseEvent
	Signal domain.EarlySignal
}

// NewEarlySignalEvent wraps a signal for bus publication.
func NewEarlySignalEvent(sig domain.EarlySignal) EarlySignalEvent {
	return EarlySignalEvent{
		BaseEvent: BaseEvent{EventType: EarlySignalDetected, EventTime: sig.Timestamp},
		Signal:    sig,
	}
}

// TradeOpenedEvent is emitted when a position is opened.
type TradeOpenedEvent struct {
	BaseEvent
	TokenMint   string
	Symbol      string
	EntryPrice  float64
	InvestedSOL float64
	Signature   string
}

// TradeClosedEvent carries the trade record emitted on every close.
type TradeClosedEvent struct {
	BaseEvent
	Record domain.TradeRecord
}

// NewTradeClosedEvent wraps a trade record for bus publication.
func NewTradeClosedEvent(rec domain.TradeRecord) TradeClosedEvent {
	return TradeClosedEvent{
		BaseEvent: BaseEvent{EventType: TradeClosed, EventTime: rec.ExitTime},
		Record:    rec,
	}
}

// AlertEvent carries an alert record for a scored candidate.
type AlertEvent struct {
	BaseEvent
	Record domain.AlertRecord
}

// NewAlertEvent wraps an alert record for bus publication.
func NewAlertEvent(rec domain.AlertRecord) AlertEvent {
	return AlertEvent{
		BaseEvent: BaseEvent{EventType: AlertRaised, EventTime: rec.Timestamp},
		Record:    rec,
	}
}
