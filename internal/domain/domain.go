// Package domain holds the records passed between pipeline stages.
// Every payload that crosses a component boundary is an explicit
// struct here; no stage-to-stage maps.
package domain

import "time"

// WrappedSOL is the native mint. Listing events for it are never tradable.
const WrappedSOL = "So11111111111111111111111111111111111111112"

// ListingEvent is a raw new-pair event from the listings feed.
// Immutable after construction; consumed once by the scanner.
type ListingEvent struct {
	PairAddress  string    `json:"pair_address"`
	BaseToken    string    `json:"base_token"`
	QuoteToken   string    `json:"quote_token"`
	BaseSymbol   string    `json:"base_symbol"`
	LiquidityUSD float64   `json:"liquidity_usd"`
	CreatedAt    time.Time `json:"created_at"`
	Volume5m     float64   `json:"volume_5m"`
	TxCount5m    int       `json:"tx_count_5m"`
}

// TransactionType classifies a decoded pending transaction.
type TransactionType string

const (
	TxLPCreation    TransactionType = "LP_CREATION"
	TxLargeBuy      TransactionType = "LARGE_BUY"
	TxLargeSell     TransactionType = "LARGE_SELL"
	TxWhaleMovement TransactionType = "WHALE_MOVEMENT"
	TxTokenMint     TransactionType = "TOKEN_MINT"
	TxBurnLiquidity TransactionType = "BURN_LIQUIDITY"
	TxRugSignal     TransactionType = "RUG_SIGNAL"
	TxUnknown       TransactionType = "UNKNOWN"
)

// MempoolTransaction is a decoded pending transaction. Immutable once
// constructed; deduplicated by Signature.
type MempoolTransaction struct {
	Signature        string          `json:"signature"`
	Type             TransactionType `json:"type"`
	ProgramID        string          `json:"program_id"`
	Accounts         []string        `json:"accounts"`
	AmountSOL        float64         `json:"amount_sol"`
	TokenMint        string          `json:"token_mint,omitempty"`
	PriorityFee      uint64          `json:"priority_fee"`
	InstructionCount int             `json:"instruction_count"`
	Timestamp        time.Time       `json:"timestamp"`
}

// SignalType identifies an early signal derived from mempool traffic.
type SignalType string

const (
	SignalNewLPCreation     SignalType = "NEW_LP_CREATION"
	SignalWhaleBuy          SignalType = "WHALE_BUY"
	SignalSuspicious        SignalType = "SUSPICIOUS_ACTIVITY"
	SignalLPCreationWave    SignalType = "LP_CREATION_WAVE"
	SignalWhaleAccumulation SignalType = "WHALE_ACCUMULATION"
)

// EarlySignal is fanned out to all signal subscribers. Not persisted.
type EarlySignal struct {
	Type           SignalType `json:"type"`
	TokenAddress   string     `json:"token_address"`
	Confidence     float64    `json:"confidence"` // 0..1
	ActionRequired bool       `json:"action_required"`
	AmountSOL      float64    `json:"amount_sol,omitempty"`
	PriorityFee    uint64     `json:"priority_fee,omitempty"`
	Signature      string     `json:"signature,omitempty"`
	ProgramID      string     `json:"program_id,omitempty"`
	Timestamp      time.Time  `json:"timestamp"`
}

// Analysis is the external analyzer's verdict for one candidate.
// The scanner only requires that the analyzer returns a populated
// record or nil.
type Analysis struct {
	TokenAddress string        `json:"token_address"`
	PairAddress  string        `json:"pair_address"`
	Symbol       string        `json:"symbol"`
	Score        float64       `json:"score"`
	LiquidityUSD float64       `json:"liquidity_usd"`
	Volume5m     float64       `json:"volume_5m"`
	TxCount5m    int           `json:"tx_count_5m"`
	PairAge      time.Duration `json:"pair_age"`
	AnalyzedAt   time.Time     `json:"analyzed_at"`
}

// TradeRecord is emitted for an external store on every close.
// The pipeline never reads these back.
type TradeRecord struct {
	ID          string    `json:"id"`
	TokenMint   string    `json:"token_mint"`
	Symbol      string    `json:"symbol"`
	EntryPrice  float64   `json:"entry_price"`
	ExitPrice   float64   `json:"exit_price"`
	InvestedSOL float64   `json:"invested_sol"`
	PnLSOL      float64   `json:"pnl_sol"`
	PnLPercent  float64   `json:"pnl_percent"`
	Reason      string    `json:"reason"`
	EntryTime   time.Time `json:"entry_time"`
	ExitTime    time.Time `json:"exit_time"`
}

// AlertRecord is emitted when the pipeline acts (or declines to act)
// on a scored candidate.
type AlertRecord struct {
	ID        string    `json:"id"`
	TokenMint string    `json:"token_mint"`
	Symbol    string    `json:"symbol"`
	Score     float64   `json:"score"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}
