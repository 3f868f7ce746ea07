package dex

import (
	"context"
	"encoding/json"
)

// Quote is a normalized venue quote for one input/output pair and amount.
type Quote struct {
	Venue          string
	InputMint      string
	OutputMint     string
	InAmount       uint64
	OutAmount      uint64
	PriceImpactPct float64 // percent, may be negative on venue quirks
	FeePct         float64 // fraction, e.g. 0.0025
	Route          []string
	GasEstimate    uint64

	// Payload carries the venue response needed to build the swap
	// transaction. Opaque outside the owning adapter.
	Payload json.RawMessage
}

// EffectivePrice returns output per input unit net of fees.
func (q *Quote) EffectivePrice() float64 {
	if q.InAmount == 0 {
		return 0
	}
	return (float64(q.OutAmount) / float64(q.InAmount)) * (1 - q.FeePct)
}

// Hops returns the number of route hops in the quote.
func (q *Quote) Hops() int {
	return len(q.Route)
}

// Adapter is the uniform venue contract. Implementations are leaf
// components and independently replaceable.
type Adapter interface {
	Name() string
	GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*Quote, error)
	ExecuteSwap(ctx context.Context, quote *Quote) (string, error)
	Close() error
}

// Submitter signs and broadcasts an unsigned venue transaction, returning
// the transaction signature. Signing capability is provided externally.
type Submitter interface {
	SubmitTransaction(ctx context.Context, unsignedTx []byte) (string, error)
}
