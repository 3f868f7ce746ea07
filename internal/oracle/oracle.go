// Package oracle defines the prediction contract the trader consumes.
// The model itself runs elsewhere; this package knows the request and
// response shapes and how to degrade when the model is unreachable.
package oracle

import (
	"context"
	"time"
)

// Action is the oracle's trade recommendation.
type Action string

const (
	ActionBuySmall  Action = "BUY_SMALL"
	ActionBuyMedium Action = "BUY_MEDIUM"
	ActionBuyLarge  Action = "BUY_LARGE"
	ActionSell      Action = "SELL"
	ActionSkip      Action = "SKIP"
)

// Features is the per-candidate input the oracle scores.
type Features struct {
	TokenAddress   string  `json:"token_address"`
	Symbol         string  `json:"symbol"`
	LiquidityUSD   float64 `json:"liquidity_usd"`
	Volume5m       float64 `json:"volume_5m"`
	TxCount5m      int     `json:"tx_count_5m"`
	PairAgeSeconds float64 `json:"pair_age_seconds"`
	PriorityScore  float64 `json:"priority_score"`
}

// Prediction is the oracle's verdict for one candidate.
type Prediction struct {
	PredictedReturn     float64       `json:"predicted_return"` // percent
	Confidence          float64       `json:"confidence"`       // 0..1
	RiskScore           float64       `json:"risk_score"`       // 0..1
	RugProbability      float64       `json:"rug_probability"`
	HoneypotProbability float64       `json:"honeypot_probability"`
	RecommendedAction   Action        `json:"recommended_action"`
	SuggestedAmountSOL  float64       `json:"suggested_amount_sol"`
	PredictedPeakIn     time.Duration `json:"predicted_peak_in"`
}

// Predictor scores a candidate token.
type Predictor interface {
	Predict(ctx context.Context, features Features) (*Prediction, error)
}

// ConservativeSkip is the fallback verdict when the oracle cannot be
// reached: never trade on a guess.
func ConservativeSkip() *Prediction {
	return &Prediction{
		PredictedReturn:     0,
		Confidence:          0,
		RiskScore:           1,
		RugProbability:      1,
		HoneypotProbability: 1,
		RecommendedAction:   ActionSkip,
		SuggestedAmountSOL:  0,
		PredictedPeakIn:     30 * time.Minute,
	}
}
