package dex

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

const raydiumAPIURL = "https://api.raydium.io/v2"

// raydiumAdapter quotes and swaps through the Raydium pool API.
type raydiumAdapter struct {
	baseAdapter
}

func newRaydiumAdapter(submitter Submitter, wallet solana.PublicKey, logger *zap.Logger) *raydiumAdapter {
	return &raydiumAdapter{
		baseAdapter: newBaseAdapter("raydium", raydiumAPIURL, submitter, wallet, logger.Named("raydium")),
	}
}

type raydiumQuoteResponse struct {
	OutputAmount json.Number `json:"outputAmount"`
	PriceImpact  float64     `json:"priceImpact"`
	Fee          float64     `json:"fee"`
	PoolID       string      `json:"poolId"`
}

func (d *raydiumAdapter) GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*Quote, error) {
	params := url.Values{}
	params.Set("inputMint", inputMint)
	params.Set("outputMint", outputMint)
	params.Set("amount", strconv.FormatUint(amount, 10))
	// Raydium takes slippage as a fraction, not basis points.
	params.Set("slippage", strconv.FormatFloat(float64(slippageBps)/10000, 'f', -1, 64))

	var raw json.RawMessage
	if err := d.getJSON(ctx, "/swap/quote", params, &raw); err != nil {
		return nil, err
	}

	var parsed raydiumQuoteResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("raydium parse quote: %w", err)
	}

	outAmount, err := strconv.ParseUint(parsed.OutputAmount.String(), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("raydium outputAmount %q: %w", parsed.OutputAmount.String(), err)
	}

	route := []string{"raydium"}
	if parsed.PoolID != "" {
		route = []string{parsed.PoolID}
	}

	return &Quote{
		Venue:          d.name,
		InputMint:      inputMint,
		OutputMint:     outputMint,
		InAmount:       amount,
		OutAmount:      outAmount,
		PriceImpactPct: parsed.PriceImpact,
		FeePct:         parsed.Fee,
		Route:          route,
		Payload:        raw,
	}, nil
}

type raydiumSwapResponse struct {
	Transaction string `json:"transaction"`
}

func (d *raydiumAdapter) ExecuteSwap(ctx context.Context, quote *Quote) (string, error) {
	payload := map[string]interface{}{
		"quote":  json.RawMessage(quote.Payload),
		"wallet": d.wallet.String(),
	}

	var resp raydiumSwapResponse
	if err := d.postJSON(ctx, "/swap/transaction", payload, &resp); err != nil {
		return "", err
	}
	if resp.Transaction == "" {
		return "", fmt.Errorf("raydium returned empty swap transaction")
	}

	txBytes, err := base64.StdEncoding.DecodeString(resp.Transaction)
	if err != nil {
		return "", fmt.Errorf("raydium swap transaction decode: %w", err)
	}

	sig, err := d.submitter.SubmitTransaction(ctx, txBytes)
	if err != nil {
		return "", fmt.Errorf("raydium submit: %w", err)
	}

	d.logger.Info("Swap submitted",
		zap.String("signature", sig),
		zap.Uint64("in_amount", quote.InAmount),
		zap.Uint64("out_amount", quote.OutAmount))
	return sig, nil
}
