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

const orcaAPIURL = "https://api.orca.so"

// orcaAdapter quotes and swaps through the Orca Whirlpool API.
type orcaAdapter struct {
	baseAdapter
}

func newOrcaAdapter(submitter Submitter, wallet solana.PublicKey, logger *zap.Logger) *orcaAdapter {
	return &orcaAdapter{
		baseAdapter: newBaseAdapter("orca", orcaAPIURL, submitter, wallet, logger.Named("orca")),
	}
}

type orcaQuoteResponse struct {
	OutAmount   json.Number `json:"outAmount"`
	PriceImpact float64     `json:"priceImpact"`
	Fee         float64     `json:"fee"`
	Route       []string    `json:"route"`
}

func (d *orcaAdapter) GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*Quote, error) {
	params := url.Values{}
	params.Set("inputMint", inputMint)
	params.Set("outputMint", outputMint)
	params.Set("amount", strconv.FormatUint(amount, 10))
	params.Set("slippageBps", strconv.Itoa(slippageBps))

	var raw json.RawMessage
	if err := d.getJSON(ctx, "/v1/quote", params, &raw); err != nil {
		return nil, err
	}

	var parsed orcaQuoteResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("orca parse quote: %w", err)
	}

	outAmount, err := strconv.ParseUint(parsed.OutAmount.String(), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("orca outAmount %q: %w", parsed.OutAmount.String(), err)
	}

	route := parsed.Route
	if len(route) == 0 {
		route = []string{"whirlpool"}
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

type orcaSwapResponse struct {
	Transaction string `json:"transaction"`
}

func (d *orcaAdapter) ExecuteSwap(ctx context.Context, quote *Quote) (string, error) {
	payload := map[string]interface{}{
		"quote":         json.RawMessage(quote.Payload),
		"userPublicKey": d.wallet.String(),
	}

	var resp orcaSwapResponse
	if err := d.postJSON(ctx, "/v1/swap", payload, &resp); err != nil {
		return "", err
	}
	if resp.Transaction == "" {
		return "", fmt.Errorf("orca returned empty swap transaction")
	}

	txBytes, err := base64.StdEncoding.DecodeString(resp.Transaction)
	if err != nil {
		return "", fmt.Errorf("orca swap transaction decode: %w", err)
	}

	sig, err := d.submitter.SubmitTransaction(ctx, txBytes)
	if err != nil {
		return "", fmt.Errorf("orca submit: %w", err)
	}

	d.logger.Info("Swap submitted",
		zap.String("signature", sig),
		zap.Uint64("in_amount", quote.InAmount),
		zap.Uint64("out_amount", quote.OutAmount))
	return sig, nil
}
