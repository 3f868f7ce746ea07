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

const jupiterAPIURL = "https://quote-api.jup.ag/v6"

// jupiterAdapter quotes and swaps through the Jupiter v6 aggregator API.
type jupiterAdapter struct {
	baseAdapter
}

func newJupiterAdapter(submitter Submitter, wallet solana.PublicKey, logger *zap.Logger) *jupiterAdapter {
	return &jupiterAdapter{
		baseAdapter: newBaseAdapter("jupiter", jupiterAPIURL, submitter, wallet, logger.Named("jupiter")),
	}
}

type jupiterQuoteResponse struct {
	OutAmount      string `json:"outAmount"`
	PriceImpactPct string `json:"priceImpactPct"`
	RoutePlan      []struct {
		SwapInfo struct {
			AmmKey string `json:"ammKey"`
			Label  string `json:"label"`
		} `json:"swapInfo"`
	} `json:"routePlan"`
}

func (d *jupiterAdapter) GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*Quote, error) {
	params := url.Values{}
	params.Set("inputMint", inputMint)
	params.Set("outputMint", outputMint)
	params.Set("amount", strconv.FormatUint(amount, 10))
	params.Set("slippageBps", strconv.Itoa(slippageBps))

	var raw json.RawMessage
	if err := d.getJSON(ctx, "/quote", params, &raw); err != nil {
		return nil, err
	}

	var parsed jupiterQuoteResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("jupiter parse quote: %w", err)
	}

	outAmount, err := strconv.ParseUint(parsed.OutAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("jupiter outAmount %q: %w", parsed.OutAmount, err)
	}
	impact, _ := strconv.ParseFloat(parsed.PriceImpactPct, 64)

	route := make([]string, 0, len(parsed.RoutePlan))
	for _, hop := range parsed.RoutePlan {
		route = append(route, hop.SwapInfo.Label)
	}

	return &Quote{
		Venue:          d.name,
		InputMint:      inputMint,
		OutputMint:     outputMint,
		InAmount:       amount,
		OutAmount:      outAmount,
		PriceImpactPct: impact * 100,
		Route:          route,
		Payload:        raw,
	}, nil
}

type jupiterSwapResponse struct {
	SwapTransaction string `json:"swapTransaction"`
}

func (d *jupiterAdapter) ExecuteSwap(ctx context.Context, quote *Quote) (string, error) {
	payload := map[string]interface{}{
		"quoteResponse":    json.RawMessage(quote.Payload),
		"userPublicKey":    d.wallet.String(),
		"wrapAndUnwrapSol": true,
	}

	var resp jupiterSwapResponse
	if err := d.postJSON(ctx, "/swap", payload, &resp); err != nil {
		return "", err
	}
	if resp.SwapTransaction == "" {
		return "", fmt.Errorf("jupiter returned empty swap transaction")
	}

	txBytes, err := base64.StdEncoding.DecodeString(resp.SwapTransaction)
	if err != nil {
		return "", fmt.Errorf("jupiter swap transaction decode: %w", err)
	}

	sig, err := d.submitter.SubmitTransaction(ctx, txBytes)
	if err != nil {
		return "", fmt.Errorf("jupiter submit: %w", err)
	}

	d.logger.Info("Swap submitted",
		zap.String("signature", sig),
		zap.Uint64("in_amount", quote.InAmount),
		zap.Uint64("out_amount", quote.OutAmount))
	return sig, nil
}
