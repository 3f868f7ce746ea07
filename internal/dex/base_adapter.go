package dex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// baseAdapter carries what every HTTP venue adapter shares.
type baseAdapter struct {
	name      string
	apiURL    string
	client    *http.Client
	submitter Submitter
	wallet    solana.PublicKey
	logger    *zap.Logger
}

func newBaseAdapter(name, apiURL string, submitter Submitter, wallet solana.PublicKey, logger *zap.Logger) baseAdapter {
	return baseAdapter{
		name:      name,
		apiURL:    apiURL,
		client:    &http.Client{Timeout: 10 * time.Second},
		submitter: submitter,
		wallet:    wallet,
		logger:    logger,
	}
}

func (b *baseAdapter) Name() string {
	return b.name
}

func (b *baseAdapter) Close() error {
	b.client.CloseIdleConnections()
	return nil
}

// getJSON issues a GET with query params and decodes the JSON body into out.
func (b *baseAdapter) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.apiURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", b.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s returned %d: %s", b.name, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s decode response: %w", b.name, err)
	}
	return nil
}

// postJSON issues a POST with a JSON body and decodes the JSON response into out.
func (b *baseAdapter) postJSON(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.apiURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", b.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s returned %d: %s", b.name, resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s decode response: %w", b.name, err)
	}
	return nil
}
