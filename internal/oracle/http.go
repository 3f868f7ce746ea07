package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HTTPPredictor talks to an external scoring service over JSON.
type HTTPPredictor struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

func NewHTTPPredictor(url string, logger *zap.Logger) *HTTPPredictor {
	return &HTTPPredictor{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
		logger: logger.Named("oracle"),
	}
}

func (p *HTTPPredictor) Predict(ctx context.Context, features Features) (*Prediction, error) {
	body, err := json.Marshal(features)
	if err != nil {
		return nil, fmt.Errorf("encode features: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oracle request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("oracle returned %d: %s", resp.StatusCode, string(raw))
	}

	var prediction Prediction
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return nil, fmt.Errorf("decode prediction: %w", err)
	}
	return &prediction, nil
}
