package dex

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// NewAdapter creates a venue adapter by name.
func NewAdapter(name string, submitter Submitter, wallet solana.PublicKey, logger *zap.Logger) (Adapter, error) {
	if submitter == nil {
		return nil, fmt.Errorf("submitter cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "jupiter":
		return newJupiterAdapter(submitter, wallet, logger), nil
	case "raydium":
		return newRaydiumAdapter(submitter, wallet, logger), nil
	case "orca":
		return newOrcaAdapter(submitter, wallet, logger), nil
	default:
		return nil, fmt.Errorf("venue %s is not supported", name)
	}
}
