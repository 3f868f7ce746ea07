package mempool

import (
	"context"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"github.com/0xxCool/SolanaMemeCoin-bot/internal/domain"
)

// wellKnownMints are mints that never count as fresh tokens.
var wellKnownMints = map[string]struct{}{
	domain.WrappedSOL: {},
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": {}, // USDC
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB": {}, // USDT
}

// accountProber is the slice of the RPC client the checker needs.
type accountProber interface {
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
}

// knownTokenChecker decides whether a mint is an established token. RPC
// failures fail open to "unknown": a fresh token missed is worse than a
// known token double-checked.
type knownTokenChecker struct {
	prober accountProber
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[string]bool
}

func newKnownTokenChecker(prober accountProber, logger *zap.Logger) *knownTokenChecker {
	return &knownTokenChecker{
		prober: prober,
		logger: logger,
		cache:  make(map[string]bool),
	}
}

// IsKnown reports whether the mint is an established on-chain token.
func (k *knownTokenChecker) IsKnown(ctx context.Context, mint string) bool {
	if _, ok := wellKnownMints[mint]; ok {
		return true
	}

	raw, err := base58.Decode(mint)
	if err != nil || len(raw) != 32 {
		return false
	}

	k.mu.RLock()
	known, cached := k.cache[mint]
	k.mu.RUnlock()
	if cached {
		return known
	}

	known = k.probe(ctx, mint)

	k.mu.Lock()
	k.cache[mint] = known
	k.mu.Unlock()
	return known
}

func (k *knownTokenChecker) probe(ctx context.Context, mint string) bool {
	if k.prober == nil {
		return false
	}

	pubkey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return false
	}

	info, err := k.prober.GetAccountInfo(ctx, pubkey)
	if err != nil {
		k.logger.Debug("Account probe failed, treating token as unknown",
			zap.String("mint", mint),
			zap.Error(err))
		return false
	}
	return info != nil && info.Value != nil
}
