package bot

import (
	"context"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/0xxCool/SolanaMemeCoin-bot/internal/wallet"
)

// rpcSubmitter signs venue-built swap transactions and broadcasts
// them through the RPC node. It is the only place the private key is
// used.
type rpcSubmitter struct {
	client *rpc.Client
	wallet *wallet.Wallet
	logger *zap.Logger
}

func newRPCSubmitter(client *rpc.Client, w *wallet.Wallet, logger *zap.Logger) *rpcSubmitter {
	return &rpcSubmitter{
		client: client,
		wallet: w,
		logger: logger.Named("submitter"),
	}
}

func (s *rpcSubmitter) SubmitTransaction(ctx context.Context, unsignedTx []byte) (string, error) {
	if s.wallet == nil {
		return "", errors.New("no wallet configured, cannot sign transaction")
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(unsignedTx))
	if err != nil {
		return "", fmt.Errorf("failed to decode swap transaction: %w", err)
	}
	if err := s.wallet.SignTransaction(tx); err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := s.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       true,
		PreflightCommitment: rpc.CommitmentProcessed,
	})
	if err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}

	s.logger.Debug("Transaction submitted", zap.String("signature", sig.String()))
	return sig.String(), nil
}
