package mempool

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/0xxCool/SolanaMemeCoin-bot/internal/domain"
)

// ErrUnparsable marks raw transaction bytes the decoder could not make
// sense of. Callers count these; they are never an error-level event.
var ErrUnparsable = errors.New("unparsable transaction")

// decodeTransaction turns raw wire bytes into a typed mempool record.
// Transactions that decode fine but match none of the monitored patterns
// come back with type TxUnknown.
func decodeTransaction(signature string, raw []byte, receivedAt time.Time) (*domain.MempoolTransaction, error) {
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, ErrUnparsable
	}

	msg := &tx.Message
	if len(msg.Instructions) == 0 || len(msg.AccountKeys) == 0 {
		return nil, ErrUnparsable
	}

	// The first instruction is treated as the main one.
	main := msg.Instructions[0]
	if int(main.ProgramIDIndex) >= len(msg.AccountKeys) {
		return nil, ErrUnparsable
	}
	programID := msg.AccountKeys[main.ProgramIDIndex].String()

	accounts := make([]string, 0, len(msg.AccountKeys))
	for _, key := range msg.AccountKeys {
		accounts = append(accounts, key.String())
	}

	return &domain.MempoolTransaction{
		Signature:        signature,
		Type:             classifyInstruction(programID, main, msg.AccountKeys),
		ProgramID:        programID,
		Accounts:         accounts,
		AmountSOL:        extractSOLAmount(msg),
		TokenMint:        extractTokenMint(programID, main, msg.AccountKeys),
		PriorityFee:      extractPriorityFee(msg),
		InstructionCount: len(msg.Instructions),
		Timestamp:        receivedAt,
	}, nil
}

func classifyInstruction(programID string, ix solana.CompiledInstruction, keys []solana.PublicKey) domain.TransactionType {
	switch programID {
	case ProgramRaydiumV4, ProgramRaydiumCLMM:
		// LP creation instructions reference an unusually long account list.
		if len(ix.Accounts) > 15 {
			return domain.TxLPCreation
		}

	case ProgramOrcaWhirlpool:
		if len(ix.Data) > 8 && bytes.Equal(ix.Data[:8], whirlpoolInitDiscriminator) {
			return domain.TxLPCreation
		}

	case ProgramJupiterV6:
		return classifyJupiterSwap(ix, keys)

	case ProgramToken:
		// InitializeMint carries a single zero discriminator byte.
		if len(ix.Data) == 1 && ix.Data[0] == 0 {
			return domain.TxTokenMint
		}
	}
	return domain.TxUnknown
}

// classifyJupiterSwap infers swap direction from account ordering: a
// wrapped-SOL input account means SOL is being spent, i.e. a buy.
func classifyJupiterSwap(ix solana.CompiledInstruction, keys []solana.PublicKey) domain.TransactionType {
	if len(ix.Accounts) <= 2 {
		return domain.TxUnknown
	}
	first := int(ix.Accounts[0])
	if first >= len(keys) {
		return domain.TxUnknown
	}
	if strings.Contains(keys[first].String(), "So11111") {
		return domain.TxLargeBuy
	}
	return domain.TxLargeSell
}

func extractTokenMint(programID string, ix solana.CompiledInstruction, keys []solana.PublicKey) string {
	switch programID {
	case ProgramRaydiumV4, ProgramRaydiumCLMM:
		if len(ix.Accounts) > 9 {
			if idx := int(ix.Accounts[8]); idx < len(keys) {
				return keys[idx].String()
			}
		}
	case ProgramOrcaWhirlpool:
		if len(ix.Accounts) > 2 {
			if idx := int(ix.Accounts[2]); idx < len(keys) {
				return keys[idx].String()
			}
		}
	}
	return ""
}

// extractSOLAmount scans for a system-program transfer and reads its
// lamports field.
func extractSOLAmount(msg *solana.Message) float64 {
	for _, ix := range msg.Instructions {
		if int(ix.ProgramIDIndex) >= len(msg.AccountKeys) {
			continue
		}
		if msg.AccountKeys[ix.ProgramIDIndex].String() != ProgramSystem {
			continue
		}
		// 4 bytes instruction type, 8 bytes lamports.
		if len(ix.Data) >= 12 {
			lamports := binary.LittleEndian.Uint64(ix.Data[4:12])
			return float64(lamports) / 1e9
		}
	}
	return 0
}

// extractPriorityFee reads the SetComputeUnitPrice value, if present.
func extractPriorityFee(msg *solana.Message) uint64 {
	for _, ix := range msg.Instructions {
		if int(ix.ProgramIDIndex) >= len(msg.AccountKeys) {
			continue
		}
		if msg.AccountKeys[ix.ProgramIDIndex].String() != ProgramComputeBudget {
			continue
		}
		if len(ix.Data) >= 9 && ix.Data[0] == 3 {
			return binary.LittleEndian.Uint64(ix.Data[1:9])
		}
	}
	return 0
}
