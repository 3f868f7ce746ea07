package mempool

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xxCool/SolanaMemeCoin-bot/internal/domain"
)

func testKey(seed byte) solana.PublicKey {
	var b [32]byte
	for i := range b {
		b[i] = seed
	}
	return solana.PublicKeyFromBytes(b[:])
}

func marshalTx(t *testing.T, keys []solana.PublicKey, instrs []solana.CompiledInstruction) []byte {
	t.Helper()

	tx := &solana.Transaction{
		Signatures: []solana.Signature{{}},
		Message: solana.Message{
			Header:          solana.MessageHeader{NumRequiredSignatures: 1},
			AccountKeys:     keys,
			RecentBlockhash: solana.Hash{},
			Instructions:    instrs,
		},
	}
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return raw
}

func accountIndexes(n int) []uint16 {
	out := make([]uint16, n)
	for i := range out {
		out[i] = uint16(i % 12)
	}
	return out
}

func TestDecodeTransaction_RaydiumLPCreation(t *testing.T) {
	mint := testKey(7)
	keys := []solana.PublicKey{
		testKey(1), // payer
		testKey(2),
		mint,
		testKey(3),
		solana.MustPublicKeyFromBase58(ProgramRaydiumV4),
	}

	// 16 accounts marks an LP creation; slot 8 points at the mint.
	accounts := accountIndexes(16)
	accounts[8] = 2

	raw := marshalTx(t, keys, []solana.CompiledInstruction{{
		ProgramIDIndex: 4,
		Accounts:       accounts,
		Data:           []byte{1, 2, 3},
	}})

	tx, err := decodeTransaction("sigLP", raw, time.Unix(100, 0))
	require.NoError(t, err)

	assert.Equal(t, domain.TxLPCreation, tx.Type)
	assert.Equal(t, ProgramRaydiumV4, tx.ProgramID)
	assert.Equal(t, mint.String(), tx.TokenMint)
	assert.Equal(t, "sigLP", tx.Signature)
	assert.Equal(t, 1, tx.InstructionCount)
}

func TestDecodeTransaction_RaydiumFewAccountsIsUnknown(t *testing.T) {
	keys := []solana.PublicKey{
		testKey(1),
		solana.MustPublicKeyFromBase58(ProgramRaydiumV4),
	}
	raw := marshalTx(t, keys, []solana.CompiledInstruction{{
		ProgramIDIndex: 1,
		Accounts:       []uint16{0, 0, 0},
		Data:           []byte{9},
	}})

	tx, err := decodeTransaction("sig", raw, time.Now())
	require.NoError(t, err)
	assert.Equal(t, domain.TxUnknown, tx.Type)
}

func TestDecodeTransaction_WhirlpoolInit(t *testing.T) {
	mint := testKey(9)
	keys := []solana.PublicKey{
		testKey(1),
		testKey(2),
		mint,
		solana.MustPublicKeyFromBase58(ProgramOrcaWhirlpool),
	}

	data := append(append([]byte{}, whirlpoolInitDiscriminator...), 0xff)
	raw := marshalTx(t, keys, []solana.CompiledInstruction{{
		ProgramIDIndex: 3,
		Accounts:       []uint16{0, 1, 2},
		Data:           data,
	}})

	tx, err := decodeTransaction("sig", raw, time.Now())
	require.NoError(t, err)
	assert.Equal(t, domain.TxLPCreation, tx.Type)
	assert.Equal(t, mint.String(), tx.TokenMint)
}

func TestDecodeTransaction_TokenMint(t *testing.T) {
	keys := []solana.PublicKey{
		testKey(1),
		solana.MustPublicKeyFromBase58(ProgramToken),
	}
	raw := marshalTx(t, keys, []solana.CompiledInstruction{{
		ProgramIDIndex: 1,
		Accounts:       []uint16{0},
		Data:           []byte{0},
	}})

	tx, err := decodeTransaction("sig", raw, time.Now())
	require.NoError(t, err)
	assert.Equal(t, domain.TxTokenMint, tx.Type)
}

func TestDecodeTransaction_JupiterSwapDirection(t *testing.T) {
	wsol := solana.MustPublicKeyFromBase58(domain.WrappedSOL)
	jupiter := solana.MustPublicKeyFromBase58(ProgramJupiterV6)

	buyRaw := marshalTx(t,
		[]solana.PublicKey{wsol, testKey(2), testKey(3), jupiter},
		[]solana.CompiledInstruction{{
			ProgramIDIndex: 3,
			Accounts:       []uint16{0, 1, 2},
			Data:           []byte{1},
		}})
	buy, err := decodeTransaction("sigBuy", buyRaw, time.Now())
	require.NoError(t, err)
	assert.Equal(t, domain.TxLargeBuy, buy.Type)

	sellRaw := marshalTx(t,
		[]solana.PublicKey{testKey(2), wsol, testKey(3), jupiter},
		[]solana.CompiledInstruction{{
			ProgramIDIndex: 3,
			Accounts:       []uint16{0, 1, 2},
			Data:           []byte{1},
		}})
	sell, err := decodeTransaction("sigSell", sellRaw, time.Now())
	require.NoError(t, err)
	assert.Equal(t, domain.TxLargeSell, sell.Type)
}

func TestDecodeTransaction_AmountAndPriorityFee(t *testing.T) {
	wsol := solana.MustPublicKeyFromBase58(domain.WrappedSOL)
	keys := []solana.PublicKey{
		wsol,
		testKey(2),
		testKey(3),
		solana.MustPublicKeyFromBase58(ProgramJupiterV6),
		solana.MustPublicKeyFromBase58(ProgramSystem),
		solana.MustPublicKeyFromBase58(ProgramComputeBudget),
	}

	// System transfer of 2.5 SOL.
	transfer := make([]byte, 12)
	binary.LittleEndian.PutUint32(transfer[0:4], 2)
	binary.LittleEndian.PutUint64(transfer[4:12], 2_500_000_000)

	// SetComputeUnitPrice at 150000 micro-lamports.
	fee := make([]byte, 9)
	fee[0] = 3
	binary.LittleEndian.PutUint64(fee[1:9], 150_000)

	raw := marshalTx(t, keys, []solana.CompiledInstruction{
		{ProgramIDIndex: 3, Accounts: []uint16{0, 1, 2}, Data: []byte{1}},
		{ProgramIDIndex: 4, Accounts: []uint16{0, 1}, Data: transfer},
		{ProgramIDIndex: 5, Accounts: nil, Data: fee},
	})

	tx, err := decodeTransaction("sig", raw, time.Now())
	require.NoError(t, err)

	assert.Equal(t, domain.TxLargeBuy, tx.Type)
	assert.InDelta(t, 2.5, tx.AmountSOL, 1e-9)
	assert.Equal(t, uint64(150_000), tx.PriorityFee)
	assert.Equal(t, 3, tx.InstructionCount)
}

func TestDecodeTransaction_Garbage(t *testing.T) {
	_, err := decodeTransaction("sig", []byte{0xde, 0xad, 0xbe, 0xef}, time.Now())
	assert.ErrorIs(t, err, ErrUnparsable)
}

func TestDecodeTransactionField(t *testing.T) {
	raw, err := decodeTransactionField([]byte(`"aGVsbG8="`))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), raw)

	raw, err = decodeTransactionField([]byte(`["aGVsbG8=", "base64"]`))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), raw)

	_, err = decodeTransactionField([]byte(`{"data": 1}`))
	assert.ErrorIs(t, err, ErrUnparsable)
}
