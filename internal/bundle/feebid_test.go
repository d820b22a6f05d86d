// =============================
// File: internal/bundle/feebid_test.go
// =============================
package bundle

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/solana-launcher/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSOLToLamports(t *testing.T) {
	assert.Equal(t, uint64(1_000_000_000), SOLToLamports(1))
	assert.Equal(t, uint64(1_000_000), SOLToLamports(0.001))
	assert.Equal(t, uint64(0), SOLToLamports(0))
}

func TestTipGroup(t *testing.T) {
	payer := wallet.Generate("payer")
	tipAccount := solana.NewWallet().PublicKey()

	group, err := TipGroup(payer, tipAccount, 100_000)
	require.NoError(t, err)

	assert.Equal(t, payer, group.Wallet)
	require.Len(t, group.Instructions, 1)
	assert.Equal(t, solana.SystemProgramID, group.Instructions[0].ProgramID())
	assert.Empty(t, group.ExtraSigners)

	metas := group.Instructions[0].Accounts()
	require.Len(t, metas, 2)
	assert.Equal(t, payer.PublicKey, metas[0].PublicKey)
	assert.Equal(t, tipAccount, metas[1].PublicKey)
}

func TestTipGroup_ZeroBidRefused(t *testing.T) {
	_, err := TipGroup(wallet.Generate("payer"), solana.NewWallet().PublicKey(), 0)
	assert.Error(t, err)
}

func TestPriorityFeeInstructions(t *testing.T) {
	instructions, err := PriorityFeeInstructions(150_000, "default")
	require.NoError(t, err)
	assert.Len(t, instructions, 2)

	instructions, err = PriorityFeeInstructions(0, "0.000001")
	require.NoError(t, err)
	assert.Len(t, instructions, 2)

	_, err = PriorityFeeInstructions(150_000, "not-a-number")
	assert.Error(t, err)
}
