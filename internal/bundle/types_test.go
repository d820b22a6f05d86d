// =============================
// File: internal/bundle/types_test.go
// =============================
package bundle

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/rovshanmuradov/solana-launcher/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transferGroup(t *testing.T, name string) Group {
	t.Helper()
	w := wallet.Generate(name)
	ix := system.NewTransferInstruction(1, w.PublicKey, solana.NewWallet().PublicKey()).Build()
	return Group{Wallet: w, Instructions: []solana.Instruction{ix}}
}

func transferGroups(t *testing.T, n int) []Group {
	t.Helper()
	groups := make([]Group, 0, n)
	for i := 0; i < n; i++ {
		groups = append(groups, transferGroup(t, "w"))
	}
	return groups
}

func TestNewPlan_Ceiling(t *testing.T) {
	plan, err := NewPlan(transferGroups(t, 5))
	require.NoError(t, err, "plan at the relay ceiling is valid")
	assert.Equal(t, 5, plan.Size())

	_, err = NewPlan(transferGroups(t, 6))
	assert.ErrorIs(t, err, ErrBundleTooLarge)
}

func TestNewPlan_Validation(t *testing.T) {
	_, err := NewPlan(nil)
	assert.Error(t, err, "empty plan rejected")

	_, err = NewPlan([]Group{{Wallet: nil, Instructions: transferGroup(t, "w").Instructions}})
	assert.Error(t, err, "group without wallet rejected")

	_, err = NewPlan([]Group{{Wallet: wallet.Generate("w")}})
	assert.Error(t, err, "group without instructions rejected")
}

func TestNewPlan_CopiesGroups(t *testing.T) {
	groups := transferGroups(t, 2)
	plan, err := NewPlan(groups)
	require.NoError(t, err)

	groups[0].Wallet = nil
	assert.NotNil(t, plan.groups[0].Wallet, "plan owns its group slice")
}

func TestOutcomeStatusString(t *testing.T) {
	assert.Equal(t, "landed", OutcomeLanded.String())
	assert.Equal(t, "rejected", OutcomeRejected.String())
	assert.Equal(t, "retries_exhausted", OutcomeRetriesExhausted.String())
}
