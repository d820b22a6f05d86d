// =============================
// File: internal/bundle/feebid.go
// =============================
package bundle

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/rovshanmuradov/solana-launcher/internal/wallet"
)

// SOLToLamports converts a SOL amount to lamports.
func SOLToLamports(sol float64) uint64 {
	return uint64(sol * float64(solana.LAMPORTS_PER_SOL))
}

// TipGroup builds the fee-bid transaction group: a single transfer of the
// whole operator bid to the relay-designated tip account, paid once per
// bundle. This one payment is what buys atomic, prioritized inclusion for
// every transaction in the bundle. A zero bid is refused here; degraded
// non-prioritized submission is an explicit separate path, never a
// fallback.
func TipGroup(payer *wallet.Wallet, tipAccount solana.PublicKey, lamports uint64) (Group, error) {
	if lamports == 0 {
		return Group{}, fmt.Errorf("tip amount cannot be zero")
	}

	transferIx := system.NewTransferInstruction(
		lamports,
		payer.PublicKey,
		tipAccount,
	).Build()

	return Group{
		Wallet:       payer,
		Instructions: []solana.Instruction{transferIx},
	}, nil
}

// PriorityFeeInstructions builds the optional per-transaction compute
// budget instructions. priorityFeeSol is either "default" or a SOL amount
// as a decimal string.
func PriorityFeeInstructions(computeUnits uint32, priorityFeeSol string) ([]solana.Instruction, error) {
	var instructions []solana.Instruction

	if computeUnits == 0 {
		computeUnits = 200_000
	}
	instructions = append(instructions, computebudget.NewSetComputeUnitLimitInstruction(computeUnits).Build())

	var priorityFee uint64
	if priorityFeeSol == "default" || priorityFeeSol == "" {
		priorityFee = 5_000 // micro-lamports
	} else {
		var solValue float64
		if _, err := fmt.Sscanf(priorityFeeSol, "%f", &solValue); err != nil {
			return nil, fmt.Errorf("invalid priority fee format: %w", err)
		}
		priorityFee = uint64(solValue * 1_000_000_000_000) // SOL to micro-lamports
	}
	instructions = append(instructions, computebudget.NewSetComputeUnitPriceInstruction(priorityFee).Build())

	return instructions, nil
}
