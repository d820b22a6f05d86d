// =============================
// File: internal/bundle/assembler.go
// =============================
package bundle

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Assembler seals plans into signed envelopes. Signing the N wallet
// transactions is embarrassingly parallel (independent keys, independent
// data); the errgroup join is the synchronization barrier before anything
// is submitted.
type Assembler struct {
	logger *zap.Logger
}

func NewAssembler(logger *zap.Logger) *Assembler {
	return &Assembler{logger: logger.Named("assembler")}
}

// Seal builds and signs one transaction per plan group, all carrying the
// same blockhash. The resulting envelope preserves plan order exactly.
// Sealing the same plan with a fresh blockhash yields byte-identical
// instruction payloads under new signatures, which is how expired attempts
// are re-submitted.
func (a *Assembler) Seal(ctx context.Context, plan *Plan, blockhash solana.Hash) (*Envelope, error) {
	transactions := make([]*solana.Transaction, plan.Size())

	g, _ := errgroup.WithContext(ctx)
	for i := range plan.groups {
		g.Go(func() error {
			group := plan.groups[i]
			tx, err := solana.NewTransaction(
				group.Instructions,
				blockhash,
				solana.TransactionPayer(group.Wallet.PublicKey),
			)
			if err != nil {
				return fmt.Errorf("create transaction %d: %w", i, err)
			}
			if err := group.Wallet.SignTransaction(tx, group.ExtraSigners...); err != nil {
				return fmt.Errorf("sign transaction %d: %w", i, err)
			}
			transactions[i] = tx
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	a.logger.Debug("Sealed bundle envelope",
		zap.Int("transactions", len(transactions)),
		zap.String("blockhash", blockhash.String()))

	return &Envelope{
		Transactions: transactions,
		Blockhash:    blockhash,
	}, nil
}
